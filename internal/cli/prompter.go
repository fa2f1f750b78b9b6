package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/librarian/internal/model"
)

// ReviewChoice is the user's answer to a pending suggestion.
type ReviewChoice int

// Review choices.
const (
	ChoiceAccept ReviewChoice = iota
	ChoiceReject
	ChoiceSkip
)

// String returns the choice name.
func (c ReviewChoice) String() string {
	switch c {
	case ChoiceAccept:
		return "accept"
	case ChoiceReject:
		return "reject"
	default:
		return "skip"
	}
}

// Prompter asks the user to confirm suggestions and destructive operations.
type Prompter struct {
	reader *LineReader
	writer io.Writer
}

// NewPrompter creates a prompter reading from r and writing to w. Nil values
// default to stdin and stdout.
func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &Prompter{reader: NewLineReader(r), writer: w}
}

// ReviewSuggestion shows one suggestion and returns the user's choice. Choosing
// quit returns ErrInputCancelled.
func (p *Prompter) ReviewSuggestion(ctx context.Context, s model.Suggestion, position, total int) (ReviewChoice, error) {
	details := fmt.Sprintf("  File: %s\n", filepath.Base(s.Path)) +
		fmt.Sprintf("  From: %s\n", filepath.Dir(s.Path)) +
		fmt.Sprintf("  Suggested folder: %s\n", SuccessStyle.Render(s.Destination))
	if s.RuleName != "" {
		details += fmt.Sprintf("  Rule: %s\n", s.RuleName)
	}

	title := fmt.Sprintf("Suggestion %d of %d: %s", position, total, s.Category)
	if _, err := fmt.Fprintln(p.writer, RenderBox(title, details)); err != nil {
		return ChoiceSkip, fmt.Errorf("failed to write suggestion: %w", err)
	}

	options := "  [A] Accept and move\n" +
		"  [R] Reject and send to staging\n" +
		"  [S] Skip for now\n" +
		"  [Q] Quit review\n"
	if _, err := fmt.Fprint(p.writer, options); err != nil {
		return ChoiceSkip, fmt.Errorf("failed to write options: %w", err)
	}

	choice, err := p.promptChoice(ctx, "Choice", []string{"a", "r", "s", "q"})
	if err != nil {
		return ChoiceSkip, err
	}

	switch choice {
	case "a":
		return ChoiceAccept, nil
	case "r":
		return ChoiceReject, nil
	case "q":
		return ChoiceSkip, ErrInputCancelled
	default:
		return ChoiceSkip, nil
	}
}

// Confirm asks a yes/no question. Anything but yes is no.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	if _, err := fmt.Fprintf(p.writer, "%s ", FormatPrompt(question+" [y/N]")); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}

	answer, err := p.reader.ReadLine(ctx)
	if err != nil {
		return false, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (p *Prompter) promptChoice(ctx context.Context, prompt string, validChoices []string) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", ErrInputCancelled
		}

		if _, err := fmt.Fprintf(p.writer, "%s ", FormatPrompt(prompt)); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}

		input, err := p.reader.ReadLine(ctx)
		if err != nil {
			return "", err
		}

		choice := strings.ToLower(input)
		for _, valid := range validChoices {
			if choice == valid {
				return choice, nil
			}
		}

		if _, err := fmt.Fprintln(p.writer, FormatError("Invalid choice. Please try again.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}
