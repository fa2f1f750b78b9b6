package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/librarian/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSuggestion() model.Suggestion {
	return model.Suggestion{
		Path:        "/home/user/Downloads/episode_3_draft.txt",
		Category:    "Creative",
		Destination: "/home/user/Documents/Library/Creative",
		RuleName:    "creative-drafts",
	}
}

func TestPrompter_ReviewSuggestion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ReviewChoice
		wantErr error
	}{
		{name: "accept", input: "a\n", want: ChoiceAccept},
		{name: "accept uppercase", input: "A\n", want: ChoiceAccept},
		{name: "reject", input: "r\n", want: ChoiceReject},
		{name: "skip", input: "s\n", want: ChoiceSkip},
		{name: "invalid then accept", input: "x\na\n", want: ChoiceAccept},
		{name: "quit", input: "q\n", want: ChoiceSkip, wantErr: ErrInputCancelled},
		{name: "end of input", input: "", want: ChoiceSkip, wantErr: ErrInputCancelled},
		{name: "final line without newline", input: "r", want: ChoiceReject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompter(strings.NewReader(tt.input), &out)

			got, err := p.ReviewSuggestion(context.Background(), testSuggestion(), 1, 3)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Suggestion 1 of 3: Creative")
			assert.Contains(t, out.String(), "episode_3_draft.txt")
		})
	}
}

func TestPrompter_InvalidChoiceMessage(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("maybe\ns\n"), &out)

	_, err := p.ReviewSuggestion(context.Background(), testSuggestion(), 2, 2)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Invalid choice")
}

func TestPrompter_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "y\n", want: true},
		{input: "YES\n", want: true},
		{input: "n\n", want: false},
		{input: "\n", want: false},
		{input: "sure\n", want: false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			p := NewPrompter(strings.NewReader(tt.input), io.Discard)
			got, err := p.Confirm(context.Background(), "Move 3 files?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLineReader_ContextCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()

	r := NewLineReader(pr)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.ReadLine(ctx)
	assert.ErrorIs(t, err, ErrInputCancelled)
	assert.True(t, IsCancelled(err))
}

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(ErrInputCancelled))
	assert.False(t, IsCancelled(context.Canceled))
	assert.False(t, IsCancelled(errors.New("disk full")))
	assert.False(t, IsCancelled(nil))
}

func TestReviewChoice_String(t *testing.T) {
	assert.Equal(t, "accept", ChoiceAccept.String())
	assert.Equal(t, "reject", ChoiceReject.String())
	assert.Equal(t, "skip", ChoiceSkip.String())
}

func TestFormatters(t *testing.T) {
	assert.Contains(t, FormatSuccess("done"), "done")
	assert.Contains(t, FormatError("failed"), "failed")
	assert.Contains(t, FormatWarning("careful"), "careful")
	assert.Contains(t, FormatInfo("note"), "note")
	assert.Contains(t, FormatTitle("Status"), "Status")
	assert.Contains(t, RenderBox("Title", "body"), "body")
}

func TestProgress_NilSafe(t *testing.T) {
	var p *Progress
	p.Increment()
	p.Finish()

	var out bytes.Buffer
	bar := NewProgress(&out, 2, "Indexing")
	bar.Increment()
	bar.Increment()
	bar.Finish()
}
