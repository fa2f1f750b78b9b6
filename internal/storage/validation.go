package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/librarian/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidFile       = errors.New("invalid file record")
	ErrInvalidMove       = errors.New("invalid move record")
	ErrInvalidStaged     = errors.New("invalid staged file")
	ErrInvalidSuggestion = errors.New("invalid suggestion")
	ErrInvalidStatus     = errors.New("invalid file status")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateFileRecord(f model.FileRecord) error {
	if strings.TrimSpace(f.Path) == "" {
		return fmt.Errorf("%w: missing path", ErrInvalidFile)
	}
	if f.Size < 0 {
		return fmt.Errorf("%w: negative size", ErrInvalidFile)
	}
	return nil
}

func validateStatus(status model.FileStatus) error {
	switch status {
	case model.FileActive, model.FileMoved, model.FileStaged, model.FileMissing:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
}

func validateMove(m *model.MoveRecord) error {
	if m == nil {
		return fmt.Errorf("%w: move", ErrNilParameter)
	}
	if m.ID == "" || m.BatchID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMove)
	}
	if m.Source == "" || m.Destination == "" {
		return fmt.Errorf("%w: missing source or destination", ErrInvalidMove)
	}
	if m.MovedAt.IsZero() {
		return fmt.Errorf("%w: missing time", ErrInvalidMove)
	}
	return nil
}

func validateStaged(s *model.StagedFile) error {
	if s == nil {
		return fmt.Errorf("%w: staged file", ErrNilParameter)
	}
	if s.Path == "" || s.OriginalPath == "" {
		return fmt.Errorf("%w: missing path", ErrInvalidStaged)
	}
	if s.StagedAt.IsZero() {
		return fmt.Errorf("%w: missing time", ErrInvalidStaged)
	}
	return nil
}

func validateSuggestion(s *model.Suggestion) error {
	if s == nil {
		return fmt.Errorf("%w: suggestion", ErrNilParameter)
	}
	if s.Path == "" || s.Category == "" || s.Destination == "" {
		return fmt.Errorf("%w: missing path, category or destination", ErrInvalidSuggestion)
	}
	if s.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing time", ErrInvalidSuggestion)
	}
	return nil
}
