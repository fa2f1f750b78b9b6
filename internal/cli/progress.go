package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
)

// Progress is a counting progress bar. A nil *Progress is a no-op.
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress creates a progress bar for total items.
func NewProgress(w io.Writer, total int, description string) *Progress {
	p := &Progress{}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return p
}

// Increment advances the bar by one.
func (p *Progress) Increment() {
	if p == nil || p.bar == nil {
		return
	}
	if err := p.bar.Add(1); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Finish completes the bar.
func (p *Progress) Finish() {
	if p == nil || p.bar == nil {
		return
	}
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
}
