package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/bulktube/bulktube/internal/pipeline"
)

// cliProgress renders upload progress to the terminal. With a TTY and a
// single worker it draws a live byte bar per file; otherwise it falls back
// to one status line per finished file so logs stay readable.
type cliProgress struct {
	interactive bool

	mu   sync.Mutex
	bars map[string]*progressbar.ProgressBar
}

// newCLIProgress builds the progress sink for a batch run.
func newCLIProgress(workers int) *cliProgress {
	return &cliProgress{
		interactive: workers == 1 && !flagQuiet && isatty.IsTerminal(os.Stderr.Fd()),
		bars:        make(map[string]*progressbar.ProgressBar),
	}
}

func (p *cliProgress) FileStarted(path string, size int64) {
	if !p.interactive || size <= 0 {
		return
	}

	bar := progressbar.DefaultBytes(size, truncateCell(filepath.Base(path), 40))

	p.mu.Lock()
	p.bars[path] = bar
	p.mu.Unlock()
}

func (p *cliProgress) FileProgress(path string, sent, _ int64) {
	p.mu.Lock()
	bar := p.bars[path]
	p.mu.Unlock()

	if bar != nil {
		_ = bar.Set64(sent) //nolint:errcheck // display only
	}
}

func (p *cliProgress) FileFinished(path string, outcome pipeline.Outcome, detail string) {
	p.mu.Lock()
	if bar := p.bars[path]; bar != nil {
		_ = bar.Finish() //nolint:errcheck // display only
		delete(p.bars, path)
	}
	p.mu.Unlock()

	name := filepath.Base(path)

	switch outcome {
	case pipeline.OutcomeUploaded:
		statusf("✓ %s (%s)\n", name, detail)
	case pipeline.OutcomeSkipped:
		statusf("- %s: %s\n", name, detail)
	case pipeline.OutcomePreviewed:
		statusf("· %s -> %q\n", name, detail)
	case pipeline.OutcomeFailed:
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "✗ %s: %s\n", name, detail)
		}
	case pipeline.OutcomeHalted:
	}
}
