package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"dcmcanon/internal/pipeline"
)

// Bar renders a single-line progress bar labelled with the last record and
// the tier that handled it.
type Bar struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewBar returns a bar writing to out.
func NewBar(out io.Writer) *Bar {
	return &Bar{out: out}
}

func (b *Bar) Start(_ string, total int) {
	b.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(b.out),
		progressbar.OptionSetDescription("converting"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (b *Bar) FileDone(ev pipeline.Event) {
	if b.bar == nil {
		return
	}
	b.bar.Describe(Describe(ev))
	// Done rather than Add: dropped events must not leave the bar behind.
	_ = b.bar.Set(ev.Done)
}

func (b *Bar) Finish(report pipeline.Report) {
	if b.bar == nil {
		return
	}
	b.bar.Describe(fmt.Sprintf("done ok=%d failed=%d", report.Succeeded, report.Failed))
	_ = b.bar.Set(report.Total)
	_ = b.bar.Finish()
	fmt.Fprintln(b.out)
}

// Describe renders "<file> (<tool>) ok=N" for an event; failed records show
// "failed" in place of the tool.
func Describe(ev pipeline.Event) string {
	method := ev.Outcome.Tool
	if !ev.Outcome.Success {
		method = "failed"
	}
	return fmt.Sprintf("%s (%s) ok=%d", filepath.Base(ev.Outcome.Path), method, ev.Succeeded)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
