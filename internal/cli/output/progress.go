package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
)

// Progress draws a single-line progress bar, redrawn in place.
type Progress struct {
	w     io.Writer
	label string
	bar   progress.Model
	last  int
	done  bool
}

// Progress returns a chunk progress bar on the diagnostics writer, or nil
// when the terminal cannot show one or the output is structured.
func (r *Renderer) Progress(label string, enabled bool) *Progress {
	if !enabled || !r.isTTY || !isTerminal(r.errOut) {
		return nil
	}
	return newProgress(r.errOut, label)
}

func newProgress(w io.Writer, label string) *Progress {
	return &Progress{
		w:     w,
		label: label,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		last:  -1,
	}
}

// Update redraws the bar when the whole percentage changed. It matches the
// engine's progress callback signature.
func (p *Progress) Update(done, total int) {
	if p == nil || total <= 0 || p.done {
		return
	}
	frac := float64(done) / float64(total)
	pct := int(frac * 100)
	if pct == p.last {
		return
	}
	p.last = pct
	_, _ = fmt.Fprintf(p.w, "\r%s %s %d/%d", p.label, p.bar.ViewAs(frac), done, total)
	if done >= total {
		p.Finish()
	}
}

// Finish ends the bar line.
func (p *Progress) Finish() {
	if p == nil || p.done {
		return
	}
	p.done = true
	_, _ = fmt.Fprintln(p.w)
}

// Func returns Update as a callback, or nil for a nil bar.
func (p *Progress) Func() func(done, total int) {
	if p == nil {
		return nil
	}
	return p.Update
}
