// Package report prints tracker state for terminals.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/rivo/uniseg"

	"github.com/walteh/emmetls/pkg/tracker"
)

// Pointer renders a caret under the rune at pos of text. Columns are
// measured in terminal cells so that wide characters line up.
func Pointer(text string, pos int) string {
	runes := []rune(text)
	pos = min(max(pos, 0), len(runes))
	return strings.Repeat("-", uniseg.StringWidth(string(runes[:pos]))) + "^"
}

type Printer struct {
	w io.Writer

	label *color.Color
	valid *color.Color
	bad   *color.Color
	faint *color.Color
}

func NewPrinter(w io.Writer, colorize bool) *Printer {
	p := &Printer{
		w:     w,
		label: color.New(color.Bold),
		valid: color.New(color.FgGreen),
		bad:   color.New(color.FgRed, color.Bold),
		faint: color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.label, p.valid, p.bad, p.faint} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Tracker prints t, or a placeholder line when nothing is tracked.
func (p *Printer) Tracker(t *tracker.Tracker) {
	if t == nil {
		fmt.Fprintln(p.w, p.faint.Sprint("  no abbreviation"))
		return
	}

	flags := ""
	if t.Forced {
		flags = " forced"
	}
	fmt.Fprintf(p.w, "  %s %q %s%s\n", p.label.Sprint(t.State.Kind()), t.Abbreviation, p.faint.Sprint(t.Region), flags)

	switch st := t.State.(type) {
	case tracker.ValidState:
		for _, line := range strings.Split(st.Preview, "\n") {
			fmt.Fprintln(p.w, "    "+p.valid.Sprint(line))
		}
	case tracker.ErrorState:
		p.Error(t.Abbreviation, st.Message, st.Pos)
	}
}

// Error prints msg with a pointer under pos of abbr.
func (p *Printer) Error(abbr, msg string, pos int) {
	fmt.Fprintln(p.w, "    "+abbr)
	fmt.Fprintln(p.w, "    "+p.bad.Sprint(Pointer(abbr, pos)))
	fmt.Fprintln(p.w, "    "+p.bad.Sprint(msg))
}

func (p *Printer) Heading(format string, args ...any) {
	fmt.Fprintln(p.w, p.label.Sprintf(format, args...))
}

func (p *Printer) Text(text string) {
	fmt.Fprintln(p.w, text)
}
