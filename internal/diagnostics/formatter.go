package diagnostics

import (
	"fmt"
	"io"
	"strings"
)

// Formatter formats diagnostics for display.
type Formatter struct {
	// ShowSource prefixes the message with the producing component.
	ShowSource bool
	// Colorize controls whether to use ANSI color codes.
	Colorize bool
}

// Format renders one diagnostic. When it has a location the input is
// printed with a caret under the offset:
//
//	error: invalid filter string ...
//	  --> users..==.ALL.1
//	           ^
//	  note: expected field name
func (f *Formatter) Format(d Diagnostic) string {
	var b strings.Builder

	b.WriteString(f.colorize(d.Severity.String(), f.severityColor(d.Severity)))
	if f.ShowSource && d.Source != "" {
		fmt.Fprintf(&b, "[%s]", d.Source)
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	b.WriteByte('\n')

	if d.HasLocation() {
		arrow := f.colorize("-->", colorBlue)
		fmt.Fprintf(&b, "  %s %s\n", arrow, d.Input)
		// The caret lines up under Input: two spaces, the arrow and a space.
		b.WriteString(strings.Repeat(" ", 6+d.Offset))
		b.WriteString(f.colorize("^", colorRed))
		b.WriteByte('\n')
	}
	for _, note := range d.Notes {
		fmt.Fprintf(&b, "  %s %s\n", f.colorize("note:", colorBlue), note)
	}
	return b.String()
}

// Write renders every diagnostic of c to w.
func (f *Formatter) Write(w io.Writer, c *Collection) error {
	for _, d := range c.All() {
		if _, err := io.WriteString(w, f.Format(d)); err != nil {
			return err
		}
	}
	return nil
}

func (f *Formatter) severityColor(s Severity) string {
	switch s {
	case SeverityError:
		return colorRed
	case SeverityWarning:
		return colorYellow
	case SeverityInfo:
		return colorBlue
	default:
		return colorReset
	}
}

func (f *Formatter) colorize(s, color string) string {
	if !f.Colorize {
		return s
	}
	return color + s + colorReset
}

// ANSI color codes.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
)
