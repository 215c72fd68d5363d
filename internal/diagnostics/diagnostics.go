// Package diagnostics renders pebble errors and warnings for people.
package diagnostics

// Severity represents the severity level of a diagnostic.
type Severity int

const (
	// SeverityError indicates a failed command.
	SeverityError Severity = iota
	// SeverityWarning indicates input that was accepted but partly ignored.
	SeverityWarning
	// SeverityInfo indicates informational output.
	SeverityInfo
)

// String returns the string representation of a severity level.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Diagnostic is one message about a command, optionally pointing into the
// filter or query string that caused it.
type Diagnostic struct {
	Severity Severity
	Message  string
	// Source names the component that produced the diagnostic, e.g. "filter".
	Source string
	// Input is the string Offset points into. Empty when there is no
	// location.
	Input string
	// Offset is a byte offset into Input.
	Offset int
	Notes  []string
}

// HasLocation reports whether the diagnostic points into its input.
func (d Diagnostic) HasLocation() bool {
	return d.Input != "" && d.Offset >= 0 && d.Offset <= len(d.Input)
}

// IsError returns true if this is an error-level diagnostic.
func (d Diagnostic) IsError() bool { return d.Severity == SeverityError }

// Collection holds a set of diagnostics.
type Collection struct {
	diagnostics []Diagnostic
}

// Add adds diagnostics to the collection.
func (c *Collection) Add(ds ...Diagnostic) {
	c.diagnostics = append(c.diagnostics, ds...)
}

// HasErrors returns true if the collection contains any errors.
func (c *Collection) HasErrors() bool {
	for _, d := range c.diagnostics {
		if d.IsError() {
			return true
		}
	}
	return false
}

// All returns all diagnostics.
func (c *Collection) All() []Diagnostic {
	return append([]Diagnostic(nil), c.diagnostics...)
}

// Len returns the number of diagnostics.
func (c *Collection) Len() int { return len(c.diagnostics) }

// Summary provides a quick overview of diagnostics.
type Summary struct {
	Total    int
	Errors   int
	Warnings int
	Infos    int
}

// Summary returns a summary of the diagnostics collection.
func (c *Collection) Summary() Summary {
	s := Summary{Total: len(c.diagnostics)}
	for _, d := range c.diagnostics {
		switch d.Severity {
		case SeverityError:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		case SeverityInfo:
			s.Infos++
		}
	}
	return s
}
