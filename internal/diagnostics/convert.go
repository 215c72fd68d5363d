package diagnostics

import (
	"errors"

	"github.com/electwix/pebble/internal/db"
	"github.com/electwix/pebble/internal/filter"
	"github.com/electwix/pebble/internal/query"
)

// FromError converts err into an error diagnostic. Filter format errors keep
// the offending string and offset so the formatter can point at it.
func FromError(err error) Diagnostic {
	d := Diagnostic{Severity: SeverityError, Message: err.Error(), Offset: -1}

	var formatErr *filter.FormatError
	var mismatch *filter.TypeMismatchError
	var sizeErr *db.SizeExceededError
	switch {
	case errors.As(err, &formatErr):
		d.Source = "filter"
		d.Input = formatErr.Input
		d.Offset = formatErr.Offset
		d.Notes = append(d.Notes, formatErr.Reason)
	case errors.As(err, &mismatch):
		d.Source = "filter"
		d.Notes = append(d.Notes, "ordered operators need two numbers or two strings")
	case errors.Is(err, filter.ErrUnsupportedScope), errors.Is(err, filter.ErrUnsupportedOperator):
		d.Source = "filter"
	case errors.Is(err, query.ErrEmptyQuery):
		d.Source = "query"
	case errors.As(err, &sizeErr):
		d.Source = "db"
		d.Notes = append(d.Notes, "raise storage.object_size_limit to store more records")
	case errors.Is(err, db.ErrTableNotFound), errors.Is(err, db.ErrRecordNotFound):
		d.Source = "db"
	}
	return d
}

// FromQuery returns a warning for every clause of expr that was skipped
// because it did not parse.
func FromQuery(expr *query.Expression) []Diagnostic {
	skipped := expr.Skipped()
	out := make([]Diagnostic, 0, len(skipped))
	for _, err := range skipped {
		d := FromError(err)
		d.Severity = SeverityWarning
		d.Source = "query"
		d.Notes = append(d.Notes, "clause skipped")
		out = append(out, d)
	}
	return out
}
