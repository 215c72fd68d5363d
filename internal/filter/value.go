package filter

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind tags the variant a clause value was coerced into.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindBoolean
	KindNull
	KindFloat
	KindDate
	KindDateTime
	KindDecimal
	KindPath
	KindTime
	KindUUID
)

// String returns the lower-case type name used in clause descriptions.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindNull:
		return "null"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindDecimal:
		return "decimal"
	case KindPath:
		return "path"
	case KindTime:
		return "time"
	case KindUUID:
		return "uuid"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Path is a filesystem path value. Coerce only produces it for paths that
// exist, resolved to an absolute form.
type Path string

// Value is a clause value tagged with the kind it was coerced into.
type Value struct {
	Kind Kind
	Raw  string
	v    any
}

// Interface returns the typed Go value: string, int64, bool, nil, float64,
// time.Time, decimal.Decimal, Path or uuid.UUID depending on Kind.
func (v Value) Interface() any { return v.v }

// String returns the text the value was parsed from.
func (v Value) String() string { return v.Raw }

// StringValue wraps s without coercion, as quoted clause values are.
func StringValue(s string) Value {
	return Value{Kind: KindString, Raw: s, v: s}
}

type coercer struct {
	kind  Kind
	parse func(string) (any, bool)
}

// coercers run in priority order; the first successful parser wins.
var coercers = []coercer{
	{KindInteger, parseInteger},
	{KindBoolean, parseBoolean},
	{KindNull, parseNull},
	{KindFloat, parseSpecialFloat},
	{KindDate, parseDate},
	{KindDateTime, parseDateTime},
	{KindDecimal, parseDecimal},
	{KindPath, parsePath},
	{KindTime, parseTimeOfDay},
	{KindUUID, parseUUID},
}

// Coerce converts an unquoted clause value into the richest primitive it
// parses as, trying integer, boolean, null, special float, date, datetime,
// decimal, existing path, time of day and UUID in that order. Anything else
// stays a string.
func Coerce(raw string) Value {
	for _, c := range coercers {
		if v, ok := c.parse(raw); ok {
			return Value{Kind: c.kind, Raw: raw, v: v}
		}
	}
	return StringValue(raw)
}

func parseInteger(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return nil, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Out of int64 range; left for the decimal parser.
		return nil, false
	}
	return n, true
}

func parseBoolean(s string) (any, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return nil, false
	}
}

func parseNull(s string) (any, bool) {
	switch strings.ToLower(s) {
	case "none", "null":
		return nil, true
	default:
		return nil, false
	}
}

func parseSpecialFloat(s string) (any, bool) {
	switch strings.ToLower(s) {
	case "nan":
		return math.NaN(), true
	case "inf":
		return math.Inf(1), true
	case "-inf":
		return math.Inf(-1), true
	default:
		return nil, false
	}
}

const dateLayout = "2006-01-02"

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

var timeOfDayLayouts = []string{
	"15:04:05",
	"15:04",
}

func parseDate(s string) (any, bool) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, false
	}
	return t, true
}

func parseDateTime(s string) (any, bool) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return nil, false
}

func parseDecimal(s string) (any, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, false
	}
	return d, true
}

func parsePath(s string) (any, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, false
	}
	if _, err := os.Stat(s); err != nil {
		return nil, false
	}
	abs, err := filepath.Abs(s)
	if err != nil {
		return nil, false
	}
	return Path(abs), true
}

func parseTimeOfDay(s string) (any, bool) {
	for _, layout := range timeOfDayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return nil, false
}

func parseUUID(s string) (any, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, false
	}
	return id, true
}

// coerceRecordValue parses a record string into the clause value's kind for
// kinds that are stored as text in JSON documents. Numbers and booleans are
// never taken out of strings.
func coerceRecordValue(v any, kind Kind) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	var parse func(string) (any, bool)
	switch kind {
	case KindDate:
		parse = parseDate
	case KindDateTime:
		parse = parseDateTime
	case KindTime:
		parse = parseTimeOfDay
	case KindUUID:
		parse = parseUUID
	case KindPath:
		parse = func(s string) (any, bool) {
			abs, err := filepath.Abs(s)
			if err != nil {
				return nil, false
			}
			return Path(abs), true
		}
	default:
		return v
	}
	if parsed, ok := parse(s); ok {
		return parsed
	}
	return v
}
