package filter

import (
	"bytes"
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Compare applies op to left (the record value) and right (the clause value).
// For in and not in, left is the container. Ordered operators fail with
// *TypeMismatchError when the operands have no common ordering; in and not in
// never fail.
func Compare(op Operator, left, right any) (bool, error) {
	switch op {
	case OpEqual, OpIs:
		return equal(left, right), nil
	case OpNotEqual, OpIsNot:
		return !equal(left, right), nil
	case OpLess, OpGreater, OpLessEqual, OpGreaterEqual:
		cmp, ok := order(left, right)
		if !ok {
			return false, &TypeMismatchError{Operator: op, Left: left, Right: right}
		}
		switch op {
		case OpLess:
			return cmp < 0, nil
		case OpGreater:
			return cmp > 0, nil
		case OpLessEqual:
			return cmp <= 0, nil
		default:
			return cmp >= 0, nil
		}
	case OpIn:
		in, ok := contains(right, left)
		return ok && in, nil
	case OpNotIn:
		in, ok := contains(right, left)
		return !ok || !in, nil
	default:
		return false, &OperatorError{Operator: op}
	}
}

// numeric is a number lifted into a comparable form. Finite values use dec;
// NaN and the infinities keep only f.
type numeric struct {
	dec    decimal.Decimal
	f      float64
	finite bool
}

func toNumeric(v any) (numeric, bool) {
	switch n := v.(type) {
	case int:
		return numeric{dec: decimal.NewFromInt(int64(n)), f: float64(n), finite: true}, true
	case int8:
		return numeric{dec: decimal.NewFromInt(int64(n)), f: float64(n), finite: true}, true
	case int16:
		return numeric{dec: decimal.NewFromInt(int64(n)), f: float64(n), finite: true}, true
	case int32:
		return numeric{dec: decimal.NewFromInt32(n), f: float64(n), finite: true}, true
	case int64:
		return numeric{dec: decimal.NewFromInt(n), f: float64(n), finite: true}, true
	case uint:
		return numeric{dec: fromUint64(uint64(n)), f: float64(n), finite: true}, true
	case uint8:
		return numeric{dec: decimal.NewFromInt(int64(n)), f: float64(n), finite: true}, true
	case uint16:
		return numeric{dec: decimal.NewFromInt(int64(n)), f: float64(n), finite: true}, true
	case uint32:
		return numeric{dec: decimal.NewFromInt(int64(n)), f: float64(n), finite: true}, true
	case uint64:
		return numeric{dec: fromUint64(n), f: float64(n), finite: true}, true
	case float32:
		return fromFloat(float64(n)), true
	case float64:
		return fromFloat(n), true
	case decimal.Decimal:
		f, _ := n.Float64()
		return numeric{dec: n, f: f, finite: true}, true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return numeric{}, false
		}
		f, _ := d.Float64()
		return numeric{dec: d, f: f, finite: true}, true
	default:
		return numeric{}, false
	}
}

func fromUint64(n uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(n), 0)
}

func fromFloat(f float64) numeric {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return numeric{f: f}
	}
	return numeric{dec: decimal.NewFromFloat(f), f: f, finite: true}
}

// cmpNumeric returns the ordering of a and b. ok is false when either side is
// NaN, which is unordered and unequal to everything.
func cmpNumeric(a, b numeric) (int, bool) {
	if a.finite && b.finite {
		return a.dec.Cmp(b.dec), true
	}
	if math.IsNaN(a.f) || math.IsNaN(b.f) {
		return 0, false
	}
	switch {
	case a.f < b.f:
		return -1, true
	case a.f > b.f:
		return 1, true
	default:
		return 0, true
	}
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if na, ok := toNumeric(a); ok {
		if nb, ok := toNumeric(b); ok {
			cmp, ordered := cmpNumeric(na, nb)
			return ordered && cmp == 0
		}
		return false
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case uuid.UUID:
		y, ok := b.(uuid.UUID)
		return ok && x == y
	case Path:
		y, ok := b.(Path)
		return ok && x == y
	}
	return reflect.DeepEqual(a, b)
}

func order(a, b any) (int, bool) {
	if na, ok := toNumeric(a); ok {
		if nb, ok := toNumeric(b); ok {
			return cmpNumeric(na, nb)
		}
		return 0, false
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case bool:
		if y, ok := b.(bool); ok {
			return boolRank(x) - boolRank(y), true
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
	case uuid.UUID:
		if y, ok := b.(uuid.UUID); ok {
			return bytes.Compare(x[:], y[:]), true
		}
	case Path:
		if y, ok := b.(Path); ok {
			return strings.Compare(string(x), string(y)), true
		}
	}
	return 0, false
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// contains reports whether item is in container. ok is false when the pair
// cannot be tested for membership at all.
func contains(item, container any) (in bool, ok bool) {
	switch c := container.(type) {
	case string:
		s, isString := item.(string)
		if !isString {
			return false, false
		}
		return strings.Contains(c, s), true
	case []any:
		for _, el := range c {
			if equal(item, el) {
				return true, true
			}
		}
		return false, true
	case map[string]any:
		key, isString := item.(string)
		if !isString {
			return false, true
		}
		_, found := c[key]
		return found, true
	case nil:
		return false, false
	}
	rv := reflect.ValueOf(container)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if equal(item, rv.Index(i).Interface()) {
				return true, true
			}
		}
		return false, true
	case reflect.Map:
		for _, k := range rv.MapKeys() {
			if equal(item, k.Interface()) {
				return true, true
			}
		}
		return false, true
	default:
		return false, false
	}
}
