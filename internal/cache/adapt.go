package cache

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// adapt turns a value handed to Set or Add into either an entry to adopt or
// a record to store. Records pass through; structs and other maps are
// decoded field by field; anything else is wrapped as {"value": v}.
func adapt(value any) (*Entry, map[string]any) {
	switch v := value.(type) {
	case *Entry:
		if v != nil {
			return v, nil
		}
		return nil, map[string]any{}
	case map[string]any:
		return nil, v
	case nil:
		return nil, map[string]any{}
	}

	rv := reflect.Indirect(reflect.ValueOf(value))
	if rv.Kind() == reflect.Struct || rv.Kind() == reflect.Map {
		var record map[string]any
		if err := mapstructure.Decode(value, &record); err == nil && record != nil {
			return nil, record
		}
	}
	return nil, map[string]any{"value": value}
}
