package events

import (
	"fmt"
	"reflect"
)

// simplifyPayload renders an event payload for log output with a constant
// bound on output size. Primitives pass through unchanged; anything nested is
// replaced by a small type/size marker so that cyclic or deeply nested game
// objects never get serialized recursively.
func simplifyPayload(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = simplifyValue(v)
	}
	return out
}

func simplifyValue(v any) any {
	switch val := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	case []any:
		return fmt.Sprintf("Array(%d)", len(val))
	case map[string]any:
		return "Object"
	}

	// One kind check covers typed slices and maps without walking the value.
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Slice, reflect.Array:
		return fmt.Sprintf("Array(%d)", rv.Len())
	case reflect.Map:
		return "Object"
	default:
		return fmt.Sprintf("Object<%T>", v)
	}
}

func recoveredMessage(recovered any) string {
	switch r := recovered.(type) {
	case error:
		return r.Error()
	case string:
		return r
	default:
		return fmt.Sprintf("%v", r)
	}
}
