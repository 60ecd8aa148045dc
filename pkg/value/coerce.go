package value

import (
	"math"

	"github.com/goccy/go-json"

	"github.com/odvcencio/dashcore/pkg/revive"
)

// componentSource is implemented by every value type that can stand in for
// a vector: the Vec types and Color.
type componentSource interface {
	components() (int, [4]float64)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

// flatten turns a single slice/array argument into positional arguments.
func flatten(src []any) []any {
	if len(src) != 1 {
		return src
	}
	switch x := src[0].(type) {
	case []any:
		return x
	case []float64:
		out := make([]any, len(x))
		for i, f := range x {
			out[i] = f
		}
		return out
	case []int:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out
	case [2]float64:
		return []any{x[0], x[1]}
	case [3]float64:
		return []any{x[0], x[1], x[2]}
	case [4]float64:
		return []any{x[0], x[1], x[2], x[3]}
	}
	return src
}

// numbers converts every argument, failing on the first non-number.
func numbers(src []any) ([]float64, bool) {
	out := make([]float64, len(src))
	for i, v := range src {
		f, ok := toFloat(v)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func field(m map[string]any, key string, def float64) float64 {
	if f, ok := toFloat(m[key]); ok {
		return f
	}
	return def
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// decodeJSON reads a JSON document for UnmarshalJSON implementations,
// unwrapping a revivable payload to its arguments.
func decodeJSON(data []byte, name string) ([]any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if p, ok := revive.AsPayload(raw); ok && p.Name == name {
		return p.Args, nil
	}
	if raw == nil {
		return nil, nil
	}
	return []any{raw}, nil
}
