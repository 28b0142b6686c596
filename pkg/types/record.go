package types

import (
	"encoding/json"
	"math"
	"strconv"
)

// Marshal encodes the serialized record of e as JSON. Integral floats keep a
// fractional part so they decode as floats again.
func Marshal(e Entity) ([]byte, error) {
	return json.Marshal(keepFloats(Serialize(e)))
}

// floatValue is a float64 that always encodes with a decimal point or
// exponent.
type floatValue float64

func (f floatValue) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if v == math.Trunc(v) && math.Abs(v) < 1e21 {
		return []byte(strconv.FormatFloat(v, 'f', -1, 64) + ".0"), nil
	}
	return json.Marshal(v)
}

// keepFloats returns v with every float replaced by a floatValue. Maps and
// slices are copied, never modified.
func keepFloats(v any) any {
	switch t := v.(type) {
	case float64:
		return floatValue(t)
	case float32:
		return floatValue(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = keepFloats(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = keepFloats(item)
		}
		return out
	}
	return v
}
