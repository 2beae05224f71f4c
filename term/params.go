package term

import (
	"encoding/json"
	"fmt"
	"math"
)

// Params are the key/value settings of a term's logic, as they arrive from
// configuration.
type Params map[string]any

// Int returns key as an int, or def when absent.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("param %s: %v is not an integer", key, n)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("param %s: want integer, got %T", key, v)
}

// Float returns key as a float64, or def when absent.
func (p Params) Float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	}
	return 0, fmt.Errorf("param %s: want number, got %T", key, v)
}

// String returns key as a string, or def when absent.
func (p Params) String(key, def string) (string, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("param %s: want string, got %T", key, v)
	}
	return s, nil
}

// canonical renders params as a stable string for identity comparison.
// Integral numbers are normalized so 20 and 20.0 compare equal.
func (p Params) canonical() (string, error) {
	if len(p) == 0 {
		return "{}", nil
	}
	norm := make(map[string]any, len(p))
	for k, v := range p {
		norm[k] = normalize(v)
	}
	b, err := json.Marshal(norm)
	if err != nil {
		return "", fmt.Errorf("params not comparable: %w", err)
	}
	return string(b), nil
}

func (p Params) clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, x := range n {
			out[k] = normalize(x)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, x := range n {
			out[i] = normalize(x)
		}
		return out
	}
	return v
}
