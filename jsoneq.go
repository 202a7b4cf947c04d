package connmock

import "github.com/ohler55/ojg/oj"

// jsonEqual reports full structural equality of two parsed JSON values.
// Integer and floating point numbers compare by numeric value, so a
// payload of 1 equals an expectation of 1.0.
func jsonEqual(a, b any) bool {
	if af, ok := numeric(a); ok {
		bf, bok := numeric(b)
		return bok && af == bf
	}
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, present := bv[k]
			if !present || !jsonEqual(v, bvv) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !jsonEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// jsonContains reports one-directional containment: every key or element
// of expected must be present and recursively equal in actual. Arrays
// match when each expected element has at least one equal element in
// actual. Extra content in actual is ignored, which makes the relation
// asymmetric.
func jsonContains(expected, actual any) bool {
	switch ev := expected.(type) {
	case map[string]any:
		av, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range ev {
			avv, present := av[k]
			if !present || !jsonContains(v, avv) {
				return false
			}
		}
		return true
	case []any:
		av, ok := actual.([]any)
		if !ok {
			return false
		}
		for _, v := range ev {
			found := false
			for _, a := range av {
				if jsonContains(v, a) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	default:
		return jsonEqual(expected, actual)
	}
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// normalizeJSON round-trips v through the JSON encoder so matcher inputs
// and request payloads compare in the same value domain regardless of how
// the expectation was constructed (struct, map, or literal).
func normalizeJSON(v any) (any, error) {
	return oj.Parse([]byte(oj.JSON(v)))
}
