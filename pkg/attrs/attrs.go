// Package attrs reads values out of flat [key1, value1, key2, value2, ...]
// attribute slices, the form slog call sites and captured log records use.
package attrs

// ExtractString returns the string value for key, or "" when the key is
// absent or its value is not a string.
func ExtractString(attrs []any, key string) string {
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok || k != key {
			continue
		}
		if v, ok := attrs[i+1].(string); ok {
			return v
		}
	}
	return ""
}

// ExtractInt64 returns the integer value for key, accepting int, int64, and
// uint64. Returns 0 when the key is absent or the value has another type.
func ExtractInt64(attrs []any, key string) int64 {
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok || k != key {
			continue
		}
		switch v := attrs[i+1].(type) {
		case int:
			return int64(v)
		case int64:
			return v
		case uint64:
			return int64(v)
		}
	}
	return 0
}
