package storage

import (
	"fmt"
	"strconv"
)

// Row is one result row keyed by column name. Values are int64, float64,
// string, nil, or (after decoding) []Grade.
type Row map[string]any

// String returns the column as text. Missing or NULL columns yield "".
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Int64 returns the column as an integer when it holds one or a numeric string.
func (r Row) Int64(key string) (int64, bool) {
	switch v := r[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), v == float64(int64(v))
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// ID returns the row's "id" column.
func (r Row) ID() (int64, bool) {
	return r.Int64("id")
}

// Grades returns decoded calificaciones, or nil if the column was never decoded.
func (r Row) Grades() []Grade {
	g, _ := r["calificaciones"].([]Grade)
	return g
}
