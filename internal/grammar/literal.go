package grammar

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// literal renders a value in SQL literal form with dialect-specific boolean
// spellings. Output feeds the debug interpolation path only and is never
// executed; strings are single-quoted with embedded quotes doubled.
func literal(v interface{}, boolTrue, boolFalse string) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if val {
			return boolTrue
		}
		return boolFalse
	case time.Time:
		return quoteString(val.Format(TimeFormat))
	case string:
		return quoteString(val)
	case []byte:
		return quoteString(string(val))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToString(val)
	case float32, float64:
		return cast.ToString(val)
	default:
		return quoteString(cast.ToString(val))
	}
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// prepareCommon applies the coercions shared by every dialect: date/time
// values collapse to the canonical string form.
func prepareCommon(v interface{}) interface{} {
	if t, ok := v.(time.Time); ok {
		return t.Format(TimeFormat)
	}
	return v
}

// prepareNoNativeBool coerces for dialects without a native boolean type:
// booleans become 0/1 on top of the common coercions.
func prepareNoNativeBool(values []interface{}) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		if b, ok := v.(bool); ok {
			if b {
				out[i] = 1
			} else {
				out[i] = 0
			}
			continue
		}
		out[i] = prepareCommon(v)
	}
	return out
}
