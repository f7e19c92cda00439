package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// RecordKind identifies one of the manageable entity categories.
type RecordKind string

const (
	KindStudent    RecordKind = "student"
	KindCourse     RecordKind = "course"
	KindInstructor RecordKind = "instructor"
	KindEmployee   RecordKind = "employee"
)

// IDField is the key holding the server-assigned identifier.
const IDField = "id"

// Record is a row keyed by field name. Records built on the client carry no id
// until the first successful create.
type Record map[string]interface{}

// ID returns the record identifier or an empty string when unset.
func (r Record) ID() string {
	v, ok := r[IDField]
	if !ok || v == nil {
		return ""
	}
	return FormatValue(v)
}

// HasID reports whether the record has been persisted.
func (r Record) HasID() bool {
	return r.ID() != ""
}

// Text returns the formatted value stored under key.
func (r Record) Text(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	return FormatValue(v), true
}

// Clone returns a shallow copy; values are scalars so this is sufficient.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// FormatValue renders a scalar record value the way it is shown in tables and forms.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
