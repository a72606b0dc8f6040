// Package record converts loosely typed backend records into domain types.
//
// Records arrive as decoded JSON objects. Identifiers may be numbers or
// strings, lookup fields may be expanded into {"Id": .., "Name": ..} objects,
// and nested collections may be stored as JSON text. Decoding normalizes all
// of that and replaces absent collections with empty ones, so consumers of
// the resulting domain values never need nil checks.
package record

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is a single backend row as decoded from JSON
type Record map[string]any

// ValidationError reports a record that cannot be turned into a domain value
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record field %q: %s", e.Field, e.Reason)
}

// first returns the value of the first key present in r
func (r Record) first(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// String returns the first present key as a string
func (r Record) String(keys ...string) string {
	v, _ := r.first(keys...)
	return asString(v)
}

// ID returns the record identifier from "Id" or "id"
func (r Record) ID() (string, error) {
	v, ok := r.first("Id", "id", "ID")
	if !ok {
		return "", &ValidationError{Field: "Id", Reason: "missing"}
	}
	id := Ref(v)
	if id == "" {
		return "", &ValidationError{Field: "Id", Reason: "empty"}
	}
	return id, nil
}

// Ref resolves a lookup value. A scalar is the identifier itself; an
// expanded reference object carries it in "Id" or "id".
func Ref(v any) string {
	switch t := v.(type) {
	case map[string]any:
		return Ref(Record(t).valueOf("Id", "id"))
	case Record:
		return Ref(t.valueOf("Id", "id"))
	default:
		return asString(v)
	}
}

func (r Record) valueOf(keys ...string) any {
	v, _ := r.first(keys...)
	return v
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f
	}
	return 0
}

func asInt(v any) int {
	return int(math.Round(asFloat(v)))
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	case float64, int, int64, json.Number:
		return asFloat(t) != 0
	}
	return false
}

// asOptionalInt returns nil for absent or non-numeric values
func asOptionalInt(v any) *int {
	switch v.(type) {
	case float64, int, int64, json.Number:
		n := asInt(v)
		return &n
	case string:
		s := strings.TrimSpace(v.(string))
		if n, err := strconv.Atoi(s); err == nil {
			return &n
		}
	}
	return nil
}

func asTime(v any) (*time.Time, error) {
	s := asString(v)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized timestamp %q", s)
}

// unwrapText decodes nested collections that the backend stores as JSON text.
// Empty text decodes to nil.
func unwrapText(field string, v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out any
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, &ValidationError{Field: field, Reason: "malformed JSON text: " + err.Error()}
	}
	return out, nil
}

func asList(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return nil
}

func asObject(v any) Record {
	switch t := v.(type) {
	case map[string]any:
		return Record(t)
	case Record:
		return t
	}
	return nil
}
