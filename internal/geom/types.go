// Package geom loads region boundaries and per-region data.
package geom

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Region is one drawable subunit: an identifier, a display name and its
// geometry in longitude/latitude.
type Region struct {
	ID         string
	Name       string
	Properties map[string]any
	Geometry   orb.Geometry
}

// Bound returns the geographic extent of the region.
func (r Region) Bound() orb.Bound {
	if r.Geometry == nil {
		return orb.Bound{}
	}
	return r.Geometry.Bound()
}

// Record is an arbitrary data record: a per-region data entry, a bubble or an arc.
type Record map[string]any

// Has reports whether key is present with a non-nil value.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// GetString returns the value as a string. Numbers are formatted; other types
// report false.
func (r Record) GetString(key string) (string, bool) {
	switch v := r[key].(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case json.Number:
		return v.String(), true
	}
	return "", false
}

// GetFloat returns the value as a number. Numeric strings are parsed.
func (r Record) GetFloat(key string) (float64, bool) {
	return ToFloat(r[key])
}

// GetBool returns the value as a boolean.
func (r Record) GetBool(key string) (bool, bool) {
	switch v := r[key].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		return b, err == nil
	}
	return false, false
}

// Merge copies every field of other that r does not already have.
func (r Record) Merge(other Record) Record {
	if r == nil {
		r = Record{}
	}
	for k, v := range other {
		if _, ok := r[k]; !ok {
			r[k] = v
		}
	}
	return r
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// JSON returns the canonical encoding: keys sorted, no whitespace.
func (r Record) JSON() string {
	if r == nil {
		return "{}"
	}
	// encoding/json sorts map keys
	b, err := json.Marshal(map[string]any(r))
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ParseRecord decodes a JSON object. Empty input yields an empty record.
func ParseRecord(s string) (Record, error) {
	if strings.TrimSpace(s) == "" {
		return Record{}, nil
	}
	var r Record
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, err
	}
	if r == nil {
		r = Record{}
	}
	return r, nil
}

// AsRecord converts a decoded JSON value into a record.
func AsRecord(v any) (Record, bool) {
	switch v := v.(type) {
	case Record:
		return v, true
	case map[string]any:
		return Record(v), true
	}
	return nil, false
}

// ToFloat converts a decoded JSON value into a number.
func ToFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// DataTable maps region identifiers to their data records. Lookups are by
// exact identifier.
type DataTable map[string]Record

// IDs returns the identifiers in sorted order.
func (t DataTable) IDs() []string {
	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Lookup returns the record for id, or nil.
func (t DataTable) Lookup(id string) Record {
	if t == nil {
		return nil
	}
	return t[id]
}
