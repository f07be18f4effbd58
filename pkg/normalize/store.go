package normalize

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/matzehuels/normalizr/pkg/schema"
)

// SpecField lists, on every stored record, the fields that were replaced by
// references during normalization.
const SpecField = "_spec"

// Store is the normalized store: module → resource → id → record.
type Store map[string]map[string]map[string]schema.Record

// Get returns the record stored under (module, resource, id).
func (s Store) Get(module, resource string, id any) (schema.Record, bool) {
	rec, ok := s[module][resource][IDKey(id)]
	return rec, ok
}

// Put stores rec under (module, resource, id), replacing any existing record.
func (s Store) Put(module, resource string, id any, rec schema.Record) {
	if s[module] == nil {
		s[module] = make(map[string]map[string]schema.Record)
	}
	if s[module][resource] == nil {
		s[module][resource] = make(map[string]schema.Record)
	}
	s[module][resource][IDKey(id)] = rec
}

// Len returns the total number of records.
func (s Store) Len() int {
	n := 0
	for _, resources := range s {
		for _, records := range resources {
			n += len(records)
		}
	}
	return n
}

// PartitionStat counts the records of one partition.
type PartitionStat struct {
	Module   string
	Resource string
	Count    int
}

// Partitions returns per-partition record counts sorted by module, then resource.
func (s Store) Partitions() []PartitionStat {
	var out []PartitionStat
	for _, module := range slices.Sorted(maps.Keys(s)) {
		for _, resource := range slices.Sorted(maps.Keys(s[module])) {
			out = append(out, PartitionStat{
				Module:   module,
				Resource: resource,
				Count:    len(s[module][resource]),
			})
		}
	}
	return out
}

// IDKey renders an id as its store slot key. Numbers are formatted without
// exponent, so the number 7 and the string "7" share a slot.
func IDKey(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Ref is the reference marker left in place of a nested entity. ID is the
// entity id, or the list of ids for array relations. Schema carries the
// union discriminator when a [schema.Union] chose the entity type.
type Ref struct {
	Module   string `json:"module_name"`
	Resource string `json:"resource_name"`
	ID       any    `json:"id"`
	Schema   string `json:"schema,omitempty"`
}

var refKeys = map[string]bool{
	"module_name":   true,
	"resource_name": true,
	"id":            true,
	"schema":        true,
}

// AsRef reports whether v is a reference marker, either a [Ref] or its
// decoded JSON form. A map only counts when it has a string resource_name,
// an id, and no keys besides module_name, resource_name, id and schema.
func AsRef(v any) (Ref, bool) {
	switch r := v.(type) {
	case Ref:
		return r, true
	case *Ref:
		if r == nil {
			return Ref{}, false
		}
		return *r, true
	case map[string]any:
		if len(r) > len(refKeys) {
			return Ref{}, false
		}
		for k := range r {
			if !refKeys[k] {
				return Ref{}, false
			}
		}
		resource, ok := r["resource_name"].(string)
		if !ok {
			return Ref{}, false
		}
		id, ok := r["id"]
		if !ok {
			return Ref{}, false
		}
		module, _ := r["module_name"].(string)
		tag, _ := r["schema"].(string)
		return Ref{Module: module, Resource: resource, ID: id, Schema: tag}, true
	}
	return Ref{}, false
}

// specFields returns the substituted-field list of a record, whether it was
// written by this package or decoded from JSON.
func specFields(rec schema.Record) []string {
	switch v := rec[SpecField].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, f := range v {
			if s, ok := f.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
