package schema

import (
	"maps"
	"slices"

	"github.com/matzehuels/normalizr/pkg/errors"
)

const (
	// DefaultIDAttribute is the field read for identity when no id attribute is given.
	DefaultIDAttribute = "id"

	// DefaultModule is the store module used by entities declared without one.
	DefaultModule = "default"

	// DefaultOwnedField is the nested field that gets a synthesized id when it
	// carries a type tag but no identity of its own.
	DefaultOwnedField = "embed_object"
)

// IDFunc derives the identity of a raw record. Parent is the record holding
// the input and key is the field it sits under (empty at the root).
type IDFunc func(input, parent Record, key string) any

// MergeFunc combines the record already stored in a slot with an incoming
// record for the same slot.
type MergeFunc func(existing, incoming Record) Record

// ProcessFunc transforms a raw record before it is stored. It must not mutate
// input.
type ProcessFunc func(input, parent Record, key string) (Record, error)

// Entity is the schema node for a record type with a stable identity.
//
// The zero value is not usable; construct entities with [NewEntity] or
// [MustEntity].
type Entity struct {
	key         string
	module      string
	resource    string
	idAttribute string
	getID       IDFunc
	merge       MergeFunc
	process     ProcessFunc
	fields      map[string]Node
	owned       map[string]bool
}

// EntityOption configures an [Entity] at construction.
type EntityOption func(*Entity)

// WithIDAttribute reads identity from the named field.
func WithIDAttribute(name string) EntityOption {
	return func(e *Entity) {
		if name == "" {
			return
		}
		e.idAttribute = name
		e.getID = fieldID(name)
	}
}

// WithIDFunc derives identity with fn instead of a field.
func WithIDFunc(fn IDFunc) EntityOption {
	return func(e *Entity) {
		if fn == nil {
			return
		}
		e.idAttribute = ""
		e.getID = fn
	}
}

// WithModule sets the store module of the entity.
func WithModule(name string) EntityOption {
	return func(e *Entity) { e.module = name }
}

// WithResource sets the store resource of the entity. It defaults to the key.
func WithResource(name string) EntityOption {
	return func(e *Entity) { e.resource = name }
}

// WithMergeStrategy replaces the default right-biased shallow merge.
func WithMergeStrategy(fn MergeFunc) EntityOption {
	return func(e *Entity) {
		if fn != nil {
			e.merge = fn
		}
	}
}

// WithProcessStrategy replaces the default shallow copy applied before storage.
func WithProcessStrategy(fn ProcessFunc) EntityOption {
	return func(e *Entity) {
		if fn != nil {
			e.process = fn
		}
	}
}

// WithOwnedFields names nested fields whose tagged sub-objects receive a
// synthesized id when they carry none. It replaces the default
// [DefaultOwnedField].
func WithOwnedFields(names ...string) EntityOption {
	return func(e *Entity) {
		e.owned = make(map[string]bool, len(names))
		for _, n := range names {
			e.owned[n] = true
		}
	}
}

// NewEntity creates an entity schema. The key is the type tag of the entity
// and must be non-empty; an empty key is a CONFIGURATION error.
func NewEntity(key string, fields map[string]Node, opts ...EntityOption) (*Entity, error) {
	if key == "" {
		return nil, errors.New(errors.ErrCodeConfiguration, "expected a string key for entity, but found %q", key)
	}

	e := &Entity{
		key:         key,
		idAttribute: DefaultIDAttribute,
		getID:       fieldID(DefaultIDAttribute),
		merge:       MergeShallow,
		process:     ProcessCopy,
		fields:      make(map[string]Node),
		owned:       map[string]bool{DefaultOwnedField: true},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.Define(fields)
	return e, nil
}

// MustEntity is like [NewEntity] but panics on error. It simplifies
// package-level schema declarations.
func MustEntity(key string, fields map[string]Node, opts ...EntityOption) *Entity {
	e, err := NewEntity(key, fields, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Kind implements [Node].
func (e *Entity) Kind() Kind { return KindEntity }

// Key returns the type tag of the entity.
func (e *Entity) Key() string { return e.key }

// Module returns the store module, [DefaultModule] when none was set.
func (e *Entity) Module() string {
	if e.module == "" {
		return DefaultModule
	}
	return e.module
}

// Resource returns the store resource, the key when none was set.
func (e *Entity) Resource() string {
	if e.resource == "" {
		return e.key
	}
	return e.resource
}

// Partition returns the (module, resource) pair identifying the entity type.
func (e *Entity) Partition() (module, resource string) {
	return e.Module(), e.Resource()
}

// IDAttribute returns the identity field name, or "" when identity comes
// from an [IDFunc].
func (e *Entity) IDAttribute() string { return e.idAttribute }

// ID derives the identity of input.
func (e *Entity) ID(input, parent Record, key string) any {
	return e.getID(input, parent, key)
}

// Merge combines two records that map to the same store slot.
func (e *Entity) Merge(existing, incoming Record) Record {
	return e.merge(existing, incoming)
}

// Process transforms a raw record into the working record that gets stored.
func (e *Entity) Process(input, parent Record, key string) (Record, error) {
	return e.process(input, parent, key)
}

// Define merges fields into the field map. Later calls override same-named
// fields and keep the rest.
func (e *Entity) Define(fields map[string]Node) {
	for name, node := range fields {
		e.fields[name] = node
	}
}

// Field returns the node declared for a field.
func (e *Entity) Field(name string) (Node, bool) {
	n, ok := e.fields[name]
	return n, ok && n != nil
}

// Fields returns a copy of the field map.
func (e *Entity) Fields() map[string]Node {
	return maps.Clone(e.fields)
}

// FieldNames returns the declared field names in sorted order.
func (e *Entity) FieldNames() []string {
	return slices.Sorted(maps.Keys(e.fields))
}

// IsOwned reports whether nested objects under field get a synthesized id.
func (e *Entity) IsOwned(field string) bool { return e.owned[field] }

// MergeShallow is the default merge strategy: a shallow, right-biased merge.
// Fields of incoming overwrite fields of existing; fields only present in
// existing are kept.
func MergeShallow(existing, incoming Record) Record {
	out := make(Record, len(existing)+len(incoming))
	maps.Copy(out, existing)
	maps.Copy(out, incoming)
	return out
}

// ProcessCopy is the default process strategy: a shallow copy of input.
func ProcessCopy(input, _ Record, _ string) (Record, error) {
	return maps.Clone(input), nil
}

func fieldID(name string) IDFunc {
	return func(input, _ Record, _ string) any {
		if input == nil {
			return nil
		}
		return input[name]
	}
}
