package normalize

import (
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/matzehuels/normalizr/pkg/errors"
	"github.com/matzehuels/normalizr/pkg/registry"
	"github.com/matzehuels/normalizr/pkg/schema"
)

// Type tag fields read from nested values to pick a schema at runtime.
const (
	ModuleTag   = "module_name"
	ResourceTag = "resource_name"
)

// Resolver looks up entity schemas by (module, resource). *registry.Registry
// implements it.
type Resolver interface {
	Lookup(module, resource string) (*schema.Entity, bool)
}

// Option configures a Normalize or Denormalize call.
type Option func(*options)

type options struct {
	resolver Resolver
}

// WithRegistry resolves inline type tags against r instead of the default
// registry.
func WithRegistry(r Resolver) Option {
	return func(o *options) {
		if r != nil {
			o.resolver = r
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{resolver: registry.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Result is the output of [Normalize].
type Result struct {
	Entities Store `json:"entities"`
	Result   any   `json:"result"`
}

// Normalize flattens input against node. Input must be an object or an
// array; anything else is an INVALID_INPUT error. A failure anywhere in the
// traversal aborts the whole call.
func Normalize(input any, node schema.Node, opts ...Option) (*Result, error) {
	var parent schema.Record
	switch v := input.(type) {
	case map[string]any:
		if v == nil {
			return nil, invalidInput(input)
		}
		parent = v
	case []any:
		if v == nil {
			return nil, invalidInput(input)
		}
	default:
		return nil, invalidInput(input)
	}

	o := applyOptions(opts)
	n := &normalizer{
		entities: make(Store),
		resolver: o.resolver,
		active:   make(map[uintptr]any),
	}

	result, err := n.visit(input, parent, "", node)
	if err != nil {
		return nil, err
	}
	return &Result{Entities: n.entities, Result: result}, nil
}

func invalidInput(input any) error {
	found := "null"
	if input != nil {
		found = reflect.TypeOf(input).String()
	}
	return errors.New(errors.ErrCodeInvalidInput,
		"unexpected input given to normalize: expected an object or array, found %s", found)
}

type normalizer struct {
	entities Store
	resolver Resolver

	// entity maps currently being normalized, by map identity, with their ids
	active map[uintptr]any
}

// visit dispatches value to the handler for node. Scalars and nil come back
// unchanged.
func (n *normalizer) visit(value any, parent schema.Record, key string, node schema.Node) (any, error) {
	if node == nil {
		return value, nil
	}

	switch v := value.(type) {
	case []any:
		if len(v) == 0 || isFalsy(v[0]) {
			return nil, nil
		}
		return n.normalizeArray(elementNode(node), v, parent, key)

	case map[string]any:
		if v == nil {
			return nil, nil
		}
		switch s := node.(type) {
		case *schema.Entity:
			return n.normalizeEntity(s, v, parent, key)
		case *schema.Array:
			return n.normalizeValues(schema.NewValues(s.Of), v)
		case *schema.Object:
			return n.normalizeObject(s, v)
		case *schema.Values:
			return n.normalizeValues(s, v)
		case *schema.Union:
			return n.normalizeUnion(s, v, parent, key)
		}
		return nil, errors.New(errors.ErrCodeInternal, "unsupported schema node %T", node)
	}

	return value, nil
}

// elementNode returns the node applied to each element of a sequence.
func elementNode(node schema.Node) schema.Node {
	if a, ok := node.(*schema.Array); ok {
		return a.Of
	}
	return node
}

// normalizeArray maps of over values. Elements without an identity keep their
// original value.
func (n *normalizer) normalizeArray(of schema.Node, values []any, parent schema.Record, key string) (any, error) {
	out := make([]any, len(values))
	for i, el := range values {
		r, err := n.visit(el, parent, key, of)
		if err != nil {
			return nil, err
		}
		if r == nil {
			r = el
		}
		out[i] = r
	}
	return out, nil
}

func (n *normalizer) normalizeObject(s *schema.Object, input schema.Record) (any, error) {
	out := maps.Clone(input)
	for _, field := range slices.Sorted(maps.Keys(s.Fields)) {
		fv, ok := out[field]
		if !ok || fv == nil {
			continue
		}
		r, err := n.visit(fv, input, field, s.Fields[field])
		if err != nil {
			return nil, err
		}
		if r == nil {
			delete(out, field)
			continue
		}
		out[field] = r
	}
	return out, nil
}

func (n *normalizer) normalizeValues(s *schema.Values, input schema.Record) (any, error) {
	out := make(schema.Record, len(input))
	for _, k := range slices.Sorted(maps.Keys(input)) {
		fv := input[k]
		child := s.SchemaFor(k, fv, input)
		if child == nil {
			out[k] = fv
			continue
		}
		r, err := n.visit(fv, input, k, child)
		if err != nil {
			return nil, err
		}
		if r != nil {
			out[k] = r
		}
	}
	return out, nil
}

func (n *normalizer) normalizeUnion(u *schema.Union, input schema.Record, parent schema.Record, key string) (any, error) {
	tag, child, ok := u.Select(input, parent, key)
	if !ok {
		return input, nil
	}
	r, err := n.visit(input, parent, key, child)
	if err != nil || r == nil {
		return nil, err
	}
	if ref, ok := r.(Ref); ok {
		ref.Schema = tag
		return ref, nil
	}
	module, resource := refPartition(input, child)
	return Ref{Module: module, Resource: resource, ID: r, Schema: tag}, nil
}

// normalizeEntity processes one entity record, replaces its relational fields
// with references, hands the record to the store, and returns its id.
func (n *normalizer) normalizeEntity(e *schema.Entity, input, parent schema.Record, key string) (any, error) {
	ptr := reflect.ValueOf(input).Pointer()
	if id, ok := n.active[ptr]; ok {
		return id, nil
	}
	n.active[ptr] = nil
	defer delete(n.active, ptr)

	processed, err := e.Process(input, parent, key)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", e.Key(), err)
	}
	if processed == nil {
		processed = schema.Record{}
	}

	// Back-edges reached while visiting fields resolve to this id, which
	// the process strategy may have derived.
	id := e.ID(input, parent, key)
	if id == nil {
		id = e.ID(processed, parent, key)
	}
	n.active[ptr] = id

	var substituted []string
	for _, field := range slices.Sorted(maps.Keys(processed)) {
		if field == SpecField {
			continue
		}
		value := processed[field]
		if !isContainer(value) {
			continue
		}

		child, _ := e.Field(field)
		switch v := value.(type) {
		case []any:
			if len(v) > 0 {
				if tagged, ok := v[0].(map[string]any); ok {
					if s, found := n.lookupTagged(tagged); found {
						child = s
					}
				}
			}
		case map[string]any:
			if _, tagged := v[ResourceTag].(string); tagged {
				if e.IsOwned(field) {
					v = n.ownedCopy(e, processed, field, v)
					processed[field] = v
					value = v
				}
				if s, found := n.lookupTagged(v); found {
					child = s
				}
			}
		}
		if child == nil {
			continue
		}

		result, err := n.visit(value, processed, field, child)
		if err != nil {
			return nil, err
		}
		if result == nil {
			continue
		}

		if ref, ok := result.(Ref); ok {
			processed[field] = ref
		} else if module, resource := refPartition(value, child); resource != "" {
			processed[field] = Ref{Module: module, Resource: resource, ID: result}
		} else {
			processed[field] = result
		}
		substituted = append(substituted, field)
	}
	if len(substituted) > 0 {
		processed[SpecField] = substituted
	}

	if id == nil {
		return nil, nil
	}

	n.addEntity(e, processed, id)
	return id, nil
}

// addEntity is the store sink. Record-level tags override the schema
// partition; an occupied slot is merged with the schema's merge strategy.
func (n *normalizer) addEntity(e *schema.Entity, processed schema.Record, id any) {
	module, resource := e.Partition()
	if m, ok := processed[ModuleTag].(string); ok && m != "" {
		module = m
	}
	if r, ok := processed[ResourceTag].(string); ok && r != "" {
		resource = r
	}

	if existing, ok := n.entities.Get(module, resource, id); ok {
		n.entities.Put(module, resource, id, e.Merge(existing, processed))
		return
	}
	n.entities.Put(module, resource, id, processed)
}

// lookupTagged resolves the schema named by a value's inline type tags.
func (n *normalizer) lookupTagged(v schema.Record) (*schema.Entity, bool) {
	resource, ok := v[ResourceTag].(string)
	if !ok || resource == "" || n.resolver == nil {
		return nil, false
	}
	module, _ := v[ModuleTag].(string)
	return n.resolver.Lookup(module, resource)
}

// ownedCopy gives an owned sub-object without identity a deterministic id of
// the form "<parentResource>-<parentID>-<field>".
func (n *normalizer) ownedCopy(owner *schema.Entity, processed schema.Record, field string, v schema.Record) schema.Record {
	idAttr := schema.DefaultIDAttribute
	if child, found := n.lookupTagged(v); found && child.IDAttribute() != "" {
		idAttr = child.IDAttribute()
	}
	if v[idAttr] != nil {
		return v
	}

	parentResource, _ := processed[ResourceTag].(string)
	if parentResource == "" {
		parentResource = owner.Resource()
	}
	parentID := owner.ID(processed, nil, "")
	if parentID == nil {
		return v
	}

	out := maps.Clone(v)
	out[idAttr] = parentResource + "-" + IDKey(parentID) + "-" + field
	return out
}

// refPartition returns the partition for a reference to value: its inline
// tags when present, otherwise the partition of node.
func refPartition(value any, node schema.Node) (module, resource string) {
	module, resource = schema.PartitionOf(node)
	if m, ok := value.(map[string]any); ok {
		if s, ok := m[ModuleTag].(string); ok && s != "" {
			module = s
		}
		if s, ok := m[ResourceTag].(string); ok && s != "" {
			resource = s
		}
	}
	return module, resource
}

// isContainer reports whether v is a non-nil object or array.
func isContainer(v any) bool {
	switch t := v.(type) {
	case map[string]any:
		return t != nil
	case []any:
		return t != nil
	}
	return false
}

// isFalsy reports whether v is nil, false, zero, or the empty string.
func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case int:
		return t == 0
	case int64:
		return t == 0
	case float64:
		return t == 0
	}
	return false
}
