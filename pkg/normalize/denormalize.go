package normalize

import (
	"maps"
	"slices"

	"github.com/matzehuels/normalizr/pkg/errors"
	"github.com/matzehuels/normalizr/pkg/schema"
)

// Denormalize rebuilds the nested value for input from entities. Input is a
// root id, a list of ids, a [Ref], or an object shaped like node. A nil input
// returns nil.
//
// Each entity is hydrated at most once per call; every reference to it,
// including cyclic ones, resolves to the same map. Stored records are never
// mutated.
func Denormalize(input any, node schema.Node, entities Store, opts ...Option) (any, error) {
	if input == nil {
		return nil, nil
	}
	o := applyOptions(opts)
	d := &denormalizer{
		entities: entities,
		resolver: o.resolver,
		cache:    make(map[cacheKey]schema.Record),
	}
	return d.unvisit(input, node)
}

type cacheKey struct {
	module   string
	resource string
	id       string
}

type denormalizer struct {
	entities Store
	resolver Resolver
	cache    map[cacheKey]schema.Record
}

func (d *denormalizer) unvisit(input any, node schema.Node) (any, error) {
	if input == nil || node == nil {
		return input, nil
	}

	switch s := node.(type) {
	case *schema.Entity:
		return d.unvisitEntity(input, s)
	case *schema.Array:
		return d.unvisitArray(input, s.Of)
	case *schema.Object:
		return d.unvisitObject(input, s)
	case *schema.Values:
		return d.unvisitValues(input, s)
	case *schema.Union:
		return d.unvisitUnion(input, s)
	}
	return nil, errors.New(errors.ErrCodeInternal, "unsupported schema node %T", node)
}

func (d *denormalizer) unvisitArray(input any, of schema.Node) (any, error) {
	if ref, ok := AsRef(input); ok {
		if ids, ok := ref.ID.([]any); ok {
			return d.unvisitRefList(ref, ids, of)
		}
		return d.unvisit(ref, of)
	}

	switch v := input.(type) {
	case []any:
		out := make([]any, len(v))
		for i, el := range v {
			r, err := d.unvisit(el, of)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case map[string]any:
		return d.unvisitValues(v, schema.NewValues(of))
	}
	return input, nil
}

// unvisitRefList hydrates the ids of an array reference in order. Plain ids
// inherit the partition of the enclosing reference.
func (d *denormalizer) unvisitRefList(ref Ref, ids []any, of schema.Node) (any, error) {
	out := make([]any, len(ids))
	for i, id := range ids {
		el := id
		if _, isRef := AsRef(id); !isRef && !isContainer(id) && ref.Resource != "" {
			el = Ref{Module: ref.Module, Resource: ref.Resource, ID: id}
		}
		r, err := d.unvisit(el, of)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func (d *denormalizer) unvisitEntity(input any, e *schema.Entity) (any, error) {
	target := e
	module, resource := e.Partition()
	id := input

	if ref, ok := AsRef(input); ok {
		if ids, ok := ref.ID.([]any); ok {
			return d.unvisitRefList(ref, ids, e)
		}
		if ref.Resource != "" {
			if ref.Module != module || ref.Resource != resource {
				if s, found := d.lookup(ref.Module, ref.Resource); found {
					target = s
				}
			}
			if ref.Module != "" {
				module = ref.Module
			}
			resource = ref.Resource
		}
		id = ref.ID
	} else if rec, ok := input.(map[string]any); ok {
		// An inline record that was never extracted into the store.
		cp := maps.Clone(rec)
		if err := d.unvisitFields(target, cp); err != nil {
			return nil, err
		}
		return cp, nil
	}

	key := cacheKey{module: module, resource: resource, id: IDKey(id)}
	if cached, ok := d.cache[key]; ok {
		return cached, nil
	}

	rec, ok := d.entities.Get(module, resource, id)
	if !ok || rec == nil {
		return nil, nil
	}

	cp := maps.Clone(rec)
	// The slot is filled before recursing so cycles resolve to this map.
	d.cache[key] = cp
	if err := d.unvisitFields(target, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// unvisitFields hydrates, in place, every field of rec declared on e plus
// every field listed under SpecField. Undeclared substituted fields are
// resolved through the registry from their reference.
func (d *denormalizer) unvisitFields(e *schema.Entity, rec schema.Record) error {
	// The list is shared with the stored record.
	fields := slices.Clone(specFields(rec))
	delete(rec, SpecField)
	for _, name := range e.FieldNames() {
		if _, ok := rec[name]; ok && !slices.Contains(fields, name) {
			fields = append(fields, name)
		}
	}
	slices.Sort(fields)

	for _, field := range fields {
		v := rec[field]
		if v == nil {
			continue
		}
		child, ok := e.Field(field)
		if !ok {
			ref, isRef := AsRef(v)
			if !isRef {
				continue
			}
			s, found := d.lookup(ref.Module, ref.Resource)
			if !found {
				continue
			}
			child = s
		}
		out, err := d.unvisit(v, child)
		if err != nil {
			return err
		}
		rec[field] = out
	}
	return nil
}

func (d *denormalizer) unvisitObject(input any, s *schema.Object) (any, error) {
	rec, ok := input.(map[string]any)
	if !ok || rec == nil {
		return input, nil
	}
	out := maps.Clone(rec)
	for _, field := range slices.Sorted(maps.Keys(s.Fields)) {
		v, ok := out[field]
		if !ok || v == nil {
			continue
		}
		r, err := d.unvisit(v, s.Fields[field])
		if err != nil {
			return nil, err
		}
		out[field] = r
	}
	return out, nil
}

func (d *denormalizer) unvisitValues(input any, s *schema.Values) (any, error) {
	rec, ok := input.(map[string]any)
	if !ok || rec == nil {
		return input, nil
	}
	out := make(schema.Record, len(rec))
	for _, k := range slices.Sorted(maps.Keys(rec)) {
		v := rec[k]
		child := s.SchemaFor(k, v, rec)
		r, err := d.unvisit(v, child)
		if err != nil {
			return nil, err
		}
		out[k] = r
	}
	return out, nil
}

// unvisitUnion picks the branch from the reference's discriminator, or from
// the discriminator of a raw value.
func (d *denormalizer) unvisitUnion(input any, u *schema.Union) (any, error) {
	if ref, ok := AsRef(input); ok && ref.Schema != "" {
		child, ok := u.Schema(ref.Schema)
		if !ok {
			return input, nil
		}
		if _, isEntity := child.(*schema.Entity); isEntity {
			return d.unvisit(ref, child)
		}
		return d.unvisit(ref.ID, child)
	}

	_, child, ok := u.Select(input, nil, "")
	if !ok {
		return input, nil
	}
	return d.unvisit(input, child)
}

func (d *denormalizer) lookup(module, resource string) (*schema.Entity, bool) {
	if d.resolver == nil || resource == "" {
		return nil, false
	}
	return d.resolver.Lookup(module, resource)
}
