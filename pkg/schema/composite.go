package schema

import "fmt"

// Array applies its element node to every element of a sequence.
type Array struct {
	Of Node
}

// NewArray returns an array node over of.
func NewArray(of Node) *Array { return &Array{Of: of} }

// Kind implements [Node].
func (*Array) Kind() Kind { return KindArray }

// Object applies a fixed field → node mapping to a plain record. The record
// itself has no identity and is not stored.
type Object struct {
	Fields map[string]Node
}

// NewObject returns an object node over fields.
func NewObject(fields map[string]Node) *Object { return &Object{Fields: fields} }

// Kind implements [Node].
func (*Object) Kind() Kind { return KindObject }

// DiscriminatorFunc extracts the discriminator of a value governed by a
// [Union]. It returns "" when the value carries none.
type DiscriminatorFunc func(value any, parent Record, key string) string

// Union selects a child node per value by discriminator.
type Union struct {
	Schemas       map[string]Node
	Discriminator DiscriminatorFunc
}

// NewUnion returns a union that reads the discriminator from the named field
// of each value.
func NewUnion(schemas map[string]Node, attribute string) *Union {
	return &Union{Schemas: schemas, Discriminator: AttributeDiscriminator(attribute)}
}

// NewUnionFunc returns a union with a custom discriminator.
func NewUnionFunc(schemas map[string]Node, fn DiscriminatorFunc) *Union {
	return &Union{Schemas: schemas, Discriminator: fn}
}

// Kind implements [Node].
func (*Union) Kind() Kind { return KindUnion }

// Select returns the discriminator of value and the node it selects.
// ok is false when the value has no discriminator or no node matches it.
func (u *Union) Select(value any, parent Record, key string) (tag string, node Node, ok bool) {
	if u.Discriminator == nil {
		return "", nil, false
	}
	tag = u.Discriminator(value, parent, key)
	if tag == "" {
		return "", nil, false
	}
	node, ok = u.Schemas[tag]
	return tag, node, ok && node != nil
}

// Schema returns the node registered under tag.
func (u *Union) Schema(tag string) (Node, bool) {
	n, ok := u.Schemas[tag]
	return n, ok && n != nil
}

// AttributeDiscriminator reads the discriminator from a field of a record
// value. Non-string values are formatted with %v.
func AttributeDiscriminator(attribute string) DiscriminatorFunc {
	return func(value any, _ Record, _ string) string {
		rec, ok := value.(Record)
		if !ok {
			return ""
		}
		switch v := rec[attribute].(type) {
		case nil:
			return ""
		case string:
			return v
		default:
			return fmt.Sprint(v)
		}
	}
}

// ResolveFunc picks the node for one key of a [Values] map.
type ResolveFunc func(key string, value any, parent Record) Node

// Values applies a node to every key of an open-ended map.
type Values struct {
	Of      Node
	Resolve ResolveFunc
}

// NewValues returns a values node where every key shares of.
func NewValues(of Node) *Values { return &Values{Of: of} }

// Kind implements [Node].
func (*Values) Kind() Kind { return KindValues }

// SchemaFor returns the node governing key. Resolve wins when it returns a
// node; otherwise Of applies.
func (v *Values) SchemaFor(key string, value any, parent Record) Node {
	if v.Resolve != nil {
		if n := v.Resolve(key, value, parent); n != nil {
			return n
		}
	}
	return v.Of
}
