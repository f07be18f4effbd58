// Package normalize flattens nested, graph-shaped data into a store of
// entities and rebuilds the nested shape on demand.
//
// # Normalizing
//
// [Normalize] walks decoded JSON (map[string]any, []any and scalars) against
// a schema graph from package schema. Every value governed by an
// [schema.Entity] is extracted into the [Store] under its (module, resource)
// partition and replaced in its parent by a [Ref]:
//
//	post := schema.MustEntity("post", map[string]schema.Node{
//	    "author": user,
//	}, schema.WithModule("feed"))
//
//	res, err := normalize.Normalize(input, post)
//	// res.Result   → the root id
//	// res.Entities → feed/post/<id>, default/user/<id>
//
// The same entity appearing more than once is merged into one slot with the
// schema's merge strategy. Later visits win on conflicting fields. Field keys
// are visited in sorted order, so the outcome does not depend on map
// iteration.
//
// Nested values carrying module_name and resource_name tags are normalized
// with the schema registered for that pair, found through the [Resolver]
// (registry.Default unless [WithRegistry] is given).
//
// # Denormalizing
//
// [Denormalize] takes a root id (or ids, or a Ref) and rebuilds the nested
// value. Each entity is hydrated at most once per call. Cycles come back as
// shared maps: a record whose "self" field points at its own id denormalizes
// to a map m with m["self"] being m itself.
//
// # Absent values
//
// An empty array, or one whose first element is falsy, normalizes to nil
// (absent) rather than to an empty sequence. Inside an entity the raw value
// stays in place and the field is not listed under [SpecField].
//
// # Limits
//
// Traversal is recursive and its depth follows the input's nesting depth.
// There is no depth limit. Store and cache are created per call, so
// concurrent calls share nothing but the resolver.
package normalize
