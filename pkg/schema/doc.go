// Package schema defines the schema graph that governs normalization.
//
// A schema graph is built from five node kinds:
//
//   - [Entity]: a record type with a stable identity, stored in a flat
//     partition keyed by (module, resource)
//   - [Array]: applies one child node to every element of a sequence
//   - [Object]: a fixed mapping of field name to child node, for value objects
//     that are not themselves flattened into the store
//   - [Union]: picks a child node per value through a discriminator
//   - [Values]: like Object, but the key set is open
//
// Every node reports its [Kind], and traversal code switches over it:
//
//	switch n := node.(type) {
//	case *schema.Entity:
//	    // identity, merge, nested fields
//	case *schema.Array:
//	    // map n.Of over elements
//	}
//
// # Entities
//
// Entities are created with [NewEntity] and functional options:
//
//	user := schema.MustEntity("user", nil, schema.WithModule("account"))
//	post, err := schema.NewEntity("post", map[string]schema.Node{
//	    "author":   user,
//	    "comments": schema.NewArray(comment),
//	}, schema.WithModule("feed"), schema.WithIDAttribute("uuid"))
//
// Field maps can be extended after construction with [Entity.Define], which
// is how self-referential and mutually-referential schemas are declared:
//
//	node.Define(map[string]schema.Node{"parent": node})
//
// # Identity of a type
//
// Two entities are the same logical type when their (module, resource)
// partitions match, regardless of which *Entity value declared them. The
// registry and the store both key on the partition, never on the pointer.
//
// # Concurrency
//
// Nodes are not safe for concurrent mutation. Declare and [Entity.Define]
// schemas during initialization, then share them read-only.
package schema
