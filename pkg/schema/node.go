package schema

// Record is a decoded JSON object: the shape of raw input records and of
// records held in a normalized store.
type Record = map[string]any

// Kind tags the variant of a schema graph node.
type Kind int

const (
	// KindEntity marks an [Entity] node.
	KindEntity Kind = iota
	// KindArray marks an [Array] node.
	KindArray
	// KindObject marks an [Object] node.
	KindObject
	// KindUnion marks a [Union] node.
	KindUnion
	// KindValues marks a [Values] node.
	KindValues
)

var kindNames = [...]string{
	KindEntity: "entity",
	KindArray:  "array",
	KindObject: "object",
	KindUnion:  "union",
	KindValues: "values",
}

// String returns the lowercase kind name.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Node is a schema graph node. Exactly one node governs the traversal of any
// subtree of the input.
type Node interface {
	Kind() Kind
}

// PartitionOf returns the store partition a node writes to. Arrays report the
// partition of their element node. Other composites have none and return
// empty strings.
func PartitionOf(n Node) (module, resource string) {
	switch v := n.(type) {
	case *Entity:
		return v.Partition()
	case *Array:
		if v.Of != nil {
			return PartitionOf(v.Of)
		}
	}
	return "", ""
}
