// Package render draws the relation graph of a schema registry.
//
// Every registered entity becomes a node labelled "module.resource" and
// every relation definition an edge labelled with the field name. Array
// relations carry a "[]" suffix and self relations loop back to their node.
// Relation targets that are not registered appear dashed.
//
//	dot := render.ToDOT(registry.Default(), render.Options{})
//	svg, err := render.RenderSVG(ctx, dot)
//
// DOT output is deterministic: nodes and edges are emitted in sorted order.
package render
