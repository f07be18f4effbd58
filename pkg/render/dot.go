package render

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/normalizr/pkg/registry"
)

// Options configures schema graph rendering.
type Options struct {
	// Detailed lists the declared fields of each entity in its label.
	Detailed bool

	// Module limits the graph to entities of one module and the edges
	// leaving them. Empty means all modules.
	Module string
}

type node struct {
	key     string
	aliases []string
	fields  []string
}

// ToDOT converts the relation graph of reg to Graphviz DOT format.
func ToDOT(reg *registry.Registry, opts Options) string {
	nodes := collectNodes(reg, opts)

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=11];\n")
	buf.WriteString("\n")

	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.key] = true
		fmt.Fprintf(&buf, "  %q [label=%q];\n", n.key, fmtLabel(n, opts.Detailed))
	}

	var missing []string
	var edges []string
	for _, n := range nodes {
		module, resource, _ := strings.Cut(n.key, ".")
		defs := reg.Definitions(module, resource)
		for _, field := range slices.Sorted(maps.Keys(defs)) {
			rel := defs[field]
			target := rel.Module + "." + rel.Resource
			if !known[target] && !slices.Contains(missing, target) {
				if _, ok := reg.Schema(rel.Module, rel.Resource); !ok {
					missing = append(missing, target)
				}
			}
			label := field
			if rel.IsArray {
				label += "[]"
			}
			edges = append(edges, fmt.Sprintf("  %q -> %q [label=%q];\n", n.key, target, label))
		}
	}

	slices.Sort(missing)
	for _, key := range missing {
		fmt.Fprintf(&buf, "  %q [style=\"rounded,dashed\", fontcolor=grey40];\n", key)
	}

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String()
}

// collectNodes returns one node per registered entity. Keys registered as
// aliases of another partition are folded into that partition's node.
func collectNodes(reg *registry.Registry, opts Options) []node {
	byKey := make(map[string]*node)
	var aliases [][2]string

	for _, key := range reg.Keys() {
		module, resource, _ := strings.Cut(key, ".")
		if opts.Module != "" && module != opts.Module {
			continue
		}
		e, ok := reg.Schema(module, resource)
		if !ok {
			continue
		}
		m, r := e.Partition()
		canonical := m + "." + r
		if canonical != key {
			aliases = append(aliases, [2]string{canonical, key})
			continue
		}
		byKey[key] = &node{key: key, fields: e.FieldNames()}
	}

	for _, a := range aliases {
		if n, ok := byKey[a[0]]; ok {
			n.aliases = append(n.aliases, a[1])
		} else {
			byKey[a[1]] = &node{key: a[1]}
		}
	}

	out := make([]node, 0, len(byKey))
	for _, key := range slices.Sorted(maps.Keys(byKey)) {
		out = append(out, *byKey[key])
	}
	return out
}

func fmtLabel(n node, detailed bool) string {
	label := n.key
	if len(n.aliases) > 0 {
		label += "\n(" + strings.Join(n.aliases, ", ") + ")"
	}
	if detailed && len(n.fields) > 0 {
		label += "\n" + strings.Join(n.fields, "\n")
	}
	return label
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root tag to a zero-origin viewBox with
// matching width and height.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
