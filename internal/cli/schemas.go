package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/normalizr/pkg/builder"
	"github.com/matzehuels/normalizr/pkg/registry"
	"github.com/matzehuels/normalizr/pkg/render"
)

// Graph output formats.
const (
	graphDOT = "dot"
	graphSVG = "svg"
)

// schemasCommand creates the schemas command.
func (c *CLI) schemasCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "Inspect the schemas built from schema configs",
	}

	cmd.AddCommand(c.schemasListCommand())
	cmd.AddCommand(c.schemasGraphCommand())

	return cmd
}

// buildRegistry loads every config file and builds them into a fresh
// registry.
func (c *CLI) buildRegistry(ctx context.Context, files []string, strict bool) (*registry.Registry, *builder.Report, error) {
	var configs []builder.Config
	for _, path := range files {
		cs, err := builder.LoadFile(path)
		if err != nil {
			return nil, nil, err
		}
		configs = append(configs, cs...)
	}

	reg := registry.New()
	report, err := builder.New(reg, loggerFromContext(ctx)).Build(ctx, configs)
	if err != nil {
		return nil, nil, err
	}
	if strict {
		if err := report.Err(); err != nil {
			return nil, nil, err
		}
	}
	return reg, report, nil
}

func (c *CLI) schemasListCommand() *cobra.Command {
	var (
		files  []string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered schemas with their fields",
		Example: `  normalizr schemas list -s schemas.toml
  normalizr schemas list -s core.yaml,feed.yaml --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, report, err := c.buildRegistry(cmd.Context(), files, strict)
			if err != nil {
				return err
			}

			printTitle(fmt.Sprintf("%d schemas", len(report.Registered)))
			for _, key := range reg.Keys() {
				module, resource, _ := strings.Cut(key, ".")
				e, _ := reg.Schema(module, resource)

				desc := strings.Join(e.FieldNames(), ", ")
				if m, r := e.Partition(); m+"."+r != key {
					desc = iconArrow + " " + m + "." + r
				}
				printKeyValue(key, desc)
			}
			printUnresolved(report.Unresolved)
			printDetail("resolved in %d rounds", report.Rounds)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&files, "schemas", "s", nil, "schema config files")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when a schema config stays unresolved")
	_ = cmd.MarkFlagRequired("schemas")

	return cmd
}

func (c *CLI) schemasGraphCommand() *cobra.Command {
	var (
		files    []string
		output   string
		format   string
		module   string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the relation graph of the built schemas",
		Long: `Render the relation graph of the built schemas as Graphviz DOT or SVG.

Each registered schema is a node, aliases are folded into the node of the
schema they point at, and every relation is an edge labelled with its field.
Relations to schemas that never got registered are drawn dashed.`,
		Example: `  normalizr schemas graph -s schemas.toml > schemas.dot
  normalizr schemas graph -s schemas.toml -o schemas.svg --detailed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if format == "" {
				format = graphFormat(output)
			}
			if format != graphDOT && format != graphSVG {
				return fmt.Errorf("invalid format: %q (must be dot or svg)", format)
			}

			reg, _, err := c.buildRegistry(ctx, files, false)
			if err != nil {
				return err
			}

			data := []byte(render.ToDOT(reg, render.Options{Detailed: detailed, Module: module}))
			if format == graphSVG {
				if data, err = render.RenderSVG(ctx, string(data)); err != nil {
					return err
				}
			}

			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			printSuccess("Rendered schema graph")
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&files, "schemas", "s", nil, "schema config files")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: dot or svg (default from --output extension, else dot)")
	cmd.Flags().StringVarP(&module, "module", "m", "", "only show schemas of this module")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "list declared fields in each node")
	_ = cmd.MarkFlagRequired("schemas")

	return cmd
}

// graphFormat infers the graph format from an output path.
func graphFormat(output string) string {
	if strings.EqualFold(filepath.Ext(output), "."+graphSVG) {
		return graphSVG
	}
	return graphDOT
}
