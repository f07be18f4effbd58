package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/normalizr/pkg/pipeline"
)

// normalizeCommand creates the normalize command.
func (c *CLI) normalizeCommand() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "normalize [input.json|-]",
		Short: "Flatten a nested JSON document into an entity store",
		Long: `Flatten a nested JSON document into an entity store.

The schema configs are built into a registry, the root schema is looked up
in it, and the input is normalized against the root. The output is a JSON
object {"entities": {module: {resource: {id: record}}}, "result": ...}.`,
		Example: `  # Normalize a list of posts
  normalizr normalize posts.json -s schemas.toml -r "feed.post[]"

  # Read from stdin, write to a file, show counts per partition
  cat post.json | normalizr normalize - -s schemas.yaml -r feed.post -o out.json --stats

  # Re-run whenever posts.json or schemas.toml changes
  normalizr normalize posts.json -s schemas.toml -r "feed.post[]" -o out.json --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.execute(cmd, pipeline.OpNormalize, &f, args[0])
		},
	}

	f.register(cmd)
	return cmd
}

// denormalizeCommand creates the denormalize command.
func (c *CLI) denormalizeCommand() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "denormalize [normalized.json|-]",
		Short: "Rebuild the nested document from a normalized one",
		Long: `Rebuild the nested document from a normalized one.

The input is the output of normalize: {"entities": ..., "result": ...}. Every
reference in the result is replaced by its record, recursively. Records that
refer back to each other resolve to the same object, and records missing from
the store come back as null.`,
		Example: `  # Round trip
  normalizr normalize posts.json -s schemas.toml -r "feed.post[]" -o normalized.json
  normalizr denormalize normalized.json -s schemas.toml -r "feed.post[]"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.execute(cmd, pipeline.OpDenormalize, &f, args[0])
		},
	}

	f.register(cmd)
	return cmd
}
