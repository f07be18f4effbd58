package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/matzehuels/normalizr/pkg/normalize"
	"github.com/matzehuels/normalizr/pkg/pipeline"
)

// stdinPath reads the input document from stdin.
const stdinPath = "-"

// runFlags are shared by normalize and denormalize.
type runFlags struct {
	schemas []string
	root    string
	output  string
	noCache bool
	refresh bool
	strict  bool
	watch   bool
	stats   bool
	dump    bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringSliceVarP(&f.schemas, "schemas", "s", nil, "schema config files (TOML, YAML or JSON); repeat or comma-separate")
	flags.StringVarP(&f.root, "root", "r", "", `root schema, e.g. "feed.post" or "feed.post[]"`)
	flags.StringVarP(&f.output, "output", "o", "", "write the output to this file instead of stdout")
	flags.BoolVar(&f.noCache, "no-cache", false, "disable the output cache")
	flags.BoolVar(&f.refresh, "refresh", false, "ignore cached output and recompute")
	flags.BoolVar(&f.strict, "strict", false, "fail when a schema config stays unresolved")
	flags.BoolVarP(&f.watch, "watch", "w", false, "re-run whenever the input or a schema file changes")
	flags.BoolVar(&f.stats, "stats", false, "print record counts per partition")
	flags.BoolVar(&f.dump, "dump", false, "dump the decoded output to stderr for debugging")
	_ = cmd.MarkFlagRequired("schemas")
	_ = cmd.MarkFlagRequired("root")
}

// options converts the flags and the input argument to pipeline options.
func (f *runFlags) options(input string, stdin io.Reader) (pipeline.Options, error) {
	opts := pipeline.Options{
		SchemaFiles: f.schemas,
		Root:        f.root,
		Strict:      f.strict,
		Refresh:     f.refresh,
	}
	if input != stdinPath {
		opts.InputPath = input
		return opts, nil
	}
	if f.watch {
		return opts, fmt.Errorf("--watch needs an input file, not stdin")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return opts, fmt.Errorf("read stdin: %w", err)
	}
	if len(data) == 0 {
		return opts, fmt.Errorf("empty input on stdin")
	}
	opts.Input = data
	return opts, nil
}

type runFunc func(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error)

// execute runs op once, or keeps re-running it under --watch.
func (c *CLI) execute(cmd *cobra.Command, op pipeline.Operation, f *runFlags, input string) error {
	ctx := cmd.Context()
	opts, err := f.options(input, cmd.InOrStdin())
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, f.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	run := runner.Normalize
	if op == pipeline.OpDenormalize {
		run = runner.Denormalize
	}

	once := func() error {
		return c.runOnce(ctx, cmd.OutOrStdout(), op, f, opts, run)
	}
	if !f.watch {
		return once()
	}

	files := append([]string{opts.InputPath}, opts.SchemaFiles...)
	return watchFiles(ctx, loggerFromContext(ctx), files, once)
}

func (c *CLI) runOnce(ctx context.Context, stdout io.Writer, op pipeline.Operation, f *runFlags, opts pipeline.Options, run runFunc) error {
	prog := newProgress(loggerFromContext(ctx))
	res, err := run(ctx, opts)
	if err != nil {
		return err
	}
	if res.Report != nil {
		printUnresolved(res.Report.Unresolved)
	}

	if err := writeOutput(stdout, f.output, res.Data); err != nil {
		return err
	}
	prog.done(string(op)+" finished", "root", opts.Root, "cached", res.CacheHit)

	if f.output != "" {
		printSuccess("%sd %s", op, f.root)
		printFile(f.output)
		printStats(res.Stats.Entities, res.Stats.Schemas, res.CacheHit)
	}
	if f.stats {
		if out, ok := res.Output.(*normalize.Result); ok {
			printPartitions(out.Entities)
		}
	}
	if f.dump {
		spew.Fdump(uiOut, res.Output)
	}
	return nil
}

// writeOutput writes the encoded output, which already ends in a newline.
func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
