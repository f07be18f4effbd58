package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/normalizr/pkg/builder"
	"github.com/matzehuels/normalizr/pkg/cache"
	"github.com/matzehuels/normalizr/pkg/document"
	"github.com/matzehuels/normalizr/pkg/normalize"
	"github.com/matzehuels/normalizr/pkg/observability"
	"github.com/matzehuels/normalizr/pkg/registry"
	"github.com/matzehuels/normalizr/pkg/schema"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner keeps no run results. When Registry is nil every run builds
// into a fresh registry, so concurrent runs with different schema files do
// not see each other's schemas.
type Runner struct {
	Cache     cache.Cache
	Keyer     cache.Keyer
	Logger    *log.Logger
	Registry  *registry.Registry
	MaxRounds int
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Normalize flattens the input document against the root schema.
func (r *Runner) Normalize(ctx context.Context, opts Options) (*Result, error) {
	return r.run(ctx, OpNormalize, opts, func(input any, node schema.Node, reg *registry.Registry, res *Result) (any, error) {
		out, err := normalize.Normalize(input, node, normalize.WithRegistry(reg))
		if err != nil {
			return nil, err
		}
		res.Stats.Entities = out.Entities.Len()
		return out, nil
	})
}

// Denormalize rebuilds the nested document from a normalized
// {"entities", "result"} input document.
func (r *Runner) Denormalize(ctx context.Context, opts Options) (*Result, error) {
	return r.run(ctx, OpDenormalize, opts, func(input any, node schema.Node, reg *registry.Registry, res *Result) (any, error) {
		doc, err := document.ToResult(input)
		if err != nil {
			return nil, err
		}
		res.Stats.Entities = doc.Entities.Len()
		return normalize.Denormalize(doc.Result, node, doc.Entities, normalize.WithRegistry(reg))
	})
}

type engineFunc func(input any, node schema.Node, reg *registry.Registry, res *Result) (any, error)

func (r *Runner) run(ctx context.Context, op Operation, opts Options, engine engineFunc) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	root, _ := ParseRoot(opts.Root)

	input, err := readInput(opts)
	if err != nil {
		return nil, err
	}
	configs, schemaID, err := loadConfigs(opts.SchemaFiles, root)
	if err != nil {
		return nil, err
	}

	res := &Result{SchemaID: schemaID, InputHash: cache.Hash(input)}
	key := r.cacheKey(op, schemaID, res.InputHash)

	// Cache first, unless a refresh was requested
	if !opts.Refresh {
		if out, ok := r.lookup(ctx, op, key); ok {
			res.Output, res.Data, res.CacheHit = out.value, out.data, true
			r.Logger.Debug("cache hit", "operation", op, "root", root)
			return res, nil
		}
	}

	// Stage 1: Build
	buildStart := time.Now()
	reg := r.Registry
	if reg == nil {
		reg = registry.New()
	}
	b := builder.New(reg, r.Logger)
	b.MaxRounds = r.MaxRounds
	report, err := b.Build(ctx, configs)
	if err != nil {
		return nil, fmt.Errorf("build schemas: %w", err)
	}
	res.Report = report
	res.Stats.Schemas = len(report.Registered)
	res.Stats.BuildTime = time.Since(buildStart)
	if opts.Strict {
		if err := report.Err(); err != nil {
			return nil, err
		}
	}
	r.Logger.Info("built schemas",
		"registered", len(report.Registered),
		"unresolved", len(report.Unresolved),
		"rounds", report.Rounds,
		"duration", res.Stats.BuildTime)

	node, err := root.Node(reg)
	if err != nil {
		return nil, err
	}

	// Stage 2: Run
	doc, err := document.Unmarshal(input)
	if err != nil {
		return nil, err
	}
	runStart := time.Now()
	out, err := engine(doc, node, reg, res)
	res.Stats.RunTime = time.Since(runStart)
	r.fireEngineHook(ctx, op, node, res, err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	r.Logger.Info(string(op)+" finished",
		"root", root,
		"entities", res.Stats.Entities,
		"duration", res.Stats.RunTime)

	// Stage 3: Encode
	data, err := document.Marshal(out)
	if err != nil {
		return nil, err
	}
	res.Output, res.Data = out, data

	if err := r.Cache.Set(ctx, key, data, opts.TTL); err != nil {
		r.Logger.Warn("cache write failed", "error", err)
	} else {
		observability.Cache().OnCacheSet(ctx, string(op), len(data))
	}
	return res, nil
}

func (r *Runner) cacheKey(op Operation, schemaID, inputHash string) string {
	if op == OpDenormalize {
		return r.Keyer.DenormalizeKey(schemaID, inputHash)
	}
	return r.Keyer.NormalizeKey(schemaID, inputHash)
}

type cached struct {
	value any
	data  []byte
}

// lookup returns a decoded cache entry. Entries that no longer decode are
// treated as misses.
func (r *Runner) lookup(ctx context.Context, op Operation, key string) (cached, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, string(op))
		return cached{}, false
	}
	v, err := document.Unmarshal(data)
	if err == nil && op == OpNormalize {
		v, err = document.ToResult(v)
	}
	if err != nil {
		r.Logger.Debug("discarding corrupt cache entry", "error", err)
		observability.Cache().OnCacheMiss(ctx, string(op))
		return cached{}, false
	}
	observability.Cache().OnCacheHit(ctx, string(op))
	return cached{value: v, data: data}, true
}

func (r *Runner) fireEngineHook(ctx context.Context, op Operation, node schema.Node, res *Result, err error) {
	kind := node.Kind().String()
	if op == OpDenormalize {
		observability.Engine().OnDenormalize(ctx, kind, res.Stats.RunTime, err)
		return
	}
	observability.Engine().OnNormalize(ctx, kind, res.Stats.Entities, res.Stats.RunTime, err)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func readInput(opts Options) ([]byte, error) {
	if len(opts.Input) > 0 {
		return opts.Input, nil
	}
	data, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

// loadConfigs decodes every schema file and derives the schema ID from the
// file contents and the root.
func loadConfigs(paths []string, root Root) ([]builder.Config, string, error) {
	var (
		configs []builder.Config
		buf     bytes.Buffer
	)
	for _, path := range paths {
		format, err := builder.FormatFromPath(path)
		if err != nil {
			return nil, "", err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("read schema file: %w", err)
		}
		cs, err := builder.Parse(data, format)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", path, err)
		}
		configs = append(configs, cs...)
		buf.Write(data)
		buf.WriteByte(0)
	}
	buf.WriteString(root.String())
	return configs, cache.Hash(buf.Bytes()), nil
}
