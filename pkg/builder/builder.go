package builder

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/normalizr/pkg/errors"
	"github.com/matzehuels/normalizr/pkg/observability"
	"github.com/matzehuels/normalizr/pkg/registry"
	"github.com/matzehuels/normalizr/pkg/schema"
)

// DefaultMaxRounds bounds the resolution rounds of [Builder.Build].
const DefaultMaxRounds = 5

// Builder registers schemas built from configs.
type Builder struct {
	Registry  *registry.Registry
	Logger    *log.Logger
	MaxRounds int
}

// New creates a builder writing to reg. A nil reg means the default registry
// and a nil logger discards output.
func New(reg *registry.Registry, logger *log.Logger) *Builder {
	if reg == nil {
		reg = registry.Default()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Builder{Registry: reg, Logger: logger, MaxRounds: DefaultMaxRounds}
}

// Report summarizes a [Builder.Build] run.
type Report struct {
	// Registered lists "module.resource" of each newly registered schema in
	// registration order.
	Registered []string

	// Skipped lists configs whose partition was already registered.
	Skipped []string

	// Unresolved lists configs whose references never resolved.
	Unresolved []errors.Unresolved

	// Rounds is the number of resolution rounds run.
	Rounds int
}

// Err returns an UNRESOLVED_RELATION error when any config stayed
// unresolved, nil otherwise.
func (r *Report) Err() error {
	if len(r.Unresolved) == 0 {
		return nil
	}
	return &errors.UnresolvedError{Configs: r.Unresolved}
}

// Build resolves and registers configs. Each round first checks every pending
// config against the registry, then creates those that fully resolve, so a
// config becomes available to others in the following round.
//
// An invalid config name fails the whole call before anything is registered.
// Unresolved configs do not fail Build; check [Report.Err].
func (b *Builder) Build(ctx context.Context, configs []Config) (*Report, error) {
	for i, c := range configs {
		if err := c.Validate(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "schema config %d", i)
		}
	}

	maxRounds := b.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	report := &Report{}
	pending := slices.Clone(configs)
	for round := 1; round <= maxRounds && len(pending) > 0; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.Rounds = round

		var ready []resolved
		var next []Config
		for _, c := range pending {
			r := b.resolve(c)
			if len(r.missing) > 0 {
				next = append(next, c)
				continue
			}
			ready = append(ready, r)
		}

		for _, r := range ready {
			_, created, err := b.create(ctx, r)
			if err != nil {
				return nil, err
			}
			if created {
				report.Registered = append(report.Registered, r.config.Key())
			} else {
				report.Skipped = append(report.Skipped, r.config.Key())
			}
		}
		b.logger().Debug("resolution round", "round", round, "ready", len(ready), "pending", len(next))

		pending = next
		if len(ready) == 0 {
			break
		}
	}

	for _, c := range pending {
		r := b.resolve(c)
		u := errors.Unresolved{Module: c.ModuleName, Resource: c.ResourceName, Missing: r.missing}
		report.Unresolved = append(report.Unresolved, u)
		b.logger().Warn("unresolved schema config", "schema", c.Key(), "missing", r.missing)
		observability.Builder().OnUnresolved(ctx, c.ModuleName, c.ResourceName, r.missing)
	}
	return report, nil
}

// CreateSchema builds and registers the entity for c. References that do not
// resolve are left out of the field set. When (module, resource) is already
// registered, the registered entity is returned and nothing changes except
// the alias.
func (b *Builder) CreateSchema(ctx context.Context, c Config) (*schema.Entity, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "schema config %s", c.Key())
	}
	e, _, err := b.create(ctx, b.resolve(c))
	return e, err
}

// resolved is a config checked against the registry.
type resolved struct {
	config    Config
	fields    map[string]schema.Node
	relations map[string]registry.Relation
	missing   []string
}

func (b *Builder) resolve(c Config) resolved {
	r := resolved{
		config:    c,
		fields:    make(map[string]schema.Node),
		relations: make(map[string]registry.Relation),
	}
	for _, field := range slices.Sorted(maps.Keys(c.Definition)) {
		ref := ParseReference(c, c.Definition[field])
		if ref.Self {
			r.relations[field] = ref.Relation()
			continue
		}
		e, ok := b.registry().Schema(ref.Module, ref.Resource)
		if !ok {
			if !slices.Contains(r.missing, ref.Key()) {
				r.missing = append(r.missing, ref.Key())
			}
			continue
		}
		r.relations[field] = ref.Relation()
		if ref.IsArray {
			r.fields[field] = schema.NewArray(e)
		} else {
			r.fields[field] = e
		}
	}
	return r
}

func (b *Builder) create(ctx context.Context, r resolved) (*schema.Entity, bool, error) {
	c := r.config
	module, resource := c.ModuleName, c.ResourceName

	fields := DefaultFields()
	maps.Copy(fields, r.fields)

	opts := []schema.EntityOption{
		schema.WithModule(module),
		schema.WithResource(resource),
		schema.WithProcessStrategy(FeedProcessor(module, c.Extras)),
	}
	if c.IDAttribute != "" {
		opts = append(opts, schema.WithIDAttribute(c.IDAttribute))
	}
	e, err := schema.NewEntity(resource, fields, opts...)
	if err != nil {
		return nil, false, fmt.Errorf("create schema %s: %w", c.Key(), err)
	}

	if c.Ref != "" {
		b.registry().RegisterAlias(module, resource, c.Ref)
	}
	if existing, ok := b.registry().Schema(module, resource); ok {
		b.logger().Debug("schema already registered", "schema", c.Key())
		return existing, false, nil
	}

	relations := make(map[string]registry.Relation, len(c.Relations)+len(r.relations))
	maps.Copy(relations, c.Relations)
	maps.Copy(relations, r.relations)
	if len(relations) == 0 {
		relations = defaultRelations(module)
	}

	for _, field := range slices.Sorted(maps.Keys(relations)) {
		rel := relations[field]
		if rel.Module == "" {
			rel.Module = module
		}
		if rel.Resource == "" {
			rel.Resource = resource
		}
		if rel.Self {
			var self schema.Node = e
			if rel.IsArray {
				self = schema.NewArray(e)
			}
			e.Define(map[string]schema.Node{field: self})
		}
		b.registry().RegisterDefinition(module, resource, field, rel)
	}

	if c.Ref != "" {
		b.registry().Register(module, c.Ref, e)
	}
	b.registry().Register(module, resource, e)

	b.logger().Debug("registered schema", "schema", c.Key(), "fields", len(e.FieldNames()))
	observability.Builder().OnSchemaRegistered(ctx, module, resource)
	return e, true, nil
}

// defaultRelations are recorded for configs that declare no relation at all.
func defaultRelations(module string) map[string]registry.Relation {
	return map[string]registry.Relation{
		"tags":       {Module: module, Resource: "tags"},
		"category":   {Module: module, Resource: "category"},
		"categories": {Module: module, Resource: "category", IsArray: true},
	}
}

func (b *Builder) logger() *log.Logger {
	if b.Logger == nil {
		return log.Default()
	}
	return b.Logger
}

func (b *Builder) registry() *registry.Registry {
	if b.Registry == nil {
		return registry.Default()
	}
	return b.Registry
}
