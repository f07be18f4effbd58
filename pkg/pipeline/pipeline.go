// Package pipeline runs normalize and denormalize end to end for the CLI.
//
// A run has three stages:
//
//  1. Build: load schema config files and register them with the builder
//  2. Run: decode the input document and hand it to the engine with the
//     root schema
//  3. Encode: write the output as JSON and store it in the cache
//
// Outputs are cached by the hash of the schema config files, the root and
// the input document, so repeating a run skips stages 1 and 2.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	res, err := runner.Normalize(ctx, pipeline.Options{
//	    SchemaFiles: []string{"schemas.toml"},
//	    Root:        "feed.post[]",
//	    InputPath:   "posts.json",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.Stdout.Write(res.Data)
package pipeline

import (
	"strings"
	"time"

	"github.com/matzehuels/normalizr/pkg/builder"
	"github.com/matzehuels/normalizr/pkg/errors"
	"github.com/matzehuels/normalizr/pkg/registry"
	"github.com/matzehuels/normalizr/pkg/schema"
)

// DefaultTTL is how long cached outputs live.
const DefaultTTL = 24 * time.Hour

// Operation names a pipeline run.
type Operation string

const (
	OpNormalize   Operation = "normalize"
	OpDenormalize Operation = "denormalize"
)

// =============================================================================
// Options
// =============================================================================

// Options configures one pipeline run.
type Options struct {
	// SchemaFiles are TOML, YAML or JSON schema config files, built in order.
	SchemaFiles []string `json:"schema_files"`

	// Root names the root schema as "module.resource", "resource" or either
	// form with a "[]" suffix for a list of entities.
	Root string `json:"root"`

	// Input is the raw input document. When empty, InputPath is read.
	Input     []byte `json:"-"`
	InputPath string `json:"input_path,omitempty"`

	// Strict fails the run when a schema config stays unresolved.
	Strict bool `json:"strict,omitempty"`

	// Refresh skips the cache lookup; the output is still stored.
	Refresh bool `json:"refresh,omitempty"`

	TTL time.Duration `json:"ttl,omitempty"`

	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// Calling it more than once has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if len(o.SchemaFiles) == 0 {
		return errors.New(errors.ErrCodeConfiguration, "at least one schema file is required")
	}
	if _, err := ParseRoot(o.Root); err != nil {
		return err
	}
	if len(o.Input) == 0 && o.InputPath == "" {
		return errors.New(errors.ErrCodeConfiguration, "input or input path is required")
	}

	if o.TTL == 0 {
		o.TTL = DefaultTTL
	}
	o.validated = true
	return nil
}

// =============================================================================
// Result
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// Output is a *normalize.Result for normalize runs and the nested
	// document for denormalize runs.
	Output any

	// Data is Output encoded as JSON.
	Data []byte

	// Report is the schema build report. It is nil on a cache hit.
	Report *builder.Report

	// SchemaID hashes the schema config files and the root.
	SchemaID string

	// InputHash is the content hash of the input document.
	InputHash string

	CacheHit bool
	Stats    Stats
}

// Stats contains run statistics.
type Stats struct {
	Schemas   int
	Entities  int
	BuildTime time.Duration
	RunTime   time.Duration
}

// =============================================================================
// Root
// =============================================================================

// Root is a parsed root schema name.
type Root struct {
	Module   string
	Resource string
	IsArray  bool
}

// ParseRoot parses "module.resource", "resource" and their "[]" forms.
func ParseRoot(s string) (Root, error) {
	s = strings.TrimSpace(s)
	var r Root
	if strings.HasSuffix(s, builder.ArraySuffix) {
		r.IsArray = true
		s = strings.TrimSuffix(s, builder.ArraySuffix)
	}
	if module, resource, ok := strings.Cut(s, "."); ok {
		if err := errors.ValidateName("module", module); err != nil {
			return Root{}, err
		}
		r.Module, s = module, resource
	}
	if err := errors.ValidateName("resource", s); err != nil {
		return Root{}, err
	}
	r.Resource = s
	return r, nil
}

func (r Root) String() string {
	s := r.Resource
	if r.Module != "" {
		s = r.Module + "." + s
	}
	if r.IsArray {
		s += builder.ArraySuffix
	}
	return s
}

// Node resolves the root against reg. An array root wraps the entity in an
// array node.
func (r Root) Node(reg *registry.Registry) (schema.Node, error) {
	e, ok := reg.Schema(r.Module, r.Resource)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "root schema %q is not registered", r.String())
	}
	if r.IsArray {
		return schema.NewArray(e), nil
	}
	return e, nil
}
