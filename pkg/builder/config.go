package builder

import (
	"strings"

	"github.com/matzehuels/normalizr/pkg/errors"
	"github.com/matzehuels/normalizr/pkg/registry"
)

// ArraySuffix marks a reference to a list of entities.
const ArraySuffix = "[]"

// Config declares one entity schema.
type Config struct {
	ModuleName   string `json:"module_name" yaml:"module_name" toml:"module_name"`
	ResourceName string `json:"resource_name" yaml:"resource_name" toml:"resource_name"`

	// IDAttribute overrides the identity field, "id" by default.
	IDAttribute string `json:"id_attribute,omitempty" yaml:"id_attribute,omitempty" toml:"id_attribute,omitempty"`

	// Definition maps field names to references.
	Definition map[string]string `json:"definition,omitempty" yaml:"definition,omitempty" toml:"definition,omitempty"`

	// Relations are recorded in the registry next to the ones derived from
	// Definition. Derived relations win on the same field.
	Relations map[string]registry.Relation `json:"relations,omitempty" yaml:"relations,omitempty" toml:"relations,omitempty"`

	// Ref is an alias resource name; the schema is registered under it too.
	Ref string `json:"ref,omitempty" yaml:"ref,omitempty" toml:"ref,omitempty"`

	// Extras are copied onto every processed record.
	Extras map[string]any `json:"extras,omitempty" yaml:"extras,omitempty" toml:"extras,omitempty"`
}

// Key returns "module.resource".
func (c Config) Key() string {
	return c.ModuleName + "." + c.ResourceName
}

// Validate checks the partition names of the config.
func (c Config) Validate() error {
	if err := errors.ValidateName("module", c.ModuleName); err != nil {
		return err
	}
	if err := errors.ValidateName("resource", c.ResourceName); err != nil {
		return err
	}
	if c.Ref != "" {
		if err := errors.ValidateName("ref", c.Ref); err != nil {
			return err
		}
	}
	return nil
}

// Reference is a parsed definition value.
type Reference struct {
	Module   string
	Resource string
	IsArray  bool
	Self     bool // points back at the owning config
}

// Key returns "module.resource".
func (r Reference) Key() string {
	return r.Module + "." + r.Resource
}

// Relation converts the reference to its registry form.
func (r Reference) Relation() registry.Relation {
	return registry.Relation{
		Module:   r.Module,
		Resource: r.Resource,
		IsArray:  r.IsArray,
		Self:     r.Self,
	}
}

// ParseReference parses a definition value relative to its owning config.
// A reference without a module is taken from the owner's module.
func ParseReference(owner Config, s string) Reference {
	s = strings.TrimSpace(s)
	ref := Reference{Module: owner.ModuleName}

	if strings.HasSuffix(s, ArraySuffix) {
		ref.IsArray = true
		s = strings.TrimSuffix(s, ArraySuffix)
	}

	if module, resource, ok := strings.Cut(s, "."); ok && module != "" {
		ref.Module = module
		ref.Resource = resource
	} else {
		ref.Resource = s
	}

	ref.Self = ref.Module == owner.ModuleName && ref.Resource == owner.ResourceName
	return ref
}
