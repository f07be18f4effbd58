package registry

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/matzehuels/normalizr/pkg/schema"
)

// Reserved resource names that resolve to [schema.User].
const (
	ReservedUser      = "_user"
	ReservedUserArray = "_user[]"
)

// Relation records what a field of a registered schema points at.
type Relation struct {
	Module   string `json:"module_name" yaml:"module_name" toml:"module_name"`
	Resource string `json:"resource_name" yaml:"resource_name" toml:"resource_name"`
	IsArray  bool   `json:"is_array,omitempty" yaml:"is_array,omitempty" toml:"is_array,omitempty"`
	Self     bool   `json:"self_define,omitempty" yaml:"self_define,omitempty" toml:"self_define,omitempty"`
}

// Registry holds registered schemas, resource aliases and relation
// definitions. It is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	// schemas by module, then resource
	schemas map[string]map[string]*schema.Entity

	// aliases by module, then alias → resource
	aliases map[string]map[string]string

	// relation definitions by module, resource, then field
	definitions map[string]map[string]map[string]Relation

	// last module that registered each resource
	modules map[string]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		schemas:     make(map[string]map[string]*schema.Entity),
		aliases:     make(map[string]map[string]string),
		definitions: make(map[string]map[string]map[string]Relation),
		modules:     make(map[string]string),
	}
}

// Register stores e under (module, resource). It returns false, leaving the
// existing entry untouched, when the pair is already registered.
func (r *Registry) Register(module, resource string, e *schema.Entity) bool {
	if e == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[module][resource]; exists {
		return false
	}
	if r.schemas[module] == nil {
		r.schemas[module] = make(map[string]*schema.Entity)
	}
	r.schemas[module][resource] = e
	r.modules[resource] = module
	return true
}

// Schema returns the entity registered under (module, resource). An empty
// module is resolved from the module that registered the resource.
func (r *Registry) Schema(module, resource string) (*schema.Entity, bool) {
	if resource == ReservedUser || resource == ReservedUserArray {
		return schema.User, true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if module == "" {
		module = r.modules[resource]
	}
	e, ok := r.schemas[module][resource]
	return e, ok
}

// Lookup implements the normalizer's resolver interface.
func (r *Registry) Lookup(module, resource string) (*schema.Entity, bool) {
	return r.Schema(module, resource)
}

// ModuleFor returns the module that registered resource.
func (r *Registry) ModuleFor(resource string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[resource]
	return m, ok
}

// RegisterAlias lets resource be referenced as alias within module.
func (r *Registry) RegisterAlias(module, resource, alias string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.aliases[module] == nil {
		r.aliases[module] = make(map[string]string)
	}
	r.aliases[module][alias] = resource
}

// Alias returns the resource registered for alias within module.
func (r *Registry) Alias(module, alias string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.aliases[module][alias]
	return res, ok
}

// ResourceName resolves a surface name to a registered resource name.
// Dashes are read as underscores. Aliases are checked first, then
// registered resources.
func (r *Registry) ResourceName(module, name string) (string, bool) {
	name = strings.ReplaceAll(name, "-", "_")

	r.mu.RLock()
	defer r.mu.RUnlock()

	if res, ok := r.aliases[module][name]; ok && res != "" {
		return res, true
	}
	if _, ok := r.schemas[module][name]; ok {
		return name, true
	}
	return "", false
}

// RegisterDefinition records the relation behind field key of (module, resource).
func (r *Registry) RegisterDefinition(module, resource, key string, rel Relation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.definitions[module] == nil {
		r.definitions[module] = make(map[string]map[string]Relation)
	}
	if r.definitions[module][resource] == nil {
		r.definitions[module][resource] = make(map[string]Relation)
	}
	r.definitions[module][resource][key] = rel
}

// Definition returns the relation recorded for one field.
func (r *Registry) Definition(module, resource, key string) (Relation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rel, ok := r.definitions[module][resource][key]
	return rel, ok
}

// Definitions returns a copy of every relation recorded for (module, resource).
func (r *Registry) Definitions(module, resource string) map[string]Relation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return maps.Clone(r.definitions[module][resource])
}

// Keys returns every registered pair as "module.resource", sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var keys []string
	for module, resources := range r.schemas {
		for resource := range resources {
			keys = append(keys, module+"."+resource)
		}
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of registered pairs. Aliased registrations count
// separately.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, resources := range r.schemas {
		n += len(resources)
	}
	return n
}
