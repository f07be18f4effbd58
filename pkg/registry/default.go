package registry

import "github.com/matzehuels/normalizr/pkg/schema"

var defaultRegistry = New()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// RegisterSchema registers e in the default registry.
func RegisterSchema(module, resource string, e *schema.Entity) bool {
	return defaultRegistry.Register(module, resource, e)
}

// GetRegisteredSchema looks up a schema in the default registry.
func GetRegisteredSchema(module, resource string) (*schema.Entity, bool) {
	return defaultRegistry.Schema(module, resource)
}

// RegisterResourceAlias registers an alias in the default registry.
func RegisterResourceAlias(module, resource, alias string) {
	defaultRegistry.RegisterAlias(module, resource, alias)
}

// GetRegisteredResourceName resolves a surface name in the default registry.
func GetRegisteredResourceName(module, name string) (string, bool) {
	return defaultRegistry.ResourceName(module, name)
}

// GetResourceAlias returns the resource behind an alias in the default registry.
func GetResourceAlias(module, alias string) (string, bool) {
	return defaultRegistry.Alias(module, alias)
}

// RegisterSchemaDefinition records a relation in the default registry.
func RegisterSchemaDefinition(module, resource, key string, rel Relation) {
	defaultRegistry.RegisterDefinition(module, resource, key, rel)
}

// GetSchemaDefinition returns one relation from the default registry.
func GetSchemaDefinition(module, resource, key string) (Relation, bool) {
	return defaultRegistry.Definition(module, resource, key)
}

// GetModuleNameByResourceName returns the module that registered resource.
func GetModuleNameByResourceName(resource string) (string, bool) {
	return defaultRegistry.ModuleFor(resource)
}

// GetRegisteredSchemaKeys lists the default registry's pairs.
func GetRegisteredSchemaKeys() []string {
	return defaultRegistry.Keys()
}
