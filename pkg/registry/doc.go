// Package registry maps (module, resource) pairs to entity schemas.
//
// The registry lets independently constructed schema graphs refer to the same
// logical entity type, and lets the normalizer pick a schema at runtime from
// type tags carried inline on data (module_name / resource_name).
//
// # Lifecycle
//
// Registration happens during initialization, typically through
// builder.Builder. Registration is idempotent: the first schema registered
// for a pair wins and later attempts are ignored. Lookups are read-only and
// return a found flag instead of an error.
//
// # Default registry
//
// [Default] returns the process-wide registry used when no registry is
// injected. The package-level functions ([RegisterSchema],
// [GetRegisteredSchema], ...) operate on it. Tests and embedders that need
// isolation create their own with [New].
//
// # Reserved names
//
// The resource names "_user" and "_user[]" always resolve to [schema.User],
// whatever the module, so every module shares one user partition.
package registry
