// Package observability provides hooks for metrics, tracing, and logging.
//
// The engine and builder stay free of any observability backend. Consumers
// register hooks at startup and receive events about normalization runs,
// schema building, and cache operations.
//
// # Architecture
//
// Each event category has a hook interface, a no-op default, and a setter.
// Hooks are registered by main, never by libraries, so there are no import
// cycles and any backend (OpenTelemetry, Prometheus, plain logs) can be
// plugged in.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetEngineHooks(&myEngineHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	start := time.Now()
//	res, err := normalize.Normalize(input, node)
//	observability.Engine().OnNormalize(ctx, node.Kind().String(), res.Entities.Len(), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Engine Hooks
// =============================================================================

// EngineHooks receives events from normalize and denormalize runs.
type EngineHooks interface {
	// OnNormalize records a finished normalization. rootKind names the kind
	// of the root schema node.
	OnNormalize(ctx context.Context, rootKind string, entityCount int, duration time.Duration, err error)

	// OnDenormalize records a finished denormalization.
	OnDenormalize(ctx context.Context, rootKind string, duration time.Duration, err error)
}

// =============================================================================
// Builder Hooks
// =============================================================================

// BuilderHooks receives events from the schema builder.
type BuilderHooks interface {
	// OnSchemaRegistered records a schema added to the registry.
	OnSchemaRegistered(ctx context.Context, module, resource string)

	// OnUnresolved records a schema config whose references never resolved.
	OnUnresolved(ctx context.Context, module, resource string, missing []string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopEngineHooks is a no-op implementation of EngineHooks.
type NoopEngineHooks struct{}

func (NoopEngineHooks) OnNormalize(context.Context, string, int, time.Duration, error) {}
func (NoopEngineHooks) OnDenormalize(context.Context, string, time.Duration, error)    {}

// NoopBuilderHooks is a no-op implementation of BuilderHooks.
type NoopBuilderHooks struct{}

func (NoopBuilderHooks) OnSchemaRegistered(context.Context, string, string)     {}
func (NoopBuilderHooks) OnUnresolved(context.Context, string, string, []string) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	engineHooks  EngineHooks  = NoopEngineHooks{}
	builderHooks BuilderHooks = NoopBuilderHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	hooksMu      sync.RWMutex
)

// SetEngineHooks registers custom engine hooks.
// This should be called once at application startup before any normalization.
func SetEngineHooks(h EngineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		engineHooks = h
	}
}

// SetBuilderHooks registers custom builder hooks.
func SetBuilderHooks(h BuilderHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		builderHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Engine returns the registered engine hooks.
func Engine() EngineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return engineHooks
}

// Builder returns the registered builder hooks.
func Builder() BuilderHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return builderHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	engineHooks = NoopEngineHooks{}
	builderHooks = NoopBuilderHooks{}
	cacheHooks = NoopCacheHooks{}
}
