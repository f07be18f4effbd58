package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	e := NoopEngineHooks{}
	e.OnNormalize(ctx, "entity", 12, time.Second, nil)
	e.OnDenormalize(ctx, "array", time.Second, nil)

	b := NoopBuilderHooks{}
	b.OnSchemaRegistered(ctx, "feed", "post")
	b.OnUnresolved(ctx, "feed", "post", []string{"core.photo"})

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "normalize")
	c.OnCacheMiss(ctx, "denormalize")
	c.OnCacheSet(ctx, "normalize", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Engine().(NoopEngineHooks); !ok {
		t.Error("Engine() should return NoopEngineHooks by default")
	}
	if _, ok := Builder().(NoopBuilderHooks); !ok {
		t.Error("Builder() should return NoopBuilderHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	customEngine := &testEngineHooks{}
	SetEngineHooks(customEngine)
	if Engine() != customEngine {
		t.Error("SetEngineHooks should set custom hooks")
	}

	customBuilder := &testBuilderHooks{}
	SetBuilderHooks(customBuilder)
	if Builder() != customBuilder {
		t.Error("SetBuilderHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	Reset()
	if _, ok := Engine().(NoopEngineHooks); !ok {
		t.Error("Reset() should restore NoopEngineHooks")
	}
	if _, ok := Builder().(NoopBuilderHooks); !ok {
		t.Error("Reset() should restore NoopBuilderHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testEngineHooks{}
	SetEngineHooks(custom)
	SetEngineHooks(nil)

	if Engine() != custom {
		t.Error("SetEngineHooks(nil) should be ignored")
	}

	Reset()
}

type testEngineHooks struct{ NoopEngineHooks }
type testBuilderHooks struct{ NoopBuilderHooks }
type testCacheHooks struct{ NoopCacheHooks }
