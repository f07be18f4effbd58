package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/normalizr/pkg/cache"
	"github.com/matzehuels/normalizr/pkg/errors"
	"github.com/matzehuels/normalizr/pkg/normalize"
	"github.com/matzehuels/normalizr/pkg/observability"
	"github.com/matzehuels/normalizr/pkg/registry"
	"github.com/matzehuels/normalizr/pkg/schema"
)

const feedSchemas = `
- module_name: feed
  resource_name: post
  definition:
    photo: media.photo
    comments: "comment[]"
- module_name: feed
  resource_name: comment
- module_name: media
  resource_name: photo
`

const posts = `[
  {"id": 1, "title": "first", "tracker": "t1",
   "photo": {"id": 10, "url": "a.png", "tracker": "p10"},
   "comments": [{"id": 100, "body": "nice", "tracker": "c100"}]},
  {"id": 2, "title": "second", "tracker": "t2",
   "photo": {"id": 10, "url": "a.png", "tracker": "p10"}}
]`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func feedOptions(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	return Options{
		SchemaFiles: []string{writeFile(t, dir, "schemas.yaml", feedSchemas)},
		Root:        "feed.post[]",
		InputPath:   writeFile(t, dir, "posts.json", posts),
	}
}

func TestParseRoot(t *testing.T) {
	tests := []struct {
		in      string
		want    Root
		wantErr bool
	}{
		{"feed.post", Root{Module: "feed", Resource: "post"}, false},
		{"feed.post[]", Root{Module: "feed", Resource: "post", IsArray: true}, false},
		{"post", Root{Resource: "post"}, false},
		{" _user[] ", Root{Resource: "_user", IsArray: true}, false},
		{"", Root{}, true},
		{"feed.", Root{}, true},
		{".post", Root{}, true},
		{"feed.post.extra", Root{}, true},
	}
	for _, tt := range tests {
		got, err := ParseRoot(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, got, mustParseRoot(t, got.String()), "String round trip of %q", tt.in)
	}
}

func mustParseRoot(t *testing.T, s string) Root {
	t.Helper()
	r, err := ParseRoot(s)
	require.NoError(t, err)
	return r
}

func TestRootNode(t *testing.T) {
	reg := registry.New()
	post := schema.MustEntity("post", nil, schema.WithModule("feed"))
	reg.Register("feed", "post", post)

	node, err := Root{Module: "feed", Resource: "post"}.Node(reg)
	require.NoError(t, err)
	assert.Same(t, post, node)

	node, err = Root{Resource: "post", IsArray: true}.Node(reg)
	require.NoError(t, err)
	arr, ok := node.(*schema.Array)
	require.True(t, ok)
	assert.Same(t, post, arr.Of)

	node, err = Root{Resource: "_user"}.Node(reg)
	require.NoError(t, err)
	assert.Same(t, schema.User, node)

	_, err = Root{Module: "feed", Resource: "missing"}.Node(reg)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestOptionsValidate(t *testing.T) {
	opts := Options{Root: "feed.post", Input: []byte(`{}`)}
	assert.Error(t, opts.ValidateAndSetDefaults(), "missing schema files")

	opts = Options{SchemaFiles: []string{"s.toml"}, Root: "feed.post"}
	assert.Error(t, opts.ValidateAndSetDefaults(), "missing input")

	opts = Options{SchemaFiles: []string{"s.toml"}, Root: "feed.", Input: []byte(`{}`)}
	assert.Error(t, opts.ValidateAndSetDefaults(), "bad root")

	opts = Options{SchemaFiles: []string{"s.toml"}, Root: "feed.post", Input: []byte(`{}`)}
	require.NoError(t, opts.ValidateAndSetDefaults())
	assert.Equal(t, DefaultTTL, opts.TTL)
}

func TestRunnerNormalize(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Normalize(context.Background(), feedOptions(t))
	require.NoError(t, err)

	assert.False(t, res.CacheHit)
	require.NotNil(t, res.Report)
	assert.Len(t, res.Report.Registered, 3)
	assert.Empty(t, res.Report.Unresolved)

	out, ok := res.Output.(*normalize.Result)
	require.True(t, ok)
	assert.EqualValues(t, []any{int64(1), int64(2)}, out.Result)

	_, ok = out.Entities.Get("media", "photo", 10)
	assert.True(t, ok)
	_, ok = out.Entities.Get("feed", "comment", 100)
	assert.True(t, ok)
	rec, ok := out.Entities.Get("feed", "post", 1)
	require.True(t, ok)
	assert.Equal(t, "first", rec["title"])
	assert.Equal(t, 4, res.Stats.Entities)
	assert.NotEmpty(t, res.Data)
}

func TestRunnerRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(nil, nil, nil)
	opts := feedOptions(t)

	normalized, err := r.Normalize(ctx, opts)
	require.NoError(t, err)

	opts.InputPath = ""
	opts.Input = normalized.Data
	res, err := r.Denormalize(ctx, opts)
	require.NoError(t, err)

	list, ok := res.Output.([]any)
	require.True(t, ok)
	require.Len(t, list, 2)

	first := list[0].(map[string]any)
	assert.Equal(t, "first", first["title"])
	assert.NotContains(t, first, normalize.SpecField)
	photo, ok := first["photo"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a.png", photo["url"])
	comments, ok := first["comments"].([]any)
	require.True(t, ok)
	require.Len(t, comments, 1)
	assert.Equal(t, "nice", comments[0].(map[string]any)["body"])

	second := list[1].(map[string]any)
	assert.Equal(t, "a.png", second["photo"].(map[string]any)["url"])
}

const selfSchemas = `
- module_name: feed
  resource_name: post
  definition:
    parent: post
`

const selfDocument = `{
  "entities": {"feed": {"post": {"1": {
    "id": 1, "module_name": "feed", "title": "loop",
    "parent": {"module_name": "feed", "resource_name": "post", "id": 1},
    "_spec": ["parent"]
  }}}},
  "result": 1
}`

func TestRunnerDenormalizeCycle(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(nil, nil, nil)

	res, err := r.Denormalize(context.Background(), Options{
		SchemaFiles: []string{writeFile(t, dir, "schemas.yaml", selfSchemas)},
		Root:        "feed.post",
		Input:       []byte(selfDocument),
	})
	require.NoError(t, err)

	post, ok := res.Output.(map[string]any)
	require.True(t, ok)
	parent, ok := post["parent"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "loop", parent["title"])

	assert.JSONEq(t, `{
		"id": 1, "module_name": "feed", "title": "loop",
		"parent": {"id": 1, "module_name": "feed"}
	}`, string(res.Data))
}

type countingCacheHooks struct {
	observability.NoopCacheHooks
	hits, misses, sets int
}

func (h *countingCacheHooks) OnCacheHit(context.Context, string)      { h.hits++ }
func (h *countingCacheHooks) OnCacheMiss(context.Context, string)     { h.misses++ }
func (h *countingCacheHooks) OnCacheSet(context.Context, string, int) { h.sets++ }

func TestRunnerCache(t *testing.T) {
	observability.Reset()
	defer observability.Reset()
	hooks := &countingCacheHooks{}
	observability.SetCacheHooks(hooks)

	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewRunner(c, nil, nil)
	defer r.Close()

	ctx := context.Background()
	opts := feedOptions(t)

	first, err := r.Normalize(ctx, opts)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := r.Normalize(ctx, opts)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Nil(t, second.Report)
	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, first.SchemaID, second.SchemaID)
	_, ok := second.Output.(*normalize.Result)
	assert.True(t, ok, "cached normalize output decodes to a result")

	opts.Refresh = true
	third, err := r.Normalize(ctx, opts)
	require.NoError(t, err)
	assert.False(t, third.CacheHit)

	assert.Equal(t, 1, hooks.hits)
	assert.Equal(t, 1, hooks.misses)
	assert.Equal(t, 2, hooks.sets)
}

func TestRunnerSchemaIDDependsOnRoot(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	opts := feedOptions(t)

	list, err := r.Normalize(context.Background(), opts)
	require.NoError(t, err)

	opts.Root = "feed.post"
	opts.InputPath = ""
	opts.Input = []byte(`{"id": 1, "title": "only", "tracker": "t"}`)
	single, err := r.Normalize(context.Background(), opts)
	require.NoError(t, err)

	assert.NotEqual(t, list.SchemaID, single.SchemaID)
	assert.EqualValues(t, int64(1), single.Output.(*normalize.Result).Result)
}

func TestRunnerStrict(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		SchemaFiles: []string{writeFile(t, dir, "schemas.yaml", `
- module_name: feed
  resource_name: post
  definition:
    photo: media.photo
`)},
		Root:  "feed.post",
		Input: []byte(`{"id": 1}`),
	}

	r := NewRunner(nil, nil, nil)
	_, err := r.Normalize(context.Background(), opts)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound), "unresolved root is not registered: %v", err)

	opts.Strict = true
	_, err = r.Normalize(context.Background(), opts)
	assert.True(t, errors.Is(err, errors.ErrCodeUnresolvedRelation), "strict run fails on unresolved configs: %v", err)
}

func TestRunnerInvalidInput(t *testing.T) {
	opts := feedOptions(t)
	opts.InputPath = ""
	opts.Input = []byte(`"just a string"`)

	r := NewRunner(nil, nil, nil)
	_, err := r.Normalize(context.Background(), opts)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "got %v", err)
}

func TestRunnerBadSchemaFile(t *testing.T) {
	opts := feedOptions(t)
	opts.SchemaFiles = []string{writeFile(t, t.TempDir(), "schemas.ini", "x=1")}

	r := NewRunner(nil, nil, nil)
	_, err := r.Normalize(context.Background(), opts)
	assert.Error(t, err)
}
