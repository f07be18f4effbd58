package builder

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/normalizr/pkg/errors"
	"github.com/matzehuels/normalizr/pkg/normalize"
	"github.com/matzehuels/normalizr/pkg/registry"
	"github.com/matzehuels/normalizr/pkg/schema"
)

func TestParseReference(t *testing.T) {
	owner := Config{ModuleName: "feed", ResourceName: "post"}

	tests := []struct {
		in   string
		want Reference
	}{
		{"media.photo", Reference{Module: "media", Resource: "photo"}},
		{"media.photo[]", Reference{Module: "media", Resource: "photo", IsArray: true}},
		{"comment", Reference{Module: "feed", Resource: "comment"}},
		{"comment[]", Reference{Module: "feed", Resource: "comment", IsArray: true}},
		{"post", Reference{Module: "feed", Resource: "post", Self: true}},
		{"feed.post[]", Reference{Module: "feed", Resource: "post", IsArray: true, Self: true}},
		{"_user", Reference{Module: "feed", Resource: "_user"}},
		{".odd", Reference{Module: "feed", Resource: ".odd"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseReference(owner, tt.in))
		})
	}
}

func newTestBuilder() (*Builder, *registry.Registry) {
	reg := registry.New()
	return New(reg, nil), reg
}

func TestBuildOutOfOrder(t *testing.T) {
	b, reg := newTestBuilder()
	configs := []Config{
		{ModuleName: "feed", ResourceName: "post", Definition: map[string]string{
			"photo":    "media.photo",
			"comments": "comment[]",
		}},
		{ModuleName: "feed", ResourceName: "comment", Definition: map[string]string{
			"author": "_user",
		}},
		{ModuleName: "media", ResourceName: "photo"},
	}

	report, err := b.Build(context.Background(), configs)
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.Equal(t, []string{"feed.comment", "media.photo", "feed.post"}, report.Registered)
	assert.Equal(t, 2, report.Rounds)

	post, ok := reg.Schema("feed", "post")
	require.True(t, ok)
	photo, _ := reg.Schema("media", "photo")
	comment, _ := reg.Schema("feed", "comment")

	field, ok := post.Field("photo")
	require.True(t, ok)
	assert.Same(t, photo, field)

	field, ok = post.Field("comments")
	require.True(t, ok)
	arr, ok := field.(*schema.Array)
	require.True(t, ok)
	assert.Same(t, comment, arr.Of)

	field, _ = comment.Field("author")
	assert.Same(t, schema.User, field)
	field, _ = post.Field("owner")
	assert.Same(t, schema.User, field)

	rel, ok := reg.Definition("feed", "post", "comments")
	require.True(t, ok)
	assert.Equal(t, registry.Relation{Module: "feed", Resource: "comment", IsArray: true}, rel)
}

func TestBuildRoundsSeeOnlyEarlierRounds(t *testing.T) {
	b, _ := newTestBuilder()
	b.MaxRounds = 2
	configs := []Config{
		{ModuleName: "m", ResourceName: "a"},
		{ModuleName: "m", ResourceName: "b", Definition: map[string]string{"a": "a"}},
		{ModuleName: "m", ResourceName: "c", Definition: map[string]string{"b": "b"}},
	}

	report, err := b.Build(context.Background(), configs)
	require.NoError(t, err)
	assert.Equal(t, []string{"m.a", "m.b"}, report.Registered)
	require.Len(t, report.Unresolved, 1)
	assert.Equal(t, "c", report.Unresolved[0].Resource)
	assert.True(t, errors.Is(report.Err(), errors.ErrCodeUnresolvedRelation))
}

func TestBuildUnresolved(t *testing.T) {
	b, reg := newTestBuilder()
	configs := []Config{
		{ModuleName: "feed", ResourceName: "orphan", Definition: map[string]string{
			"x": "nowhere.thing",
			"y": "nowhere.thing[]",
		}},
		{ModuleName: "feed", ResourceName: "fine"},
	}

	report, err := b.Build(context.Background(), configs)
	require.NoError(t, err)
	assert.Equal(t, []string{"feed.fine"}, report.Registered)
	assert.Equal(t, []errors.Unresolved{
		{Module: "feed", Resource: "orphan", Missing: []string{"nowhere.thing"}},
	}, report.Unresolved)

	_, ok := reg.Schema("feed", "orphan")
	assert.False(t, ok)

	err = report.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed.orphan (missing: nowhere.thing)")
}

func TestBuildSelfRelations(t *testing.T) {
	b, reg := newTestBuilder()
	configs := []Config{
		{ModuleName: "org", ResourceName: "unit", Definition: map[string]string{
			"parent":   "unit",
			"children": "org.unit[]",
		}},
	}

	report, err := b.Build(context.Background(), configs)
	require.NoError(t, err)
	require.NoError(t, report.Err())

	unit, _ := reg.Schema("org", "unit")
	field, ok := unit.Field("parent")
	require.True(t, ok)
	assert.Same(t, unit, field)

	field, ok = unit.Field("children")
	require.True(t, ok)
	assert.Same(t, unit, field.(*schema.Array).Of)

	rel, _ := reg.Definition("org", "unit", "parent")
	assert.True(t, rel.Self)
}

func TestBuildDefaultRelations(t *testing.T) {
	b, reg := newTestBuilder()

	_, err := b.Build(context.Background(), []Config{{ModuleName: "shop", ResourceName: "item"}})
	require.NoError(t, err)

	assert.Equal(t, map[string]registry.Relation{
		"tags":       {Module: "shop", Resource: "tags"},
		"category":   {Module: "shop", Resource: "category"},
		"categories": {Module: "shop", Resource: "category", IsArray: true},
	}, reg.Definitions("shop", "item"))
}

func TestBuildExplicitRelations(t *testing.T) {
	b, reg := newTestBuilder()
	c := Config{
		ModuleName:   "shop",
		ResourceName: "item",
		Relations: map[string]registry.Relation{
			"vendor": {Resource: "vendor"},
		},
	}

	_, err := b.Build(context.Background(), []Config{c})
	require.NoError(t, err)

	rel, ok := reg.Definition("shop", "item", "vendor")
	require.True(t, ok)
	assert.Equal(t, registry.Relation{Module: "shop", Resource: "vendor"}, rel)
	_, ok = reg.Definition("shop", "item", "tags")
	assert.False(t, ok)
}

func TestBuildAlias(t *testing.T) {
	b, reg := newTestBuilder()

	_, err := b.Build(context.Background(), []Config{
		{ModuleName: "feed", ResourceName: "post", Ref: "article"},
	})
	require.NoError(t, err)

	post, _ := reg.Schema("feed", "post")
	alias, ok := reg.Schema("feed", "article")
	require.True(t, ok)
	assert.Same(t, post, alias)

	name, ok := reg.ResourceName("feed", "article")
	require.True(t, ok)
	assert.Equal(t, "post", name)
}

func TestBuildSkipsRegistered(t *testing.T) {
	b, reg := newTestBuilder()
	c := Config{ModuleName: "feed", ResourceName: "post"}

	_, err := b.Build(context.Background(), []Config{c})
	require.NoError(t, err)
	first, _ := reg.Schema("feed", "post")

	report, err := b.Build(context.Background(), []Config{c})
	require.NoError(t, err)
	assert.Empty(t, report.Registered)
	assert.Equal(t, []string{"feed.post"}, report.Skipped)

	again, _ := reg.Schema("feed", "post")
	assert.Same(t, first, again)
}

func TestBuildInvalidName(t *testing.T) {
	b, reg := newTestBuilder()

	_, err := b.Build(context.Background(), []Config{
		{ModuleName: "feed", ResourceName: "ok"},
		{ModuleName: "feed", ResourceName: "bad.name"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfiguration))
	assert.Equal(t, 0, reg.Len())
}

func TestBuildCanceled(t *testing.T) {
	b, _ := newTestBuilder()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Build(ctx, []Config{{ModuleName: "m", ResourceName: "r"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCreateSchema(t *testing.T) {
	b, reg := newTestBuilder()

	e, err := b.CreateSchema(context.Background(), Config{
		ModuleName:   "feed",
		ResourceName: "post",
		IDAttribute:  "uid",
		Definition:   map[string]string{"photo": "media.photo"},
	})
	require.NoError(t, err)
	assert.Equal(t, "uid", e.IDAttribute())
	assert.Equal(t, "post", e.Key())

	// the unresolved reference is left out
	_, ok := e.Field("photo")
	assert.False(t, ok)

	registered, ok := reg.Schema("feed", "post")
	require.True(t, ok)
	assert.Same(t, e, registered)
}

func TestFeedProcessor(t *testing.T) {
	process := FeedProcessor("feed", map[string]any{"source": "timeline"})
	input := schema.Record{
		"id":         1,
		"tracker":    "t-1",
		"statistic":  map[string]any{"likes": 3},
		"feed_param": map[string]any{"rank": 2},
		"extra":      map[string]any{"can_like": true, "pinned": true},
	}

	out, err := process(input, nil, "")
	require.NoError(t, err)
	assert.Equal(t, schema.Record{
		"id":          1,
		"tracker":     "t-1",
		"has_action":  true,
		"likes":       3,
		"rank":        2,
		"can_like":    true,
		"pinned":      true,
		"source":      "timeline",
		"module_name": "feed",
	}, out)
	assert.Contains(t, input, "statistic")
}

func TestFeedProcessorHasAction(t *testing.T) {
	process := FeedProcessor("feed", nil)

	tests := []struct {
		name  string
		input schema.Record
		want  any
	}{
		{"no extra", schema.Record{"id": 1}, false},
		{"permission flags only", schema.Record{"extra": map[string]any{"can_like": true, "can_share": true}}, false},
		{"other flag", schema.Record{"extra": map[string]any{"bookmarked": true}}, true},
		{"non-bool values", schema.Record{"extra": map[string]any{"note": "true", "n": 1}}, false},
		{"input wins", schema.Record{"has_action": "custom"}, "custom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := process(tt.input, nil, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, out["has_action"])
		})
	}
}

func TestFeedProcessorTracker(t *testing.T) {
	process := FeedProcessor("feed", nil)

	out, err := process(schema.Record{"id": 1}, nil, "")
	require.NoError(t, err)
	tracker, ok := out["tracker"].(string)
	require.True(t, ok)
	_, err = uuid.Parse(tracker)
	assert.NoError(t, err)

	out, _ = process(schema.Record{"id": 1, "tracker": ""}, nil, "")
	assert.NotEmpty(t, out["tracker"])
}

func TestBuiltSchemasNormalize(t *testing.T) {
	b, reg := newTestBuilder()
	_, err := b.Build(context.Background(), []Config{
		{ModuleName: "feed", ResourceName: "post", Definition: map[string]string{"photo": "media.photo"}},
		{ModuleName: "media", ResourceName: "photo"},
	})
	require.NoError(t, err)
	post, _ := reg.Schema("feed", "post")

	input := map[string]any{
		"id":      1,
		"tracker": "t",
		"owner":   map[string]any{"id": 9, "name": "ann"},
		"photo":   map[string]any{"id": 4, "tracker": "p"},
		"tags":    []any{map[string]any{"id": "go"}},
	}
	res, err := normalize.Normalize(input, post, normalize.WithRegistry(reg))
	require.NoError(t, err)

	_, ok := res.Entities.Get("user", "user", 9)
	assert.True(t, ok)
	_, ok = res.Entities.Get("core", "tag", "go")
	assert.True(t, ok)
	photo, ok := res.Entities.Get("media", "photo", 4)
	require.True(t, ok)
	assert.Equal(t, "media", photo["module_name"])

	rec, ok := res.Entities.Get("feed", "post", 1)
	require.True(t, ok)
	assert.Equal(t, normalize.Ref{Module: "media", Resource: "photo", ID: 4}, rec["photo"])
	assert.Equal(t, false, rec["has_action"])
}
