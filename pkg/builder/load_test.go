package builder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/normalizr/pkg/errors"
	"github.com/matzehuels/normalizr/pkg/registry"
)

const tomlConfig = `
[[schemas]]
module_name = "feed"
resource_name = "post"
ref = "article"

[schemas.definition]
photo = "media.photo"
comments = "comment[]"

[schemas.extras]
source = "timeline"

[[schemas]]
module_name = "media"
resource_name = "photo"
id_attribute = "uuid"

[schemas.relations.album]
module_name = "media"
resource_name = "album"
is_array = true
`

const yamlList = `
# feed schemas
- module_name: feed
  resource_name: post
  ref: article
  definition:
    photo: media.photo
    comments: "comment[]"
  extras:
    source: timeline
- module_name: media
  resource_name: photo
  id_attribute: uuid
  relations:
    album:
      module_name: media
      resource_name: album
      is_array: true
`

const yamlWrapped = `
schemas:
  - module_name: feed
    resource_name: post
    ref: article
    definition:
      photo: media.photo
      comments: "comment[]"
    extras:
      source: timeline
  - module_name: media
    resource_name: photo
    id_attribute: uuid
    relations:
      album: {module_name: media, resource_name: album, is_array: true}
`

const jsonList = `[
  {"module_name": "feed", "resource_name": "post", "ref": "article",
   "definition": {"photo": "media.photo", "comments": "comment[]"},
   "extras": {"source": "timeline"}},
  {"module_name": "media", "resource_name": "photo", "id_attribute": "uuid",
   "relations": {"album": {"module_name": "media", "resource_name": "album", "is_array": true}}}
]`

const jsonWrapped = `{"schemas": ` + jsonList + `}`

func wantConfigs() []Config {
	return []Config{
		{
			ModuleName:   "feed",
			ResourceName: "post",
			Ref:          "article",
			Definition:   map[string]string{"photo": "media.photo", "comments": "comment[]"},
			Extras:       map[string]any{"source": "timeline"},
		},
		{
			ModuleName:   "media",
			ResourceName: "photo",
			IDAttribute:  "uuid",
			Relations: map[string]registry.Relation{
				"album": {Module: "media", Resource: "album", IsArray: true},
			},
		},
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"toml", tomlConfig, FormatTOML},
		{"yaml list", yamlList, FormatYAML},
		{"yaml wrapped", yamlWrapped, FormatYAML},
		{"json list", jsonList, FormatJSON},
		{"json wrapped", jsonWrapped, FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.data), tt.format)
			require.NoError(t, err)
			assert.Equal(t, wantConfigs(), got)
		})
	}
}

func TestParseJSONExtras(t *testing.T) {
	data := `[{"module_name": "feed", "resource_name": "post",
	  "extras": {"weight": 2, "ratio": 0.5, "flags": {"pinned": true}, "labels": ["a", "b"]}}]`

	got, err := Parse([]byte(data), FormatJSON)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{
		"weight": float64(2),
		"ratio":  0.5,
		"flags":  map[string]any{"pinned": true},
		"labels": []any{"a", "b"},
	}, got[0].Extras)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"bad toml", "[[schemas]\nmodule_name = ", FormatTOML},
		{"bad yaml", "schemas: [", FormatYAML},
		{"bad json", "{", FormatJSON},
		{"unknown format", "", Format("ini")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	for path, want := range map[string]Format{
		"schemas.toml": FormatTOML,
		"schemas.yaml": FormatYAML,
		"schemas.YML":  FormatYAML,
		"a/b.json":     FormatJSON,
	} {
		got, err := FormatFromPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := FormatFromPath("schemas.txt")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schemas.toml")
	require.NoError(t, os.WriteFile(path, []byte(tomlConfig), 0o644))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, wantConfigs(), got)

	_, err = LoadFile(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}
