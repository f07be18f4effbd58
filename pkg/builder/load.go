package builder

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/normalizr/pkg/errors"
)

// Format is a schema config file format.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// File is the on-disk layout of a schema config file. TOML files use
// [[schemas]] tables; YAML and JSON files may also hold a bare list.
type File struct {
	Schemas []Config `json:"schemas" yaml:"schemas" toml:"schemas"`
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported schema config file %q (want .toml, .yaml, .yml or .json)", path)
}

// LoadFile reads and parses the schema configs in path.
func LoadFile(path string) ([]Config, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema config %s: %w", path, err)
	}
	configs, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return configs, nil
}

// Parse decodes schema configs in the given format.
func Parse(data []byte, format Format) ([]Config, error) {
	var f File
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse TOML schema config")
		}
	case FormatYAML:
		if isList(data, '-') {
			if err := yaml.Unmarshal(data, &f.Schemas); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse YAML schema config")
			}
			break
		}
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse YAML schema config")
		}
	case FormatJSON:
		target := any(&f)
		if isList(data, '[') {
			target = &f.Schemas
		}
		if err := sonic.ConfigStd.Unmarshal(data, target); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse JSON schema config")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported schema config format %q", format)
	}
	return f.Schemas, nil
}

// isList reports whether the first significant byte of data is marker.
// YAML comment lines are skipped.
func isList(data []byte, marker byte) bool {
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		return line[0] == marker
	}
	return false
}
