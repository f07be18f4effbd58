package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/bytedance/sonic"

	"github.com/matzehuels/normalizr/pkg/errors"
	"github.com/matzehuels/normalizr/pkg/normalize"
)

var codec = sonic.Config{
	UseNumber:   true,
	SortMapKeys: true,
}.Froze()

// ReadJSON decodes one JSON value from r.
func ReadJSON(r io.Reader) (any, error) {
	dec := codec.NewDecoder(r)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode JSON")
	}
	return convertNumbers(v), nil
}

// Unmarshal decodes data like [ReadJSON].
func Unmarshal(data []byte) (any, error) {
	return ReadJSON(bytes.NewReader(data))
}

// ReadFile decodes the JSON file at path.
func ReadFile(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	v, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// WriteJSON encodes v to w, indented. A map that contains itself, as
// denormalized self-referencing entities do, is written once; the repeat is
// written as a reference marker, see [acyclic].
func WriteJSON(w io.Writer, v any) error {
	v, err := acyclic(v, make(map[uintptr]bool))
	if err != nil {
		return err
	}

	enc := codec.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// Marshal encodes v like [WriteJSON].
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile encodes v to the file at path, replacing it.
func WriteFile(path string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadResult decodes a normalized document {"entities", "result"}.
func ReadResult(r io.Reader) (*normalize.Result, error) {
	v, err := ReadJSON(r)
	if err != nil {
		return nil, err
	}
	return ToResult(v)
}

// ToResult converts a decoded normalized document.
func ToResult(v any) (*normalize.Result, error) {
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "normalized document must be an object, found %T", v)
	}
	raw, ok := doc["entities"]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "normalized document has no \"entities\"")
	}
	store, err := ToStore(raw)
	if err != nil {
		return nil, err
	}
	return &normalize.Result{Entities: store, Result: doc["result"]}, nil
}

// ReadStore decodes a bare entity store.
func ReadStore(r io.Reader) (normalize.Store, error) {
	v, err := ReadJSON(r)
	if err != nil {
		return nil, err
	}
	return ToStore(v)
}

// WriteStore encodes store to w.
func WriteStore(w io.Writer, store normalize.Store) error {
	return WriteJSON(w, store)
}

// ToStore converts a decoded module → resource → id → record object.
func ToStore(v any) (normalize.Store, error) {
	modules, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "entities must be an object, found %T", v)
	}

	store := make(normalize.Store)
	for module, rv := range modules {
		resources, ok := rv.(map[string]any)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "entities.%s must be an object", module)
		}
		for resource, recs := range resources {
			records, ok := recs.(map[string]any)
			if !ok {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "entities.%s.%s must be an object", module, resource)
			}
			for id, rec := range records {
				m, ok := rec.(map[string]any)
				if !ok {
					return nil, errors.New(errors.ErrCodeInvalidFormat, "entities.%s.%s.%s must be an object", module, resource, id)
				}
				store.Put(module, resource, id, m)
			}
		}
	}
	return store, nil
}

// convertNumbers replaces json.Number values in place: integers become
// int64, everything else float64.
func convertNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = convertNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = convertNumbers(e)
		}
	}
	return v
}

// acyclic copies the maps and lists of v, replacing every map already on
// the path from the root by a marker holding its "id" and type tags. path
// holds the maps being copied.
func acyclic(v any, path map[uintptr]bool) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return t, nil
		}
		ptr := reflect.ValueOf(t).Pointer()
		if path[ptr] {
			return marker(t)
		}
		path[ptr] = true
		defer delete(path, ptr)

		out := make(map[string]any, len(t))
		for k, e := range t {
			c, err := acyclic(e, path)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil

	case []any:
		if t == nil {
			return t, nil
		}
		out := make([]any, len(t))
		for i, e := range t {
			c, err := acyclic(e, path)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}
	return v, nil
}

func marker(rec map[string]any) (map[string]any, error) {
	id, ok := rec["id"]
	if !ok || id == nil {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "cyclic value without an id cannot be encoded")
	}
	m := map[string]any{"id": id}
	for _, tag := range []string{normalize.ModuleTag, normalize.ResourceTag} {
		if s, ok := rec[tag]; ok {
			m[tag] = s
		}
	}
	return m, nil
}
