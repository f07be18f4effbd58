package builder

import (
	"maps"

	"github.com/google/uuid"

	"github.com/matzehuels/normalizr/pkg/normalize"
	"github.com/matzehuels/normalizr/pkg/schema"
)

// Fields flattened into the top level of a feed record.
var flattenedFields = []string{"statistic", "feed_param", "extra"}

// Permission flags of "extra" that never count towards has_action.
var actionFlags = map[string]bool{
	"can_like":    true,
	"can_comment": true,
	"can_share":   true,
}

// newTracker generates tracker ids for records that arrive without one.
var newTracker = uuid.NewString

// DefaultFields returns the relations every built schema starts with. Fields
// resolved from a config's definition override them.
func DefaultFields() map[string]schema.Node {
	return map[string]schema.Node{
		"user":           schema.User,
		"owner":          schema.User,
		"parent_user":    schema.User,
		"tagged_friends": schema.User,
		"user_tags":      schema.User,
		"attachments":    schema.Attachment,
		"tags":           schema.Tag,
	}
}

// FeedProcessor returns the process strategy applied to records of a built
// schema. The returned record:
//   - has "has_action", unless the input sets it, true when any value of
//     "extra" other than the can_* permission flags is true
//   - has the fields of "statistic", "feed_param" and "extra" copied to the
//     top level, with the three containers removed
//   - has extras copied over it
//   - has "module_name" set to module
//   - keeps its "tracker", or gets a fresh one
func FeedProcessor(module string, extras map[string]any) schema.ProcessFunc {
	return func(input, _ schema.Record, _ string) (schema.Record, error) {
		out := make(schema.Record, len(input)+3)
		extra, _ := input["extra"].(map[string]any)
		out["has_action"] = hasAction(extra)
		maps.Copy(out, input)

		for _, name := range flattenedFields {
			if m, ok := input[name].(map[string]any); ok {
				maps.Copy(out, m)
			}
		}
		maps.Copy(out, extras)
		out[normalize.ModuleTag] = module

		if isEmpty(input["tracker"]) {
			out["tracker"] = newTracker()
		} else {
			out["tracker"] = input["tracker"]
		}

		for _, name := range flattenedFields {
			delete(out, name)
		}
		return out, nil
	}
}

func hasAction(extra map[string]any) bool {
	for k, v := range extra {
		if actionFlags[k] {
			continue
		}
		if b, ok := v.(bool); ok && b {
			return true
		}
	}
	return false
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case int:
		return t == 0
	case int64:
		return t == 0
	case float64:
		return t == 0
	}
	return false
}
