package types

import (
	"encoding/json"
	"fmt"
)

// TriggerTemplate is a JSON-shaped tree of key/value match clauses describing
// which upstream events a stage or rule reacts to. Templates are treated as
// immutable values: narrowing a template for dataset scoping copies, never
// mutates, the original, because multiple rules and stages may hold
// references to the same instance.
type TriggerTemplate map[string]any

// ObjectCreatedTemplate returns the base trigger template for
// object-created events on the given bucket. The object branch carries a
// match-all key clause that dataset scoping later replaces.
func ObjectCreatedTemplate(bucket string) TriggerTemplate {
	return TriggerTemplate{
		"source":      []any{"aws.s3"},
		"detail-type": []any{"Object Created"},
		"detail": map[string]any{
			"bucket": map[string]any{
				"name": []any{bucket},
			},
			"object": map[string]any{
				"key": []any{map[string]any{"prefix": ""}},
			},
		},
	}
}

// Clone returns a deep copy of the template. Unrelated branches are
// preserved verbatim.
func (t TriggerTemplate) Clone() TriggerTemplate {
	if t == nil {
		return nil
	}
	return TriggerTemplate(cloneMap(t))
}

// WithKeyPrefix returns a new template narrowed to objects whose storage key
// starts with prefix. The receiver is never modified. It fails when the
// template lacks the detail.object branch the scoping clause attaches to: an
// unscoped rule would make every dataset react to every other dataset's
// events, so a malformed template must surface loudly instead.
func (t TriggerTemplate) WithKeyPrefix(prefix string) (TriggerTemplate, error) {
	scoped := t.Clone()

	detail, ok := scoped["detail"].(map[string]any)
	if !ok {
		return nil, ConfigErrorf("trigger template has no detail branch to scope")
	}
	object, ok := detail["object"].(map[string]any)
	if !ok {
		return nil, ConfigErrorf("trigger template has no detail.object branch to scope")
	}
	object["key"] = []any{map[string]any{"prefix": prefix}}

	return scoped, nil
}

// KeyPrefixes returns the prefix values of the detail.object.key clause, if
// present. Used for inspection and plan rendering only.
func (t TriggerTemplate) KeyPrefixes() []string {
	detail, ok := t["detail"].(map[string]any)
	if !ok {
		return nil
	}
	object, ok := detail["object"].(map[string]any)
	if !ok {
		return nil
	}
	clauses, ok := object["key"].([]any)
	if !ok {
		return nil
	}
	var prefixes []string
	for _, clause := range clauses {
		m, ok := clause.(map[string]any)
		if !ok {
			continue
		}
		if p, ok := m["prefix"].(string); ok {
			prefixes = append(prefixes, p)
		}
	}
	return prefixes
}

// MarshalPattern renders the template as the JSON event pattern consumed by
// the event bus.
func (t TriggerTemplate) MarshalPattern() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshaling trigger template: %w", err)
	}
	return string(data), nil
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case TriggerTemplate:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		// scalars: copied by value
		return val
	}
}
