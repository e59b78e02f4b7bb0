package document

import (
	"fmt"
	"slices"
	"sort"
)

// fields is a decoded mapping whose keys were checked against an allowed set.
type fields struct {
	m    map[string]any
	path string
}

func fieldsOf(v any, path string, allowed ...string) (*fields, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errorf(path, "expected a mapping, got %s", describe(v))
	}
	var unknown []string
	for k := range m {
		if !slices.Contains(allowed, k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, errorf(path, "unknown field %q", unknown[0])
	}
	return &fields{m: m, path: path}, nil
}

func (f *fields) requiredString(key string) (string, error) {
	v, ok := f.m[key]
	if !ok {
		return "", errorf(f.path, "missing %q", key)
	}
	s, err := asString(v, join(f.path, key))
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", errorf(join(f.path, key), "must not be empty")
	}
	return s, nil
}

func (f *fields) optionalString(key string) (string, error) {
	v, ok := f.m[key]
	if !ok || v == nil {
		return "", nil
	}
	return asString(v, join(f.path, key))
}

func (f *fields) optionalBool(key string) (bool, error) {
	v, ok := f.m[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, errorf(join(f.path, key), "expected a bool, got %s", describe(v))
	}
	return b, nil
}

// list returns nil when key is absent.
func (f *fields) list(key string) ([]any, error) {
	v, ok := f.m[key]
	if !ok || v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, errorf(join(f.path, key), "expected a list, got %s", describe(v))
	}
	return items, nil
}

func (f *fields) stringList(key string) ([]string, error) {
	items, err := f.list(key)
	if err != nil || items == nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, err := asString(item, index(join(f.path, key), i))
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// object returns the mapping stored under key, or nil when absent.
func (f *fields) object(key string) (map[string]any, error) {
	v, ok := f.m[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errorf(join(f.path, key), "expected a mapping, got %s", describe(v))
	}
	return m, nil
}

func asString(v any, path string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errorf(path, "expected a string, got %s", describe(v))
	}
	return s, nil
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case []any:
		return "list"
	case map[string]any:
		return "mapping"
	default:
		return fmt.Sprintf("%T", v)
	}
}
