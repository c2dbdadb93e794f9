package dataset

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is an insertion-ordered JSON object. All serialized entities are
// built from Objects so the canonical key order survives encoding.
type Object = orderedmap.OrderedMap[string, any]

// NewObject returns an empty Object.
func NewObject() *Object {
	return orderedmap.New[string, any]()
}

// Serializer is implemented by every dataset entity.
type Serializer interface {
	Serialize() *Object
}

// Canonical returns the compacted serialized form of s.
func Canonical(s Serializer) *Object {
	return Compact(s.Serialize())
}

// Keys returns the keys of obj in insertion order.
func Keys(obj *Object) []string {
	if obj == nil {
		return nil
	}
	keys := make([]string, 0, obj.Len())
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Compact removes every key whose value is nil, the empty string, an empty
// array or an empty object. Nested objects, including objects held in arrays,
// are compacted first so a parent that only held empty children is dropped
// too. false and 0 are kept. The result keeps the original key order.
func Compact(obj *Object) *Object {
	out := NewObject()
	if obj == nil {
		return out
	}
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		v := compactValue(pair.Value)
		if isEmpty(v) {
			continue
		}
		out.Set(pair.Key, v)
	}
	return out
}

func compactValue(v any) any {
	switch t := v.(type) {
	case *Object:
		return Compact(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = compactValue(e)
		}
		return out
	default:
		return v
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case *Object:
		return t == nil || t.Len() == 0
	case Row:
		return t.Len() == 0
	case map[string]string:
		return len(t) == 0
	}
	return false
}
