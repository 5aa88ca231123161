// Package record holds the dynamic bibliographic record type: an
// insertion-ordered mapping from field name to a scalar or nested value.
// There is no fixed schema; unrecognized fields pass through untouched.
package record

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Record is one bibliographic entry. Field order is the order fields were
// first set (source-file order for loaded records).
type Record struct {
	keys   []string
	fields map[string]any
	id     string
}

// New returns an empty record.
func New() *Record {
	return &Record{fields: map[string]any{}}
}

// Get returns the raw value for name and whether the field is present.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Has reports whether the field is present, even when its value is nil.
func (r *Record) Has(name string) bool {
	_, ok := r.fields[name]
	return ok
}

// String returns the field rendered as a string. Absent and nil fields
// yield ""; numeric and bool scalars are formatted with fmt.
func (r *Record) String(name string) string {
	v, ok := r.fields[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	switch v.(type) {
	case int, int64, float64, bool:
		return fmt.Sprint(v)
	}
	return ""
}

// Set stores a value, appending the key to the order when it is new.
func (r *Record) Set(name string, value any) {
	if r.fields == nil {
		r.fields = map[string]any{}
	}
	if _, ok := r.fields[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.fields[name] = value
}

// Keys returns the field names in insertion order. The slice is a copy.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.fields) }

// Map returns a plain map view of the record with nested records flattened
// to maps as well. Mutating the result does not affect the record.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		out[k] = flattenValue(v)
	}
	return out
}

func flattenValue(v any) any {
	switch t := v.(type) {
	case *Record:
		return t.Map()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = flattenValue(e)
		}
		return out
	default:
		return v
	}
}

// Clone returns a deep copy sharing no mutable state with the original.
// The identity carries over: a clone represents the same entry.
func (r *Record) Clone() *Record {
	out := &Record{
		keys:   make([]string, len(r.keys)),
		fields: make(map[string]any, len(r.fields)),
		id:     r.id,
	}
	copy(out.keys, r.keys)
	for k, v := range r.fields {
		out.fields[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Record:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// AssignID derives and stores the record's stable identity from its
// normalized title, year, and type. Records with identical values for all
// three are indistinguishable to duplicate and coverage tracking.
func (r *Record) AssignID() {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	sum := sha256.Sum256([]byte(norm(r.String("title")) + "|" + norm(r.String("year")) + "|" + norm(r.String("type"))))
	r.id = hex.EncodeToString(sum[:8])
}

// ID returns the identity assigned by AssignID, or "" before assignment.
func (r *Record) ID() string { return r.id }

// UnmarshalYAML decodes a YAML mapping into a record, preserving key order.
// Scalar values keep the type yaml gives them (string, int, float64, bool,
// nil); nested mappings become nested records.
func (r *Record) UnmarshalYAML(value *yaml.Node) error {
	if value == nil || value.Kind != yaml.MappingNode {
		return fmt.Errorf("record must be a mapping, got %s", nodeKind(value))
	}
	r.keys = nil
	r.fields = map[string]any{}
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode, valNode := value.Content[i], value.Content[i+1]
		v, err := decodeNode(valNode)
		if err != nil {
			return err
		}
		r.Set(keyNode.Value, v)
	}
	return nil
}

func decodeNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.MappingNode:
		nested := New()
		if err := nested.UnmarshalYAML(n); err != nil {
			return nil, err
		}
		return nested, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := decodeNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.AliasNode:
		return decodeNode(n.Alias)
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func nodeKind(n *yaml.Node) string {
	if n == nil {
		return "nothing"
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return "scalar"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	default:
		return "document"
	}
}
