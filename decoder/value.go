package decoder

import (
	"encoding/json"
	"fmt"
)

// Value is one node of a JSON-Cadence payload. Every node is a tagged
// {"type": ..., "value": ...} pair; composite kinds nest further Values
// under their fields.
type Value struct {
	Type  string
	Value interface{}
}

// CompositeField is one named member of a Struct, Resource or Event value.
type CompositeField struct {
	Name  string
	Value *Value
}

// DictionaryEntry is one key/value pair of a Dictionary value.
type DictionaryEntry struct {
	Key   *Value
	Value *Value
}

type rawValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type rawComposite struct {
	ID     string `json:"id"`
	Fields []struct {
		Name  string          `json:"name"`
		Value json.RawMessage `json:"value"`
	} `json:"fields"`
}

type rawDictEntry struct {
	Key   json.RawMessage `json:"key"`
	Value json.RawMessage `json:"value"`
}

// ParseValue decodes one JSON-Cadence node. Unknown kinds keep their raw
// value as a string so callers never lose data.
func ParseValue(raw []byte) (*Value, error) {
	var node rawValue
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, err
	}
	if node.Type == "" {
		return nil, fmt.Errorf("json-cadence node has no type tag")
	}
	v := &Value{Type: node.Type}
	switch node.Type {
	case "Optional":
		if string(node.Value) == "null" || len(node.Value) == 0 {
			v.Value = nil
			return v, nil
		}
		inner, err := ParseValue(node.Value)
		if err != nil {
			return nil, err
		}
		v.Value = inner
	case "Array":
		var items []json.RawMessage
		if err := json.Unmarshal(node.Value, &items); err != nil {
			return nil, err
		}
		elems := make([]*Value, 0, len(items))
		for _, item := range items {
			elem, err := ParseValue(item)
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
		}
		v.Value = elems
	case "Dictionary":
		var entries []rawDictEntry
		if err := json.Unmarshal(node.Value, &entries); err != nil {
			return nil, err
		}
		dict := make([]DictionaryEntry, 0, len(entries))
		for _, entry := range entries {
			key, err := ParseValue(entry.Key)
			if err != nil {
				return nil, err
			}
			val, err := ParseValue(entry.Value)
			if err != nil {
				return nil, err
			}
			dict = append(dict, DictionaryEntry{Key: key, Value: val})
		}
		v.Value = dict
	case "Struct", "Resource", "Event", "Contract", "Enum":
		var composite rawComposite
		if err := json.Unmarshal(node.Value, &composite); err != nil {
			return nil, err
		}
		fields := make([]CompositeField, 0, len(composite.Fields))
		for _, field := range composite.Fields {
			fv, err := ParseValue(field.Value)
			if err != nil {
				return nil, err
			}
			fields = append(fields, CompositeField{Name: field.Name, Value: fv})
		}
		v.Value = fields
	case "Bool":
		var b bool
		if err := json.Unmarshal(node.Value, &b); err != nil {
			return nil, err
		}
		v.Value = b
	default:
		// scalar kinds (String, Address, UFix64, UInt*, Int*, ...) carry a
		// JSON string; anything unrecognized falls through the same way
		var s string
		if err := json.Unmarshal(node.Value, &s); err != nil {
			v.Value = string(node.Value)
			return v, nil
		}
		v.Value = s
	}
	return v, nil
}

// String returns the scalar string carried by this node, or "" for
// non-scalar kinds. Optionals are unwrapped.
func (v *Value) String() string {
	if v == nil {
		return ""
	}
	if v.Type == "Optional" {
		inner, _ := v.Value.(*Value)
		return inner.String()
	}
	if s, ok := v.Value.(string); ok {
		return s
	}
	if b, ok := v.Value.(bool); ok {
		if b {
			return "true"
		}
		return "false"
	}
	return ""
}

// FieldByName returns the named top-level field of a composite value.
func (v *Value) FieldByName(name string) *Value {
	if v == nil {
		return nil
	}
	if v.Type == "Optional" {
		inner, _ := v.Value.(*Value)
		return inner.FieldByName(name)
	}
	fields, ok := v.Value.([]CompositeField)
	if !ok {
		return nil
	}
	for _, field := range fields {
		if field.Name == name {
			return field.Value
		}
	}
	return nil
}

// FindField searches the whole tree depth-first for the first field with the
// given name, so lookups keep working when a payload nests its data one level
// deeper than the version before.
func (v *Value) FindField(name string) *Value {
	if v == nil {
		return nil
	}
	if direct := v.FieldByName(name); direct != nil {
		return direct
	}
	var found *Value
	v.Walk(func(node *Value) bool {
		fields, ok := node.Value.([]CompositeField)
		if !ok {
			return true
		}
		for _, field := range fields {
			if field.Name == name {
				found = field.Value
				return false
			}
		}
		return true
	})
	return found
}

// Walk visits every node of the tree depth-first. The visitor returns false
// to stop the traversal.
func (v *Value) Walk(visit func(*Value) bool) {
	v.walk(visit)
}

func (v *Value) walk(visit func(*Value) bool) bool {
	if v == nil {
		return true
	}
	if !visit(v) {
		return false
	}
	switch inner := v.Value.(type) {
	case *Value:
		return inner.walk(visit)
	case []*Value:
		for _, elem := range inner {
			if !elem.walk(visit) {
				return false
			}
		}
	case []CompositeField:
		for _, field := range inner {
			if !field.Value.walk(visit) {
				return false
			}
		}
	case []DictionaryEntry:
		for _, entry := range inner {
			if !entry.Key.walk(visit) {
				return false
			}
			if !entry.Value.walk(visit) {
				return false
			}
		}
	}
	return true
}

// Flatten renders the value as a flat name -> scalar map for storage.
// Nested composite fields are joined with dots; arrays with indexes.
func (v *Value) Flatten() map[string]string {
	out := make(map[string]string)
	v.flattenInto("", out)
	return out
}

func (v *Value) flattenInto(prefix string, out map[string]string) {
	if v == nil {
		return
	}
	switch inner := v.Value.(type) {
	case *Value:
		inner.flattenInto(prefix, out)
	case []*Value:
		for i, elem := range inner {
			elem.flattenInto(fmt.Sprintf("%s[%d]", prefix, i), out)
		}
	case []CompositeField:
		for _, field := range inner {
			key := field.Name
			if prefix != "" {
				key = prefix + "." + field.Name
			}
			field.Value.flattenInto(key, out)
		}
	case []DictionaryEntry:
		for _, entry := range inner {
			key := entry.Key.String()
			if prefix != "" {
				key = prefix + "." + key
			}
			entry.Value.flattenInto(key, out)
		}
	case string:
		if prefix == "" {
			prefix = "value"
		}
		out[prefix] = inner
	case bool:
		if prefix == "" {
			prefix = "value"
		}
		if inner {
			out[prefix] = "true"
		} else {
			out[prefix] = "false"
		}
	case nil:
		if prefix != "" {
			out[prefix] = ""
		}
	}
}
