package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Object is a JSON object that remembers key insertion order
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject creates an empty object
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

// Len returns the number of fields
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns field names in insertion order
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Get returns the value stored under key
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Set stores a value. Overwriting keeps the key's original position.
func (o *Object) Set(key string, v Value) *Object {
	if o.vals == nil {
		o.vals = make(map[string]Value)
	}
	if _, exists := o.vals[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
	return o
}

// Delete removes key, reporting whether it was present
func (o *Object) Delete(key string) bool {
	if o == nil {
		return false
	}
	if _, exists := o.vals[key]; !exists {
		return false
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// Range calls fn for each field in order until fn returns false
func (o *Object) Range(fn func(key string, v Value) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.vals[k]) {
			return
		}
	}
}

// Clone returns a deep copy
func (o *Object) Clone() *Object {
	out := NewObject()
	if o == nil {
		return out
	}
	out.keys = make([]string, len(o.keys))
	copy(out.keys, o.keys)
	for k, v := range o.vals {
		out.vals[k] = v.Clone()
	}
	return out
}

// Equal compares two objects field by field, including order
func (o *Object) Equal(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	for i, k := range o.Keys() {
		if other.keys[i] != k {
			return false
		}
		if !o.vals[k].Equal(other.vals[k]) {
			return false
		}
	}
	return true
}

func (o *Object) writeJSON(buf *bytes.Buffer) {
	buf.WriteByte('{')
	first := true
	o.Range(func(key string, v Value) bool {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		writeJSONString(buf, key)
		buf.WriteByte(':')
		v.writeJSON(buf)
		return true
	})
	buf.WriteByte('}')
}

// MarshalJSON implements json.Marshaler
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	o.writeJSON(&buf)
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (o *Object) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: expected a JSON object", ErrInvalidInput)
	}
	parsed, err := decodeObjectBody(dec)
	if err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing data after JSON object", ErrInvalidInput)
	}
	*o = *parsed
	return nil
}

// ParseObject parses a JSON object text
func ParseObject(text string) (*Object, error) {
	obj := NewObject()
	if err := obj.UnmarshalJSON([]byte(text)); err != nil {
		return nil, err
	}
	return obj, nil
}
