package wms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/buger/jsonparser"
)

// Property is one feature attribute as it appeared in the response. Raw
// holds the value as jsonparser returns it: strings without their quotes.
type Property struct {
	Key  string
	Type jsonparser.ValueType
	Raw  []byte
}

// Scalar reports whether the value is a non-null string, number or bool.
func (p Property) Scalar() bool {
	switch p.Type {
	case jsonparser.String, jsonparser.Number, jsonparser.Boolean:
		return true
	}
	return false
}

// Text returns the display form of a scalar value. Numbers are printed in
// their shortest form, so 1.50 reads 1.5 and 1e3 reads 1000.
func (p Property) Text() string {
	switch p.Type {
	case jsonparser.String:
		if s, err := jsonparser.ParseString(p.Raw); err == nil {
			return s
		}
	case jsonparser.Number:
		if f, err := jsonparser.ParseFloat(p.Raw); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return string(p.Raw)
}

// Value decodes the raw value into a generic Go value.
func (p Property) Value() any {
	switch p.Type {
	case jsonparser.String:
		s, _ := jsonparser.ParseString(p.Raw)
		return s
	case jsonparser.Number:
		f, _ := jsonparser.ParseFloat(p.Raw)
		return f
	case jsonparser.Boolean:
		b, _ := jsonparser.ParseBoolean(p.Raw)
		return b
	case jsonparser.Object, jsonparser.Array:
		var v any
		_ = json.Unmarshal(p.Raw, &v)
		return v
	}
	return nil
}

// Properties keeps feature attributes in document order. Duplicate keys
// keep the last value at the first key's position.
type Properties []Property

// UnmarshalJSON decodes a JSON object preserving key order.
func (ps *Properties) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*ps = nil
		return nil
	}

	out := Properties{}
	index := map[string]int{}
	err := jsonparser.ObjectEach(data, func(key, value []byte, typ jsonparser.ValueType, _ int) error {
		p := Property{Key: string(key), Type: typ, Raw: bytes.Clone(value)}
		if i, dup := index[p.Key]; dup {
			out[i] = p
			return nil
		}
		index[p.Key] = len(out)
		out = append(out, p)
		return nil
	})
	if err != nil {
		return fmt.Errorf("wms: properties: %w", err)
	}

	*ps = out
	return nil
}

// Get returns the property with the given key.
func (ps Properties) Get(key string) (Property, bool) {
	for _, p := range ps {
		if p.Key == key {
			return p, true
		}
	}
	return Property{}, false
}

// Map returns the properties as a generic map (order is lost).
func (ps Properties) Map() map[string]any {
	m := make(map[string]any, len(ps))
	for _, p := range ps {
		m[p.Key] = p.Value()
	}
	return m
}
