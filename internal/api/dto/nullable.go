package dto

import (
	"bytes"
	"encoding/json"
)

// Nullable records whether a JSON field was present and whether it was null.
// Absent fields leave Present false; `null` sets Present and Null.
type Nullable[T any] struct {
	Value   T
	Present bool
	Null    bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Null = true
		var zero T
		n.Value = zero
		return nil
	}
	n.Null = false
	return json.Unmarshal(data, &n.Value)
}

// Ptr returns nil for null and a pointer to the value otherwise.
func (n Nullable[T]) Ptr() *T {
	if n.Null {
		return nil
	}
	v := n.Value
	return &v
}
