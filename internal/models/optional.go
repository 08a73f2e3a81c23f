package models

import (
	"encoding/json"
)

// Optional is a tri-state JSON value: absent, null or value
//
// Absent fields never reach UnmarshalJSON, so Set stays false.
// For explicit null Set is true and Null is true.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true

	if string(data) == "null" {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}

	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// Apply the optional to a nullable field
func (o Optional[T]) ApplyTo(field **T) {
	switch {
	case !o.Set:
		return
	case o.Null:
		*field = nil
	default:
		v := o.Value
		*field = &v
	}
}
