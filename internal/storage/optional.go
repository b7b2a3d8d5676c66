package storage

import "encoding/json"

// Optional is a patch field that tells "absent" apart from an explicit null.
// Set is false when the key was missing from the JSON body; a null leaves Set
// true with a nil Value.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// IsNull reports an explicit null.
func (o Optional[T]) IsNull() bool {
	return o.Set && o.Value == nil
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}
