package cache

import (
	"encoding/json"
)

// Codec converts cache values to and from the bytes stored in the disk tier.
type Codec[V any] interface {
	Encode(value V) ([]byte, error)
	Decode(data []byte) (V, error)
}

// JSONCodec stores values as JSON. It is the default codec.
type JSONCodec[V any] struct{}

// Encode marshals value as JSON
func (JSONCodec[V]) Encode(value V) ([]byte, error) {
	return json.Marshal(value)
}

// Decode unmarshals JSON into a fresh V
func (JSONCodec[V]) Decode(data []byte) (V, error) {
	var value V
	if err := json.Unmarshal(data, &value); err != nil {
		var zero V
		return zero, err
	}
	return value, nil
}
