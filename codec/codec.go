// Package codec provides the collaborator the rest of beaver's managers use
// to turn typed Go values into the byte strings the shared SQL tables
// actually store, and back. The source datastore treats stored values as
// arbitrary dynamically-typed objects; a statically typed target needs an
// explicit, total, per-manager codec instead. See Design Notes in
// SPEC_FULL.md.
package codec

import "encoding/json"

// Codec is a total function pair on its domain: every T a caller passes to
// Encode must produce bytes that Decode can read back into an equal T.
// Managers only ever require that contract from the codec they are given;
// they never inspect T's structure themselves.
type Codec[T any] struct {
	Encode func(T) ([]byte, error)
	Decode func([]byte) (T, error)
}

// JSON returns the default codec for any JSON-marshalable type.
func JSON[T any]() Codec[T] {
	return Codec[T]{
		Encode: func(v T) ([]byte, error) { return json.Marshal(v) },
		Decode: func(b []byte) (T, error) {
			var v T
			err := json.Unmarshal(b, &v)
			return v, err
		},
	}
}

// Bytes is the identity codec for []byte values.
func Bytes() Codec[[]byte] {
	return Codec[[]byte]{
		Encode: func(v []byte) ([]byte, error) { return v, nil },
		Decode: func(b []byte) ([]byte, error) { return b, nil },
	}
}

// String is the identity codec for string values.
func String() Codec[string] {
	return Codec[string]{
		Encode: func(v string) ([]byte, error) { return []byte(v), nil },
		Decode: func(b []byte) (string, error) { return string(b), nil },
	}
}

// Any is the mapping-of-strings-to-anys fallback Design Notes call for:
// a JSON codec over map[string]any, the common shape for loosely typed
// metadata and RAG-style documents.
func Any() Codec[map[string]any] {
	return JSON[map[string]any]()
}
