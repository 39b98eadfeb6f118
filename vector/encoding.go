package vector

import (
	"encoding/binary"
	"math"

	"github.com/beaver-db/beaver/errs"
)

// encodeVector serializes a float32 vector as little-endian IEEE 754
// bytes, four per component.
func encodeVector(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

// decodeVector is the inverse of encodeVector. A blob whose length is
// not a multiple of 4 bytes violates the format's own invariant, which
// the error policy treats as Corrupted rather than InvalidArgument since
// it was read back from storage, not supplied by the caller.
func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, errs.E("vector.decodeVector", errs.KindCorrupted, nil)
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
