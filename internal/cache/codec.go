package cache

import (
	"encoding/binary"
	"math"
)

// EncodeVector serializes a vector as little-endian float32 bits, 4 bytes per
// component. Used for opaque values in remote backends.
func EncodeVector(v []float32) []byte {
	const size = 4
	out := make([]byte, len(v)*size)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(f))
	}
	return out
}

// DecodeVector deserializes a vector written by EncodeVector. Returns
// ErrTruncatedVector when the byte length is not a multiple of four.
func DecodeVector(b []byte) ([]float32, error) {
	const size = 4
	if len(b)%size != 0 {
		return nil, ErrTruncatedVector
	}
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out, nil
}
