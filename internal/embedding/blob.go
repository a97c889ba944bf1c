package embedding

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidBlob is returned when a stored embedding cannot be decoded.
var ErrInvalidBlob = errors.New("invalid embedding blob")

// EncodeBlob serializes an embedding as little-endian float32 values.
func EncodeBlob(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeBlob parses a blob written by EncodeBlob. When dim > 0 the decoded
// vector must have exactly dim elements.
func DecodeBlob(b []byte, dim int) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a positive multiple of 4", ErrInvalidBlob, len(b))
	}
	n := len(b) / 4
	if dim > 0 && n != dim {
		return nil, fmt.Errorf("%w: dimension %d, expected %d", ErrInvalidBlob, n, dim)
	}
	v := make([]float32, n)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
