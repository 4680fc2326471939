package oto

import (
	"encoding/binary"
	"math"
)

// FloatBufferToLE appends the samples to dst as 32-bit little-endian floats,
// clamped to [-1, 1].
func FloatBufferToLE(buff []float32, dst []byte) []byte {
	for _, v := range buff {
		v = max(-1, min(1, v))
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}
