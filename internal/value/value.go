package value

import (
	"encoding/binary"
	"math"
)

// This file holds the little-endian byte<->native conversions every other
// package builds on: the VM, the compiler's literal lowering, and the
// built-in routines all funnel numeric encode/decode through here so the
// layout decision (host-native little-endian, per §3) lives in one place.

func PutUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func Uint32(b []byte) uint32       { return binary.LittleEndian.Uint32(b) }

func PutUint64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }
func Uint64(b []byte) uint64       { return binary.LittleEndian.Uint64(b) }

// EncodeI32 encodes a signed 32-bit integer as 4 little-endian bytes.
func EncodeI32(v int32) []byte {
	b := make([]byte, 4)
	PutUint32(b, uint32(v))
	return b
}

// DecodeI32 decodes 4 little-endian bytes as a signed 32-bit integer.
func DecodeI32(b []byte) int32 { return int32(Uint32(b)) }

// EncodeI64 encodes a signed 64-bit integer as 8 little-endian bytes.
func EncodeI64(v int64) []byte {
	b := make([]byte, 8)
	PutUint64(b, uint64(v))
	return b
}

func DecodeI64(b []byte) int64 { return int64(Uint64(b)) }

// EncodeU64 encodes an unsigned 64-bit integer as 8 little-endian bytes.
func EncodeU64(v uint64) []byte {
	b := make([]byte, 8)
	PutUint64(b, v)
	return b
}

func DecodeU64(b []byte) uint64 { return Uint64(b) }

// EncodeF64 encodes a float64 as 8 little-endian bytes of its IEEE-754 bits.
func EncodeF64(v float64) []byte {
	b := make([]byte, 8)
	PutUint64(b, math.Float64bits(v))
	return b
}

func DecodeF64(b []byte) float64 { return math.Float64frombits(Uint64(b)) }

// EncodeChar encodes a char as its single byte.
func EncodeChar(v byte) []byte { return []byte{v} }

// EncodeBool encodes a bool as 0x00 or 0x01.
func EncodeBool(v bool) []byte {
	if v {
		return []byte{0x01}
	}
	return []byte{0x00}
}

func DecodeBool(b []byte) bool { return b[0] != 0x00 }

// Null is the single zero byte every null-typed expression lowers to.
func Null() []byte { return []byte{0x00} }
