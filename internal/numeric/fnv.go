package numeric

import (
	"fmt"
	"math"
)

// FNV-1a 64-bit parameters.
const (
	fnvOffset uint64 = 14695981039346656037
	fnvPrime  uint64 = 1099511628211
)

// FNV1aInit returns the FNV-1a offset basis.
func FNV1aInit() uint64 {
	return fnvOffset
}

// FNV1aStep folds one 64-bit word into a running FNV-1a state, one byte at
// a time in little-endian order.
func FNV1aStep(h, x uint64) uint64 {
	for i := 0; i < 8; i++ {
		h ^= (x >> (8 * i)) & 0xff
		h *= fnvPrime
	}
	return h
}

// FNV1a64 hashes a byte string with FNV-1a.
func FNV1a64(data []byte) uint64 {
	h := fnvOffset
	for _, b := range data {
		h ^= uint64(b)
		h *= fnvPrime
	}
	return h
}

// FNV1a64String hashes a string with FNV-1a.
func FNV1a64String(s string) uint64 {
	h := fnvOffset
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}
	return h
}

// Hex64 formats h as 16 lowercase hex digits, most significant nibble
// first.
func Hex64(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

// RotL64 rotates x left by k bits.
func RotL64(x uint64, k uint) uint64 {
	return (x << (k & 63)) | (x >> (64 - (k & 63)))
}

// HashCombine mixes two 64-bit hashes into one. Not cryptographic; used
// for bundle digests and derived seeds.
func HashCombine(a, b uint64) uint64 {
	x := a
	x ^= b + 0x9e3779b97f4a7c15 + (x << 6) + (x >> 2)
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

// CanonicalFloatBits returns the IEEE-754 bits of v with NaN collapsed to
// the canonical quiet NaN payload and -0 collapsed to +0, so that hashes
// over floats are stable across producers.
func CanonicalFloatBits(v float64) uint64 {
	if math.IsNaN(v) {
		return 0x7ff8000000000000
	}
	if v == 0 {
		return 0
	}
	return math.Float64bits(v)
}
