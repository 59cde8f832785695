// Package codec implements the compact natural-number serialization used
// throughout the JAM core (spec §4.1, component C1): a variable-length
// encoding for unsigned 64-bit integers, plus length-prefixed blobs and
// optional values built on top of it.
//
// Unlike the teacher's rlp package (length/type-tagged, big-endian,
// reflection-driven), this format is prefix-class driven and little-endian,
// and is bit-exact protocol state: every byte of every encoding produced
// here must match the JAM reference implementation byte-for-byte.
package codec

import (
	"encoding/binary"
	"math/bits"
)

// EncodeNat encodes x using the compact natural-number format:
//
//	0                                -> [0x00]
//	0  <  x < 2^7                    -> [x]
//	2^7l <= x < 2^7(l+1), l in 1..7  -> prefix byte + l little-endian bytes
//	2^56 <= x < 2^64                 -> 0xFF + 8 little-endian bytes
func EncodeNat(x uint64) []byte {
	if x < 128 {
		return []byte{byte(x)}
	}
	for l := 1; l <= 7; l++ {
		lo := uint64(1) << uint(7*l)
		hi := uint64(1) << uint(7*(l+1))
		if x >= lo && x < hi {
			prefix := byte(256 - (1 << uint(8-l)) + int(x>>uint(8*l)))
			out := make([]byte, 1+l)
			out[0] = prefix
			putLE(out[1:], x, l)
			return out
		}
	}
	out := make([]byte, 9)
	out[0] = 0xFF
	binary.LittleEndian.PutUint64(out[1:], x)
	return out
}

// DecodeNat decodes a compact natural number from the start of b, returning
// the value and the number of bytes consumed. It rejects non-canonical
// encodings (a value that could have been represented with a shorter
// prefix class) per spec §4.1's "decoders must reject ... out-of-range
// encodings".
func DecodeNat(b []byte) (x uint64, consumed int, err error) {
	if len(b) == 0 {
		return 0, 0, parseErr(ErrTruncated, 0)
	}
	p := b[0]
	if p == 0xFF {
		if len(b) < 9 {
			return 0, 0, parseErr(ErrTruncated, 1)
		}
		x = binary.LittleEndian.Uint64(b[1:9])
		if x < (uint64(1) << 56) {
			return 0, 0, parseErr(ErrNonCanonical, 0)
		}
		return x, 9, nil
	}

	m := bits.LeadingZeros8(^p)
	if m == 0 {
		return uint64(p), 1, nil
	}
	l := m
	if len(b) < 1+l {
		return 0, 0, parseErr(ErrTruncated, 1)
	}
	topMask := byte((1 << uint(8-l)) - 1)
	top := uint64(p & topMask)
	low := leUint(b[1 : 1+l])
	x = top<<uint(8*l) | low

	lo := uint64(1) << uint(7*l)
	hi := uint64(1) << uint(7*(l+1))
	if x < lo || x >= hi {
		return 0, 0, parseErr(ErrNonCanonical, 0)
	}
	return x, 1 + l, nil
}

// putLE writes the low n*8 bits of x into out (which must have length n) in
// little-endian order.
func putLE(out []byte, x uint64, n int) {
	for i := 0; i < n; i++ {
		out[i] = byte(x >> uint(8*i))
	}
}

// leUint reads a little-endian unsigned integer from b (0 <= len(b) <= 8).
func leUint(b []byte) uint64 {
	var x uint64
	for i, v := range b {
		x |= uint64(v) << uint(8*i)
	}
	return x
}
