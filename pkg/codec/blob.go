package codec

// EncodeBlob encodes b as encode_blob(b) = encode(len(b)) ++ b.
func EncodeBlob(b []byte) []byte {
	out := EncodeNat(uint64(len(b)))
	return append(out, b...)
}

// DecodeBlob decodes a length-prefixed blob from the start of b, returning
// the blob contents and the number of bytes consumed.
func DecodeBlob(b []byte) (blob []byte, consumed int, err error) {
	n, used, err := DecodeNat(b)
	if err != nil {
		return nil, 0, err
	}
	rest := b[used:]
	if uint64(len(rest)) < n {
		return nil, 0, parseErr(ErrTruncated, used)
	}
	return rest[:n], used + int(n), nil
}

// EncodeOptional encodes encode_optional(v): [0x00] if v is nil/absent,
// otherwise [0x01] followed by v verbatim (v is assumed already encoded by
// the caller).
func EncodeOptional(present bool, v []byte) []byte {
	if !present {
		return []byte{0x00}
	}
	return append([]byte{0x01}, v...)
}

// DecodeOptionalTag reads the presence tag byte at the start of b, returning
// whether a value follows and the number of bytes consumed by the tag
// itself (always 1 on success). The caller decodes the payload that follows
// when present is true.
func DecodeOptionalTag(b []byte) (present bool, consumed int, err error) {
	if len(b) == 0 {
		return false, 0, parseErr(ErrTruncated, 0)
	}
	switch b[0] {
	case 0x00:
		return false, 1, nil
	case 0x01:
		return true, 1, nil
	default:
		return false, 0, parseErr(ErrRange, 0)
	}
}
