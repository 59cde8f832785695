package codec

// Writer accumulates a canonical encoding in struct field declaration order
// (spec §9, "Encoding determinism"). Unlike the teacher's rlp package,
// which derives field order by reflection over a generic interface{}, each
// wire type's encoder (e.g. workpackage.Package.Encode) calls these
// primitives explicitly in its declared field order — this is the "one canonical
// encoding" spec §9 asks to make normative, rather than leaving it to
// reflection.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated encoding.
func (w *Writer) Bytes() []byte { return w.buf }

// Nat writes x using the compact natural-number encoding.
func (w *Writer) Nat(x uint64) *Writer {
	w.buf = append(w.buf, EncodeNat(x)...)
	return w
}

// Blob writes a length-prefixed byte blob.
func (w *Writer) Blob(b []byte) *Writer {
	w.buf = append(w.buf, EncodeBlob(b)...)
	return w
}

// Fixed writes b verbatim with no length prefix, for fixed-width fields
// declared by the protocol (hashes, keys, signatures).
func (w *Writer) Fixed(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

// Byte writes a single raw byte (e.g. a discriminant/tag).
func (w *Writer) Byte(b byte) *Writer {
	w.buf = append(w.buf, b)
	return w
}

// Optional writes the presence tag, and if present==true, runs fn to encode
// the payload that follows.
func (w *Writer) Optional(present bool, fn func(*Writer)) *Writer {
	if !present {
		w.buf = append(w.buf, 0x00)
		return w
	}
	w.buf = append(w.buf, 0x01)
	fn(w)
	return w
}

// Seq writes n followed by the encoding of each element, produced by fn.
func (w *Writer) Seq(n int, fn func(*Writer, int)) *Writer {
	w.Nat(uint64(n))
	for i := 0; i < n; i++ {
		fn(w, i)
	}
	return w
}
