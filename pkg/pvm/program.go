package pvm

import (
	"bytes"

	"github.com/rotkonetworks/romio-sub004/pkg/codec"
)

// magic is the 4-byte header every PVM program blob begins with (spec §6).
var magic = []byte("PVM\x00")

// ParseErrorKind classifies a program-blob parse failure (spec §4.3).
type ParseErrorKind int

const (
	ErrBadMagic ParseErrorKind = iota
	ErrLengthOverrun
	ErrMaskMismatch
)

func (k ParseErrorKind) String() string {
	switch k {
	case ErrBadMagic:
		return "bad_magic"
	case ErrLengthOverrun:
		return "length_overrun"
	case ErrMaskMismatch:
		return "mask_mismatch"
	default:
		return "unknown"
	}
}

// ProgramParseError is the structured parse_error{kind, offset} spec §7
// requires for blob parsing.
type ProgramParseError struct {
	Kind   ParseErrorKind
	Offset int
}

func (e *ProgramParseError) Error() string {
	return "pvm: program parse error: " + e.Kind.String()
}

// Program is the parsed form of a PVM on-disk blob (spec §3, §4.3, §6):
// code, the opcode-mask bitmap over it, a jump table, RO/RW initial data,
// and the initial heap/stack sizes.
type Program struct {
	Code       []byte
	OpcodeMask []byte // MSB-first within each byte (spec §4.3, §9)
	JumpTable  []uint32
	ROData     []byte
	RWData     []byte
	HeapSize   uint32
	StackSize  uint32

	// skip is precomputed once per program (spec §4.5: "Implementations
	// must precompute skip distances once per program (linear pass from
	// the end) to avoid O(n^2) decoding cost"). skip[i] is only
	// meaningful when OpcodeMask marks byte i as an instruction head.
	skip []int
}

// Parse decodes a PVM program blob per the wire format in spec §6.
func Parse(blob []byte) (*Program, error) {
	if len(blob) < len(magic) || !bytes.Equal(blob[:len(magic)], magic) {
		return nil, &ProgramParseError{Kind: ErrBadMagic, Offset: 0}
	}
	r := codec.NewReader(blob[len(magic):])

	roLen, err := r.Nat()
	if err != nil {
		return nil, overrun(r)
	}
	rwLen, err := r.Nat()
	if err != nil {
		return nil, overrun(r)
	}
	heapSize, err := r.Nat()
	if err != nil {
		return nil, overrun(r)
	}
	stackSize, err := r.Nat()
	if err != nil {
		return nil, overrun(r)
	}
	jtCount, err := r.Nat()
	if err != nil {
		return nil, overrun(r)
	}
	jumpTable := make([]uint32, jtCount)
	for i := range jumpTable {
		v, err := r.Nat()
		if err != nil {
			return nil, overrun(r)
		}
		jumpTable[i] = uint32(v)
	}
	codeLen, err := r.Nat()
	if err != nil {
		return nil, overrun(r)
	}

	maskLen := int(codeLen+7) / 8
	mask, err := r.Fixed(maskLen)
	if err != nil {
		return nil, overrun(r)
	}
	code, err := r.Fixed(int(codeLen))
	if err != nil {
		return nil, overrun(r)
	}
	roData, err := r.Fixed(int(roLen))
	if err != nil {
		return nil, overrun(r)
	}
	rwData, err := r.Fixed(int(rwLen))
	if err != nil {
		return nil, overrun(r)
	}
	if !r.Done() {
		return nil, &ProgramParseError{Kind: ErrLengthOverrun, Offset: r.Offset()}
	}

	if !validMask(mask, int(codeLen)) {
		return nil, &ProgramParseError{Kind: ErrMaskMismatch, Offset: 0}
	}

	p := &Program{
		Code:       append([]byte(nil), code...),
		OpcodeMask: append([]byte(nil), mask...),
		JumpTable:  jumpTable,
		ROData:     append([]byte(nil), roData...),
		RWData:     append([]byte(nil), rwData...),
		HeapSize:   uint32(heapSize),
		StackSize:  uint32(stackSize),
	}
	p.precomputeSkipDistances()
	return p, nil
}

func overrun(r *codec.Reader) error {
	return &ProgramParseError{Kind: ErrLengthOverrun, Offset: r.Offset()}
}

// validMask confirms the mask's bit length is consistent with codeLen: any
// padding bits beyond codeLen (in the mask's final byte) must be zero, and
// the mask must be exactly ceil(codeLen/8) bytes (already guaranteed by the
// caller reading that many bytes; this re-checks the padding).
func validMask(mask []byte, codeLen int) bool {
	if len(mask) != (codeLen+7)/8 {
		return false
	}
	padBits := len(mask)*8 - codeLen
	if padBits == 0 {
		return true
	}
	last := mask[len(mask)-1]
	padMask := byte(1<<uint(padBits) - 1)
	return last&padMask == 0
}

// maskBit reports whether byte i of the code begins an instruction (spec
// §4.3/§4.5): bit i of OpcodeMask, MSB-first within each byte.
func (p *Program) maskBit(i int) bool {
	if i < 0 || i >= len(p.Code) {
		return false
	}
	byteIdx := i / 8
	bitIdx := 7 - (i % 8) // MSB-first
	return p.OpcodeMask[byteIdx]&(1<<uint(bitIdx)) != 0
}

// maxSkipDistance caps the run-length computed by precomputeSkipDistances,
// bounding the longest possible instruction (opcode + operand bytes).
const maxSkipDistance = 24

func (p *Program) precomputeSkipDistances() {
	n := len(p.Code)
	zerorun := make([]int, n+1)
	zerorun[n] = 0
	for i := n - 1; i >= 0; i-- {
		if p.maskBit(i) {
			zerorun[i] = 0
		} else {
			r := zerorun[i+1] + 1
			if r > maxSkipDistance {
				r = maxSkipDistance
			}
			zerorun[i] = r
		}
	}
	p.skip = make([]int, n)
	for i := 0; i < n; i++ {
		if i+1 >= n {
			p.skip[i] = 0
		} else {
			p.skip[i] = zerorun[i+1]
		}
	}
}

// SkipDistance returns the precomputed skip distance at code offset i
// (spec §4.5, invariant 6 in spec §8).
func (p *Program) SkipDistance(i int) int {
	if i < 0 || i >= len(p.skip) {
		return 0
	}
	return p.skip[i]
}
