package erasure

import (
	"encoding/binary"
	"errors"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrSegmentSize is returned when a segment's length does not equal
	// the codec's configured segment size, or is odd (segments are
	// interpreted as GF(2^16) element vectors, two bytes per element).
	ErrSegmentSize = errors.New("erasure: bad segment size")
	// ErrNotEnoughSegments is returned when fewer than K authenticated
	// segments are available for reconstruction.
	ErrNotEnoughSegments = errors.New("erasure: fewer than K segments available")
	// ErrDuplicateIndex is returned when the same segment index is
	// supplied more than once to Decode.
	ErrDuplicateIndex = errors.New("erasure: duplicate segment index")
)

// Codec is a systematic (K, N) Reed-Solomon code over GF(2^16) fixed
// segments of SegmentSize bytes each. The first K of every N segments are
// the input data segments verbatim (spec §4.2: "systematic ... the first K
// output segments equal the input data segments").
type Codec struct {
	K, N        int
	SegmentSize int

	// parity is the (N-K) x K Cauchy parity generator; generatorRow(i)
	// for i >= K reads a row of this matrix, for i < K returns the unit
	// row (the systematic identity block).
	parity   *matrix
	xPoints  []uint16 // evaluation points for the N-K parity rows
	yPoints  []uint16 // evaluation points for the K data columns
}

// NewCodec builds the fixed generator matrix for a (K, N) systematic code
// over segments of segmentSize bytes. segmentSize must be even (field
// elements are 2 bytes). Construction is deterministic: calling NewCodec
// twice with the same (K, N) always yields byte-identical encode/decode
// behavior, which is required since the generator is consensus-critical
// state, not an implementation detail.
func NewCodec(k, n, segmentSize int) (*Codec, error) {
	if k <= 0 || n <= k || segmentSize <= 0 || segmentSize%2 != 0 {
		return nil, ErrSegmentSize
	}
	xs := make([]uint16, n-k)
	for i := range xs {
		xs[i] = uint16(i + 1)
	}
	ys := make([]uint16, k)
	for j := range ys {
		ys[j] = uint16(n - k + 1 + j)
	}
	p := newMatrix(n-k, k)
	for i, x := range xs {
		row := cauchyRow(x, ys)
		copy(p.data[i*k:(i+1)*k], row)
	}
	return &Codec{K: k, N: n, SegmentSize: segmentSize, parity: p, xPoints: xs, yPoints: ys}, nil
}

// generatorRow returns row i (0 <= i < N) of the full N x K systematic
// generator matrix.
func (c *Codec) generatorRow(i int) []uint16 {
	if i < c.K {
		return identityRow(c.K, i)
	}
	return c.parity.data[(i-c.K)*c.K : (i-c.K+1)*c.K]
}

// Encode splits data (exactly K segments, SegmentSize bytes each) into all
// N segments: the first K equal the input verbatim, the remaining N-K are
// parity computed via the Cauchy generator.
func (c *Codec) Encode(data [][]byte) ([][]byte, error) {
	if len(data) != c.K {
		return nil, ErrNotEnoughSegments
	}
	for _, seg := range data {
		if len(seg) != c.SegmentSize {
			return nil, ErrSegmentSize
		}
	}
	elemsPerSeg := c.SegmentSize / 2
	out := make([][]byte, c.N)
	for i := 0; i < c.K; i++ {
		out[i] = append([]byte(nil), data[i]...)
	}
	for p := 0; p < c.N-c.K; p++ {
		seg := make([]byte, c.SegmentSize)
		row := c.parity.data[p*c.K : (p+1)*c.K]
		for e := 0; e < elemsPerSeg; e++ {
			var acc uint16
			for j := 0; j < c.K; j++ {
				elem := binary.LittleEndian.Uint16(data[j][2*e:])
				acc = gfAdd(acc, gfMul(row[j], elem))
			}
			binary.LittleEndian.PutUint16(seg[2*e:], acc)
		}
		out[c.K+p] = seg
	}
	return out, nil
}

// Decode reconstructs the original K data segments given a map from
// segment index (0 <= index < N) to segment bytes, containing at least K
// entries. When all of indices 0..K-1 are present, reconstruction is a
// direct copy (the fast path spec §4.6 describes: "preferring systematic
// indices"). Otherwise it inverts the K x K submatrix of the generator
// formed by any K available indices and multiplies it against the
// available segments, element-wise across the segment.
func (c *Codec) Decode(segments map[int][]byte) ([][]byte, error) {
	if len(segments) < c.K {
		return nil, ErrNotEnoughSegments
	}
	for idx, seg := range segments {
		if idx < 0 || idx >= c.N {
			return nil, ErrSegmentSize
		}
		if len(seg) != c.SegmentSize {
			return nil, ErrSegmentSize
		}
	}

	allData := true
	for i := 0; i < c.K; i++ {
		if _, ok := segments[i]; !ok {
			allData = false
			break
		}
	}
	if allData {
		out := make([][]byte, c.K)
		for i := 0; i < c.K; i++ {
			out[i] = append([]byte(nil), segments[i]...)
		}
		return out, nil
	}

	indices := make([]int, 0, c.K)
	for i := 0; i < c.N && len(indices) < c.K; i++ {
		if _, ok := segments[i]; ok {
			indices = append(indices, i)
		}
	}

	sub := newMatrix(c.K, c.K)
	for r, idx := range indices {
		copy(sub.data[r*c.K:(r+1)*c.K], c.generatorRow(idx))
	}
	inv, err := invert(sub)
	if err != nil {
		return nil, err
	}

	elemsPerSeg := c.SegmentSize / 2
	out := make([][]byte, c.K)
	for i := range out {
		out[i] = make([]byte, c.SegmentSize)
	}
	vec := make([]uint16, c.K)
	for e := 0; e < elemsPerSeg; e++ {
		for r, idx := range indices {
			vec[r] = binary.LittleEndian.Uint16(segments[idx][2*e:])
		}
		recovered := mulVec(inv, vec)
		for j := 0; j < c.K; j++ {
			binary.LittleEndian.PutUint16(out[j][2*e:], recovered[j])
		}
	}
	return out, nil
}

// DecodeMany runs Decode over several independent packages concurrently
// (spec §5: "systematic RS decoding of independent packages are safe to
// parallelize because they are pure functions of their inputs"). The
// result slice preserves the input order; every decode runs to completion
// and the first error encountered is returned.
func (c *Codec) DecodeMany(jobs []map[int][]byte) ([][][]byte, error) {
	out := make([][][]byte, len(jobs))
	var g errgroup.Group
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			decoded, err := c.Decode(job)
			if err != nil {
				return err
			}
			out[i] = decoded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
