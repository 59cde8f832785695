// Package availability implements the erasure-coded availability tracker
// (spec §4.6, component C6): accumulating segments keyed by
// (package_hash, segment_index), deciding when a package is
// reconstructable, and reconstructing it on demand via systematic
// Reed-Solomon decode.
//
// Sharding-by-prefix with one RWMutex per shard is grounded on the
// teacher's pkg/core/state/sharded_state.go, generalized from address
// nibble to package-hash first byte (spec §5: "protect the (hash, index)
// map ... with a single exclusive lock, or use per-package sharding").
package availability

import (
	"errors"
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"github.com/rotkonetworks/romio-sub004/pkg/erasure"
	"github.com/rotkonetworks/romio-sub004/pkg/log"
	"github.com/rotkonetworks/romio-sub004/pkg/merkle"
	"github.com/rotkonetworks/romio-sub004/pkg/metrics"
	"github.com/rotkonetworks/romio-sub004/pkg/protocol"
)

var (
	errUntracked        = errors.New("availability: package not tracked")
	errBadProof         = errors.New("availability: segment proof does not verify")
	errDuplicateSegment = errors.New("availability: duplicate segment index")

	logger = log.Default().Module("availability")
)

func blake2bSum(b []byte) [32]byte { return blake2b.Sum256(b) }

// Hash is a package content address (Blake2b-256, spec §3).
type Hash = merkle.Hash

// Segment is one authenticated erasure-coded chunk of a work package
// (spec §4.2): its fixed-size payload plus the Merkle proof tying it to
// the work report's segment-root.
type Segment struct {
	Index int
	Data  []byte
	Proof merkle.Proof
}

// packageState tracks one package_hash's accumulated segments.
type packageState struct {
	segmentRoot Hash
	segments    map[int][]byte
	complete    bool
}

const numShards = 16

type shard struct {
	mu       sync.RWMutex
	packages map[Hash]*packageState
}

// Tracker is the availability tracker (spec §4.6). One Tracker instance
// covers every package being tracked in the current era; reconstructed
// results are memoized in a bounded fastcache to avoid re-decoding a
// package whose segments have not changed since the last reconstruct
// call (e.g. repeated RPC requests for the same package).
type Tracker struct {
	shards [numShards]*shard
	codec  *erasure.Codec

	reconstructed *fastcache.Cache
}

// New creates a Tracker using the protocol-standard (K=342, N=1023,
// 4096-byte segment) systematic code (spec §3 "Protocol constants").
func New() (*Tracker, error) {
	codec, err := erasure.NewCodec(protocol.DataSegments, protocol.TotalSegments, protocol.SegmentSize)
	if err != nil {
		return nil, err
	}
	t := &Tracker{codec: codec, reconstructed: fastcache.New(64 * 1024 * 1024)}
	for i := range t.shards {
		t.shards[i] = &shard{packages: make(map[Hash]*packageState)}
	}
	return t, nil
}

func (t *Tracker) shard(h Hash) *shard {
	return t.shards[h[0]%numShards]
}

// Track registers a package's expected segment-root so subsequently
// added segments can have their Merkle proofs verified against it. It is
// a no-op if the package is already tracked.
func (t *Tracker) Track(h Hash, segmentRoot Hash) {
	s := t.shard(h)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.packages[h]; exists {
		return
	}
	s.packages[h] = &packageState{segmentRoot: segmentRoot, segments: make(map[int][]byte)}
	metrics.PackagesTracked.Inc()
}

// AddSegment verifies seg's Merkle proof against the tracked
// segment-root and, if valid and not a duplicate, records it. It
// reports whether the package first reached completeness (count == K)
// as a result of this insertion (spec §4.6 "add_segment ... if the
// count first reaches K, marks the package complete").
func (t *Tracker) AddSegment(h Hash, seg Segment) (becameComplete bool, err error) {
	leaf := merkle.Hash(blake2bSum(seg.Data))
	s := t.shard(h)
	s.mu.Lock()
	defer s.mu.Unlock()

	pkg, ok := s.packages[h]
	if !ok {
		metrics.SegmentsRejected.Inc()
		return false, errUntracked
	}
	if !merkle.Verify(leaf, seg.Proof, pkg.segmentRoot) {
		metrics.SegmentsRejected.Inc()
		logger.Warn("rejected segment with bad proof", "index", seg.Index)
		return false, errBadProof
	}
	if _, dup := pkg.segments[seg.Index]; dup {
		metrics.SegmentsRejected.Inc()
		return false, errDuplicateSegment
	}
	pkg.segments[seg.Index] = seg.Data
	metrics.SegmentsAccepted.Inc()

	if !pkg.complete && len(pkg.segments) >= protocol.DataSegments {
		pkg.complete = true
		metrics.PackagesCompleted.Inc()
		logger.Debug("package reached reconstructable threshold", "segments", len(pkg.segments))
		return true, nil
	}
	return false, nil
}

// IsAvailable is O(1): a single shard-local map lookup under a read
// lock (spec §4.6).
func (t *Tracker) IsAvailable(h Hash) bool {
	s := t.shard(h)
	s.mu.RLock()
	defer s.mu.RUnlock()
	pkg, ok := s.packages[h]
	return ok && pkg.complete
}

// Reconstruct runs the systematic RS decode using any K authenticated
// segments (preferring systematic indices, handled by erasure.Codec's
// fast path) and returns the decoded work package bytes, or false if
// the package is not yet complete (spec §4.6 "reconstruct(h) returns
// none if not complete").
func (t *Tracker) Reconstruct(h Hash) ([]byte, bool, error) {
	// SetBig/GetBig: a reconstructed package exceeds fastcache's 64KB
	// limit for plain Set entries.
	if cached := t.reconstructed.GetBig(nil, h[:]); len(cached) > 0 {
		return cached, true, nil
	}

	s := t.shard(h)
	s.mu.RLock()
	pkg, ok := s.packages[h]
	if !ok || !pkg.complete {
		s.mu.RUnlock()
		return nil, false, nil
	}
	segments := make(map[int][]byte, len(pkg.segments))
	for i, d := range pkg.segments {
		segments[i] = d
	}
	s.mu.RUnlock()

	timer := metrics.NewTimer(metrics.ReconstructTime)
	decoded, err := t.codec.Decode(segments)
	timer.Stop()
	if err != nil {
		return nil, false, err
	}
	flat := flatten(decoded)
	t.reconstructed.SetBig(h[:], flat)
	return flat, true, nil
}

// VerifySegments checks a batch of candidate segments' Merkle proofs in
// parallel before they are handed to AddSegment -- Merkle verification
// of independent inputs is a pure function of its inputs and therefore
// safe to parallelize (spec §5 "Parallelism opportunities").
func VerifySegments(segmentRoot Hash, segs []Segment) ([]bool, error) {
	results := make([]bool, len(segs))
	var g errgroup.Group
	for i, seg := range segs {
		i, seg := i, seg
		g.Go(func() error {
			leaf := merkle.Hash(blake2bSum(seg.Data))
			results[i] = merkle.Verify(leaf, seg.Proof, segmentRoot)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func flatten(segments [][]byte) []byte {
	out := make([]byte, 0, len(segments)*protocol.SegmentSize)
	for _, s := range segments {
		out = append(out, s...)
	}
	return out
}
