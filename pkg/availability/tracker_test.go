package availability

import (
	"testing"

	"github.com/rotkonetworks/romio-sub004/pkg/merkle"
	"github.com/rotkonetworks/romio-sub004/pkg/protocol"
)

func buildTestSegments(t *testing.T, n int) ([]merkle.Hash, []Segment, merkle.Hash) {
	t.Helper()
	leaves := make([]merkle.Hash, n)
	segs := make([]Segment, n)
	for i := 0; i < n; i++ {
		data := make([]byte, protocol.SegmentSize)
		data[0] = byte(i)
		segs[i] = Segment{Index: i, Data: data}
		leaves[i] = merkle.Hash(blake2bSum(data))
	}
	tree := merkle.Build(leaves)
	for i := range segs {
		proof, _ := tree.Prove(i)
		segs[i].Proof = proof
	}
	return leaves, segs, tree.Root()
}

func TestAvailabilityReachesCompleteAtK(t *testing.T) {
	tr, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, segs, root := buildTestSegments(t, protocol.DataSegments)

	var h merkle.Hash
	h[0] = 1
	tr.Track(h, root)

	for i, s := range segs {
		became, err := tr.AddSegment(h, s)
		if err != nil {
			t.Fatalf("AddSegment(%d): %v", i, err)
		}
		if i < protocol.DataSegments-1 && became {
			t.Fatalf("package reported complete too early at segment %d", i)
		}
	}
	if !tr.IsAvailable(h) {
		t.Fatal("package should be available after K segments")
	}
}

func TestAvailabilityBelowThresholdIsUnavailable(t *testing.T) {
	tr, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, segs, root := buildTestSegments(t, protocol.DataSegments)

	var h merkle.Hash
	h[0] = 2
	tr.Track(h, root)
	for _, s := range segs[:protocol.DataSegments-1] {
		if _, err := tr.AddSegment(h, s); err != nil {
			t.Fatalf("AddSegment: %v", err)
		}
	}
	if tr.IsAvailable(h) {
		t.Fatal("package should not be available with K-1 segments")
	}
}

func TestAddSegmentRejectsBadProof(t *testing.T) {
	tr, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, segs, root := buildTestSegments(t, 4)
	var h merkle.Hash
	h[0] = 3
	tr.Track(h, root)

	bad := segs[0]
	bad.Proof.Siblings[0][0] ^= 0xFF
	if _, err := tr.AddSegment(h, bad); err == nil {
		t.Fatal("corrupted proof should be rejected")
	}
}

func TestAddSegmentRejectsDuplicate(t *testing.T) {
	tr, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, segs, root := buildTestSegments(t, 4)
	var h merkle.Hash
	h[0] = 4
	tr.Track(h, root)
	if _, err := tr.AddSegment(h, segs[0]); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := tr.AddSegment(h, segs[0]); err == nil {
		t.Fatal("duplicate segment index should be rejected")
	}
}
