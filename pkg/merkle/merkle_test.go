package merkle

import (
	"testing"
)

func leafHash(b byte) Hash {
	var h Hash
	h[0] = b
	return h
}

// TestProofSoundness is invariant 5 from spec §8: verify(h, proof, root, idx)
// = true iff h is the leaf at idx of the tree with root root.
func TestProofSoundness(t *testing.T) {
	leaves := make([]Hash, 13) // deliberately odd-sized to exercise padding
	for i := range leaves {
		leaves[i] = leafHash(byte(i + 1))
	}
	tree := Build(leaves)
	root := tree.Root()

	for i, leaf := range leaves {
		proof, ok := tree.Prove(i)
		if !ok {
			t.Fatalf("Prove(%d) failed", i)
		}
		if !Verify(leaf, proof, root) {
			t.Fatalf("Verify failed for valid leaf %d", i)
		}
		// Tampering with the leaf must invalidate the proof.
		if Verify(leafHash(255), proof, root) {
			t.Fatalf("Verify accepted wrong leaf at index %d", i)
		}
	}
}

func TestProofSoundnessWrongIndex(t *testing.T) {
	leaves := []Hash{leafHash(1), leafHash(2), leafHash(3), leafHash(4)}
	tree := Build(leaves)
	root := tree.Root()

	proof, _ := tree.Prove(0)
	proof.Index = 1 // claim leaf 0's hash sits at index 1
	if Verify(leaves[0], proof, root) {
		t.Fatal("Verify accepted a proof against the wrong index")
	}
}

func TestEmptyTreeRoot(t *testing.T) {
	tree := Build(nil)
	if tree.Root() != zeroHash {
		t.Fatal("empty tree root must be the zero hash")
	}
}

func TestSingleLeafTree(t *testing.T) {
	leaves := []Hash{leafHash(7)}
	tree := Build(leaves)
	proof, ok := tree.Prove(0)
	if !ok {
		t.Fatal("Prove(0) failed on single-leaf tree")
	}
	if len(proof.Siblings) != 0 {
		t.Fatalf("single-leaf proof should have no siblings, got %d", len(proof.Siblings))
	}
	if !Verify(leaves[0], proof, tree.Root()) {
		t.Fatal("single-leaf proof failed to verify")
	}
}
