// Package merkle implements the binary Merkle tree over segment hashes used
// by the erasure-coded availability layer (spec §4.2, component C2): a
// bottom-up tree with left-then-right sibling order, zero-padded odd
// levels, and leaf-to-root inclusion proofs.
//
// The shape follows the teacher's verkle-style binary trie proof
// (pkg/trie/bintrie/proof.go: an ordered Siblings slice plus a Prove/verify
// pair) generalized from a 256-ary prefix trie over arbitrary keys to a
// simple balanced binary tree over a dense leaf array, which is what the
// availability layer actually needs.
package merkle

import "golang.org/x/crypto/blake2b"

// HashSize is the width of every node hash (spec §3: hash = 32 bytes).
const HashSize = 32

// Hash is a 32-byte Blake2b-256 digest.
type Hash [HashSize]byte

// zeroHash is the padding value for an odd-sized level (spec §4.2: "odd
// level padded with the all-zero hash").
var zeroHash = Hash{}

// hashPair computes the parent of two sibling hashes: H(left || right).
func hashPair(left, right Hash) Hash {
	var buf [2 * HashSize]byte
	copy(buf[:HashSize], left[:])
	copy(buf[HashSize:], right[:])
	return blake2b.Sum256(buf[:])
}

// Tree is a binary Merkle tree built over a fixed set of leaf hashes.
// levels[0] is the leaf level; levels[len(levels)-1] is the single-node
// root level.
type Tree struct {
	levels [][]Hash
}

// Build constructs a Tree over leaves, bottom-up. An empty leaf set
// produces a tree whose root is the zero hash.
func Build(leaves []Hash) *Tree {
	if len(leaves) == 0 {
		return &Tree{levels: [][]Hash{{zeroHash}}}
	}
	level := append([]Hash(nil), leaves...)
	levels := [][]Hash{level}
	for len(level) > 1 {
		next := make([]Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := zeroHash
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, hashPair(left, right))
		}
		levels = append(levels, next)
		level = next
	}
	return &Tree{levels: levels}
}

// Root returns the tree's root hash.
func (t *Tree) Root() Hash {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// NumLeaves returns the number of leaves the tree was built over.
func (t *Tree) NumLeaves() int {
	return len(t.levels[0])
}

// Proof is an ordered list of sibling hashes from leaf to root.
type Proof struct {
	Index    int
	Siblings []Hash
}

// Prove constructs the inclusion proof for the leaf at idx.
func (t *Tree) Prove(idx int) (Proof, bool) {
	if idx < 0 || idx >= t.NumLeaves() {
		return Proof{}, false
	}
	var siblings []Hash
	pos := idx
	for level := 0; level < len(t.levels)-1; level++ {
		row := t.levels[level]
		siblingPos := pos ^ 1
		sibling := zeroHash
		if siblingPos < len(row) {
			sibling = row[siblingPos]
		}
		siblings = append(siblings, sibling)
		pos /= 2
	}
	return Proof{Index: idx, Siblings: siblings}, true
}

// Verify recomputes the root from leaf and proof, tracking the parity of
// the current index at each level (spec §4.2), and reports whether it
// equals root. This is the authoritative check used by the availability
// tracker before a segment counts toward reconstructability.
func Verify(leaf Hash, proof Proof, root Hash) bool {
	cur := leaf
	pos := proof.Index
	for _, sibling := range proof.Siblings {
		if pos%2 == 0 {
			cur = hashPair(cur, sibling)
		} else {
			cur = hashPair(sibling, cur)
		}
		pos /= 2
	}
	return cur == root
}
