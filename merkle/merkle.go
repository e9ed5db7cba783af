// Package merkle implements the binary SHA-256 commitment tree used to bind
// erasure-coded stripes to a single 32-byte root. Leaf and internal hashes
// are domain-separated so a leaf can never be replayed as an internal node.
package merkle

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
)

// HashLen is the size of every node hash in bytes.
const HashLen = sha256.Size

const (
	leafPrefix     = 0x00
	internalPrefix = 0x01
)

// ErrOutOfRange is returned by Prove for a leaf index past the last leaf.
var ErrOutOfRange = errors.New("merkle: leaf index out of range")

// Proof is an inclusion proof: the ordered sibling hashes from the leaf level
// up to, but not including, the root.
type Proof struct {
	LeafIndex uint32
	Siblings  [][]byte
}

// Tree is a complete binary tree over the given leaves, padded on the right
// to the next power of two with hashes of the empty byte string. Nodes are
// stored 1-indexed: nodes[1] is the root, leaf i lives at nodes[pad+i].
type Tree struct {
	leaves [][]byte
	nodes  [][]byte
	pad    int
}

func hashLeaf(leaf []byte) []byte {
	h := sha256.New()
	h.Write([]byte{leafPrefix})
	h.Write(leaf)
	return h.Sum(nil)
}

func hashInternal(left, right []byte) []byte {
	h := sha256.New()
	h.Write([]byte{internalPrefix})
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

func ceilPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Build constructs the tree over the given leaves. The leaves are retained
// by reference. An empty input yields a tree whose root is the all-zero
// hash; verify paths never accept that sentinel.
func Build(leaves [][]byte) *Tree {
	t := &Tree{leaves: leaves}
	if len(leaves) == 0 {
		return t
	}

	n := len(leaves)
	p := ceilPow2(n)
	t.pad = p
	t.nodes = make([][]byte, 2*p)

	for i := 0; i < n; i++ {
		t.nodes[p+i] = hashLeaf(leaves[i])
	}
	if n < p {
		empty := hashLeaf(nil)
		for i := n; i < p; i++ {
			t.nodes[p+i] = empty
		}
	}
	for i := p - 1; i > 0; i-- {
		t.nodes[i] = hashInternal(t.nodes[2*i], t.nodes[2*i+1])
	}
	return t
}

// Root returns the 32-byte root hash, or the all-zero hash for an empty tree.
func (t *Tree) Root() []byte {
	if len(t.nodes) == 0 {
		return make([]byte, HashLen)
	}
	return t.nodes[1]
}

// Len returns the number of leaves committed to, excluding padding.
func (t *Tree) Len() int {
	return len(t.leaves)
}

// Leaf returns leaf i as it was given to Build.
func (t *Tree) Leaf(i int) []byte {
	return t.leaves[i]
}

// Prove returns the inclusion proof for leaf i: siblings nodes[t^1] while
// halving t from the leaf slot up to the root.
func (t *Tree) Prove(i int) (*Proof, error) {
	if i < 0 || i >= len(t.leaves) {
		return nil, ErrOutOfRange
	}
	siblings := make([][]byte, 0, log2(t.pad))
	for idx := i + t.pad; idx > 1; idx >>= 1 {
		siblings = append(siblings, t.nodes[idx^1])
	}
	return &Proof{LeafIndex: uint32(i), Siblings: siblings}, nil
}

func log2(n int) int {
	l := 0
	for n > 1 {
		n >>= 1
		l++
	}
	return l
}

// Verify recomputes the root from the leaf bytes and the proof and compares
// it to root in constant time.
func Verify(leaf []byte, proof *Proof, root []byte) bool {
	if proof == nil || len(root) != HashLen {
		return false
	}
	acc := hashLeaf(leaf)
	idx := proof.LeafIndex
	for _, sib := range proof.Siblings {
		if len(sib) != HashLen {
			return false
		}
		if idx&1 != 0 {
			acc = hashInternal(sib, acc)
		} else {
			acc = hashInternal(acc, sib)
		}
		idx >>= 1
	}
	return subtle.ConstantTimeCompare(acc, root) == 1
}
