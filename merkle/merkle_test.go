package merkle

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomLeaves(t *testing.T, n, size int) [][]byte {
	t.Helper()
	rng := rand.New(rand.NewSource(int64(n)*1000 + int64(size)))
	leaves := make([][]byte, n)
	for i := range leaves {
		leaves[i] = make([]byte, size)
		rng.Read(leaves[i])
	}
	return leaves
}

func TestRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 7, 8, 9, 31, 64, 100, 1024} {
		leaves := randomLeaves(t, n, 37)
		tree := Build(leaves)
		root := tree.Root()
		require.Len(t, root, HashLen)

		for i := 0; i < n; i++ {
			proof, err := tree.Prove(i)
			require.NoError(t, err)
			require.True(t, Verify(leaves[i], proof, root), "n=%d i=%d", n, i)
		}
	}
}

func TestSingleLeafEmptyProof(t *testing.T) {
	leaves := [][]byte{[]byte("only")}
	tree := Build(leaves)
	proof, err := tree.Prove(0)
	require.NoError(t, err)
	require.Empty(t, proof.Siblings)
	require.True(t, Verify(leaves[0], proof, tree.Root()))
}

func TestProveOutOfRange(t *testing.T) {
	tree := Build(randomLeaves(t, 4, 8))
	_, err := tree.Prove(4)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = tree.Prove(-1)
	require.ErrorIs(t, err, ErrOutOfRange)

	empty := Build(nil)
	_, err = empty.Prove(0)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestEmptyTreeSentinelRoot(t *testing.T) {
	tree := Build(nil)
	require.Equal(t, make([]byte, HashLen), tree.Root())
}

func TestTamperedLeafFails(t *testing.T) {
	leaves := randomLeaves(t, 8, 16)
	tree := Build(leaves)
	root := tree.Root()
	proof, err := tree.Prove(3)
	require.NoError(t, err)

	bad := append([]byte{}, leaves[3]...)
	bad[0] ^= 0x01
	require.False(t, Verify(bad, proof, root))
}

func TestTamperedProofFails(t *testing.T) {
	leaves := randomLeaves(t, 8, 16)
	tree := Build(leaves)
	root := tree.Root()

	proof, err := tree.Prove(5)
	require.NoError(t, err)
	for j := range proof.Siblings {
		sib := append([]byte{}, proof.Siblings[j]...)
		sib[j%HashLen] ^= 0x80
		mangled := &Proof{LeafIndex: proof.LeafIndex, Siblings: append([][]byte{}, proof.Siblings...)}
		mangled.Siblings[j] = sib
		require.False(t, Verify(leaves[5], mangled, root), "sibling %d", j)
	}

	// wrong index re-homes the leaf and must fail
	wrongIdx := &Proof{LeafIndex: proof.LeafIndex ^ 1, Siblings: proof.Siblings}
	require.False(t, Verify(leaves[5], wrongIdx, root))
}

func TestTamperedRootFails(t *testing.T) {
	leaves := randomLeaves(t, 6, 16)
	tree := Build(leaves)
	root := append([]byte{}, tree.Root()...)
	proof, err := tree.Prove(0)
	require.NoError(t, err)

	root[HashLen-1] ^= 0x01
	require.False(t, Verify(leaves[0], proof, root))
}

func TestPaddingLeafNotProvable(t *testing.T) {
	// a 5-leaf tree pads to 8; the padding slots must stay unreachable
	leaves := randomLeaves(t, 5, 16)
	tree := Build(leaves)
	_, err := tree.Prove(5)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestDomainSeparation(t *testing.T) {
	// two leaves whose concatenation could be confused with an internal node
	left := randomLeaves(t, 2, HashLen)
	tree := Build(left)
	concat := append(append([]byte{}, hashLeaf(left[0])...), hashLeaf(left[1])...)
	require.False(t, bytes.Equal(tree.Root(), hashLeaf(concat)))
}
