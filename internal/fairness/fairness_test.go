// internal/fairness/fairness_test.go
package fairness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDetRandDeterminism verifies two sources built from the same inputs
// produce identical sequences across varied max arguments.
func TestDetRandDeterminism(t *testing.T) {
	maxes := []int{2, 3, 7, 52, 152, 1000, 1 << 20}
	pairs := [][2]string{
		{"server-secret", "abc"},
		{"", ""},
		{"s", "a very long client seed with spaces and unicode ✓"},
	}
	for _, pair := range pairs {
		a := NewDetRand(pair[0], pair[1])
		b := NewDetRand(pair[0], pair[1])
		for i := 0; i < 500; i++ {
			max := maxes[i%len(maxes)]
			assert.Equal(t, a.IntN(max), b.IntN(max), "sequence diverged at draw %d for pair %v", i, pair)
		}
	}
}

func TestDetRandDifferentSeedsDiverge(t *testing.T) {
	a := NewDetRand("secret", "abc")
	b := NewDetRand("secret", "abd")
	diverged := false
	for i := 0; i < 64; i++ {
		if a.IntN(1000) != b.IntN(1000) {
			diverged = true
			break
		}
	}
	assert.True(t, diverged, "streams from different client seeds should diverge")
}

func TestDetRandRange(t *testing.T) {
	r := NewDetRand("s", "c")
	for i := 0; i < 10000; i++ {
		v := r.IntN(13)
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 13)
	}
}

func TestIntNPanicsOnNonPositiveMax(t *testing.T) {
	r := NewDetRand("s", "c")
	assert.Panics(t, func() { r.IntN(0) })
	assert.Panics(t, func() { r.IntN(-5) })
}

func TestCommitVerify(t *testing.T) {
	secret, err := GenerateServerSeed()
	require.NoError(t, err)
	require.Len(t, secret, 64) // 32 bytes hex encoded

	commitment := Commit(secret)
	assert.True(t, VerifyCommit(commitment, secret))
	assert.False(t, VerifyCommit(commitment, secret+"x"))

	other, err := GenerateServerSeed()
	require.NoError(t, err)
	assert.False(t, VerifyCommit(commitment, other))
	assert.False(t, VerifyCommit("not-hex!", secret))
}

func TestCombineSeedsSensitivity(t *testing.T) {
	base := CombineSeeds("secret", "client", 0)
	assert.Equal(t, base, CombineSeeds("secret", "client", 0))
	assert.NotEqual(t, base, CombineSeeds("secret2", "client", 0))
	assert.NotEqual(t, base, CombineSeeds("secret", "client2", 0))
	assert.NotEqual(t, base, CombineSeeds("secret", "client", 1))
	// The separator keeps component boundaries unambiguous.
	assert.NotEqual(t, CombineSeeds("ab", "c", 0), CombineSeeds("a", "bc", 0))
}

func TestShuffleIsPermutation(t *testing.T) {
	items := make([]int, 152)
	for i := range items {
		items[i] = i % 38 // duplicates on purpose
	}
	shuffled := Shuffle(items, "secret", "abc", 0)
	require.Len(t, shuffled, len(items))

	counts := map[int]int{}
	for _, v := range items {
		counts[v]++
	}
	for _, v := range shuffled {
		counts[v]--
	}
	for v, c := range counts {
		assert.Zero(t, c, "count mismatch for %d", v)
	}
}

func TestShuffleReproducible(t *testing.T) {
	items := make([]int, 52)
	for i := range items {
		items[i] = i
	}
	first := Shuffle(items, "secret", "abc", 3)
	second := Shuffle(items, "secret", "abc", 3)
	assert.Equal(t, first, second)

	nonceBumped := Shuffle(items, "secret", "abc", 4)
	assert.NotEqual(t, first, nonceBumped)
}

func TestVerifyShuffle(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	shuffled := Shuffle(items, "secret", "abc", 0)

	ok, errs := VerifyShuffle(items, shuffled, "secret", "abc", 0)
	assert.True(t, ok)
	assert.Empty(t, errs)

	// Tampering with any position is detected and localized.
	tampered := append([]int(nil), shuffled...)
	tampered[3], tampered[7] = tampered[7], tampered[3]
	ok, errs = VerifyShuffle(items, tampered, "secret", "abc", 0)
	assert.False(t, ok)
	assert.NotEmpty(t, errs)

	// A wrong nonce does not verify.
	ok, _ = VerifyShuffle(items, shuffled, "secret", "abc", 1)
	assert.False(t, ok)

	// Length mismatch is its own failure.
	ok, errs = VerifyShuffle(items, shuffled[:5], "secret", "abc", 0)
	assert.False(t, ok)
	require.Len(t, errs, 1)
}
