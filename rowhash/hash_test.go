package rowhash

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum_DeterministicAndSensitive(t *testing.T) {
	a, err := Sum(Blake3, []byte("abc"))
	require.NoError(t, err)
	b, err := Sum(Blake3, []byte("abc"))
	require.NoError(t, err)
	c, err := Sum(Blake3, []byte("abd"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestSum_UnknownAlgo(t *testing.T) {
	_, err := Sum(Algo("md5"), []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownAlgo)
}

func TestEmptyDigest_MatchesSumOfEmptyString(t *testing.T) {
	empty, err := EmptyDigest(Blake3)
	require.NoError(t, err)
	sum, err := Sum(Blake3, []byte(""))
	require.NoError(t, err)
	assert.Equal(t, sum, empty)
	assert.False(t, empty.IsZero())
}

func TestSumHexConcat_OrderSensitive(t *testing.T) {
	forward, err := SumHexConcat(Blake3, []string{"aa", "bb"})
	require.NoError(t, err)
	reversed, err := SumHexConcat(Blake3, []string{"bb", "aa"})
	require.NoError(t, err)
	assert.NotEqual(t, forward, reversed)

	concatenated, err := Sum(Blake3, []byte("aabb"))
	require.NoError(t, err)
	assert.Equal(t, concatenated, forward)
}

func TestFastHash64_Deterministic(t *testing.T) {
	assert.Equal(t, FastHash64([]byte("row")), FastHash64([]byte("row")))
	assert.NotEqual(t, FastHash64([]byte("row")), FastHash64([]byte("row2")))
}

func TestXORStateDigest_MatchesDecimalTextConvention(t *testing.T) {
	got, err := XORStateDigest(Blake3, 42)
	require.NoError(t, err)
	want, err := Sum(Blake3, []byte("42"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDigest_Hex(t *testing.T) {
	d, err := Sum(Blake3, []byte("abc"))
	require.NoError(t, err)
	assert.Len(t, d.Hex(), 64)
}

func TestSum_Sha256MatchesStdlib(t *testing.T) {
	got, err := Sum(Sha256, []byte("abc"))
	require.NoError(t, err)
	want := sha256.Sum256([]byte("abc"))
	assert.Equal(t, Digest(want), got)
}

func TestNewHasher_BlakeMatchesSum(t *testing.T) {
	h, err := NewHasher(Blake3)
	require.NoError(t, err)
	h.Write([]byte("ab"))
	h.Write([]byte("c"))
	var got Digest
	copy(got[:], h.Sum(nil))

	want, err := Sum(Blake3, []byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNewHasher_Sha256MatchesSum(t *testing.T) {
	h, err := NewHasher(Sha256)
	require.NoError(t, err)
	h.Write([]byte("abc"))
	var got Digest
	copy(got[:], h.Sum(nil))

	want, err := Sum(Sha256, []byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNewHasher_UnknownAlgo(t *testing.T) {
	_, err := NewHasher(Algo("md5"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownAlgo)
}
