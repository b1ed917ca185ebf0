package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyVerifier_Verify(t *testing.T) {
	v := NewKeyVerifierFromKey("correct-key")

	assert.True(t, v.Verify("correct-key"))
	assert.False(t, v.Verify("wrong-key"))
	assert.False(t, v.Verify(""))
}

func TestKeyVerifier_FromHash(t *testing.T) {
	v := NewKeyVerifier(HashKey("correct-key"))

	assert.True(t, v.Verify("correct-key"))
	assert.False(t, v.Verify("correct-key "))
}

func TestKeyVerifier_EmptyHashNeverMatches(t *testing.T) {
	v := NewKeyVerifier("")

	assert.False(t, v.Verify("anything"))
	assert.False(t, v.Verify(""))
}

func TestHashKey_Deterministic(t *testing.T) {
	assert.Equal(t, HashKey("key"), HashKey("key"))
	assert.NotEqual(t, HashKey("key"), HashKey("key2"))
	assert.Len(t, HashKey("key"), 64)
}

func TestConstantTimeCompareHashes_LengthMismatch(t *testing.T) {
	assert.False(t, ConstantTimeCompareHashes("abc", "abcd"))
	assert.True(t, ConstantTimeCompareHashes("abcd", "abcd"))
}
