package auth

import (
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

// Argon2 parameters for key derivation
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
	// Default salt for API key hashing (should be overridden via config in production)
	defaultAPIKeySalt = "s3bridge-api-key-salt-v1"
)

// Pre-computed dummy hash for constant-time operations
const dummyAPIKeyHash = "0000000000000000000000000000000000000000000000000000000000000000"

// ConstantTimeCompareHashes compares two hex-encoded hash strings in constant time.
// This prevents timing attacks that could leak information about valid hashes.
func ConstantTimeCompareHashes(a, b string) bool {
	aBytes := []byte(a)
	bBytes := []byte(b)

	// If lengths differ, still do comparison to maintain constant time
	if len(aBytes) != len(bBytes) {
		if len(aBytes) < len(bBytes) {
			aBytes = make([]byte, len(bBytes))
		} else {
			bBytes = make([]byte, len(aBytes))
		}
	}

	return subtle.ConstantTimeCompare(aBytes, bBytes) == 1
}

// HashKey hashes an API key using Argon2id.
func HashKey(key string) string {
	return HashKeyWithSalt(key, []byte(defaultAPIKeySalt))
}

// HashKeyWithSalt hashes an API key using Argon2id with a custom salt.
func HashKeyWithSalt(key string, salt []byte) string {
	hash := argon2.IDKey([]byte(key), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return hex.EncodeToString(hash)
}

// KeyVerifier validates presented API keys against the configured key hash.
type KeyVerifier struct {
	keyHash string
}

// NewKeyVerifier builds a verifier from a hex-encoded Argon2id hash.
func NewKeyVerifier(keyHash string) *KeyVerifier {
	return &KeyVerifier{keyHash: keyHash}
}

// NewKeyVerifierFromKey builds a verifier from a plaintext key, hashing it
// once at construction so the plaintext is not retained.
func NewKeyVerifierFromKey(key string) *KeyVerifier {
	return &KeyVerifier{keyHash: HashKey(key)}
}

// Verify checks a presented key in constant time. An empty configured hash
// still burns a comparison so missing configuration is not observable by
// timing.
func (v *KeyVerifier) Verify(key string) bool {
	presented := HashKey(key)

	if v.keyHash == "" {
		ConstantTimeCompareHashes(presented, dummyAPIKeyHash)
		return false
	}

	return ConstantTimeCompareHashes(presented, v.keyHash)
}
