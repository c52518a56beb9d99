package services

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func challengeFor(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func TestIsWellFormedVerifier(t *testing.T) {
	valid := strings.Repeat("a", 43)
	assert.True(t, IsWellFormedVerifier(valid))
	assert.True(t, IsWellFormedVerifier(strings.Repeat("A0-._~", 8))) // 48 chars, full unreserved set
	assert.True(t, IsWellFormedVerifier(strings.Repeat("x", 128)))

	assert.False(t, IsWellFormedVerifier(""))
	assert.False(t, IsWellFormedVerifier(strings.Repeat("a", 42)))
	assert.False(t, IsWellFormedVerifier(strings.Repeat("a", 129)))
	assert.False(t, IsWellFormedVerifier(strings.Repeat("a", 42)+"!"))
	assert.False(t, IsWellFormedVerifier(strings.Repeat("a", 42)+"+"))
	assert.False(t, IsWellFormedVerifier(strings.Repeat("a", 42)+" "))
}

func TestVerifierMatches_S256(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := challengeFor(verifier)

	assert.True(t, VerifierMatches(verifier, challenge, CodeChallengeMethodS256))
	// An empty method defaults to S256.
	assert.True(t, VerifierMatches(verifier, challenge, ""))
}

func TestVerifierMatches_S256_SingleByteMutation(t *testing.T) {
	verifier := strings.Repeat("m", 64)
	challenge := challengeFor(verifier)

	mutated := "n" + verifier[1:]
	assert.False(t, VerifierMatches(mutated, challenge, CodeChallengeMethodS256))
}

func TestVerifierMatches_Plain(t *testing.T) {
	verifier := strings.Repeat("p", 50)

	assert.True(t, VerifierMatches(verifier, verifier, CodeChallengeMethodPlain))
	assert.False(t, VerifierMatches(verifier, verifier+"x", CodeChallengeMethodPlain))
	// A plain challenge never matches under S256.
	assert.False(t, VerifierMatches(verifier, verifier, CodeChallengeMethodS256))
}

func TestVerifierMatches_UnknownMethod(t *testing.T) {
	verifier := strings.Repeat("q", 50)
	assert.False(t, VerifierMatches(verifier, challengeFor(verifier), "S512"))
}
