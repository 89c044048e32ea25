// Package signature verifies keyed-hash signatures on inbound webhook bodies.
package signature

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"
	"sync/atomic"

	"github.com/gyaneshwarpardhi/hookscope/internal/apperr"
)

const (
	SHA256 = "sha256"
	SHA1   = "sha1"
)

// Verifier checks `<algorithm>=<hex digest>` signatures against a shared
// secret. The secret may be replaced at runtime; a Verifier without a secret
// rejects every call with a configuration error.
type Verifier struct {
	algorithm string
	secret    atomic.Pointer[string]
}

// New returns a Verifier for the given algorithm prefix ("sha256" if empty).
func New(algorithm, secret string) *Verifier {
	if algorithm == "" {
		algorithm = SHA256
	}
	v := &Verifier{algorithm: strings.ToLower(algorithm)}
	v.SetSecret(secret)
	return v
}

// SetSecret swaps the shared secret.
func (v *Verifier) SetSecret(secret string) {
	v.secret.Store(&secret)
}

// Configured reports whether a secret is present.
func (v *Verifier) Configured() bool {
	return v.currentSecret() != ""
}

// Algorithm returns the signature prefix this verifier expects.
func (v *Verifier) Algorithm() string {
	return v.algorithm
}

func (v *Verifier) currentSecret() string {
	if p := v.secret.Load(); p != nil {
		return *p
	}
	return ""
}

// Sign computes the prefixed signature for body.
func (v *Verifier) Sign(body []byte) (string, error) {
	secret := v.currentSecret()
	if secret == "" {
		return "", apperr.Configuration("webhook secret is not configured")
	}
	return sign(v.algorithm, secret, body)
}

// Verify reports whether signature matches body. body must be the exact bytes
// the sender signed. An empty secret yields a configuration error.
func (v *Verifier) Verify(body []byte, signature string) (bool, error) {
	expected, err := v.Sign(body)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(expected), []byte(signature)), nil
}

// Sign computes `<algorithm>=<hex hmac>` of body with secret.
func Sign(algorithm, secret string, body []byte) (string, error) {
	if secret == "" {
		return "", apperr.Configuration("webhook secret is not configured")
	}
	return sign(strings.ToLower(algorithm), secret, body)
}

func sign(algorithm, secret string, body []byte) (string, error) {
	var fn func() hash.Hash
	switch algorithm {
	case SHA256:
		fn = sha256.New
	case SHA1:
		fn = sha1.New
	default:
		return "", apperr.Configuration("unsupported signature algorithm " + algorithm)
	}
	mac := hmac.New(fn, []byte(secret))
	_, _ = mac.Write(body)
	return algorithm + "=" + hex.EncodeToString(mac.Sum(nil)), nil
}
