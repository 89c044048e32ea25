package signature_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/hookscope/internal/apperr"
	"github.com/gyaneshwarpardhi/hookscope/internal/signature"
)

func TestVerify_KnownGitHubVector(t *testing.T) {
	// Example from GitHub's webhook validation docs.
	v := signature.New("", "It's a Secret to Everybody")
	ok, err := v.Verify([]byte("Hello, World!"),
		"sha256=757107ea0eb2509fc211221cce984b8a37570b6d7586c22c46f4379c8b043e17")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_RoundTripAndSingleByteMutation(t *testing.T) {
	bodies := [][]byte{
		[]byte(`{"ref":"refs/heads/main"}`),
		[]byte(""),
		[]byte("x"),
		{0x00, 0xff, 0x10},
	}
	for _, algo := range []string{signature.SHA256, signature.SHA1} {
		v := signature.New(algo, "s3cr3t")
		for _, body := range bodies {
			sig, err := v.Sign(body)
			require.NoError(t, err)

			ok, err := v.Verify(body, sig)
			require.NoError(t, err)
			assert.True(t, ok, "%s: signature of %q must verify", algo, body)

			for i := range body {
				mutated := append([]byte(nil), body...)
				mutated[i] ^= 0x01
				ok, err := v.Verify(mutated, sig)
				require.NoError(t, err)
				assert.False(t, ok, "%s: mutated body byte %d must fail", algo, i)
			}
			for i := range sig {
				mutated := []byte(sig)
				mutated[i] ^= 0x01
				ok, err := v.Verify(body, string(mutated))
				require.NoError(t, err)
				assert.False(t, ok, "%s: mutated signature byte %d must fail", algo, i)
			}
		}
	}
}

func TestVerify_WrongPrefixFails(t *testing.T) {
	v := signature.New(signature.SHA256, "s3cr3t")
	sha1Sig, err := signature.Sign(signature.SHA1, "s3cr3t", []byte("body"))
	require.NoError(t, err)

	ok, err := v.Verify([]byte("body"), sha1Sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_MissingSecretFailsClosed(t *testing.T) {
	v := signature.New(signature.SHA256, "")
	assert.False(t, v.Configured())

	ok, err := v.Verify([]byte("body"), "sha256=00")
	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, apperr.IsConfiguration(err))
}

func TestSetSecret_TakesEffect(t *testing.T) {
	v := signature.New("", "old")
	sig, err := signature.Sign(signature.SHA256, "new", []byte("payload"))
	require.NoError(t, err)

	ok, _ := v.Verify([]byte("payload"), sig)
	assert.False(t, ok)

	v.SetSecret("new")
	ok, err = v.Verify([]byte("payload"), sig)
	require.NoError(t, err)
	assert.True(t, ok)
}
