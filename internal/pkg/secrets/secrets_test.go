package secrets

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealRoundTrip(t *testing.T) {
	req := require.New(t)

	sealer, err := NewSealer("unit-test-secret")
	req.NoError(err)

	sealed, err := sealer.Seal("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	req.NoError(err)
	req.NotContains(sealed, "6ba7b810", "sealed value must not leak the plaintext")

	plain, err := sealer.Open(sealed)
	req.NoError(err)
	req.Equal("6ba7b810-9dad-11d1-80b4-00c04fd430c8", plain)
}

func TestSealProducesUniqueCiphertexts(t *testing.T) {
	req := require.New(t)

	sealer, err := NewSealer("unit-test-secret")
	req.NoError(err)

	first, err := sealer.Seal("same value")
	req.NoError(err)
	second, err := sealer.Seal("same value")
	req.NoError(err)

	// A random nonce per Seal means equal plaintexts never collide on disk.
	req.NotEqual(first, second)
}

func TestOpenRejectsForeignKey(t *testing.T) {
	req := require.New(t)

	sealer, err := NewSealer("secret-a")
	req.NoError(err)
	other, err := NewSealer("secret-b")
	req.NoError(err)

	sealed, err := sealer.Seal("token")
	req.NoError(err)

	_, err = other.Open(sealed)
	req.ErrorIs(err, ErrInvalidCiphertext)
}

func TestOpenRejectsGarbage(t *testing.T) {
	req := require.New(t)

	sealer, err := NewSealer("unit-test-secret")
	req.NoError(err)

	for _, sealed := range []string{"", "not-base64!!", "c2hvcnQ="} {
		_, err := sealer.Open(sealed)
		req.ErrorIs(err, ErrInvalidCiphertext)
	}
}

func TestNewSealerRequiresSecret(t *testing.T) {
	_, err := NewSealer("")
	require.Error(t, err)
}
