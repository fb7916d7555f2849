package indexcrypt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptPadsToBlockBoundary(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 7, 8, 9, 15, 16, 100} {
		in := bytes.Repeat([]byte{0xA5}, n)
		out, err := Encrypt(in)
		require.NoError(t, err)

		want := n
		if rem := n % BlockSize; rem != 0 {
			want += BlockSize - rem
		}
		assert.Len(t, out, want, "input length %d", n)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	in := []byte("the quick brown fox jumps over the lazy dog")
	enc, err := Encrypt(in)
	require.NoError(t, err)
	require.NotEqual(t, in, enc[:len(in)])

	dec, err := Decrypt(enc)
	require.NoError(t, err)

	// Plaintext comes back with its zero padding still attached.
	assert.Equal(t, in, dec[:len(in)])
	for _, b := range dec[len(in):] {
		assert.Zero(t, b)
	}
}

func TestEncryptDeterministic(t *testing.T) {
	t.Parallel()

	in := []byte("same bytes, same ciphertext")
	a, err := Encrypt(in)
	require.NoError(t, err)
	b, err := Encrypt(in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncryptDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := []byte("immutable")
	orig := bytes.Clone(in)
	_, err := Encrypt(in)
	require.NoError(t, err)
	assert.Equal(t, orig, in)
}

func TestDecryptRejectsPartialBlock(t *testing.T) {
	t.Parallel()

	_, err := Decrypt(make([]byte, 12))
	require.Error(t, err)
}

func TestEncryptEmpty(t *testing.T) {
	t.Parallel()

	out, err := Encrypt(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
