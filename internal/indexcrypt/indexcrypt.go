// Package indexcrypt encrypts the serialized index with the format's
// fixed Blowfish key. The cipher runs in ECB mode over 64-bit blocks;
// plaintext is zero-padded to a block boundary before encryption.
package indexcrypt

import (
	"fmt"

	"golang.org/x/crypto/blowfish"
)

// Key is the symmetric key baked into the archive format. Every producer
// and reader shares it; it is a format constant, not a secret.
const Key = "TLibArchiveData"

// BlockSize is the cipher block size in bytes.
const BlockSize = blowfish.BlockSize

func newCipher() (*blowfish.Cipher, error) {
	c, err := blowfish.NewCipher([]byte(Key))
	if err != nil {
		return nil, fmt.Errorf("init blowfish: %w", err)
	}
	return c, nil
}

// Encrypt zero-pads data to a multiple of BlockSize and encrypts each
// block independently. The returned length is what the archive header
// records as the index size. The input slice is not modified.
func Encrypt(data []byte) ([]byte, error) {
	c, err := newCipher()
	if err != nil {
		return nil, err
	}
	padded := len(data)
	if rem := padded % BlockSize; rem != 0 {
		padded += BlockSize - rem
	}
	out := make([]byte, padded)
	copy(out, data)
	for i := 0; i < padded; i += BlockSize {
		c.Encrypt(out[i:i+BlockSize], out[i:i+BlockSize])
	}
	return out, nil
}

// Decrypt reverses Encrypt. The ciphertext length must be a multiple of
// BlockSize. Zero padding is left in place; the caller's decompression
// step stops at the end of the deflate stream and never reads it.
func Decrypt(data []byte) ([]byte, error) {
	if len(data)%BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a multiple of %d", len(data), BlockSize)
	}
	c, err := newCipher()
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += BlockSize {
		c.Decrypt(out[i:i+BlockSize], data[i:i+BlockSize])
	}
	return out, nil
}
