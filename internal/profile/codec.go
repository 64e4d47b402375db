package profile

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
)

// Codec transforms the serialized metadata document on its way to and from
// disk. It isolates the at-rest format so encryption can be added without
// changing store callers.
type Codec interface {
	Encode(plain []byte) ([]byte, error)
	Decode(raw []byte) ([]byte, error)
}

// PlainCodec stores the document as-is. Passwords and TOTP seeds end up in
// clear text on disk, matching the historical format.
type PlainCodec struct{}

func (PlainCodec) Encode(plain []byte) ([]byte, error) { return plain, nil }
func (PlainCodec) Decode(raw []byte) ([]byte, error)   { return raw, nil }

// AESCodec encrypts the document with AES-GCM, the key derived from a
// passphrase by SHA-256. The nonce is prepended to the ciphertext.
type AESCodec struct {
	aead cipher.AEAD
}

// NewAESCodec derives an AEAD cipher from the given passphrase.
func NewAESCodec(passphrase string) (*AESCodec, error) {
	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return &AESCodec{aead: aead}, nil
}

func (c *AESCodec) Encode(plain []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plain, nil), nil
}

func (c *AESCodec) Decode(raw []byte) ([]byte, error) {
	if len(raw) < c.aead.NonceSize() {
		return nil, errors.New("metadata too short to decrypt")
	}
	nonce, data := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, data, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt metadata: %w", err)
	}
	return plain, nil
}
