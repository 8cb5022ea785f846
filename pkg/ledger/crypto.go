package ledger

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// fileMagic prefixes every ledger file and is bound as associated data.
var fileMagic = []byte("BGL1")

// KeySize is the ledger key length in bytes.
const KeySize = chacha20poly1305.KeySize

// seal encrypts plaintext into the on-disk layout: magic, nonce, ciphertext.
func seal(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(fileMagic)+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, fileMagic...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, fileMagic), nil
}

// open reverses seal.
func open(key, data []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	header := len(fileMagic) + chacha20poly1305.NonceSizeX
	if len(data) < header+aead.Overhead() {
		return nil, errors.New("file is truncated")
	}
	if !bytes.Equal(data[:len(fileMagic)], fileMagic) {
		return nil, errors.New("unrecognized file header")
	}

	nonce := data[len(fileMagic):header]
	plaintext, err := aead.Open(nil, nonce, data[header:], fileMagic)
	if err != nil {
		return nil, errors.New("authentication failed (wrong key or modified file)")
	}
	return plaintext, nil
}
