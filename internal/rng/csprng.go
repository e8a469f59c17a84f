package rng

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// CSPRNG is an AES-CTR keystream seeded once from crypto/rand.
type CSPRNG struct {
	mu     sync.Mutex
	stream cipher.Stream
}

// NewCSPRNG initializes an AES-256-CTR generator with a random key and IV.
func NewCSPRNG() (*CSPRNG, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("rng: failed to get seed from crypto/rand: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("rng: aes.NewCipher failed: %w", err)
	}

	var iv [aes.BlockSize]byte
	if _, err := io.ReadFull(rand.Reader, iv[:]); err != nil {
		return nil, fmt.Errorf("rng: failed to get IV from crypto/rand: %w", err)
	}

	return &CSPRNG{stream: cipher.NewCTR(block, iv[:])}, nil
}

// Read fills buf with keystream bytes.
func (c *CSPRNG) Read(buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(buf)
	c.stream.XORKeyStream(buf, buf)
	return len(buf), nil
}

// Uint64 returns a single 64-bit random word.
func (c *CSPRNG) Uint64() uint64 {
	var b [8]byte
	_, _ = c.Read(b[:])
	return binary.BigEndian.Uint64(b[:])
}
