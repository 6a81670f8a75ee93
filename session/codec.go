package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// Codec turns a Session into the persisted blob and back. With a secret the
// blob is sealed with secretbox; without one it is plain JSON.
type Codec struct {
	key    *[32]byte
	random io.Reader
}

// NewCodec returns a codec. An empty secret disables sealing.
func NewCodec(secret string) Codec {
	c := Codec{random: rand.Reader}
	if secret != "" {
		k := sha256.Sum256([]byte(secret))
		c.key = &k
	}
	return c
}

// Sealed reports whether blobs are encrypted.
func (c Codec) Sealed() bool {
	return c.key != nil
}

func (c Codec) Encode(s Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("[Codec Encode] marshal: %w", err)
	}
	if c.key == nil {
		return data, nil
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(c.random, nonce[:]); err != nil {
		return nil, fmt.Errorf("[Codec Encode] nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], data, &nonce, c.key), nil
}

func (c Codec) Decode(blob []byte) (Session, error) {
	data := blob
	if c.key != nil {
		if len(blob) < nonceSize+secretbox.Overhead {
			return Session{}, fmt.Errorf("[Codec Decode] sealed blob too short")
		}
		var nonce [nonceSize]byte
		copy(nonce[:], blob[:nonceSize])
		opened, ok := secretbox.Open(nil, blob[nonceSize:], &nonce, c.key)
		if !ok {
			return Session{}, fmt.Errorf("[Codec Decode] blob could not be opened")
		}
		data = opened
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("[Codec Decode] unmarshal: %w", err)
	}
	return s, nil
}
