package util

import (
	"crypto/rand"
	"encoding/hex"
)

// idBytes gives 128 bits of entropy, enough for session and request ids.
const idBytes = 16

// NewID returns a random URL-safe hex id.
func NewID() string {
	buf := make([]byte, idBytes)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
