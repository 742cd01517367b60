package repo

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// shareTokenBytes gives 256 bits of entropy per token.
const shareTokenBytes = 32

func newID() string {
	return uuid.NewString()
}

func newShareToken() (string, error) {
	buf := make([]byte, shareTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
