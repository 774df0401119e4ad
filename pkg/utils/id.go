package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateID generates a random ID with prefix.
func GenerateID(prefix string) string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

// GenerateSessionID generates a unique session ID.
func GenerateSessionID() string {
	return GenerateID("session")
}

// GenerateRoomTag generates a unique room tag for a pairing.
func GenerateRoomTag() string {
	return GenerateID("room")
}
