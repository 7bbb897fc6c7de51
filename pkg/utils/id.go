package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

var (
	// fallback counter when crypto/rand is unavailable
	idCounter uint64
)

// GenerateSessionRunID generates an in-memory handle ID for a controller run.
// Persisted runs get their durable ID from the repository instead.
func GenerateSessionRunID() string {
	timestamp := time.Now().Format("20060102-150405")
	b := make([]byte, 4)
	_, err := rand.Read(b)
	if err != nil {
		return fmt.Sprintf("sim-%s-%x", timestamp, atomic.AddUint64(&idCounter, 1))
	}
	return fmt.Sprintf("sim-%s-%s", timestamp, hex.EncodeToString(b))
}
