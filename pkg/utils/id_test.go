package utils

import (
	"strings"
	"sync"
	"testing"
)

func TestGenerateSessionRunID(t *testing.T) {
	id := GenerateSessionRunID()
	if !strings.HasPrefix(id, "sim-") {
		t.Errorf("GenerateSessionRunID should start with sim-: %s", id)
	}
}

func TestGenerateSessionRunIDConcurrentUniqueness(t *testing.T) {
	const n = 200
	var mu sync.Mutex
	seen := make(map[string]bool, n)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := GenerateSessionRunID()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Errorf("expected %d unique IDs, got %d", n, len(seen))
	}
}
