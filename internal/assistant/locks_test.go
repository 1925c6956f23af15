package assistant

import (
	"sync"
	"testing"
)

// The lock map must serialize per user and must not leak entries once
// released.
func TestUserLocksSerializeAndClean(t *testing.T) {
	t.Parallel()

	locks := newUserLocks()

	const workers = 16
	const increments = 100

	var counters [3]int
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		userID := int64(w%2 + 1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < increments; i++ {
				unlock := locks.lock(userID)
				counters[userID]++
				unlock()
			}
		}()
	}
	wg.Wait()

	if counters[1] != workers/2*increments || counters[2] != workers/2*increments {
		t.Fatalf("lost increments under lock: got %v", counters)
	}

	locks.mu.Lock()
	remaining := len(locks.locks)
	locks.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected no lock entries after release, found %d", remaining)
	}
}
