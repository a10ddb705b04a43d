package service

import (
	"sync"
	"time"

	id "safeband/pkg/domain"
)

// activationThrottle bounds failed activation attempts per bracelet
// with a sliding window. Tokens ride in QR codes, so an attacker who
// can enumerate bracelet ids could otherwise brute-force secrets
// bracelet-by-bracelet.
type activationThrottle struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	failures map[id.BraceletID][]time.Time
}

func newActivationThrottle(limit int, window time.Duration) *activationThrottle {
	return &activationThrottle{
		limit:    limit,
		window:   window,
		failures: make(map[id.BraceletID][]time.Time),
	}
}

// allow reports whether another attempt for this bracelet is permitted.
func (t *activationThrottle) allow(braceletID id.BraceletID, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(braceletID, now)
	return len(t.failures[braceletID]) < t.limit
}

// recordFailure notes a token mismatch. Only mismatches count; state
// errors reveal nothing about the secret.
func (t *activationThrottle) recordFailure(braceletID id.BraceletID, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(braceletID, now)
	t.failures[braceletID] = append(t.failures[braceletID], now)
}

// clear resets the window after a successful activation.
func (t *activationThrottle) clear(braceletID id.BraceletID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.failures, braceletID)
}

// prune drops failures that slid out of the window. Callers hold t.mu.
func (t *activationThrottle) prune(braceletID id.BraceletID, now time.Time) {
	cutoff := now.Add(-t.window)
	attempts := t.failures[braceletID]
	i := 0
	for ; i < len(attempts); i++ {
		if attempts[i].After(cutoff) {
			break
		}
	}
	if i > 0 {
		attempts = attempts[i:]
		if len(attempts) == 0 {
			delete(t.failures, braceletID)
			return
		}
		t.failures[braceletID] = attempts
	}
}
