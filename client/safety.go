package client

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// DefaultMaxConsecutiveErrors is the failure streak after which the portal is
// treated as unreachable.
const DefaultMaxConsecutiveErrors = 5

// SafetyManager watches the responses a Prober gets from the portal and latches
// once the portal refuses us (403, 429) or keeps failing. A latched manager stays
// latched; further probes through the same Prober report as blocked.
type SafetyManager struct {
	// MaxConsecutiveErrors counts 5xx responses and transport failures alike.
	MaxConsecutiveErrors int

	mu       sync.RWMutex
	failures int
	reason   string
	since    time.Time
}

func NewSafetyManager() *SafetyManager {
	return &SafetyManager{MaxConsecutiveErrors: DefaultMaxConsecutiveErrors}
}

// CheckStatus records a portal response status and reports whether probing may go on.
func (sm *SafetyManager) CheckStatus(code int) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.latched() {
		return false
	}

	switch {
	case code == http.StatusForbidden || code == http.StatusTooManyRequests:
		sm.latch(fmt.Sprintf("portal refused the request with HTTP %d", code))
	case code >= 500:
		sm.fail(fmt.Sprintf("portal answered %d consecutive requests with 5xx", sm.failures+1))
	case code < 400:
		sm.failures = 0
	}
	return !sm.latched()
}

// CheckError records a transport failure (DNS, dial, TLS, proxy) and reports
// whether probing may go on.
func (sm *SafetyManager) CheckError(err error) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.latched() {
		return false
	}
	sm.fail(fmt.Sprintf("%d consecutive transport failures, last: %v", sm.failures+1, err))
	return !sm.latched()
}

func (sm *SafetyManager) fail(reason string) {
	sm.failures++
	if sm.failures >= sm.MaxConsecutiveErrors {
		sm.latch(reason)
	}
}

func (sm *SafetyManager) latch(reason string) {
	sm.reason = reason
	sm.since = time.Now()
}

func (sm *SafetyManager) latched() bool { return !sm.since.IsZero() }

func (sm *SafetyManager) IsTriggered() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.latched()
}

// Reason describes what latched the manager, or "" while it has not.
func (sm *SafetyManager) Reason() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.reason
}

// Since returns when the manager latched; zero while it has not.
func (sm *SafetyManager) Since() time.Time {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.since
}
