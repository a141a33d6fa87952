// Package gateway dispatches replies to the messaging provider. Every send
// is gated by an allow-list of canonical phones populated at batch creation,
// a guardrail against messaging numbers the system was never asked to
// coordinate.
package gateway

import (
	"sync"
)

// Allowlist is the set of canonical phones the gateway may message.
type Allowlist struct {
	mu     sync.RWMutex
	phones map[string]struct{}
}

// NewAllowlist creates an empty allow-list.
func NewAllowlist() *Allowlist {
	return &Allowlist{phones: make(map[string]struct{})}
}

// Add registers canonical phones.
func (a *Allowlist) Add(canonicalPhones ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range canonicalPhones {
		a.phones[p] = struct{}{}
	}
}

// Allowed reports whether the canonical phone may be messaged.
func (a *Allowlist) Allowed(canonicalPhone string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.phones[canonicalPhone]
	return ok
}

// Len returns the number of registered phones.
func (a *Allowlist) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.phones)
}
