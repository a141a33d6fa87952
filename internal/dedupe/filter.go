// Package dedupe suppresses repeated inbound messages. The upstream
// messaging gateway delivers at least once, so the same customer utterance
// can arrive more than once within seconds; without suppression it would be
// processed and answered twice.
package dedupe

import (
	"hash/fnv"
	"sync"
	"time"
)

// Filter tracks message fingerprints per phone inside a suppression window.
// Stale fingerprints are evicted lazily on the next access for that phone.
type Filter struct {
	mu        sync.Mutex
	window    time.Duration
	retention time.Duration
	seen      map[string]map[uint64]time.Time

	now func() time.Time
}

// New creates a filter. A repeat of an identical message from the same phone
// within window is a duplicate; recorded fingerprints are kept for retention
// (>= window) before lazy eviction.
func New(window, retention time.Duration) *Filter {
	if retention < window {
		retention = window
	}
	return &Filter{
		window:    window,
		retention: retention,
		seen:      make(map[string]map[uint64]time.Time),
		now:       time.Now,
	}
}

// IsDuplicate reports whether an identical message from phone was seen
// within the suppression window. When it returns false it records the
// observation as a side effect.
func (f *Filter) IsDuplicate(phone, message string) bool {
	fp := fingerprint(message)
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	entries := f.seen[phone]
	if entries == nil {
		entries = make(map[uint64]time.Time)
		f.seen[phone] = entries
	}

	for k, t := range entries {
		if now.Sub(t) >= f.retention {
			delete(entries, k)
		}
	}

	if t, ok := entries[fp]; ok && now.Sub(t) < f.window {
		return true
	}
	entries[fp] = now
	return false
}

// Reset clears all recorded fingerprints for a phone. Called on
// conversation reset so a replayed opening message is not suppressed.
func (f *Filter) Reset(phone string) {
	f.mu.Lock()
	delete(f.seen, phone)
	f.mu.Unlock()
}

func fingerprint(message string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(message))
	return h.Sum64()
}
