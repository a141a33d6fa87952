package dedupe

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestFilter(window, retention time.Duration) (*Filter, *time.Time) {
	f := New(window, retention)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return current }
	return f, &current
}

func TestDuplicateWithinWindow(t *testing.T) {
	f, _ := newTestFilter(time.Minute, 2*time.Minute)

	assert.False(t, f.IsDuplicate("972521234567", "hello"))
	assert.True(t, f.IsDuplicate("972521234567", "hello"))
}

func TestNotDuplicateAfterWindow(t *testing.T) {
	f, now := newTestFilter(time.Minute, 2*time.Minute)

	assert.False(t, f.IsDuplicate("972521234567", "hello"))
	*now = now.Add(61 * time.Second)
	assert.False(t, f.IsDuplicate("972521234567", "hello"))
}

func TestDifferentPhonesIndependent(t *testing.T) {
	f, _ := newTestFilter(time.Minute, 2*time.Minute)

	assert.False(t, f.IsDuplicate("972521234567", "hello"))
	assert.False(t, f.IsDuplicate("972527654321", "hello"))
}

func TestDifferentMessagesNotDuplicates(t *testing.T) {
	f, _ := newTestFilter(time.Minute, 2*time.Minute)

	assert.False(t, f.IsDuplicate("972521234567", "hello"))
	assert.False(t, f.IsDuplicate("972521234567", "goodbye"))
}

func TestLazyEviction(t *testing.T) {
	f, now := newTestFilter(time.Minute, 2*time.Minute)

	assert.False(t, f.IsDuplicate("972521234567", "one"))
	assert.False(t, f.IsDuplicate("972521234567", "two"))
	*now = now.Add(3 * time.Minute)

	// Touching the phone evicts both stale fingerprints.
	assert.False(t, f.IsDuplicate("972521234567", "three"))
	f.mu.Lock()
	assert.Len(t, f.seen["972521234567"], 1)
	f.mu.Unlock()
}

func TestReset(t *testing.T) {
	f, _ := newTestFilter(time.Minute, 2*time.Minute)

	assert.False(t, f.IsDuplicate("972521234567", "hello"))
	f.Reset("972521234567")
	assert.False(t, f.IsDuplicate("972521234567", "hello"))
}

func TestRetentionFloorsAtWindow(t *testing.T) {
	f := New(time.Minute, time.Second)
	assert.Equal(t, time.Minute, f.retention)
}

func TestConcurrentAccess(t *testing.T) {
	f := New(time.Minute, 2*time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			phones := []string{"972521111111", "972522222222", "972523333333"}
			for j := 0; j < 100; j++ {
				f.IsDuplicate(phones[(n+j)%len(phones)], "race")
			}
		}(i)
	}
	wg.Wait()
}
