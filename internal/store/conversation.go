package store

import (
	"fmt"
	"os"
	"sync"

	"github.com/buzz-lite/delivery-coordinator/internal/model"
)

// ConversationStore holds the ordered turn history per canonical phone,
// backed by a single JSON file with atomic replace on every append.
type ConversationStore struct {
	path string

	mu   sync.RWMutex
	logs map[string][]model.Turn
}

// NewConversationStore opens the store at path, loading existing data if any.
func NewConversationStore(path string) (*ConversationStore, error) {
	s := &ConversationStore{
		path: path,
		logs: make(map[string][]model.Turn),
	}
	if err := readJSONFile(path, &s.logs); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load conversation store: %w", err)
		}
	}
	if s.logs == nil {
		s.logs = make(map[string][]model.Turn)
	}
	return s, nil
}

// Append adds turns to the phone's history and persists the store.
func (s *ConversationStore) Append(canonicalPhone string, turns ...model.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs[canonicalPhone] = append(s.logs[canonicalPhone], turns...)
	return s.persistLocked()
}

// History returns the full turn history for a phone, oldest first.
func (s *ConversationStore) History(canonicalPhone string) []model.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.Turn(nil), s.logs[canonicalPhone]...)
}

// Recent returns at most n of the latest turns, oldest first. The bounded
// window is what the extraction port sees; the store keeps everything.
func (s *ConversationStore) Recent(canonicalPhone string, n int) []model.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.logs[canonicalPhone]
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return append([]model.Turn(nil), turns...)
}

// Clear removes the phone's history and persists the store.
func (s *ConversationStore) Clear(canonicalPhone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.logs, canonicalPhone)
	return s.persistLocked()
}

func (s *ConversationStore) persistLocked() error {
	return writeJSONFileAtomic(s.path, s.logs)
}
