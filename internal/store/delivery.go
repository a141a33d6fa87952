package store

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/buzz-lite/delivery-coordinator/internal/model"
)

// DeliveryStore holds all delivery batches, keyed by batch ID, backed by a
// single JSON file. Map access is guarded by a short read-write lock;
// read-modify-write sequences across a lookup and an update are serialized
// by the caller's per-phone lock.
type DeliveryStore struct {
	path string

	mu      sync.RWMutex
	batches map[string]*model.Batch
}

// NewDeliveryStore opens the store at path, loading existing data if any.
func NewDeliveryStore(path string) (*DeliveryStore, error) {
	s := &DeliveryStore{
		path:    path,
		batches: make(map[string]*model.Batch),
	}
	if err := readJSONFile(path, &s.batches); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load delivery store: %w", err)
		}
	}
	if s.batches == nil {
		s.batches = make(map[string]*model.Batch)
	}
	return s, nil
}

// PutBatch inserts or replaces a batch and persists the store.
func (s *DeliveryStore) PutBatch(batch *model.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := *batch
	b.Deliveries = append([]model.Delivery(nil), batch.Deliveries...)
	s.batches[b.ID] = &b
	return s.persistLocked()
}

// Batch returns a copy of the batch with the given ID.
func (s *DeliveryStore) Batch(id string) (model.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[id]
	if !ok {
		return model.Batch{}, ErrNotFound
	}
	out := *b
	out.Deliveries = append([]model.Delivery(nil), b.Deliveries...)
	return out, nil
}

// ListByDispatcher returns all deliveries across the dispatcher's batches,
// newest batch first, sequence order within a batch.
func (s *DeliveryStore) ListByDispatcher(dispatcherPhone string) []model.Delivery {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Delivery
	for _, b := range s.sortedBatchesLocked() {
		if b.DispatcherPhone != dispatcherPhone {
			continue
		}
		deliveries := append([]model.Delivery(nil), b.Deliveries...)
		sort.SliceStable(deliveries, func(i, j int) bool {
			return deliveries[i].SequenceNumber < deliveries[j].SequenceNumber
		})
		out = append(out, deliveries...)
	}
	return out
}

// FindByPhone returns a copy of the delivery addressed to the canonical
// phone. Lookup is exact canonical equality, never substring containment.
// If the phone appears in more than one batch the newest batch wins; within
// a batch, the first entry. The policy is deterministic so repeated lookups
// always coordinate the same record.
func (s *DeliveryStore) FindByPhone(canonicalPhone string) (model.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, _, _, err := s.findByPhoneLocked(canonicalPhone)
	if err != nil {
		return model.Delivery{}, err
	}
	return *d, nil
}

// UpdateDelivery applies fn to the delivery addressed to the canonical phone
// and persists the store. fn sees the live record; returning an error
// abandons both the mutation and the persist. The updated copy is returned.
func (s *DeliveryStore) UpdateDelivery(canonicalPhone string, fn func(*model.Delivery) error) (model.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, batchID, idx, err := s.findByPhoneLocked(canonicalPhone)
	if err != nil {
		return model.Delivery{}, err
	}

	updated := *d
	if err := fn(&updated); err != nil {
		return model.Delivery{}, err
	}
	s.batches[batchID].Deliveries[idx] = updated

	if err := s.persistLocked(); err != nil {
		return model.Delivery{}, err
	}
	return updated, nil
}

// RecipientPhones returns the canonical phone of every delivery across all
// batches. Used to rebuild the outbound allow-list on startup.
func (s *DeliveryStore) RecipientPhones() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, b := range s.batches {
		for i := range b.Deliveries {
			phone := b.Deliveries[i].RecipientPhone
			if _, ok := seen[phone]; ok {
				continue
			}
			seen[phone] = struct{}{}
			out = append(out, phone)
		}
	}
	return out
}

func (s *DeliveryStore) findByPhoneLocked(canonicalPhone string) (*model.Delivery, string, int, error) {
	for _, b := range s.sortedBatchesLocked() {
		for i := range b.Deliveries {
			if b.Deliveries[i].RecipientPhone == canonicalPhone {
				return &b.Deliveries[i], b.ID, i, nil
			}
		}
	}
	return nil, "", 0, ErrNotFound
}

// sortedBatchesLocked returns batches newest first, ID as tie-breaker, so
// iteration order is stable across calls.
func (s *DeliveryStore) sortedBatchesLocked() []*model.Batch {
	out := make([]*model.Batch, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *DeliveryStore) persistLocked() error {
	return writeJSONFileAtomic(s.path, s.batches)
}
