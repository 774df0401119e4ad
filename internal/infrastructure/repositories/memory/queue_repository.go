package memory

import (
	"context"
	"sync"

	"pairwave/internal/core/domain"
	"pairwave/internal/core/ports"
)

// QueueRepository is the in-memory matchmaking queue: a flat entry table
// plus tier buckets kept as the disjoint union of queued sessions by tier.
type QueueRepository struct {
	mu       sync.RWMutex
	entries  map[domain.SessionID]*domain.QueueEntry
	buckets  map[domain.Tier]map[domain.SessionID]struct{}
	matched  int64
}

// NewQueueRepository creates an empty queue repository.
func NewQueueRepository() *QueueRepository {
	return &QueueRepository{
		entries: make(map[domain.SessionID]*domain.QueueEntry),
		buckets: make(map[domain.Tier]map[domain.SessionID]struct{}),
	}
}

var _ ports.QueueRepository = (*QueueRepository)(nil)

// Enqueue is idempotent: a prior entry for the same session is removed
// first so the tier bucket index never drifts out of sync.
func (r *QueueRepository) Enqueue(ctx context.Context, entry *domain.QueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(entry.SessionID)

	// store a copy so a later change to the caller's entry cannot move it
	// out from under its tier bucket
	entry = cloneEntry(entry)
	r.entries[entry.SessionID] = entry
	if r.buckets[entry.Tier] == nil {
		r.buckets[entry.Tier] = make(map[domain.SessionID]struct{})
	}
	r.buckets[entry.Tier][entry.SessionID] = struct{}{}
	return nil
}

func (r *QueueRepository) Remove(ctx context.Context, id domain.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(id)
	return nil
}

func (r *QueueRepository) removeLocked(id domain.SessionID) {
	entry, ok := r.entries[id]
	if !ok {
		return
	}
	delete(r.entries, id)
	if bucket, ok := r.buckets[entry.Tier]; ok {
		delete(bucket, id)
	}
}

// Get returns a copy of the entry, never the entry this repository itself
// holds — callers mutate or read the copy's fields from their own goroutine
// for as long as they like without racing IncrementSearchAttempts or any
// other locked mutation here.
func (r *QueueRepository) Get(ctx context.Context, id domain.SessionID) (*domain.QueueEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return cloneEntry(e), true
}

func (r *QueueRepository) Tier(ctx context.Context, tier domain.Tier) []*domain.QueueEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket := r.buckets[tier]
	out := make([]*domain.QueueEntry, 0, len(bucket))
	for id := range bucket {
		out = append(out, cloneEntry(r.entries[id]))
	}
	return out
}

func (r *QueueRepository) All(ctx context.Context) []*domain.QueueEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.QueueEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, cloneEntry(e))
	}
	return out
}

// IncrementSearchAttempts bumps the stored entry's attempt counter under
// the repository's own lock and reports the updated count. This is the
// only place SearchAttempts is ever mutated, so readers of the copies
// handed out by Get/Tier/All never race it.
func (r *QueueRepository) IncrementSearchAttempts(ctx context.Context, id domain.SessionID) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return 0, false
	}
	e.SearchAttempts++
	return e.SearchAttempts, true
}

// cloneEntry shallow-copies an entry; BlockedUserIDs is shared since it is
// never mutated after Enqueue builds it.
func cloneEntry(e *domain.QueueEntry) *domain.QueueEntry {
	c := *e
	return &c
}

func (r *QueueRepository) Snapshot(ctx context.Context) domain.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	perTier := make(map[domain.Tier]int, len(r.buckets))
	for tier, bucket := range r.buckets {
		perTier[tier] = len(bucket)
	}

	return domain.Snapshot{
		Total:        len(r.entries),
		PerTier:      perTier,
		MatchedSoFar: r.matched,
	}
}

// RecordMatch increments the matched-pair counter surfaced in Snapshot.
func (r *QueueRepository) RecordMatch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matched++
}
