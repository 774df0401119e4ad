package ports

import (
	"context"

	"pairwave/internal/core/domain"
)

// ConnectionRegistry tracks every live client session and delivers events
// to a specific session, at-most-once and in the order Send was called.
type ConnectionRegistry interface {
	Register(ctx context.Context, session *domain.Session) error
	Unregister(ctx context.Context, id domain.SessionID) error
	Get(ctx context.Context, id domain.SessionID) (*domain.Session, bool)
	Send(ctx context.Context, id domain.SessionID, event domain.Event) error
}

// QueueRepository is the storage side of the matchmaking queue: tiered
// buckets of waiting sessions, kept disjoint and in sync with membership.
type QueueRepository interface {
	Enqueue(ctx context.Context, entry *domain.QueueEntry) error
	Remove(ctx context.Context, id domain.SessionID) error
	Get(ctx context.Context, id domain.SessionID) (*domain.QueueEntry, bool)
	Tier(ctx context.Context, tier domain.Tier) []*domain.QueueEntry
	All(ctx context.Context) []*domain.QueueEntry
	Snapshot(ctx context.Context) domain.Snapshot

	// IncrementSearchAttempts bumps a queued entry's attempt counter under
	// the repository's own lock, the only place that field is ever mutated.
	IncrementSearchAttempts(ctx context.Context, id domain.SessionID) (int, bool)
}

// PairingRepository is the storage side of the pairing table: the
// symmetric SessionID<->SessionID relation, with atomic creation/removal.
type PairingRepository interface {
	TryPair(ctx context.Context, a, b domain.SessionID) (*domain.Pairing, error)
	Unpair(ctx context.Context, id domain.SessionID) (domain.SessionID, bool)
	PartnerOf(ctx context.Context, id domain.SessionID) (domain.SessionID, bool)
	IsPaired(ctx context.Context, id domain.SessionID) bool
}
