package memory

import (
	"context"
	"sync"
	"time"

	"pairwave/internal/core/domain"
	"pairwave/internal/core/ports"
	"pairwave/pkg/utils"
)

// PairingRepository is the in-memory pairing table. A single mutex guards
// both TryPair and Unpair, which is the serialization point the concurrency
// model relies on: exactly one of two racing TryPair calls for the same
// session can ever succeed, and Unpair can never race a TryPair into an
// inconsistent double-pairing.
type PairingRepository struct {
	mu       sync.Mutex
	byID     map[domain.SessionID]*domain.Pairing
}

// NewPairingRepository creates an empty pairing table.
func NewPairingRepository() *PairingRepository {
	return &PairingRepository{
		byID: make(map[domain.SessionID]*domain.Pairing),
	}
}

var _ ports.PairingRepository = (*PairingRepository)(nil)

func (r *PairingRepository) TryPair(ctx context.Context, a, b domain.SessionID) (*domain.Pairing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, paired := r.byID[a]; paired {
		return nil, domain.ErrAlreadyPaired
	}
	if _, paired := r.byID[b]; paired {
		return nil, domain.ErrAlreadyPaired
	}

	pairing := &domain.Pairing{
		SessionA:  a,
		SessionB:  b,
		RoomTag:   utils.GenerateRoomTag(),
		CreatedAt: time.Now(),
	}

	r.byID[a] = pairing
	r.byID[b] = pairing
	return pairing, nil
}

func (r *PairingRepository) Unpair(ctx context.Context, id domain.SessionID) (domain.SessionID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pairing, ok := r.byID[id]
	if !ok {
		return "", false
	}

	partner := pairing.Other(id)
	delete(r.byID, pairing.SessionA)
	delete(r.byID, pairing.SessionB)
	return partner, true
}

func (r *PairingRepository) PartnerOf(ctx context.Context, id domain.SessionID) (domain.SessionID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pairing, ok := r.byID[id]
	if !ok {
		return "", false
	}
	return pairing.Other(id), true
}

func (r *PairingRepository) IsPaired(ctx context.Context, id domain.SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.byID[id]
	return ok
}

// Count returns the number of active pairings, for observability.
func (r *PairingRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID) / 2
}
