package collaborators

import (
	"context"

	"pairwave/internal/core/domain"
	"pairwave/internal/core/ports"
)

// NoopBlockStore is the BlockStore used when no Redis backend is
// configured: every user is reported as unblocked, so matchmaking degrades
// to ignoring block lists rather than failing closed.
type NoopBlockStore struct{}

var _ ports.BlockStore = NoopBlockStore{}

func (NoopBlockStore) BlockedBy(ctx context.Context, user domain.UserID) (map[domain.UserID]struct{}, error) {
	return nil, nil
}
