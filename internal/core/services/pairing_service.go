package services

import (
	"context"

	"pairwave/internal/core/domain"
	"pairwave/internal/core/ports"
	"pairwave/pkg/tracing"

	"go.uber.org/zap"
)

// PairingService is the service-level Pairing Manager. The serialization
// guarantee that makes double-pairing impossible lives in the
// PairingRepository; this layer adds tracing and structured logging around
// it, matching the rest of the service/repository split in this codebase.
type PairingService struct {
	repo   ports.PairingRepository
	logger *zap.SugaredLogger
}

// NewPairingService creates a pairing manager bound to the given repository.
func NewPairingService(repo ports.PairingRepository, logger *zap.SugaredLogger) *PairingService {
	return &PairingService{repo: repo, logger: logger}
}

var _ ports.PairingManager = (*PairingService)(nil)

func (p *PairingService) TryPair(ctx context.Context, a, b domain.SessionID) (*domain.Pairing, error) {
	ctx, span := tracing.TracePairing(ctx, "try_pair", string(a), string(b))
	defer span.End()

	pairing, err := p.repo.TryPair(ctx, a, b)
	if err != nil {
		p.logger.Debugw("try_pair rejected", "session_a", a, "session_b", b, "error", err)
		return nil, err
	}

	p.logger.Infow("pairing created", "session_a", a, "session_b", b, "room_tag", pairing.RoomTag)
	return pairing, nil
}

func (p *PairingService) Unpair(ctx context.Context, id domain.SessionID) (domain.SessionID, bool) {
	ctx, span := tracing.TracePairing(ctx, "unpair", string(id), "")
	defer span.End()

	partner, ok := p.repo.Unpair(ctx, id)
	if ok {
		p.logger.Infow("pairing destroyed", "session", id, "partner", partner)
	}
	return partner, ok
}

func (p *PairingService) PartnerOf(ctx context.Context, id domain.SessionID) (domain.SessionID, bool) {
	return p.repo.PartnerOf(ctx, id)
}

func (p *PairingService) IsPaired(ctx context.Context, id domain.SessionID) bool {
	return p.repo.IsPaired(ctx, id)
}
