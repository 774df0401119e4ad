package ports

import (
	"context"

	"pairwave/internal/core/domain"

	"github.com/gin-gonic/gin"
)

// HTTPHandler serves the thin HTTP surface around the core: health and the
// WebSocket upgrade route. It is intentionally not a general CRUD surface.
type HTTPHandler interface {
	HealthCheck(c *gin.Context)
	Upgrade(c *gin.Context)
}

// SessionCoordinator dispatches inbound events from one connection to the
// matchmaking, pairing, and relay services, and is the single place that
// knows the full shape of the client-facing protocol.
type SessionCoordinator interface {
	HandleConnect(ctx context.Context, conn domain.Sender, token string) (*domain.Session, error)
	HandleEvent(ctx context.Context, id domain.SessionID, event domain.Event) error
	HandleDisconnect(ctx context.Context, id domain.SessionID) error
}
