package ports

import (
	"context"
	"time"

	"pairwave/internal/core/domain"
)

// MatchQueue is the service-level matchmaking queue: compatibility
// filtering, scoring, and the three-phase selection strategy sit behind
// FindMatch; Enqueue/Remove/Snapshot pass through to the QueueRepository.
type MatchQueue interface {
	Enqueue(ctx context.Context, session *domain.Session, prefs domain.Preferences, blocked map[domain.UserID]struct{}) error
	Remove(ctx context.Context, id domain.SessionID) error
	FindMatch(ctx context.Context, id domain.SessionID) (*domain.QueueEntry, error)
	Snapshot(ctx context.Context) domain.Snapshot

	// Notify returns a channel that is closed the next time Enqueue
	// succeeds, letting a waiting SearchDriver wake immediately instead of
	// sleeping out its full adaptive polling interval.
	Notify() <-chan struct{}
}

// PairingManager owns the pairing lifecycle: atomic pairing creation and
// teardown, serialized so that no session is ever paired twice at once.
type PairingManager interface {
	TryPair(ctx context.Context, a, b domain.SessionID) (*domain.Pairing, error)
	Unpair(ctx context.Context, id domain.SessionID) (domain.SessionID, bool)
	PartnerOf(ctx context.Context, id domain.SessionID) (domain.SessionID, bool)
	IsPaired(ctx context.Context, id domain.SessionID) bool
}

// SearchDriver runs and cancels the per-session adaptive-polling search
// loop described by the matchmaking queue's phased selection strategy.
type SearchDriver interface {
	Start(ctx context.Context, session *domain.Session, prefs domain.Preferences)
	Cancel(id domain.SessionID)
}

// Relay routes signaling, chat, and presence events strictly between the
// two halves of a pairing, applying the Moderator veto to chat text.
type Relay interface {
	RouteSignal(ctx context.Context, from domain.SessionID, eventType domain.EventType, payload domain.SignalPayload) error
	RelayMessage(ctx context.Context, from domain.SessionID, text string) error
	RelayPresence(ctx context.Context, from domain.SessionID, eventType domain.EventType, payload interface{}) error
}

// IdentityStore authenticates an opaque bearer token into a UserID.
type IdentityStore interface {
	Authenticate(ctx context.Context, token string) (domain.UserID, domain.Tier, error)
}

// BlockStore resolves the set of users who have blocked a given user.
// Failures are handled by the caller as best-effort-empty, per the
// enqueue-without-filter error policy.
type BlockStore interface {
	BlockedBy(ctx context.Context, user domain.UserID) (map[domain.UserID]struct{}, error)
}

// ModerationVerdict is the result of a Moderator.Check call.
type ModerationVerdict struct {
	Allowed bool
	Reason  string
}

// Moderator screens chat text before it is relayed.
type Moderator interface {
	Check(ctx context.Context, text string) (ModerationVerdict, error)
}

// Metrics is the sink the core services report counters and gauges to. It
// is satisfied by the Prometheus collector; services never import the
// monitoring package directly, only this port.
type Metrics interface {
	UpdateQueueSnapshot(snapshot domain.Snapshot)
	SetActivePairings(n int)
	SetSearchesInFlight(n int)
	RecordMatch(waitTime time.Duration)
	RecordMessageRelayed()
	RecordModeratorVeto()
	RecordSignalRelayed(eventType domain.EventType)
}
