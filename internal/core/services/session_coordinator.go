package services

import (
	"context"
	"time"

	"pairwave/internal/core/domain"
	"pairwave/internal/core/ports"
	"pairwave/pkg/tracing"
	"pairwave/pkg/utils"
	"pairwave/pkg/validation"

	"go.uber.org/zap"
)

// SessionCoordinator dispatches inbound events to the matchmaking, pairing,
// and relay services. It is the single place that knows the full shape of
// the client-facing protocol.
type SessionCoordinator struct {
	registry ports.ConnectionRegistry
	queue    ports.MatchQueue
	pairing  ports.PairingManager
	search   ports.SearchDriver
	relay    ports.Relay
	identity ports.IdentityStore
	blocks   ports.BlockStore

	// requeueDelay is the pause before an auto-requeued session re-enters
	// the queue, giving both clients time to tear down their WebRTC state.
	requeueDelay time.Duration

	logger *zap.SugaredLogger
}

// NewSessionCoordinator wires every core component into a single dispatcher.
func NewSessionCoordinator(
	registry ports.ConnectionRegistry,
	queue ports.MatchQueue,
	pairing ports.PairingManager,
	search ports.SearchDriver,
	relay ports.Relay,
	identity ports.IdentityStore,
	blocks ports.BlockStore,
	requeueDelay time.Duration,
	logger *zap.SugaredLogger,
) *SessionCoordinator {
	return &SessionCoordinator{
		registry:     registry,
		queue:        queue,
		pairing:      pairing,
		search:       search,
		relay:        relay,
		identity:     identity,
		blocks:       blocks,
		requeueDelay: requeueDelay,
		logger:       logger,
	}
}

var _ ports.SessionCoordinator = (*SessionCoordinator)(nil)

// HandleConnect authenticates the token, allocates a fresh SessionID, and
// registers the session. SessionIDs are never reused across reconnects.
func (c *SessionCoordinator) HandleConnect(ctx context.Context, conn domain.Sender, token string) (*domain.Session, error) {
	userID, tier, err := c.identity.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		ID:          domain.SessionID(utils.GenerateSessionID()),
		UserID:      userID,
		Tier:        tier,
		Conn:        conn,
		ConnectedAt: time.Now(),
	}

	if err := c.registry.Register(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// HandleDisconnect is the single authoritative trigger for tearing down a
// session's search driver, pairing, and queue membership, in that order,
// before Unregister returns.
func (c *SessionCoordinator) HandleDisconnect(ctx context.Context, id domain.SessionID) error {
	c.search.Cancel(id)

	if partner, ok := c.pairing.Unpair(ctx, id); ok {
		c.notifyMatchEnded(ctx, partner, id, "disconnected", true)
	}

	_ = c.queue.Remove(ctx, id)
	return c.registry.Unregister(ctx, id)
}

func (c *SessionCoordinator) HandleEvent(ctx context.Context, id domain.SessionID, event domain.Event) error {
	ctx, span := tracing.TraceWebSocketMessage(ctx, string(event.Type), string(id))
	defer span.End()

	switch event.Type {
	case domain.EventFindMatch:
		return c.handleFindMatch(ctx, id, event.Payload)
	case domain.EventCancelMatch:
		return c.handleCancelMatch(ctx, id)
	case domain.EventSkip:
		return c.handleSkip(ctx, id, event.Payload)
	case domain.EventSendMessage:
		return c.handleSendMessage(ctx, id, event.Payload)
	case domain.EventTyping, domain.EventStopTyping:
		return c.relay.RelayPresence(ctx, id, event.Type, struct{}{})
	case domain.EventVideoToggle, domain.EventAudioToggle:
		return c.handleToggle(ctx, id, event.Type, event.Payload)
	case domain.EventOffer, domain.EventAnswer, domain.EventICECandidate:
		return c.handleSignal(ctx, id, event.Type, event.Payload)
	default:
		// malformed or unknown inbound event: drop silently, per policy.
		c.logger.Debugw("dropping unknown event", "session", id, "type", event.Type)
		return nil
	}
}

func (c *SessionCoordinator) handleFindMatch(ctx context.Context, id domain.SessionID, raw interface{}) error {
	payload, ok := raw.(domain.FindMatchPayload)
	if !ok {
		return nil
	}

	session, ok := c.registry.Get(ctx, id)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if c.pairing.IsPaired(ctx, id) {
		return nil
	}

	blocked, err := c.blocks.BlockedBy(ctx, session.UserID)
	if err != nil {
		c.logger.Warnw("block store unavailable, enqueuing without filter", "session", id, "error", err)
		blocked = nil
	}

	if err := c.queue.Enqueue(ctx, session, payload.Preferences, blocked); err != nil {
		return err
	}

	c.search.Start(ctx, session, payload.Preferences)
	return nil
}

func (c *SessionCoordinator) handleCancelMatch(ctx context.Context, id domain.SessionID) error {
	c.search.Cancel(id)
	_ = c.queue.Remove(ctx, id)
	return c.registry.Send(ctx, id, domain.Event{Type: domain.EventMatchCancelled})
}

func (c *SessionCoordinator) handleSkip(ctx context.Context, id domain.SessionID, raw interface{}) error {
	payload, _ := raw.(domain.SkipPayload)

	partner, ok := c.pairing.Unpair(ctx, id)
	if !ok {
		// Not actually paired: skip without autoRequeue degrades to
		// cancel-match. With autoRequeue it still re-enters the queue.
		if !payload.AutoRequeue {
			return c.handleCancelMatch(ctx, id)
		}
		c.scheduleRequeue(id, payload.Preferences)
		return nil
	}

	c.search.Cancel(id)
	c.search.Cancel(partner)

	c.notifyMatchEnded(ctx, partner, id, "skipped", true)
	_ = c.registry.Send(ctx, id, domain.Event{
		Type: domain.EventMatchEnded,
		Payload: domain.MatchEndedPayload{
			Reason:        "skipped",
			FromSessionID: id,
			Disconnected:  false,
			AutoRequeue:   payload.AutoRequeue,
		},
	})
	_ = c.registry.Send(ctx, id, domain.Event{
		Type:    domain.EventSkipSuccess,
		Payload: domain.SkipSuccessPayload{AutoRequeue: payload.AutoRequeue},
	})

	if payload.AutoRequeue {
		c.scheduleRequeue(id, payload.Preferences)
	}
	// the skipped-on peer is auto-requeued by convention, symmetric to S.
	c.scheduleRequeue(partner, domain.Preferences{})

	return nil
}

func (c *SessionCoordinator) notifyMatchEnded(ctx context.Context, to, from domain.SessionID, reason string, autoRequeue bool) {
	_ = c.registry.Send(ctx, to, domain.Event{
		Type: domain.EventMatchEnded,
		Payload: domain.MatchEndedPayload{
			Reason:        reason,
			FromSessionID: from,
			Disconnected:  true,
			AutoRequeue:   autoRequeue,
		},
	})
}

// scheduleRequeue re-enqueues a session after a short delay, repairing
// state first if it is somehow still marked paired.
func (c *SessionCoordinator) scheduleRequeue(id domain.SessionID, prefs domain.Preferences) {
	go func() {
		time.Sleep(c.requeueDelay)

		ctx := context.Background()
		session, ok := c.registry.Get(ctx, id)
		if !ok {
			return
		}

		if c.pairing.IsPaired(ctx, id) {
			c.pairing.Unpair(ctx, id)
		}

		blocked, err := c.blocks.BlockedBy(ctx, session.UserID)
		if err != nil {
			blocked = nil
		}

		if err := c.queue.Enqueue(ctx, session, prefs, blocked); err != nil {
			c.logger.Warnw("auto-requeue failed", "session", id, "error", err)
			return
		}
		c.search.Start(ctx, session, prefs)
	}()
}

func (c *SessionCoordinator) handleSendMessage(ctx context.Context, id domain.SessionID, raw interface{}) error {
	payload, ok := raw.(domain.SendMessagePayload)
	if !ok {
		return nil
	}
	if err := validation.ValidateChatMessage(payload.Message); err != nil {
		return err
	}
	return c.relay.RelayMessage(ctx, id, payload.Message)
}

func (c *SessionCoordinator) handleToggle(ctx context.Context, id domain.SessionID, eventType domain.EventType, raw interface{}) error {
	payload, ok := raw.(domain.TogglePayload)
	if !ok {
		return nil
	}
	return c.relay.RelayPresence(ctx, id, eventType, payload)
}

func (c *SessionCoordinator) handleSignal(ctx context.Context, id domain.SessionID, eventType domain.EventType, raw interface{}) error {
	payload, ok := raw.(domain.SignalPayload)
	if !ok {
		return nil
	}
	return c.relay.RouteSignal(ctx, id, eventType, payload)
}
