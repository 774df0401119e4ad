package services

import (
	"context"
	"time"

	"pairwave/internal/core/domain"
	"pairwave/internal/core/ports"

	"go.uber.org/zap"
)

// RelayService routes signaling, chat, and presence events strictly
// between the two halves of a pairing. It never retransmits and never
// surfaces delivery failures back to the sender.
type RelayService struct {
	pairing   ports.PairingManager
	registry  ports.ConnectionRegistry
	moderator ports.Moderator
	metrics   ports.Metrics
	logger    *zap.SugaredLogger
}

// NewRelayService wires the relay against the pairing manager, connection
// registry, and moderator collaborator. metrics may be nil, in which case
// relay counters are simply not recorded.
func NewRelayService(pairing ports.PairingManager, registry ports.ConnectionRegistry, moderator ports.Moderator, metrics ports.Metrics, logger *zap.SugaredLogger) *RelayService {
	return &RelayService{pairing: pairing, registry: registry, moderator: moderator, metrics: metrics, logger: logger}
}

var _ ports.Relay = (*RelayService)(nil)

// RouteSignal forwards an offer/answer/ice-candidate event only if the
// sender's current partner matches the declared target; otherwise it is
// dropped silently — a late signal after a skip is not an error.
func (r *RelayService) RouteSignal(ctx context.Context, from domain.SessionID, eventType domain.EventType, payload domain.SignalPayload) error {
	partner, ok := r.pairing.PartnerOf(ctx, from)
	if !ok || partner != payload.To {
		return nil
	}

	payload.From = from
	payload.To = ""
	if r.metrics != nil {
		r.metrics.RecordSignalRelayed(eventType)
	}
	return r.registry.Send(ctx, partner, domain.Event{Type: eventType, Payload: payload})
}

// RelayMessage submits text to the Moderator; on veto it notifies only the
// sender, on allow it delivers the authoritative echo to both sender and
// partner.
func (r *RelayService) RelayMessage(ctx context.Context, from domain.SessionID, text string) error {
	verdict, err := r.moderator.Check(ctx, text)
	if err != nil {
		r.logger.Warnw("moderator check failed, allowing by default", "session", from, "error", err)
		verdict = ports.ModerationVerdict{Allowed: true}
	}

	if !verdict.Allowed {
		if r.metrics != nil {
			r.metrics.RecordModeratorVeto()
		}
		return r.registry.Send(ctx, from, domain.Event{
			Type:    domain.EventMessageBlocked,
			Payload: domain.MessageBlockedPayload{Reason: verdict.Reason},
		})
	}

	partner, ok := r.pairing.PartnerOf(ctx, from)
	if !ok {
		return nil
	}

	event := domain.Event{
		Type: domain.EventReceiveMessage,
		Payload: domain.ReceiveMessagePayload{
			Message:         text,
			Timestamp:       time.Now().Unix(),
			SenderSessionID: from,
		},
	}

	if r.metrics != nil {
		r.metrics.RecordMessageRelayed()
	}

	_ = r.registry.Send(ctx, from, event)
	return r.registry.Send(ctx, partner, event)
}

// RelayPresence forwards typing/stop-typing/video-toggle/audio-toggle
// verbatim to the partner as its user-/peer- prefixed counterpart; dropped
// silently if there is no partner.
func (r *RelayService) RelayPresence(ctx context.Context, from domain.SessionID, eventType domain.EventType, payload interface{}) error {
	partner, ok := r.pairing.PartnerOf(ctx, from)
	if !ok {
		return nil
	}

	outbound, ok := presenceRelayMap[eventType]
	if !ok {
		return nil
	}

	return r.registry.Send(ctx, partner, domain.Event{Type: outbound, Payload: payload})
}

var presenceRelayMap = map[domain.EventType]domain.EventType{
	domain.EventTyping:      domain.EventUserTyping,
	domain.EventStopTyping:  domain.EventUserStoppedTyping,
	domain.EventVideoToggle: domain.EventPeerVideoToggle,
	domain.EventAudioToggle: domain.EventPeerAudioToggle,
}
