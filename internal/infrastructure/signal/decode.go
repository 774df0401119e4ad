package signal

import (
	"encoding/json"
	"fmt"

	"pairwave/internal/core/domain"
)

// decodeEvent unmarshals a wire envelope's raw payload into the concrete
// struct the session coordinator expects for that EventType.
func decodeEvent(msg wireEvent) (domain.Event, error) {
	event := domain.Event{Type: msg.Type}

	switch msg.Type {
	case domain.EventFindMatch:
		var p domain.FindMatchPayload
		if err := unmarshalIfPresent(msg.Payload, &p); err != nil {
			return event, err
		}
		event.Payload = p

	case domain.EventSkip:
		var p domain.SkipPayload
		if err := unmarshalIfPresent(msg.Payload, &p); err != nil {
			return event, err
		}
		event.Payload = p

	case domain.EventSendMessage:
		var p domain.SendMessagePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return event, fmt.Errorf("invalid send-message payload: %w", err)
		}
		event.Payload = p

	case domain.EventOffer, domain.EventAnswer, domain.EventICECandidate:
		var p domain.SignalPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return event, fmt.Errorf("invalid signaling payload: %w", err)
		}
		event.Payload = p

	case domain.EventVideoToggle, domain.EventAudioToggle:
		var p domain.TogglePayload
		if err := unmarshalIfPresent(msg.Payload, &p); err != nil {
			return event, err
		}
		event.Payload = p

	case domain.EventCancelMatch, domain.EventTyping, domain.EventStopTyping:
		// no payload

	default:
		return event, fmt.Errorf("unknown event type: %s", msg.Type)
	}

	return event, nil
}

func unmarshalIfPresent(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}
