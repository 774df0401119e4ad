package domain

import "github.com/pion/webrtc/v3"

// EventType names one of the client-facing inbound or outbound events.
// Names are normative wire values, never renamed by Go convention.
type EventType string

// Inbound events (client -> core).
const (
	EventFindMatch    EventType = "find-match"
	EventCancelMatch  EventType = "cancel-match"
	EventSkip         EventType = "skip"
	EventSendMessage  EventType = "send-message"
	EventTyping       EventType = "typing"
	EventStopTyping   EventType = "stop-typing"
	EventOffer        EventType = "offer"
	EventAnswer       EventType = "answer"
	EventICECandidate EventType = "ice-candidate"
	EventVideoToggle  EventType = "video-toggle"
	EventAudioToggle  EventType = "audio-toggle"
)

// Outbound events (core -> client).
const (
	EventSearching          EventType = "searching"
	EventMatchFound         EventType = "match-found"
	EventMatchCancelled     EventType = "match-cancelled"
	EventMatchEnded         EventType = "match-ended"
	EventReceiveMessage     EventType = "receive-message"
	EventMessageBlocked     EventType = "message-blocked"
	EventUserTyping         EventType = "user-typing"
	EventUserStoppedTyping  EventType = "user-stopped-typing"
	EventPeerVideoToggle    EventType = "peer-video-toggle"
	EventPeerAudioToggle    EventType = "peer-audio-toggle"
	EventMatchmakingStopped EventType = "matchmaking-stopped"
	EventSkipSuccess        EventType = "skip-success"
)

// Event is the envelope carried over the newline-delimited JSON transport:
// Type selects the payload's shape; the gateway's decoder (signal
// decodeEvent) unmarshals Payload into the concrete struct for Type.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// FindMatchPayload is the find-match inbound payload.
type FindMatchPayload struct {
	UserID      UserID      `json:"userId"`
	Preferences Preferences `json:"preferences"`
}

// SkipPayload is the skip inbound payload.
type SkipPayload struct {
	UserID      UserID      `json:"userId,omitempty"`
	Preferences Preferences `json:"preferences,omitempty"`
	AutoRequeue bool        `json:"autoRequeue"`
}

// SendMessagePayload is the send-message inbound payload.
type SendMessagePayload struct {
	Message string `json:"message"`
}

// SignalPayload carries an opaque WebRTC signaling blob. SDP is typed via
// pion/webrtc/v3 purely for payload validation — the core never constructs
// or inspects a real RTCPeerConnection from it.
type SignalPayload struct {
	SDP       *webrtc.SessionDescription `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
	To        SessionID                  `json:"to,omitempty"`
	From      SessionID                  `json:"from,omitempty"`
}

// TogglePayload is shared by video-toggle/audio-toggle and their relayed
// peer-video-toggle/peer-audio-toggle counterparts.
type TogglePayload struct {
	Enabled bool `json:"enabled"`
}

// SearchingPayload is the searching progress-tick outbound payload.
type SearchingPayload struct {
	QueuePosition int   `json:"queuePosition,omitempty"`
	WaitTime      int64 `json:"waitTime"`
}

// MatchFoundPayload is the match-found outbound payload.
type MatchFoundPayload struct {
	MatchSessionID SessionID `json:"matchSessionID"`
	MatchUserID    UserID    `json:"matchUserID"`
	WaitTime       int64     `json:"waitTime"`
	ICEServers     []ICEServer `json:"iceServers"`
}

// ICEServer is a STUN/TURN hint handed to the client's local
// RTCPeerConnection; the core itself never dials one.
type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// MatchEndedPayload is the match-ended outbound payload.
type MatchEndedPayload struct {
	Reason        string    `json:"reason"`
	FromSessionID SessionID `json:"fromSessionID"`
	Disconnected  bool      `json:"disconnected"`
	AutoRequeue   bool      `json:"autoRequeue"`
}

// ReceiveMessagePayload is the receive-message outbound payload.
type ReceiveMessagePayload struct {
	Message        string    `json:"message"`
	Timestamp      int64     `json:"timestamp"`
	SenderSessionID SessionID `json:"senderId"`
}

// MessageBlockedPayload is the message-blocked outbound payload, delivered
// only to the sender whose message the Moderator vetoed.
type MessageBlockedPayload struct {
	Reason string `json:"reason"`
}

// SkipSuccessPayload is the skip-success outbound payload.
type SkipSuccessPayload struct {
	AutoRequeue bool `json:"autoRequeue"`
}
