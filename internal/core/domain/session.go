package domain

import "time"

// Sender delivers an outbound Event to the client on the other end of a
// session's connection. Implementations are best-effort: a failed Send is
// never retried by the core (see Registry.Send in ports.ConnectionRegistry).
type Sender interface {
	Send(event Event) error
	Close() error
}

// Session is one live bidirectional client connection. It is created on
// connect and destroyed on disconnect; it is never shared across
// reconnects, and a SessionID is unique for the lifetime of the process.
type Session struct {
	ID        SessionID
	UserID    UserID
	Tier      Tier
	Conn      Sender
	ConnectedAt time.Time
}

// Preferences narrow matchmaking candidates. Gender and Region default to
// "any" when unset; Tier preference is currently informational only — the
// scoring phases already favor same-tier candidates structurally.
type Preferences struct {
	Gender Gender
	Region string
	Tier   Tier
}

func (p Preferences) WantsAnyGender() bool {
	return p.Gender == "" || p.Gender == GenderAny
}

func (p Preferences) WantsAnyRegion() bool {
	return p.Region == "" || p.Region == RegionAny
}
