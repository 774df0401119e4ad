package domain

import "time"

// QueueEntry is a Session currently waiting for a partner. A SessionID
// appears in the queue at most once and never while also paired.
type QueueEntry struct {
	SessionID      SessionID
	UserID         UserID
	Tier           Tier
	Preferences    Preferences
	BlockedUserIDs map[UserID]struct{}
	EnqueuedAt     time.Time
	SearchAttempts int
}

// WaitMs reports how long the entry has been waiting, in milliseconds.
func (e *QueueEntry) WaitMs() int64 {
	return time.Since(e.EnqueuedAt).Milliseconds()
}

// IsBlockedBy reports whether the given user appears in this entry's
// block set — used for the mutual block check in the compatibility rule.
func (e *QueueEntry) IsBlockedBy(u UserID) bool {
	_, blocked := e.BlockedUserIDs[u]
	return blocked
}

// Snapshot is a read-only view of queue occupancy for observability.
type Snapshot struct {
	Total      int
	PerTier    map[Tier]int
	MatchedSoFar int64
}
