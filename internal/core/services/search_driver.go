package services

import (
	"context"
	"sync"
	"time"

	"pairwave/internal/core/domain"
	"pairwave/internal/core/ports"

	"go.uber.org/zap"
)

// SearchDriverService runs one cancellable goroutine per searching session.
// Cancellation is cooperative: a cancelled driver guarantees it performs no
// further TryPair, but a driver that already paired cannot be cancelled
// after the fact.
type SearchDriverService struct {
	queue     ports.MatchQueue
	pairing   ports.PairingManager
	registry  ports.ConnectionRegistry
	metrics   ports.Metrics
	onMatched func(a, b domain.SessionID)

	iceServers []domain.ICEServer
	logger     *zap.SugaredLogger

	mu      sync.Mutex
	cancels map[domain.SessionID]context.CancelFunc
}

// NewSearchDriverService wires a search driver against the matchmaking
// queue, pairing manager, and connection registry. onMatched, if non-nil, is
// invoked once per successful pairing so the caller can stop the matched
// partner's own driver and perform any follow-up bookkeeping. metrics may
// be nil.
func NewSearchDriverService(
	queue ports.MatchQueue,
	pairing ports.PairingManager,
	registry ports.ConnectionRegistry,
	metrics ports.Metrics,
	iceServers []domain.ICEServer,
	onMatched func(a, b domain.SessionID),
	logger *zap.SugaredLogger,
) *SearchDriverService {
	return &SearchDriverService{
		queue:      queue,
		pairing:    pairing,
		registry:   registry,
		metrics:    metrics,
		onMatched:  onMatched,
		iceServers: iceServers,
		logger:     logger,
		cancels:    make(map[domain.SessionID]context.CancelFunc),
	}
}

var _ ports.SearchDriver = (*SearchDriverService)(nil)

func (d *SearchDriverService) Start(parent context.Context, session *domain.Session, prefs domain.Preferences) {
	ctx, cancel := context.WithCancel(parent)

	d.mu.Lock()
	if existing, ok := d.cancels[session.ID]; ok {
		existing()
	}
	d.cancels[session.ID] = cancel
	count := len(d.cancels)
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.SetSearchesInFlight(count)
	}

	go d.run(ctx, session)
}

func (d *SearchDriverService) Cancel(id domain.SessionID) {
	d.mu.Lock()
	cancel, ok := d.cancels[id]
	delete(d.cancels, id)
	count := len(d.cancels)
	d.mu.Unlock()

	if ok {
		cancel()
		if d.metrics != nil {
			d.metrics.SetSearchesInFlight(count)
		}
	}
}

func (d *SearchDriverService) stopDriver(id domain.SessionID) {
	d.mu.Lock()
	delete(d.cancels, id)
	count := len(d.cancels)
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.SetSearchesInFlight(count)
	}
}

func (d *SearchDriverService) run(ctx context.Context, session *domain.Session) {
	defer d.stopDriver(session.ID)

	startedAt := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Subscribed before FindMatch so a concurrent Enqueue landing
		// between the snapshot read below and the wait can never be missed.
		wake := d.queue.Notify()

		entry, err := d.queue.FindMatch(ctx, session.ID)
		if err != nil {
			d.logger.Debugw("find_match failed, stopping driver", "session", session.ID, "error", err)
			return
		}

		if entry != nil {
			if d.attemptPair(ctx, session, entry, startedAt) {
				return
			}
			// lost the race for this candidate; search again. FindMatch
			// stops the driver once this session is no longer queued.
			continue
		}

		d.emitSearching(ctx, session, startedAt)

		interval := d.adaptiveInterval(ctx, session.ID)
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		case <-wake:
			// a new candidate was just enqueued; retry FindMatch now
			// instead of sleeping out the rest of the adaptive interval.
			timer.Stop()
		}
	}
}

// attemptPair reports whether this driver created the pairing.
func (d *SearchDriverService) attemptPair(ctx context.Context, session *domain.Session, entry *domain.QueueEntry, startedAt time.Time) bool {
	if ctx.Err() != nil {
		return false
	}
	pairing, err := d.pairing.TryPair(ctx, session.ID, entry.SessionID)
	if err != nil {
		// lost the race to a concurrent driver; the other driver's
		// pairing stands.
		return false
	}

	_ = d.queue.Remove(ctx, pairing.SessionA)
	_ = d.queue.Remove(ctx, pairing.SessionB)

	waitMs := time.Since(startedAt).Milliseconds()

	if d.metrics != nil {
		d.metrics.RecordMatch(time.Since(startedAt))
	}

	_ = d.registry.Send(ctx, session.ID, domain.Event{
		Type: domain.EventMatchFound,
		Payload: domain.MatchFoundPayload{
			MatchSessionID: entry.SessionID,
			MatchUserID:    entry.UserID,
			WaitTime:       waitMs,
			ICEServers:     d.iceServers,
		},
	})
	_ = d.registry.Send(ctx, entry.SessionID, domain.Event{
		Type: domain.EventMatchFound,
		Payload: domain.MatchFoundPayload{
			MatchSessionID: session.ID,
			MatchUserID:    session.UserID,
			WaitTime:       waitMs,
			ICEServers:     d.iceServers,
		},
	})

	d.logger.Infow("match found", "session_a", session.ID, "session_b", entry.SessionID, "room_tag", pairing.RoomTag)

	if d.onMatched != nil {
		d.onMatched(session.ID, entry.SessionID)
	}
	return true
}

func (d *SearchDriverService) emitSearching(ctx context.Context, session *domain.Session, startedAt time.Time) {
	_ = d.registry.Send(ctx, session.ID, domain.Event{
		Type: domain.EventSearching,
		Payload: domain.SearchingPayload{
			WaitTime: time.Since(startedAt).Milliseconds(),
		},
	})
}

// adaptiveInterval computes the next poll delay from the current queue
// snapshot and the session's own search-attempt count.
func (d *SearchDriverService) adaptiveInterval(ctx context.Context, id domain.SessionID) time.Duration {
	snapshot := d.queue.Snapshot(ctx)

	switch {
	case snapshot.Total == 1:
		return d.backoff(id)
	case snapshot.Total <= 2:
		return 500 * time.Millisecond
	default:
		return d.byAttempts(id)
	}
}

func (d *SearchDriverService) backoff(id domain.SessionID) time.Duration {
	attempts := d.attemptsFor(id)
	exp := attempts / 5
	delay := time.Duration(1<<uint(exp)) * time.Second
	if delay > 10*time.Second {
		delay = 10 * time.Second
	}
	return delay
}

func (d *SearchDriverService) byAttempts(id domain.SessionID) time.Duration {
	attempts := d.attemptsFor(id)
	switch {
	case attempts < 5:
		return 1 * time.Second
	case attempts < 15:
		return 2 * time.Second
	default:
		return 3 * time.Second
	}
}

func (d *SearchDriverService) attemptsFor(id domain.SessionID) int {
	if qs, ok := d.queue.(interface {
		EntrySearchAttempts(context.Context, domain.SessionID) int
	}); ok {
		return qs.EntrySearchAttempts(context.Background(), id)
	}
	return 0
}
