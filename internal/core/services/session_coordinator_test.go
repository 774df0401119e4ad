package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"pairwave/internal/core/domain"
	"pairwave/internal/core/ports"
	"pairwave/internal/infrastructure/collaborators"
	"pairwave/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeConn is a domain.Sender that records every event it receives, in
// place of a real WebSocket connection, so a test can assert on exactly
// what the core delivered to a given session.
type fakeConn struct {
	mu     sync.Mutex
	events []domain.Event
}

func (f *fakeConn) Send(event domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeConn) Close() error { return nil }

func (f *fakeConn) of(t domain.EventType) []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Event
	for _, e := range f.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// staticBlockStore maps a blocked user to the set of users who have
// blocked them, i.e. BlockedBy("v") returns every user that has blocked v.
type staticBlockStore map[domain.UserID]map[domain.UserID]struct{}

func (s staticBlockStore) BlockedBy(ctx context.Context, user domain.UserID) (map[domain.UserID]struct{}, error) {
	return s[user], nil
}

// stack wires the full in-memory core the way cmd/gateway/main.go does,
// swapping the real collaborators for test doubles where the real ones
// need external infrastructure (JWT secret, Redis).
type stack struct {
	registry    *memory.SessionRegistry
	queueRepo   *memory.QueueRepository
	pairingRepo *memory.PairingRepository
	queue       *QueueService
	pairing     *PairingService
	search      *SearchDriverService
	coordinator *SessionCoordinator
}

func newStack(t *testing.T, blocks ports.BlockStore, bannedTerms []string) *stack {
	t.Helper()

	logger := zap.NewNop().Sugar()
	registry := memory.NewSessionRegistry()
	queueRepo := memory.NewQueueRepository()
	pairingRepo := memory.NewPairingRepository()

	queue := NewQueueService(queueRepo, DefaultTuning(), logger)
	pairing := NewPairingService(pairingRepo, logger)
	moderator := collaborators.NewKeywordModerator(bannedTerms, "")
	relay := NewRelayService(pairing, registry, moderator, nil, logger)

	if blocks == nil {
		blocks = collaborators.NoopBlockStore{}
	}

	var search *SearchDriverService
	search = NewSearchDriverService(queue, pairing, registry, nil, nil, func(a, b domain.SessionID) {
		search.Cancel(b)
	}, logger)

	coordinator := NewSessionCoordinator(registry, queue, pairing, search, relay, nil, blocks, 50*time.Millisecond, logger)

	return &stack{
		registry:    registry,
		queueRepo:   queueRepo,
		pairingRepo: pairingRepo,
		queue:       queue,
		pairing:     pairing,
		search:      search,
		coordinator: coordinator,
	}
}

// join registers a session directly, bypassing HandleConnect (and thus the
// IdentityStore) since these tests drive matchmaking starting from an
// already-authenticated session.
func (s *stack) join(id domain.SessionID, user domain.UserID) (*domain.Session, *fakeConn) {
	conn := &fakeConn{}
	session := &domain.Session{ID: id, UserID: user, Tier: domain.TierFree, Conn: conn, ConnectedAt: time.Now()}
	_ = s.registry.Register(context.Background(), session)
	return session, conn
}

// accountedFor reports whether a session is currently either queued or
// paired — used to confirm a requeue landed without caring which candidate
// the scheduler's weighted-random pick happened to favor.
func (s *stack) accountedFor(id domain.SessionID) bool {
	ctx := context.Background()
	if s.pairing.IsPaired(ctx, id) {
		return true
	}
	_, queued := s.queueRepo.Get(ctx, id)
	return queued
}

func (s *stack) findMatch(t *testing.T, id domain.SessionID, user domain.UserID) {
	t.Helper()
	err := s.coordinator.HandleEvent(context.Background(), id, domain.Event{
		Type:    domain.EventFindMatch,
		Payload: domain.FindMatchPayload{UserID: user},
	})
	require.NoError(t, err)
}

func TestSessionCoordinator_TwoPeerHappyPath(t *testing.T) {
	s := newStack(t, nil, nil)

	_, connA := s.join("s1", "u1")
	_, connB := s.join("s2", "u2")

	s.findMatch(t, "s1", "u1")
	s.findMatch(t, "s2", "u2")

	require.Eventually(t, func() bool {
		return len(connA.of(domain.EventMatchFound)) == 1 && len(connB.of(domain.EventMatchFound)) == 1
	}, time.Second, 5*time.Millisecond)

	partner, ok := s.pairing.PartnerOf(context.Background(), "s1")
	assert.True(t, ok)
	assert.Equal(t, domain.SessionID("s2"), partner)

	snap := s.queue.Snapshot(context.Background())
	assert.Equal(t, 0, snap.Total)
}

func TestSessionCoordinator_BlockFilterKeepsBothSearching(t *testing.T) {
	// u1 has blocked u2: BlockedBy("u2") reports u1 among u2's blockers.
	blocks := staticBlockStore{
		"u2": {"u1": {}},
	}
	s := newStack(t, blocks, nil)

	_, connA := s.join("s1", "u1")
	_, connB := s.join("s2", "u2")

	s.findMatch(t, "s2", "u2")
	s.findMatch(t, "s1", "u1")

	time.Sleep(150 * time.Millisecond)

	assert.Empty(t, connA.of(domain.EventMatchFound))
	assert.Empty(t, connB.of(domain.EventMatchFound))

	snap := s.queue.Snapshot(context.Background())
	assert.Equal(t, 2, snap.Total)
}

func TestSessionCoordinator_SkipWithAutoRequeueReentersQueue(t *testing.T) {
	s := newStack(t, nil, nil)

	_, connA := s.join("s1", "u1")
	_, connB := s.join("s2", "u2")
	s.join("s3", "u3")

	_, err := s.pairing.TryPair(context.Background(), "s1", "s2")
	require.NoError(t, err)
	s.findMatch(t, "s3", "u3")

	err = s.coordinator.HandleEvent(context.Background(), "s1", domain.Event{
		Type:    domain.EventSkip,
		Payload: domain.SkipPayload{AutoRequeue: true},
	})
	require.NoError(t, err)

	ended := connB.of(domain.EventMatchEnded)
	require.Len(t, ended, 1)
	payload := ended[0].Payload.(domain.MatchEndedPayload)
	assert.True(t, payload.Disconnected)
	assert.True(t, payload.AutoRequeue)

	require.Len(t, connA.of(domain.EventSkipSuccess), 1)
	_, paired := s.pairing.PartnerOf(context.Background(), "s1")
	assert.False(t, paired)

	// Within requeueDelay both S and its skipped-on partner re-enter the
	// queue (and, since S3 is the only other one waiting, are likely to
	// match it almost immediately — which scheduler candidate actually
	// wins that weighted pick is not specified, so only the documented
	// "accounted for" guarantee is asserted here).
	require.Eventually(t, func() bool {
		return s.accountedFor("s1") && s.accountedFor("s2")
	}, time.Second, 10*time.Millisecond)

	// S3 was the only session waiting when S1/S2 re-entered; it must not
	// be left behind once the pool settles.
	require.Eventually(t, func() bool {
		return s.accountedFor("s3")
	}, time.Second, 10*time.Millisecond)
}

// TestSessionCoordinator_DoubleMatchRaceLeavesExactlyOnePairing drives the
// race directly: two drivers both reach attemptPair for the same queued
// candidate in the same tick, exactly as search_driver.go's run() loop
// would if FindMatch returned the same entry to both. TryPair's own
// serialization is what resolves it, not timing.
func TestSessionCoordinator_DoubleMatchRaceLeavesExactlyOnePairing(t *testing.T) {
	s := newStack(t, nil, nil)

	session1, conn1 := s.join("s1", "u1")
	session2, conn2 := s.join("s2", "u2")

	require.NoError(t, s.queue.Enqueue(context.Background(), &domain.Session{ID: "s3", UserID: "u3", Tier: domain.TierFree}, domain.Preferences{}, nil))
	entry3 := &domain.QueueEntry{SessionID: "s3", UserID: "u3", Tier: domain.TierFree}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.search.attemptPair(context.Background(), session1, entry3, time.Now())
	}()
	go func() {
		defer wg.Done()
		s.search.attemptPair(context.Background(), session2, entry3, time.Now())
	}()
	wg.Wait()

	partner, ok := s.pairing.PartnerOf(context.Background(), "s3")
	require.True(t, ok, "s3 must end up paired with exactly one racer")
	assert.Contains(t, []domain.SessionID{"s1", "s2"}, partner)

	loser, winnerConn := domain.SessionID("s2"), conn1
	if partner == "s2" {
		loser, winnerConn = "s1", conn2
	}

	_, loserPaired := s.pairing.PartnerOf(context.Background(), loser)
	assert.False(t, loserPaired, "the losing racer must not also be paired")
	assert.Len(t, winnerConn.of(domain.EventMatchFound), 1)
}

func TestSessionCoordinator_ModeratorVetoOnlyNotifiesSender(t *testing.T) {
	s := newStack(t, nil, []string{"bannedword"})

	_, connA := s.join("s1", "u1")
	_, connB := s.join("s2", "u2")

	_, err := s.pairing.TryPair(context.Background(), "s1", "s2")
	require.NoError(t, err)

	err = s.coordinator.HandleEvent(context.Background(), "s1", domain.Event{
		Type:    domain.EventSendMessage,
		Payload: domain.SendMessagePayload{Message: "this has a bannedword in it"},
	})
	require.NoError(t, err)

	blocked := connA.of(domain.EventMessageBlocked)
	require.Len(t, blocked, 1)
	assert.NotEmpty(t, blocked[0].Payload.(domain.MessageBlockedPayload).Reason)
	assert.Empty(t, connB.of(domain.EventReceiveMessage))
	assert.Empty(t, connA.of(domain.EventReceiveMessage))
}

func TestSessionCoordinator_DisconnectMidPairEndsMatchForPartner(t *testing.T) {
	s := newStack(t, nil, nil)

	s.join("s1", "u1")
	_, connB := s.join("s2", "u2")

	_, err := s.pairing.TryPair(context.Background(), "s1", "s2")
	require.NoError(t, err)

	require.NoError(t, s.coordinator.HandleDisconnect(context.Background(), "s1"))

	ended := connB.of(domain.EventMatchEnded)
	require.Len(t, ended, 1)
	payload := ended[0].Payload.(domain.MatchEndedPayload)
	assert.True(t, payload.Disconnected)
	assert.Equal(t, "disconnected", payload.Reason)

	_, paired := s.pairing.PartnerOf(context.Background(), "s2")
	assert.False(t, paired)

	snap := s.queue.Snapshot(context.Background())
	assert.Equal(t, 0, snap.Total)

	err = s.coordinator.HandleEvent(context.Background(), "s1", domain.Event{Type: domain.EventCancelMatch})
	assert.Error(t, err)
}
