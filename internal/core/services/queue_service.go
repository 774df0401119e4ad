package services

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"pairwave/internal/core/domain"
	"pairwave/internal/core/ports"
	"pairwave/pkg/tracing"

	"go.uber.org/zap"
)

// Tuning holds the scoring and phase thresholds the matchmaking queue is
// configured with; it mirrors the matchmaking section of pkg/config.
type Tuning struct {
	CrossTierWaitMs     int64
	MaxStarvationOffset float64
	WaitFairnessCap     float64
}

// DefaultTuning matches the values previously hardcoded as package
// constants, used by tests and any caller that does not load config.
func DefaultTuning() Tuning {
	return Tuning{CrossTierWaitMs: 10_000, MaxStarvationOffset: 20, WaitFairnessCap: 50}
}

// QueueService is the service-level matchmaking queue: compatibility
// filtering, scoring, and the three-phase selection strategy described for
// the Matchmaking Queue component. Queue membership itself is delegated to
// a QueueRepository.
type QueueService struct {
	repo   ports.QueueRepository
	tuning Tuning
	logger *zap.SugaredLogger
	rand   *rand.Rand

	wakeMu sync.Mutex
	wakeCh chan struct{}
}

// NewQueueService creates a matchmaking queue bound to the given repository
// and tuning parameters.
func NewQueueService(repo ports.QueueRepository, tuning Tuning, logger *zap.SugaredLogger) *QueueService {
	return &QueueService{
		repo:   repo,
		tuning: tuning,
		logger: logger,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		wakeCh: make(chan struct{}),
	}
}

var _ ports.MatchQueue = (*QueueService)(nil)

func (q *QueueService) Enqueue(ctx context.Context, session *domain.Session, prefs domain.Preferences, blocked map[domain.UserID]struct{}) error {
	ctx, span := tracing.TraceMatchmaking(ctx, "enqueue", string(session.ID))
	defer span.End()

	if blocked == nil {
		blocked = make(map[domain.UserID]struct{})
	}

	entry := &domain.QueueEntry{
		SessionID:      session.ID,
		UserID:         session.UserID,
		Tier:           session.Tier,
		Preferences:    prefs,
		BlockedUserIDs: blocked,
		EnqueuedAt:     time.Now(),
	}
	if err := q.repo.Enqueue(ctx, entry); err != nil {
		return err
	}
	q.broadcastWake()
	return nil
}

func (q *QueueService) Remove(ctx context.Context, id domain.SessionID) error {
	return q.repo.Remove(ctx, id)
}

func (q *QueueService) Snapshot(ctx context.Context) domain.Snapshot {
	return q.repo.Snapshot(ctx)
}

// Notify returns the channel currently in use for wake broadcasts. It is
// closed (and replaced) the next time Enqueue succeeds, so callers must
// re-call Notify after each wake to keep watching for the next one.
func (q *QueueService) Notify() <-chan struct{} {
	q.wakeMu.Lock()
	defer q.wakeMu.Unlock()
	return q.wakeCh
}

// broadcastWake closes the current wake channel, waking every SearchDriver
// blocked in Notify's channel, and installs a fresh one for the next wait.
func (q *QueueService) broadcastWake() {
	q.wakeMu.Lock()
	defer q.wakeMu.Unlock()
	close(q.wakeCh)
	q.wakeCh = make(chan struct{})
}

// EntrySearchAttempts exposes a queued entry's search-attempt count, used
// by the search driver to compute its adaptive polling interval.
func (q *QueueService) EntrySearchAttempts(ctx context.Context, id domain.SessionID) int {
	entry, ok := q.repo.Get(ctx, id)
	if !ok {
		return 0
	}
	return entry.SearchAttempts
}

// candidate pairs a queued entry with its computed score.
type candidate struct {
	entry *domain.QueueEntry
	score float64
}

// FindMatch implements the phased selection strategy: same-tier, then
// cross-tier once Phase 1 is empty or the caller has waited long enough,
// then fully relaxed ignoring region/gender. It never mutates queue
// membership; promotion to a pairing is the caller's job via PairingManager.
func (q *QueueService) FindMatch(ctx context.Context, id domain.SessionID) (*domain.QueueEntry, error) {
	ctx, span := tracing.TraceMatchmaking(ctx, "find_match", string(id))
	defer span.End()

	caller, ok := q.repo.Get(ctx, id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if attempts, ok := q.repo.IncrementSearchAttempts(ctx, id); ok {
		caller.SearchAttempts = attempts
	}

	candidates := q.phase1(ctx, caller)
	if len(candidates) == 0 || caller.WaitMs() > q.tuning.CrossTierWaitMs {
		if cross := q.phase2(ctx, caller); len(cross) > 0 {
			candidates = append(candidates, cross...)
		}
	}
	if len(candidates) == 0 {
		candidates = q.phase3(ctx, caller)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	chosen := q.weightedPick(candidates)
	return chosen, nil
}

func (q *QueueService) phase1(ctx context.Context, caller *domain.QueueEntry) []candidate {
	var out []candidate
	for _, c := range q.repo.Tier(ctx, caller.Tier) {
		if !q.compatible(caller, c) {
			continue
		}
		out = append(out, candidate{entry: c, score: q.score(caller, c, true)})
	}
	return out
}

func (q *QueueService) phase2(ctx context.Context, caller *domain.QueueEntry) []candidate {
	var out []candidate
	for _, c := range q.repo.All(ctx) {
		if c.Tier == caller.Tier {
			continue
		}
		if !q.compatible(caller, c) {
			continue
		}
		out = append(out, candidate{entry: c, score: q.score(caller, c, false)})
	}
	return out
}

// phase3 keeps only the mutual-block check, ignoring region/gender filters.
func (q *QueueService) phase3(ctx context.Context, caller *domain.QueueEntry) []candidate {
	var out []candidate
	for _, c := range q.repo.All(ctx) {
		if c.SessionID == caller.SessionID {
			continue
		}
		if c.IsBlockedBy(caller.UserID) || caller.IsBlockedBy(c.UserID) {
			continue
		}
		out = append(out, candidate{entry: c, score: q.score(caller, c, c.Tier == caller.Tier)})
	}
	return out
}

// compatible implements the caller-asymmetric compatibility rule: only the
// caller's preferences gate the candidate.
func (q *QueueService) compatible(caller, c *domain.QueueEntry) bool {
	if c.SessionID == caller.SessionID {
		return false
	}
	if c.IsBlockedBy(caller.UserID) || caller.IsBlockedBy(c.UserID) {
		return false
	}
	if !caller.Preferences.WantsAnyRegion() && c.Preferences.Region != caller.Preferences.Region {
		return false
	}
	if !caller.Preferences.WantsAnyGender() && c.Preferences.Gender != caller.Preferences.Gender {
		return false
	}
	return true
}

func (q *QueueService) score(caller, c *domain.QueueEntry, tierMatch bool) float64 {
	base := 50.0
	if tierMatch {
		base = 100.0
	}

	fairness := float64(caller.WaitMs()) / 600.0
	if fairness > q.tuning.WaitFairnessCap {
		fairness = q.tuning.WaitFairnessCap
	}

	starvationOffset := float64(c.SearchAttempts) * 2
	if starvationOffset > q.tuning.MaxStarvationOffset {
		starvationOffset = q.tuning.MaxStarvationOffset
	}

	jitter := q.rand.Float64() * 10.0

	return base + fairness - starvationOffset + jitter
}

// weightedPick takes the top-5 candidates by score and performs a weighted
// random selection, weight = score.
func (q *QueueService) weightedPick(candidates []candidate) *domain.QueueEntry {
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > 5 {
		candidates = candidates[:5]
	}

	total := 0.0
	for _, c := range candidates {
		if c.score > 0 {
			total += c.score
		}
	}
	if total <= 0 {
		return candidates[0].entry
	}

	pick := q.rand.Float64() * total
	running := 0.0
	for _, c := range candidates {
		w := c.score
		if w < 0 {
			w = 0
		}
		running += w
		if pick <= running {
			return c.entry
		}
	}
	return candidates[len(candidates)-1].entry
}
