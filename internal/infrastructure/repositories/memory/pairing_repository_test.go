package memory

import (
	"context"
	"sync"
	"testing"

	"pairwave/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairingRepository_TryPair(t *testing.T) {
	repo := NewPairingRepository()
	ctx := context.Background()

	pairing, err := repo.TryPair(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionID("a"), pairing.SessionA)
	assert.Equal(t, domain.SessionID("b"), pairing.SessionB)
	assert.NotEmpty(t, pairing.RoomTag)

	assert.True(t, repo.IsPaired(ctx, "a"))
	assert.True(t, repo.IsPaired(ctx, "b"))
	assert.Equal(t, 1, repo.Count())
}

func TestPairingRepository_TryPair_RejectsDoublePairing(t *testing.T) {
	repo := NewPairingRepository()
	ctx := context.Background()

	_, err := repo.TryPair(ctx, "a", "b")
	require.NoError(t, err)

	_, err = repo.TryPair(ctx, "a", "c")
	assert.ErrorIs(t, err, domain.ErrAlreadyPaired)

	_, err = repo.TryPair(ctx, "c", "b")
	assert.ErrorIs(t, err, domain.ErrAlreadyPaired)
}

func TestPairingRepository_Unpair(t *testing.T) {
	repo := NewPairingRepository()
	ctx := context.Background()

	_, err := repo.TryPair(ctx, "a", "b")
	require.NoError(t, err)

	partner, ok := repo.Unpair(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, domain.SessionID("b"), partner)

	assert.False(t, repo.IsPaired(ctx, "a"))
	assert.False(t, repo.IsPaired(ctx, "b"))
	assert.Equal(t, 0, repo.Count())

	_, ok = repo.Unpair(ctx, "a")
	assert.False(t, ok)
}

func TestPairingRepository_PartnerOf(t *testing.T) {
	repo := NewPairingRepository()
	ctx := context.Background()

	_, err := repo.TryPair(ctx, "a", "b")
	require.NoError(t, err)

	partner, ok := repo.PartnerOf(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, domain.SessionID("a"), partner)

	_, ok = repo.PartnerOf(ctx, "z")
	assert.False(t, ok)
}

// TestPairingRepository_ConcurrentTryPair exercises the single-mutex
// serialization guarantee: of many goroutines racing to pair the same two
// sessions with each other, exactly one TryPair can ever succeed.
func TestPairingRepository_ConcurrentTryPair(t *testing.T) {
	repo := NewPairingRepository()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	successes := make([]bool, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.TryPair(ctx, "shared-a", domain.SessionID("candidate"))
			successes[i] = err == nil
		}(i)
	}
	wg.Wait()

	successCount := 0
	for _, ok := range successes {
		if ok {
			successCount++
		}
	}
	assert.Equal(t, 1, successCount, "exactly one TryPair should succeed for the same session pair")
}
