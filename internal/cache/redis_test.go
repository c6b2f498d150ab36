package cache

import (
	"context"
	"testing"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), "redis://"+server.Addr(), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, server
}

func TestRedisCache_RoundTrip(t *testing.T) {
	c, server := newTestCache(t)
	ctx := context.Background()
	tournamentID := uuid.New()

	_, ok, err := c.GetBracket(ctx, tournamentID)
	require.NoError(t, err)
	assert.False(t, ok)

	stage := bracket.Stage{ID: uuid.New(), TournamentID: tournamentID, Order: 1}
	stage.Rounds = []bracket.Round{{ID: uuid.New(), StageID: stage.ID, Number: 1, Name: "Final"}}
	version, err := c.BracketVersion(ctx, tournamentID)
	require.NoError(t, err)
	require.NoError(t, c.SetBracket(ctx, tournamentID, version, []bracket.Stage{stage}))

	got, ok, err := c.GetBracket(ctx, tournamentID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, stage.ID, got[0].ID)
	require.Len(t, got[0].Rounds, 1)
	assert.Equal(t, "Final", got[0].Rounds[0].Name)

	assert.Equal(t, time.Minute, server.TTL(keyPrefix+tournamentID.String()))

	require.NoError(t, c.InvalidateBracket(ctx, tournamentID))
	_, ok, err = c.GetBracket(ctx, tournamentID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_Expires(t *testing.T) {
	c, server := newTestCache(t)
	ctx := context.Background()
	tournamentID := uuid.New()

	require.NoError(t, c.SetBracket(ctx, tournamentID, 0, []bracket.Stage{}))
	server.FastForward(2 * time.Minute)

	_, ok, err := c.GetBracket(ctx, tournamentID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_SkipsSetAfterInvalidation(t *testing.T) {
	c, server := newTestCache(t)
	ctx := context.Background()
	tournamentID := uuid.New()

	version, err := c.BracketVersion(ctx, tournamentID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)

	// A write lands between the read and the store
	require.NoError(t, c.InvalidateBracket(ctx, tournamentID))
	require.NoError(t, c.SetBracket(ctx, tournamentID, version, []bracket.Stage{{ID: uuid.New()}}))

	_, ok, err := c.GetBracket(ctx, tournamentID)
	require.NoError(t, err)
	assert.False(t, ok, "stale bracket must not be stored")
	assert.Equal(t, generationTTL, server.TTL(generationKey(tournamentID)))

	version, err = c.BracketVersion(ctx, tournamentID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	require.NoError(t, c.SetBracket(ctx, tournamentID, version, []bracket.Stage{{ID: uuid.New()}}))

	_, ok, err = c.GetBracket(ctx, tournamentID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "not a url", time.Minute)
	assert.Error(t, err)
}
