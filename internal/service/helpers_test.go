package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/db/dbtest"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db           *sqlx.DB
	tournamentDB *store.TournamentStore
	bracketDB    *store.BracketStore
	tournaments  *TournamentService
	participants *ParticipantService
	brackets     *BracketService
	matches      *MatchService
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	db := dbtest.New(t)
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)

	tournamentStore := store.NewTournamentStore(db)
	bracketStore := store.NewBracketStore(db)
	tournaments := NewTournamentService(db, tournamentStore, opts...)

	return &fixture{
		db:           db,
		tournamentDB: tournamentStore,
		bracketDB:    bracketStore,
		tournaments:  tournaments,
		participants: NewParticipantService(db, tournamentStore, opts...),
		brackets:     NewBracketService(db, bracketStore, tournaments, opts...),
		matches:      NewMatchService(db, bracketStore, tournaments, opts...),
	}
}

// openTournament creates a tournament in registration with n ranked players
func (f *fixture) openTournament(t *testing.T, n int) (*bracket.Tournament, []bracket.Participant) {
	t.Helper()
	ctx := context.Background()

	tournament, err := f.tournaments.CreateTournament(ctx, CreateTournamentInput{Name: fmt.Sprintf("Cup of %d", n)})
	require.NoError(t, err)

	var participants []bracket.Participant
	if n > 0 {
		lines := make([]string, n)
		for i := range lines {
			lines[i] = fmt.Sprintf("Player %d", i+1)
		}
		participants, err = f.participants.ImportRoster(ctx, tournament.ID, strings.Join(lines, "\n"))
		require.NoError(t, err)
	}

	tournament, err = f.tournaments.OpenRegistration(ctx, tournament.ID)
	require.NoError(t, err)
	return tournament, participants
}

// startTournament opens a tournament with n players and generates its bracket
func (f *fixture) startTournament(t *testing.T, n int) (*bracket.Tournament, []bracket.Participant) {
	t.Helper()

	tournament, participants := f.openTournament(t, n)
	_, err := f.brackets.GenerateBracket(context.Background(), tournament.ID)
	require.NoError(t, err)
	return tournament, participants
}

// matchNumbered reloads the match with the given number
func (f *fixture) matchNumbered(t *testing.T, tournamentID uuid.UUID, number int) *bracket.Match {
	t.Helper()
	ctx := context.Background()

	matches, err := f.bracketDB.ListMatches(ctx, nil, tournamentID)
	require.NoError(t, err)
	for _, m := range matches {
		if m.MatchNumber == number {
			match, err := f.bracketDB.GetMatch(ctx, nil, m.ID)
			require.NoError(t, err)
			return match
		}
	}
	t.Fatalf("no match numbered %d", number)
	return nil
}

func result(matchID, winner, loser uuid.UUID) ReportInput {
	return ReportInput{
		MatchID:             matchID,
		WinnerParticipantID: winner,
		Scores: []ScoreInput{
			{ParticipantID: winner, Score: 2},
			{ParticipantID: loser, Score: 1},
		},
	}
}

// opponents returns the occupants of a two player match in position order
func opponents(t *testing.T, match *bracket.Match) (uuid.UUID, uuid.UUID) {
	t.Helper()
	require.Len(t, match.Participants, 2, "match %d is not ready", match.MatchNumber)
	return match.Participants[0].ParticipantID, match.Participants[1].ParticipantID
}

type memCache struct {
	mu       sync.Mutex
	stages   map[uuid.UUID][]bracket.Stage
	versions map[uuid.UUID]int64
	hits     int
	deletes  int

	// afterVersion runs once BracketVersion has been read, outside the lock.
	afterVersion func()
}

func newMemCache() *memCache {
	return &memCache{
		stages:   make(map[uuid.UUID][]bracket.Stage),
		versions: make(map[uuid.UUID]int64),
	}
}

func (c *memCache) GetBracket(_ context.Context, id uuid.UUID) ([]bracket.Stage, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stages, ok := c.stages[id]
	if ok {
		c.hits++
	}
	return stages, ok, nil
}

func (c *memCache) BracketVersion(_ context.Context, id uuid.UUID) (int64, error) {
	c.mu.Lock()
	version, hook := c.versions[id], c.afterVersion
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
	return version, nil
}

func (c *memCache) SetBracket(_ context.Context, id uuid.UUID, version int64, stages []bracket.Stage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[id] == version {
		c.stages[id] = stages
	}
	return nil
}

func (c *memCache) cached(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.stages[id]
	return ok
}

func (c *memCache) InvalidateBracket(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.stages, id)
	c.versions[id]++
	c.deletes++
	return nil
}
