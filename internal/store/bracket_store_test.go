package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/db/dbtest"
	"github.com/AdamBeresnev/bracket-engine/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// persistPlan stores a freshly planned bracket for n seeded participants
func persistPlan(t *testing.T, db *sqlx.DB, n int) (*bracket.Tournament, []bracket.Participant, *bracket.Plan) {
	t.Helper()
	ctx := context.Background()

	tournament := createTournament(t, db, bracket.TournamentActive)
	participants := make([]bracket.Participant, n)
	for i := range participants {
		participants[i] = bracket.Participant{
			ID:           uuid.New(),
			TournamentID: tournament.ID,
			DisplayName:  fmt.Sprintf("Player %d", i+1),
			Seed:         utils.Ptr(i + 1),
		}
	}
	require.NoError(t, NewTournamentStore(db).CreateParticipants(ctx, nil, participants))

	plan, err := bracket.PlanSingleElimination(tournament.ID, participants)
	require.NoError(t, err)

	store := NewBracketStore(db)
	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateStage(ctx, tx, &plan.Stage))
	require.NoError(t, store.CreateRounds(ctx, tx, plan.Rounds))
	require.NoError(t, store.CreateMatches(ctx, tx, plan.Matches))
	require.NoError(t, store.CreateMatchParticipants(ctx, tx, plan.Slots))
	require.NoError(t, tx.Commit())

	return tournament, participants, plan
}

func matchByNumber(t *testing.T, plan *bracket.Plan, number int) bracket.Match {
	t.Helper()
	for _, m := range plan.Matches {
		if m.MatchNumber == number {
			return m
		}
	}
	t.Fatalf("no match numbered %d", number)
	return bracket.Match{}
}

func TestCreateBracket(t *testing.T) {
	db := dbtest.New(t)
	store := NewBracketStore(db)
	ctx := context.Background()

	tournament, _, plan := persistPlan(t, db, 8)

	exists, err := store.StageExists(ctx, nil, tournament.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	stages, err := store.ListStages(ctx, nil, tournament.ID)
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, plan.Stage.ID, stages[0].ID)
	assert.Equal(t, 1, stages[0].Order)

	rounds, err := store.ListRounds(ctx, nil, tournament.ID)
	require.NoError(t, err)
	require.Len(t, rounds, 3)
	assert.Equal(t, "Round 1", rounds[0].Name)
	assert.Equal(t, "Semifinal", rounds[1].Name)
	assert.Equal(t, "Final", rounds[2].Name)

	matches, err := store.ListMatches(ctx, nil, tournament.ID)
	require.NoError(t, err)
	require.Len(t, matches, 7)
	for i, m := range matches {
		assert.Equal(t, tournament.ID, m.TournamentID)
		assert.Equal(t, bracket.MatchPending, m.Status)
		if i > 0 {
			prev := matches[i-1]
			ordered := prev.RoundNumber < m.RoundNumber ||
				(prev.RoundNumber == m.RoundNumber && prev.MatchNumber < m.MatchNumber)
			assert.True(t, ordered, "matches must be ordered by round then match number")
		}
	}
	final := matches[len(matches)-1]
	assert.True(t, final.IsFinal())
	assert.Equal(t, 3, final.RoundNumber)

	slots, err := store.ListMatchParticipants(ctx, nil, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, slots, 8)

	// Nothing leaks into other tournaments
	exists, err = store.StageExists(ctx, nil, uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateStage_Duplicate(t *testing.T) {
	db := dbtest.New(t)
	store := NewBracketStore(db)

	tournament, _, _ := persistPlan(t, db, 4)

	err := store.CreateStage(context.Background(), nil, &bracket.Stage{
		ID:           uuid.New(),
		TournamentID: tournament.ID,
		Order:        1,
	})
	assert.Error(t, err)
}

func TestGetMatch(t *testing.T) {
	db := dbtest.New(t)
	store := NewBracketStore(db)
	ctx := context.Background()

	tournament, participants, plan := persistPlan(t, db, 4)

	// With four players the final is 1 and its feeders 2 and 3
	planned := matchByNumber(t, plan, 2)
	match, err := store.GetMatch(ctx, nil, planned.ID)
	require.NoError(t, err)

	assert.Equal(t, tournament.ID, match.TournamentID)
	assert.Equal(t, 1, match.RoundNumber)
	assert.Equal(t, 2, match.MatchNumber)
	require.NotNil(t, match.NextMatchID)
	assert.Equal(t, *planned.NextMatchID, *match.NextMatchID)

	// Seeds 1 and 4 meet in the first match
	require.Len(t, match.Participants, 2)
	assert.Equal(t, participants[0].ID, match.Participants[0].ParticipantID)
	assert.Equal(t, 0, match.Participants[0].Position)
	assert.Equal(t, participants[3].ID, match.Participants[1].ParticipantID)
	assert.Equal(t, 1, match.Participants[1].Position)
	assert.Nil(t, match.Participants[0].Score)

	_, err = store.GetMatch(ctx, nil, uuid.New())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCompleteMatch(t *testing.T) {
	db := dbtest.New(t)
	store := NewBracketStore(db)
	ctx := context.Background()

	_, participants, plan := persistPlan(t, db, 4)
	planned := matchByNumber(t, plan, 2)
	winner := participants[0].ID

	require.NoError(t, store.RecordScore(ctx, nil, planned.ID, winner, utils.Ptr(3), true))
	require.NoError(t, store.RecordScore(ctx, nil, planned.ID, participants[3].ID, utils.Ptr(1), false))
	require.NoError(t, store.CompleteMatch(ctx, nil, planned.ID, winner))

	// Second completion loses the compare-and-set
	assert.ErrorIs(t, store.CompleteMatch(ctx, nil, planned.ID, winner), ErrNoRowsAffected)

	match, err := store.GetMatch(ctx, nil, planned.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.MatchCompleted, match.Status)
	require.NotNil(t, match.WinnerParticipantID)
	assert.Equal(t, winner, *match.WinnerParticipantID)

	slot, ok := match.Participant(winner)
	require.True(t, ok)
	assert.True(t, slot.IsWinner)
	assert.Equal(t, 3, *slot.Score)

	// Participants outside the match have no slot to score
	assert.ErrorIs(t, store.RecordScore(ctx, nil, planned.ID, participants[1].ID, utils.Ptr(0), false), ErrNoRowsAffected)
}

func TestStartMatch(t *testing.T) {
	db := dbtest.New(t)
	store := NewBracketStore(db)
	ctx := context.Background()

	_, _, plan := persistPlan(t, db, 4)
	planned := matchByNumber(t, plan, 3)

	require.NoError(t, store.StartMatch(ctx, nil, planned.ID))
	assert.ErrorIs(t, store.StartMatch(ctx, nil, planned.ID), ErrNoRowsAffected)

	match, err := store.GetMatch(ctx, nil, planned.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.MatchInProgress, match.Status)

	// Only completed matches can have their winner replaced
	assert.ErrorIs(t, store.ReplaceMatchWinner(ctx, nil, planned.ID, match.Participants[0].ParticipantID), ErrNoRowsAffected)
}

func TestPlaceParticipant_Overwrites(t *testing.T) {
	db := dbtest.New(t)
	store := NewBracketStore(db)
	ctx := context.Background()

	_, participants, plan := persistPlan(t, db, 4)
	final := matchByNumber(t, plan, 1)

	require.NoError(t, store.PlaceParticipant(ctx, nil, bracket.MatchParticipant{
		MatchID: final.ID, ParticipantID: participants[0].ID, Position: 0,
	}))
	require.NoError(t, store.RecordScore(ctx, nil, final.ID, participants[0].ID, utils.Ptr(2), true))

	require.NoError(t, store.PlaceParticipant(ctx, nil, bracket.MatchParticipant{
		MatchID: final.ID, ParticipantID: participants[3].ID, Position: 0,
	}))

	match, err := store.GetMatch(ctx, nil, final.ID)
	require.NoError(t, err)
	require.Len(t, match.Participants, 1)
	assert.Equal(t, participants[3].ID, match.Participants[0].ParticipantID)
	assert.Nil(t, match.Participants[0].Score)
	assert.False(t, match.Participants[0].IsWinner)
}

func TestListByeMatches(t *testing.T) {
	db := dbtest.New(t)
	store := NewBracketStore(db)
	ctx := context.Background()

	tournament, participants, _ := persistPlan(t, db, 5)

	byes, err := store.ListByeMatches(ctx, nil, tournament.ID)
	require.NoError(t, err)
	require.Len(t, byes, 3)

	// Seeds 1, 2 and 3 draw byes; 4 and 5 play
	var alone []uuid.UUID
	for _, m := range byes {
		require.Len(t, m.Participants, 1)
		assert.Equal(t, 1, m.RoundNumber)
		alone = append(alone, m.Participants[0].ParticipantID)
	}
	assert.ElementsMatch(t, []uuid.UUID{participants[0].ID, participants[1].ID, participants[2].ID}, alone)
}
