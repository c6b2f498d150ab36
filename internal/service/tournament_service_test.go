package service

import (
	"context"
	"strings"
	"testing"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTournament(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateTournamentInput
		wantErr error
	}{
		{name: "valid", input: CreateTournamentInput{Name: "  Autumn Open ", MaxParticipants: 32}},
		{name: "unlimited", input: CreateTournamentInput{Name: "Open"}},
		{name: "blank name", input: CreateTournamentInput{Name: "   "}, wantErr: bracket.ErrValidation},
		{name: "negative limit", input: CreateTournamentInput{Name: "Open", MaxParticipants: -1}, wantErr: bracket.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			tournament, err := f.tournaments.CreateTournament(context.Background(), tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, bracket.TournamentDraft, tournament.Status)
			assert.Equal(t, strings.TrimSpace(tt.input.Name), tournament.Name)
			assert.Equal(t, tt.input.MaxParticipants, tournament.MaxParticipants)
			assert.False(t, tournament.CreatedAt.IsZero())
		})
	}
}

func TestOpenRegistration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tournament, err := f.tournaments.CreateTournament(ctx, CreateTournamentInput{Name: "Open"})
	require.NoError(t, err)

	opened, err := f.tournaments.OpenRegistration(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.TournamentRegistration, opened.Status)

	_, err = f.tournaments.OpenRegistration(ctx, tournament.ID)
	assert.ErrorIs(t, err, bracket.ErrConflict)

	_, err = f.tournaments.OpenRegistration(ctx, uuid.New())
	assert.ErrorIs(t, err, bracket.ErrNotFound)

	fetched, err := f.tournaments.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.TournamentRegistration, fetched.Status)
}

func TestTournamentLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tournament, participants := f.startTournament(t, 2)

	fetched, err := f.tournaments.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.TournamentActive, fetched.Status)

	// An active tournament cannot go back to registration
	_, err = f.tournaments.OpenRegistration(ctx, tournament.ID)
	assert.ErrorIs(t, err, bracket.ErrConflict)

	final := f.matchNumbered(t, tournament.ID, 1)
	outcome, err := f.matches.ReportResult(ctx, result(final.ID, participants[1].ID, participants[0].ID))
	require.NoError(t, err)
	assert.True(t, outcome.TournamentCompleted)

	fetched, err = f.tournaments.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.TournamentCompleted, fetched.Status)
	require.NotNil(t, fetched.WinnerParticipantID)
	assert.Equal(t, participants[1].ID, *fetched.WinnerParticipantID)

	_, err = f.tournaments.GetTournament(ctx, uuid.New())
	assert.ErrorIs(t, err, bracket.ErrNotFound)
}
