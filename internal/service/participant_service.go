package service

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/AdamBeresnev/bracket-engine/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ParticipantService struct {
	db    *sqlx.DB
	store *store.TournamentStore
	options
}

func NewParticipantService(db *sqlx.DB, store *store.TournamentStore, opts ...Option) *ParticipantService {
	return &ParticipantService{db: db, store: store, options: buildOptions(opts)}
}

// ImportRoster registers one participant per non-blank line of roster. Line
// order is rank order, continuing after the highest seed already taken.
func (s *ParticipantService) ImportRoster(ctx context.Context, tournamentID uuid.UUID, roster string) ([]bracket.Participant, error) {
	names := utils.NonEmptyLines(roster)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: roster has no participants", bracket.ErrValidation)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournament(ctx, tx, tournamentID)
	if err != nil {
		return nil, lookupError(err, "tournament", tournamentID)
	}
	// Participants are frozen once a bracket exists
	if tournament.Status != bracket.TournamentDraft && tournament.Status != bracket.TournamentRegistration {
		return nil, fmt.Errorf("%w: tournament %s is %s, participants can no longer change", bracket.ErrConflict, tournamentID, tournament.Status)
	}

	count, maxSeed, err := s.store.SeedStats(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count participants: %w", err)
	}
	if tournament.MaxParticipants > 0 && count+len(names) > tournament.MaxParticipants {
		return nil, fmt.Errorf("%w: %d participants would exceed the limit of %d",
			bracket.ErrValidation, count+len(names), tournament.MaxParticipants)
	}

	participants := make([]bracket.Participant, 0, len(names))
	for i, name := range names {
		participants = append(participants, bracket.Participant{
			ID:           uuid.New(),
			TournamentID: tournamentID,
			Seed:         utils.Ptr(maxSeed + i + 1),
			DisplayName:  name,
		})
	}

	if err := s.store.CreateParticipants(ctx, tx, participants); err != nil {
		return nil, fmt.Errorf("failed to create participants: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("roster imported", "tournament_id", tournamentID, "participants", len(participants))
	return participants, nil
}

func (s *ParticipantService) ListParticipants(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Participant, error) {
	if _, err := s.store.GetTournament(ctx, nil, tournamentID); err != nil {
		return nil, lookupError(err, "tournament", tournamentID)
	}
	return s.store.ListRankedParticipants(ctx, nil, tournamentID)
}
