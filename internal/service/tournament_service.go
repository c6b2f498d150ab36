package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// allowedTransitions maps each status to the statuses it may be entered from.
// completed is terminal.
var allowedTransitions = map[bracket.TournamentStatus][]bracket.TournamentStatus{
	bracket.TournamentRegistration: {bracket.TournamentDraft},
	bracket.TournamentActive:       {bracket.TournamentDraft, bracket.TournamentRegistration},
	bracket.TournamentCompleted:    {bracket.TournamentActive},
}

type TournamentService struct {
	db    *sqlx.DB
	store *store.TournamentStore
	options
}

func NewTournamentService(db *sqlx.DB, store *store.TournamentStore, opts ...Option) *TournamentService {
	return &TournamentService{db: db, store: store, options: buildOptions(opts)}
}

type CreateTournamentInput struct {
	Name            string `json:"name"`
	MaxParticipants int    `json:"max_participants"`
}

func (s *TournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*bracket.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: tournament name is required", bracket.ErrValidation)
	}
	if input.MaxParticipants < 0 {
		return nil, fmt.Errorf("%w: max participants cannot be negative", bracket.ErrValidation)
	}

	tournament := &bracket.Tournament{
		ID:              uuid.New(),
		Name:            name,
		Status:          bracket.TournamentDraft,
		MaxParticipants: input.MaxParticipants,
	}
	if err := s.store.CreateTournament(ctx, nil, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.logger.Info("tournament created", "tournament_id", tournament.ID, "name", name)
	return s.store.GetTournament(ctx, nil, tournament.ID)
}

func (s *TournamentService) GetTournament(ctx context.Context, id uuid.UUID) (*bracket.Tournament, error) {
	tournament, err := s.store.GetTournament(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "tournament", id)
	}
	return tournament, nil
}

// OpenRegistration moves a draft tournament into registration.
func (s *TournamentService) OpenRegistration(ctx context.Context, id uuid.UUID) (*bracket.Tournament, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournament(ctx, tx, id)
	if err != nil {
		return nil, lookupError(err, "tournament", id)
	}

	if err := s.transition(ctx, tx, tournament, bracket.TournamentRegistration); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("registration opened", "tournament_id", id)
	return tournament, nil
}

// transition applies a guarded status change inside the caller's transaction
// and updates tournament on success.
func (s *TournamentService) transition(ctx context.Context, q sqlx.ExtContext, tournament *bracket.Tournament, to bracket.TournamentStatus) error {
	from, ok := allowedTransitions[to]
	if !ok {
		return fmt.Errorf("%w: no transition leads to %s", bracket.ErrConflict, to)
	}
	if !slices.Contains(from, tournament.Status) {
		return fmt.Errorf("%w: tournament %s is %s, cannot move to %s", bracket.ErrConflict, tournament.ID, tournament.Status, to)
	}

	err := s.store.TransitionStatus(ctx, q, tournament.ID, to, from...)
	if err != nil {
		return guardError(err, fmt.Sprintf("tournament %s changed status concurrently", tournament.ID))
	}
	tournament.Status = to
	return nil
}

// complete finishes the tournament once its final resolves.
func (s *TournamentService) complete(ctx context.Context, q sqlx.ExtContext, id, winnerID uuid.UUID) error {
	if err := s.store.Complete(ctx, q, id, winnerID); err != nil {
		return guardError(err, fmt.Sprintf("tournament %s is not active", id))
	}
	return nil
}

// replaceChampion rewrites the winner of a completed tournament after its final is corrected.
func (s *TournamentService) replaceChampion(ctx context.Context, q sqlx.ExtContext, id, winnerID uuid.UUID) error {
	if err := s.store.ReplaceWinner(ctx, q, id, winnerID); err != nil {
		return guardError(err, fmt.Sprintf("tournament %s is not completed", id))
	}
	return nil
}
