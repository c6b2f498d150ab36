package service

import (
	"context"
	"fmt"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

type BracketService struct {
	db          *sqlx.DB
	store       *store.BracketStore
	tournaments *TournamentService
	options
}

func NewBracketService(db *sqlx.DB, store *store.BracketStore, tournaments *TournamentService, opts ...Option) *BracketService {
	return &BracketService{db: db, store: store, tournaments: tournaments, options: buildOptions(opts)}
}

type GenerateResult struct {
	StageID    uuid.UUID `json:"stage_id"`
	RoundCount int       `json:"round_count"`
	MatchCount int       `json:"match_count"`
}

// GenerateBracket builds the single elimination bracket for a tournament and
// activates it. Only one bracket can ever be generated per tournament.
func (s *BracketService) GenerateBracket(ctx context.Context, tournamentID uuid.UUID) (*GenerateResult, error) {
	defer s.metrics.ObserveSince("generate_bracket", time.Now())

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament, err := s.tournaments.store.GetTournament(ctx, tx, tournamentID)
	if err != nil {
		return nil, lookupError(err, "tournament", tournamentID)
	}

	// Activating first makes every concurrent generator but one fail here
	if err := s.tournaments.transition(ctx, tx, tournament, bracket.TournamentActive); err != nil {
		return nil, err
	}

	exists, err := s.store.StageExists(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for an existing bracket: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: tournament %s already has a bracket", bracket.ErrConflict, tournamentID)
	}

	participants, err := s.tournaments.store.ListRankedParticipants(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	if tournament.MaxParticipants > 0 && len(participants) > tournament.MaxParticipants {
		return nil, fmt.Errorf("%w: %d participants exceed the limit of %d",
			bracket.ErrValidation, len(participants), tournament.MaxParticipants)
	}

	plan, err := bracket.PlanSingleElimination(tournamentID, participants)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateStage(ctx, tx, &plan.Stage); err != nil {
		return nil, fmt.Errorf("failed to create stage: %w", err)
	}
	if err := s.store.CreateRounds(ctx, tx, plan.Rounds); err != nil {
		return nil, fmt.Errorf("failed to create rounds: %w", err)
	}
	if err := s.store.CreateMatches(ctx, tx, plan.Matches); err != nil {
		return nil, fmt.Errorf("failed to create matches: %w", err)
	}
	if err := s.store.CreateMatchParticipants(ctx, tx, plan.Slots); err != nil {
		return nil, fmt.Errorf("failed to seed first round: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.invalidate(ctx, tournamentID)
	s.metrics.BracketGenerated()
	s.logger.Info("bracket generated",
		"tournament_id", tournamentID,
		"participants", len(participants),
		"rounds", len(plan.Rounds),
		"matches", len(plan.Matches))

	return &GenerateResult{
		StageID:    plan.Stage.ID,
		RoundCount: len(plan.Rounds),
		MatchCount: len(plan.Matches),
	}, nil
}

// GetBracket returns the tournament's stages with rounds, matches and
// participants nested in order. A tournament without a bracket yields no stages.
func (s *BracketService) GetBracket(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Stage, error) {
	cacheable := s.cache != nil
	var version int64
	if cacheable {
		stages, ok, err := s.cache.GetBracket(ctx, tournamentID)
		if err != nil {
			s.logger.Warn("failed to read cached bracket", "tournament_id", tournamentID, "error", err)
		} else if ok {
			return stages, nil
		}

		// Read before loading so a write committed mid-load keeps this result out of the cache
		if version, err = s.cache.BracketVersion(ctx, tournamentID); err != nil {
			s.logger.Warn("failed to read bracket cache version", "tournament_id", tournamentID, "error", err)
			cacheable = false
		}
	}

	if _, err := s.tournaments.store.GetTournament(ctx, nil, tournamentID); err != nil {
		return nil, lookupError(err, "tournament", tournamentID)
	}

	var (
		stages  []bracket.Stage
		rounds  []bracket.Round
		matches []bracket.Match
		slots   []bracket.MatchParticipant
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stages, err = s.store.ListStages(gctx, nil, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		rounds, err = s.store.ListRounds(gctx, nil, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.store.ListMatches(gctx, nil, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		slots, err = s.store.ListMatchParticipants(gctx, nil, tournamentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load bracket: %w", err)
	}

	result := assembleBracket(stages, rounds, matches, slots)

	if cacheable {
		if err := s.cache.SetBracket(ctx, tournamentID, version, result); err != nil {
			s.logger.Warn("failed to cache bracket", "tournament_id", tournamentID, "error", err)
		}
	}
	return result, nil
}

// assembleBracket nests the flat rows, keeping the order each list was loaded in.
func assembleBracket(stages []bracket.Stage, rounds []bracket.Round, matches []bracket.Match, slots []bracket.MatchParticipant) []bracket.Stage {
	slotsByMatch := make(map[uuid.UUID][]bracket.MatchParticipant)
	for _, slot := range slots {
		slotsByMatch[slot.MatchID] = append(slotsByMatch[slot.MatchID], slot)
	}

	matchesByRound := make(map[uuid.UUID][]bracket.Match)
	for _, m := range matches {
		m.Participants = slotsByMatch[m.ID]
		if m.Participants == nil {
			m.Participants = []bracket.MatchParticipant{}
		}
		matchesByRound[m.RoundID] = append(matchesByRound[m.RoundID], m)
	}

	roundsByStage := make(map[uuid.UUID][]bracket.Round)
	for _, r := range rounds {
		r.Matches = matchesByRound[r.ID]
		roundsByStage[r.StageID] = append(roundsByStage[r.StageID], r)
	}

	result := make([]bracket.Stage, 0, len(stages))
	for _, st := range stages {
		st.Rounds = roundsByStage[st.ID]
		result = append(result, st)
	}
	return result
}
