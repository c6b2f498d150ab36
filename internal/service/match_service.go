package service

import (
	"context"
	"fmt"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/metrics"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/AdamBeresnev/bracket-engine/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MatchService struct {
	db          *sqlx.DB
	store       *store.BracketStore
	tournaments *TournamentService
	options
}

func NewMatchService(db *sqlx.DB, store *store.BracketStore, tournaments *TournamentService, opts ...Option) *MatchService {
	return &MatchService{db: db, store: store, tournaments: tournaments, options: buildOptions(opts)}
}

type ScoreInput struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Score         int       `json:"score"`
}

type ReportInput struct {
	MatchID             uuid.UUID    `json:"-"`
	WinnerParticipantID uuid.UUID    `json:"winner_participant_id"`
	Scores              []ScoreInput `json:"scores"`
}

type ReportOutcome struct {
	Match               *bracket.Match `json:"match"`
	TournamentCompleted bool           `json:"tournament_completed"`
}

// validate checks the result on its own, before any match is loaded.
func (in ReportInput) validate() error {
	if len(in.Scores) != 2 {
		return fmt.Errorf("%w: exactly two scores are required, got %d", bracket.ErrValidation, len(in.Scores))
	}
	a, b := in.Scores[0], in.Scores[1]
	if a.ParticipantID == b.ParticipantID {
		return fmt.Errorf("%w: scores must belong to two different participants", bracket.ErrValidation)
	}
	if a.Score == b.Score {
		return fmt.Errorf("%w: scores are tied at %d, ties are not allowed", bracket.ErrValidation, a.Score)
	}

	high := a
	if b.Score > a.Score {
		high = b
	}
	if high.ParticipantID != in.WinnerParticipantID {
		return fmt.Errorf("%w: winner %s does not hold the higher score", bracket.ErrValidation, in.WinnerParticipantID)
	}
	return nil
}

// checkAgainst verifies the result names exactly the two participants of match.
func (in ReportInput) checkAgainst(match *bracket.Match) error {
	if len(match.Participants) < 2 {
		return fmt.Errorf("%w: match %s is not ready, it has %d participant(s)", bracket.ErrConflict, match.ID, len(match.Participants))
	}
	for _, sc := range in.Scores {
		if _, ok := match.Participant(sc.ParticipantID); !ok {
			return fmt.Errorf("%w: participant %s is not in match %s", bracket.ErrValidation, sc.ParticipantID, match.ID)
		}
	}
	return nil
}

// ReportResult records the result of a match and moves its winner into the
// next match, or completes the tournament when the match is the final.
func (s *MatchService) ReportResult(ctx context.Context, in ReportInput) (*ReportOutcome, error) {
	defer s.metrics.ObserveSince("report_result", time.Now())

	if err := in.validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.store.GetMatch(ctx, tx, in.MatchID)
	if err != nil {
		return nil, lookupError(err, "match", in.MatchID)
	}
	if match.Status == bracket.MatchCompleted {
		return nil, fmt.Errorf("%w: match %s is already completed", bracket.ErrConflict, match.ID)
	}
	if err := in.checkAgainst(match); err != nil {
		return nil, err
	}

	if err := s.recordScores(ctx, tx, match, in); err != nil {
		return nil, err
	}
	if err := s.store.CompleteMatch(ctx, tx, match.ID, in.WinnerParticipantID); err != nil {
		return nil, guardError(err, fmt.Sprintf("match %s was completed concurrently", match.ID))
	}
	match.Status = bracket.MatchCompleted
	match.WinnerParticipantID = utils.Ptr(in.WinnerParticipantID)

	completed, err := s.advance(ctx, tx, match, in.WinnerParticipantID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.afterResult(ctx, match, metrics.ResultReported, 1, completed)
	return &ReportOutcome{Match: match, TournamentCompleted: completed}, nil
}

// CorrectResult rewrites the result of a completed match while the match its
// winner moved into has not started. Correcting the final replaces the champion.
func (s *MatchService) CorrectResult(ctx context.Context, in ReportInput) (*bracket.Match, error) {
	defer s.metrics.ObserveSince("correct_result", time.Now())

	if err := in.validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.store.GetMatch(ctx, tx, in.MatchID)
	if err != nil {
		return nil, lookupError(err, "match", in.MatchID)
	}
	if match.Status != bracket.MatchCompleted {
		return nil, fmt.Errorf("%w: match %s has no result to correct", bracket.ErrConflict, match.ID)
	}
	if err := in.checkAgainst(match); err != nil {
		return nil, err
	}

	if match.IsFinal() {
		if err := s.tournaments.replaceChampion(ctx, tx, match.TournamentID, in.WinnerParticipantID); err != nil {
			return nil, err
		}
	} else {
		next, err := s.store.GetMatch(ctx, tx, *match.NextMatchID)
		if err != nil {
			return nil, lookupError(err, "next match", *match.NextMatchID)
		}
		if next.Status != bracket.MatchPending {
			return nil, fmt.Errorf("%w: next match %s is already %s", bracket.ErrConflict, next.ID, next.Status)
		}
		if err := s.store.PlaceParticipant(ctx, tx, bracket.MatchParticipant{
			MatchID:       next.ID,
			ParticipantID: in.WinnerParticipantID,
			Position:      match.NextPosition(),
		}); err != nil {
			return nil, fmt.Errorf("failed to move corrected winner: %w", err)
		}
	}

	if err := s.recordScores(ctx, tx, match, in); err != nil {
		return nil, err
	}
	if err := s.store.ReplaceMatchWinner(ctx, tx, match.ID, in.WinnerParticipantID); err != nil {
		return nil, guardError(err, fmt.Sprintf("match %s is no longer completed", match.ID))
	}
	match.WinnerParticipantID = utils.Ptr(in.WinnerParticipantID)

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.afterResult(ctx, match, metrics.ResultCorrected, 1, false)
	return match, nil
}

// StartMatch marks a pending match with both participants as in progress.
func (s *MatchService) StartMatch(ctx context.Context, matchID uuid.UUID) (*bracket.Match, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.store.GetMatch(ctx, tx, matchID)
	if err != nil {
		return nil, lookupError(err, "match", matchID)
	}
	if len(match.Participants) < 2 {
		return nil, fmt.Errorf("%w: match %s is not ready, it has %d participant(s)", bracket.ErrConflict, matchID, len(match.Participants))
	}
	if match.Status != bracket.MatchPending {
		return nil, fmt.Errorf("%w: match %s is already %s", bracket.ErrConflict, matchID, match.Status)
	}

	if err := s.store.StartMatch(ctx, tx, matchID); err != nil {
		return nil, guardError(err, fmt.Sprintf("match %s changed status concurrently", matchID))
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.invalidate(ctx, match.TournamentID)
	match.Status = bracket.MatchInProgress
	return match, nil
}

// AdvanceByes completes every pending first round match holding a single
// participant and moves that participant on. It returns how many were resolved.
func (s *MatchService) AdvanceByes(ctx context.Context, tournamentID uuid.UUID) (int, error) {
	defer s.metrics.ObserveSince("advance_byes", time.Now())

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	tournament, err := s.tournaments.store.GetTournament(ctx, tx, tournamentID)
	if err != nil {
		return 0, lookupError(err, "tournament", tournamentID)
	}
	if tournament.Status != bracket.TournamentActive {
		return 0, fmt.Errorf("%w: tournament %s is %s, not active", bracket.ErrConflict, tournamentID, tournament.Status)
	}

	byes, err := s.store.ListByeMatches(ctx, tx, tournamentID)
	if err != nil {
		return 0, fmt.Errorf("failed to list byes: %w", err)
	}

	for i := range byes {
		match := &byes[i]
		winner := match.Participants[0].ParticipantID

		if err := s.store.RecordScore(ctx, tx, match.ID, winner, nil, true); err != nil {
			return 0, fmt.Errorf("failed to record bye for match %s: %w", match.ID, err)
		}
		if err := s.store.CompleteMatch(ctx, tx, match.ID, winner); err != nil {
			return 0, guardError(err, fmt.Sprintf("match %s was completed concurrently", match.ID))
		}
		if _, err := s.advance(ctx, tx, match, winner); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	if len(byes) > 0 {
		s.afterResult(ctx, &bracket.Match{TournamentID: tournamentID}, metrics.ResultBye, len(byes), false)
	}
	return len(byes), nil
}

func (s *MatchService) recordScores(ctx context.Context, tx sqlx.ExtContext, match *bracket.Match, in ReportInput) error {
	for _, sc := range in.Scores {
		isWinner := sc.ParticipantID == in.WinnerParticipantID
		if err := s.store.RecordScore(ctx, tx, match.ID, sc.ParticipantID, utils.Ptr(sc.Score), isWinner); err != nil {
			return fmt.Errorf("failed to record score for %s: %w", sc.ParticipantID, err)
		}
		if slot, ok := match.Participant(sc.ParticipantID); ok {
			slot.Score = utils.Ptr(sc.Score)
			slot.IsWinner = isWinner
		}
	}
	return nil
}

// advance moves winner of a just completed match into its next match, or
// completes the tournament if it was the final. It reports whether the
// tournament completed.
func (s *MatchService) advance(ctx context.Context, tx sqlx.ExtContext, match *bracket.Match, winner uuid.UUID) (bool, error) {
	if match.IsFinal() {
		if err := s.tournaments.complete(ctx, tx, match.TournamentID, winner); err != nil {
			return false, err
		}
		return true, nil
	}

	next, err := s.store.GetMatch(ctx, tx, *match.NextMatchID)
	if err != nil {
		return false, lookupError(err, "next match", *match.NextMatchID)
	}
	if next.Status == bracket.MatchCompleted {
		return false, fmt.Errorf("%w: next match %s is already completed", bracket.ErrConflict, next.ID)
	}

	err = s.store.PlaceParticipant(ctx, tx, bracket.MatchParticipant{
		MatchID:       next.ID,
		ParticipantID: winner,
		Position:      match.NextPosition(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to advance winner into match %s: %w", next.ID, err)
	}
	return false, nil
}

func (s *MatchService) afterResult(ctx context.Context, match *bracket.Match, kind string, n int, completed bool) {
	s.invalidate(ctx, match.TournamentID)
	s.metrics.ResultRecorded(kind, n)

	if completed {
		s.metrics.TournamentCompleted()
		s.logger.Info("tournament completed",
			"tournament_id", match.TournamentID,
			"champion", utils.OrZero(match.WinnerParticipantID))
		return
	}
	s.logger.Debug("match result recorded", "tournament_id", match.TournamentID, "match_id", match.ID, "kind", kind)
}
