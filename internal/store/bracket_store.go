package store

import (
	"context"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Match rows never store their tournament or round number; both come from the joins
const matchColumns = `m.id, m.stage_id, m.round_id, s.tournament_id, r.number AS round_number,
	m.match_number, m.next_match_id, m.status, m.winner_participant_id, m.created_at
	FROM matches m
	JOIN rounds r ON r.id = m.round_id
	JOIN stages s ON s.id = m.stage_id`

type BracketStore struct {
	db *sqlx.DB
}

func NewBracketStore(db *sqlx.DB) *BracketStore {
	return &BracketStore{db: db}
}

func (s *BracketStore) executor(q sqlx.ExtContext) sqlx.ExtContext {
	if q != nil {
		return q
	}
	return s.db
}

func (s *BracketStore) CreateStage(ctx context.Context, q sqlx.ExtContext, stage *bracket.Stage) error {
	_, err := sqlx.NamedExecContext(ctx, s.executor(q), `INSERT INTO stages (id, tournament_id, stage_order)
		VALUES (:id, :tournament_id, :stage_order)`, stage)
	return err
}

func (s *BracketStore) CreateRounds(ctx context.Context, q sqlx.ExtContext, rounds []bracket.Round) error {
	if len(rounds) == 0 {
		return nil
	}
	return namedInsertBatches(ctx, s.executor(q), `INSERT INTO rounds (id, stage_id, number, name)
		VALUES (:id, :stage_id, :number, :name)`, rounds)
}

// CreateMatches expects parents before their feeders so next_match_id always resolves.
func (s *BracketStore) CreateMatches(ctx context.Context, q sqlx.ExtContext, matches []bracket.Match) error {
	if len(matches) == 0 {
		return nil
	}
	return namedInsertBatches(ctx, s.executor(q), `INSERT INTO matches (id, stage_id, round_id, match_number, next_match_id, status)
		VALUES (:id, :stage_id, :round_id, :match_number, :next_match_id, :status)`, matches)
}

func (s *BracketStore) CreateMatchParticipants(ctx context.Context, q sqlx.ExtContext, slots []bracket.MatchParticipant) error {
	if len(slots) == 0 {
		return nil
	}
	return namedInsertBatches(ctx, s.executor(q), `INSERT INTO match_participants (match_id, participant_id, position, score, is_winner)
		VALUES (:match_id, :participant_id, :position, :score, :is_winner)`, slots)
}

func (s *BracketStore) StageExists(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) (bool, error) {
	e := s.executor(q)
	var count int
	err := sqlx.GetContext(ctx, e, &count, e.Rebind("SELECT COUNT(*) FROM stages WHERE tournament_id = ?"), tournamentID)
	return count > 0, err
}

// GetMatch loads a match together with its occupied slots.
func (s *BracketStore) GetMatch(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*bracket.Match, error) {
	e := s.executor(q)
	var match bracket.Match
	if err := sqlx.GetContext(ctx, e, &match, e.Rebind("SELECT "+matchColumns+" WHERE m.id = ?"), id); err != nil {
		return nil, err
	}

	if err := sqlx.SelectContext(ctx, e, &match.Participants,
		e.Rebind("SELECT * FROM match_participants WHERE match_id = ? ORDER BY position ASC"), id); err != nil {
		return nil, err
	}
	return &match, nil
}

// CompleteMatch marks a match completed unless it already is.
func (s *BracketStore) CompleteMatch(ctx context.Context, q sqlx.ExtContext, id, winnerID uuid.UUID) error {
	e := s.executor(q)
	result, err := e.ExecContext(ctx, e.Rebind(`UPDATE matches SET status = ?, winner_participant_id = ?
		WHERE id = ? AND status <> ?`), bracket.MatchCompleted, winnerID, id, bracket.MatchCompleted)
	if err != nil {
		return err
	}
	return checkAffectedRows(result)
}

func (s *BracketStore) StartMatch(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) error {
	e := s.executor(q)
	result, err := e.ExecContext(ctx, e.Rebind("UPDATE matches SET status = ? WHERE id = ? AND status = ?"),
		bracket.MatchInProgress, id, bracket.MatchPending)
	if err != nil {
		return err
	}
	return checkAffectedRows(result)
}

// ReplaceMatchWinner rewrites the winner of a completed match.
func (s *BracketStore) ReplaceMatchWinner(ctx context.Context, q sqlx.ExtContext, id, winnerID uuid.UUID) error {
	e := s.executor(q)
	result, err := e.ExecContext(ctx, e.Rebind("UPDATE matches SET winner_participant_id = ? WHERE id = ? AND status = ?"),
		winnerID, id, bracket.MatchCompleted)
	if err != nil {
		return err
	}
	return checkAffectedRows(result)
}

func (s *BracketStore) RecordScore(ctx context.Context, q sqlx.ExtContext, matchID, participantID uuid.UUID, score *int, isWinner bool) error {
	e := s.executor(q)
	result, err := e.ExecContext(ctx, e.Rebind(`UPDATE match_participants SET score = ?, is_winner = ?
		WHERE match_id = ? AND participant_id = ?`), score, isWinner, matchID, participantID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result)
}

// PlaceParticipant puts a participant into a slot, replacing whoever held it
// before along with any score they had.
func (s *BracketStore) PlaceParticipant(ctx context.Context, q sqlx.ExtContext, slot bracket.MatchParticipant) error {
	_, err := sqlx.NamedExecContext(ctx, s.executor(q), `INSERT INTO match_participants (match_id, participant_id, position, score, is_winner)
		VALUES (:match_id, :participant_id, :position, NULL, FALSE)
		ON CONFLICT (match_id, position) DO UPDATE
		SET participant_id = excluded.participant_id, score = NULL, is_winner = FALSE`, slot)
	return err
}

// ListByeMatches returns pending first round matches that hold a single participant.
func (s *BracketStore) ListByeMatches(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.Match, error) {
	e := s.executor(q)
	var matches []bracket.Match
	err := sqlx.SelectContext(ctx, e, &matches, e.Rebind("SELECT "+matchColumns+`
		WHERE s.tournament_id = ? AND r.number = 1 AND m.status = ?
		AND (SELECT COUNT(*) FROM match_participants mp WHERE mp.match_id = m.id) = 1
		ORDER BY m.match_number ASC`), tournamentID, bracket.MatchPending)
	if err != nil {
		return nil, err
	}

	for i := range matches {
		if err := sqlx.SelectContext(ctx, e, &matches[i].Participants,
			e.Rebind("SELECT * FROM match_participants WHERE match_id = ?"), matches[i].ID); err != nil {
			return nil, err
		}
	}
	return matches, nil
}

func (s *BracketStore) ListStages(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.Stage, error) {
	e := s.executor(q)
	var stages []bracket.Stage
	err := sqlx.SelectContext(ctx, e, &stages,
		e.Rebind("SELECT * FROM stages WHERE tournament_id = ? ORDER BY stage_order ASC"), tournamentID)
	return stages, err
}

func (s *BracketStore) ListRounds(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.Round, error) {
	e := s.executor(q)
	var rounds []bracket.Round
	err := sqlx.SelectContext(ctx, e, &rounds, e.Rebind(`SELECT r.* FROM rounds r
		JOIN stages s ON s.id = r.stage_id
		WHERE s.tournament_id = ? ORDER BY s.stage_order ASC, r.number ASC`), tournamentID)
	return rounds, err
}

func (s *BracketStore) ListMatches(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.Match, error) {
	e := s.executor(q)
	var matches []bracket.Match
	err := sqlx.SelectContext(ctx, e, &matches, e.Rebind("SELECT "+matchColumns+`
		WHERE s.tournament_id = ? ORDER BY s.stage_order ASC, r.number ASC, m.match_number ASC`), tournamentID)
	return matches, err
}

func (s *BracketStore) ListMatchParticipants(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.MatchParticipant, error) {
	e := s.executor(q)
	var slots []bracket.MatchParticipant
	err := sqlx.SelectContext(ctx, e, &slots, e.Rebind(`SELECT mp.* FROM match_participants mp
		JOIN matches m ON m.id = mp.match_id
		JOIN stages s ON s.id = m.stage_id
		WHERE s.tournament_id = ? ORDER BY mp.match_id ASC, mp.position ASC`), tournamentID)
	return slots, err
}
