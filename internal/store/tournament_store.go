package store

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

// Falls back to the pool when no transaction is given
func (s *TournamentStore) executor(q sqlx.ExtContext) sqlx.ExtContext {
	if q != nil {
		return q
	}
	return s.db
}

func (s *TournamentStore) CreateTournament(ctx context.Context, q sqlx.ExtContext, tournament *bracket.Tournament) error {
	_, err := sqlx.NamedExecContext(ctx, s.executor(q), `INSERT INTO tournaments (id, name, status, max_participants)
        VALUES (:id, :name, :status, :max_participants)`, tournament)
	return err
}

func (s *TournamentStore) CreateParticipants(ctx context.Context, q sqlx.ExtContext, participants []bracket.Participant) error {
	if len(participants) == 0 {
		return nil
	}
	return namedInsertBatches(ctx, s.executor(q), `INSERT INTO participants (id, tournament_id, seed, display_name)
            VALUES (:id, :tournament_id, :seed, :display_name)`, participants)
}

func (s *TournamentStore) GetTournament(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*bracket.Tournament, error) {
	e := s.executor(q)
	var tournament bracket.Tournament
	err := sqlx.GetContext(ctx, e, &tournament, e.Rebind("SELECT * FROM tournaments WHERE id = ?"), id)
	if err != nil {
		return nil, err
	}
	return &tournament, nil
}

// ListRankedParticipants returns participants ordered by rank: seeded ones by
// seed, then unseeded ones in registration order.
func (s *TournamentStore) ListRankedParticipants(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.Participant, error) {
	e := s.executor(q)
	var participants []bracket.Participant
	err := sqlx.SelectContext(ctx, e, &participants, e.Rebind(`SELECT * FROM participants WHERE tournament_id = ?
		ORDER BY CASE WHEN seed IS NULL THEN 1 ELSE 0 END, seed ASC, created_at ASC, id ASC`), tournamentID)
	return participants, err
}

// SeedStats returns how many participants are registered and the highest seed among them.
func (s *TournamentStore) SeedStats(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) (count int, maxSeed int, err error) {
	e := s.executor(q)
	var row struct {
		Count   int `db:"count"`
		MaxSeed int `db:"max_seed"`
	}
	err = sqlx.GetContext(ctx, e, &row, e.Rebind(`SELECT COUNT(*) AS count, COALESCE(MAX(seed), 0) AS max_seed
		FROM participants WHERE tournament_id = ?`), tournamentID)
	return row.Count, row.MaxSeed, err
}

// TransitionStatus moves the tournament to `to` only while its status is one of `from`.
func (s *TournamentStore) TransitionStatus(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, to bracket.TournamentStatus, from ...bracket.TournamentStatus) error {
	if len(from) == 0 {
		return fmt.Errorf("transition to %s needs at least one source status", to)
	}
	query, args, err := sq.Update("tournaments").
		Set("status", string(to)).
		Where(sq.Eq{"id": id.String(), "status": statusStrings(from)}).
		ToSql()
	if err != nil {
		return err
	}

	e := s.executor(q)
	result, err := e.ExecContext(ctx, e.Rebind(query), args...)
	if err != nil {
		return err
	}
	return checkAffectedRows(result)
}

func statusStrings(statuses []bracket.TournamentStatus) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}

// Complete finishes an active tournament and records its champion.
func (s *TournamentStore) Complete(ctx context.Context, q sqlx.ExtContext, id, winnerID uuid.UUID) error {
	e := s.executor(q)
	result, err := e.ExecContext(ctx, e.Rebind(`UPDATE tournaments SET status = ?, winner_participant_id = ?
		WHERE id = ? AND status = ?`), bracket.TournamentCompleted, winnerID, id, bracket.TournamentActive)
	if err != nil {
		return err
	}
	return checkAffectedRows(result)
}

// ReplaceWinner swaps the champion of an already completed tournament.
func (s *TournamentStore) ReplaceWinner(ctx context.Context, q sqlx.ExtContext, id, winnerID uuid.UUID) error {
	e := s.executor(q)
	result, err := e.ExecContext(ctx, e.Rebind(`UPDATE tournaments SET winner_participant_id = ?
		WHERE id = ? AND status = ?`), winnerID, id, bracket.TournamentCompleted)
	if err != nil {
		return err
	}
	return checkAffectedRows(result)
}
