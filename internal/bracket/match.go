package bracket

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchPending    MatchStatus = "pending"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
)

type Match struct {
	ID      uuid.UUID `db:"id" json:"id"`
	StageID uuid.UUID `db:"stage_id" json:"stage_id"`
	RoundID uuid.UUID `db:"round_id" json:"round_id"`

	// Filled from the stage/round joins, not stored on the match row
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`
	RoundNumber  int       `db:"round_number" json:"round_number"`

	MatchNumber int         `db:"match_number" json:"match_number"`
	NextMatchID *uuid.UUID  `db:"next_match_id" json:"next_match_id,omitempty"`
	Status      MatchStatus `db:"status" json:"status"`

	WinnerParticipantID *uuid.UUID `db:"winner_participant_id" json:"winner_participant_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Participants []MatchParticipant `db:"-" json:"participants"`
}

type MatchParticipant struct {
	MatchID       uuid.UUID `db:"match_id" json:"match_id"`
	ParticipantID uuid.UUID `db:"participant_id" json:"participant_id"`
	Position      int       `db:"position" json:"position"`
	Score         *int      `db:"score" json:"score,omitempty"`
	IsWinner      bool      `db:"is_winner" json:"is_winner"`
}

func (m *Match) IsFinal() bool {
	return m.NextMatchID == nil
}

// NextPosition is the slot this match's winner takes in the next match.
// Odd match numbers feed position 0, even ones position 1.
func (m *Match) NextPosition() int {
	if m.MatchNumber%2 != 0 {
		return 0
	}
	return 1
}

// Participant returns the occupant of the given participant id, if any.
func (m *Match) Participant(id uuid.UUID) (*MatchParticipant, bool) {
	for i := range m.Participants {
		if m.Participants[i].ParticipantID == id {
			return &m.Participants[i], true
		}
	}
	return nil, false
}
