package bracket

import (
	"time"

	"github.com/google/uuid"
)

type TournamentStatus string

const (
	TournamentDraft        TournamentStatus = "draft"
	TournamentRegistration TournamentStatus = "registration"
	TournamentActive       TournamentStatus = "active"
	TournamentCompleted    TournamentStatus = "completed"
)

type Tournament struct {
	ID                  uuid.UUID        `db:"id" json:"id"`
	Name                string           `db:"name" json:"name"`
	Status              TournamentStatus `db:"status" json:"status"`
	MaxParticipants     int              `db:"max_participants" json:"max_participants"`
	WinnerParticipantID *uuid.UUID       `db:"winner_participant_id" json:"winner_participant_id,omitempty"`
	CreatedAt           time.Time        `db:"created_at" json:"created_at"`
}

// Participant is registered externally and never changes once a bracket exists.
// Seed is the rank; unseeded participants are ranked after seeded ones.
type Participant struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`
	Seed         *int      `db:"seed" json:"seed,omitempty"`
	DisplayName  string    `db:"display_name" json:"display_name"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Stage struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`
	Order        int       `db:"stage_order" json:"order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`

	Rounds []Round `db:"-" json:"rounds"`
}

type Round struct {
	ID      uuid.UUID `db:"id" json:"id"`
	StageID uuid.UUID `db:"stage_id" json:"stage_id"`
	Number  int       `db:"number" json:"number"`
	Name    string    `db:"name" json:"name"`

	Matches []Match `db:"-" json:"matches"`
}
