package bracket

import (
	"fmt"

	"github.com/google/uuid"
)

// Plan is a complete single elimination bracket ready to be persisted.
// Matches are ordered by creation (parents before their feeders), so inserting
// them in order never references a missing next match.
type Plan struct {
	Stage   Stage
	Rounds  []Round
	Matches []Match
	Slots   []MatchParticipant
}

// PlanSingleElimination builds the match tree for participants, which must
// already be ordered by rank (index 0 is rank 1).
func PlanSingleElimination(tournamentID uuid.UUID, participants []Participant) (*Plan, error) {
	slots, err := Seed(len(participants))
	if err != nil {
		return nil, err
	}

	totalRounds := RoundCount(len(participants))
	plan := &Plan{
		Stage: Stage{
			ID:           uuid.New(),
			TournamentID: tournamentID,
			Order:        1,
		},
	}

	for r := 1; r <= totalRounds; r++ {
		plan.Rounds = append(plan.Rounds, Round{
			ID:      uuid.New(),
			StageID: plan.Stage.ID,
			Number:  r,
			Name:    RoundName(r, totalRounds),
		})
	}

	// Easier to start from the final and work backwards: every match creates its
	// own two feeders, so parent links are known at creation time
	var firstRound []uuid.UUID
	matchNumber := 0

	var grow func(round int, next *uuid.UUID)
	grow = func(round int, next *uuid.UUID) {
		matchNumber++
		m := Match{
			ID:           uuid.New(),
			StageID:      plan.Stage.ID,
			RoundID:      plan.Rounds[round-1].ID,
			TournamentID: tournamentID,
			RoundNumber:  round,
			MatchNumber:  matchNumber,
			NextMatchID:  next,
			Status:       MatchPending,
		}
		plan.Matches = append(plan.Matches, m)

		if round == 1 {
			firstRound = append(firstRound, m.ID)
			return
		}
		parentID := m.ID
		grow(round-1, &parentID)
		grow(round-1, &parentID)
	}
	grow(totalRounds, nil)

	if len(firstRound)*2 != len(slots) {
		return nil, fmt.Errorf("bracket plan has %d first round matches for %d slots", len(firstRound), len(slots))
	}

	for s, rank := range slots {
		if rank == Bye {
			continue
		}
		plan.Slots = append(plan.Slots, MatchParticipant{
			MatchID:       firstRound[s/2],
			ParticipantID: participants[rank-1].ID,
			Position:      s % 2,
		})
	}

	return plan, nil
}
