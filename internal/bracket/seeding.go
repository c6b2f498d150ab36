package bracket

import (
	"fmt"
	"math/bits"
)

// Bye marks an empty slot in the seeding order.
const Bye = 0

// BracketSize gets the nearest power of 2 while rounding up, so 5 gives 8 and so on
func BracketSize(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// RoundCount is ceil(log2(n)).
func RoundCount(n int) int {
	return bits.Len(uint(BracketSize(n))) - 1
}

// Seed returns the first-round slot order for n ranked participants. Element i
// is the rank placed in slot i (0-based), or Bye when the rank does not exist.
// Ranks 1 and 2 can only meet in the final.
func Seed(n int) ([]int, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 participants, got %d", ErrValidation, n)
	}

	size := BracketSize(n)

	// Mirror every rank against its opposite at each doubling:
	// [1] -> [1 2] -> [1 4 2 3] -> [1 8 4 5 2 7 3 6]
	order := []int{1}
	for len(order) < size {
		count := len(order) * 2
		next := make([]int, 0, count)
		for _, rank := range order {
			next = append(next, rank, count+1-rank)
		}
		order = next
	}

	for i, rank := range order {
		if rank > n {
			order[i] = Bye
		}
	}
	return order, nil
}

// RoundName names round number of total rounds.
func RoundName(number, total int) string {
	switch number {
	case total:
		return "Final"
	case total - 1:
		return "Semifinal"
	default:
		return fmt.Sprintf("Round %d", number)
	}
}
