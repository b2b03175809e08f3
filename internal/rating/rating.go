// internal/rating/rating.go
package rating

import (
	"sort"

	"github.com/google/uuid"
	"github.com/jason-s-yu/songquiz/internal/models"
)

// Standing is a participant's rating going into a game and the points they finished with.
type Standing struct {
	UserID uuid.UUID
	Rating models.Rating
	Points int
}

// Rate runs one rating period for a finished game. Players are ranked by
// points, highest first, with ties sharing their averaged rank. Each player is
// rated against the mean of the others. Games with fewer than two players
// leave ratings untouched.
func Rate(standings []Standing) map[uuid.UUID]models.Rating {
	out := make(map[uuid.UUID]models.Rating, len(standings))
	if len(standings) < 2 {
		for _, s := range standings {
			out[s.UserID] = s.Rating
		}
		return out
	}

	scores := rankScores(standings)

	states := make([]glicko2, len(standings))
	var totalMu, totalPhi float64
	for i, s := range standings {
		states[i] = fromRating(s.Rating)
		totalMu += states[i].mu
		totalPhi += states[i].phi
	}

	others := float64(len(standings) - 1)
	for i, s := range standings {
		opp := glicko2{
			mu:    (totalMu - states[i].mu) / others,
			phi:   (totalPhi - states[i].phi) / others,
			sigma: DefaultSigma,
		}
		out[s.UserID] = update(states[i], opp, scores[i]).toRating(s.Rating.Games + 1)
	}
	return out
}

// rankScores maps each standing to a score in [0..1]: first place 1, last 0.
func rankScores(standings []Standing) []float64 {
	order := make([]int, len(standings))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return standings[order[a]].Points > standings[order[b]].Points
	})

	scores := make([]float64, len(standings))
	last := float64(len(standings) - 1)
	for i := 0; i < len(order); {
		j := i + 1
		for j < len(order) && standings[order[j]].Points == standings[order[i]].Points {
			j++
		}
		avgRank := float64(i+j-1) / 2
		for k := i; k < j; k++ {
			scores[order[k]] = 1.0 - avgRank/last
		}
		i = j
	}
	return scores
}
