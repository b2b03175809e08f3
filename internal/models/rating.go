// internal/models/rating.go
package models

// Rating is a Glicko-2 skill rating on the 1500-based scale.
type Rating struct {
	Value      float64 `json:"rating"`
	Deviation  float64 `json:"deviation"`
	Volatility float64 `json:"volatility"`
	Games      int     `json:"games"`
}

// DefaultRating is the rating of a player with no rated games.
func DefaultRating() Rating {
	return Rating{Value: 1500, Deviation: 350, Volatility: 0.06}
}
