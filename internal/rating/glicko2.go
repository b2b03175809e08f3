// internal/rating/glicko2.go
package rating

import (
	"math"

	"github.com/jason-s-yu/songquiz/internal/models"
)

const (
	// GlickoScale converts between the 1500-based scale and Glicko-2's mu.
	GlickoScale = 173.7178
	// DefaultMu is the baseline rating on the 1500-based scale.
	DefaultMu = 1500.0
	// DefaultPhi is the baseline deviation on the 1500-based scale.
	DefaultPhi = 350.0
	// DefaultSigma is the baseline volatility.
	DefaultSigma = 0.06
	// MinPhi keeps a veteran's deviation from collapsing to zero.
	MinPhi = 30.0
	// Tau constrains volatility changes.
	Tau = 0.5
	// Epsilon is the convergence tolerance of the volatility iteration.
	Epsilon = 0.000001
)

// glicko2 is a rating in Glicko-2 space.
type glicko2 struct {
	mu    float64
	phi   float64
	sigma float64
}

func fromRating(r models.Rating) glicko2 {
	phi, sigma := r.Deviation, r.Volatility
	if phi <= 0 {
		phi = DefaultPhi
	}
	if sigma <= 0 {
		sigma = DefaultSigma
	}
	return glicko2{
		mu:    (r.Value - DefaultMu) / GlickoScale,
		phi:   phi / GlickoScale,
		sigma: sigma,
	}
}

func (r glicko2) toRating(games int) models.Rating {
	return models.Rating{
		Value:      r.mu*GlickoScale + DefaultMu,
		Deviation:  math.Max(r.phi*GlickoScale, MinPhi),
		Volatility: r.sigma,
		Games:      games,
	}
}

// update applies a single Glicko-2 rating period for r against opp, given
// a score in [0..1].
func update(r, opp glicko2, score float64) glicko2 {
	gVal := g(opp.phi)
	eVal := expected(r.mu, opp.mu, opp.phi)

	v := 1.0 / (gVal * gVal * eVal * (1 - eVal))
	delta := v * gVal * (score - eVal)

	a := math.Log(r.sigma * r.sigma)
	fx := func(x float64) float64 {
		return f(x, r.phi, v, delta, a)
	}

	A := a
	var B float64
	if delta*delta > r.phi*r.phi+v {
		B = math.Log(delta*delta - r.phi*r.phi - v)
	} else {
		k := 1.0
		for fx(a-k*Tau) < 0 {
			k++
		}
		B = a - k*Tau
	}

	fA, fB := fx(A), fx(B)
	for i := 0; i < 100 && math.Abs(B-A) > Epsilon; i++ {
		C := A + (A-B)*fA/(fB-fA)
		fC := fx(C)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}

	newSigma := math.Exp(A / 2)
	phiStar := math.Sqrt(r.phi*r.phi + newSigma*newSigma)
	phiPrime := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)
	muPrime := r.mu + phiPrime*phiPrime*gVal*(score-eVal)

	return glicko2{mu: muPrime, phi: phiPrime, sigma: newSigma}
}

// g dampens the impact of an opponent with an uncertain rating.
func g(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/(math.Pi*math.Pi))
}

// expected is the expected score of mu against mu2.
func expected(mu, mu2, phi2 float64) float64 {
	return 1.0 / (1.0 + math.Exp(-g(phi2)*(mu-mu2)))
}

// f is the function whose root is the new log-volatility.
func f(x, phi, v, delta, a float64) float64 {
	ex := math.Exp(x)
	num := ex * (delta*delta - phi*phi - v - ex)
	den := 2.0 * (phi*phi + v + ex) * (phi*phi + v + ex)
	return num/den - (x-a)/(Tau*Tau)
}
