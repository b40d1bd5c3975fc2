// Package scoring implements the unified brewing score: a brew-ratio-aware
// measure of how close a brew's (extraction, TDS) pair sits to the optimal
// point for its specific ratio on the isometric line.
//
// Score = 100 * exp(-k * d), where d is the normalized Euclidean distance
// from the per-ratio optimal point. The optimal point is where the isometric
// line TDS = (R/1000) * Extraction passes closest to the global ideal zone
// center, per the SCA brewing control chart.
package scoring

import "math"

// Scorer computes unified brewing scores with fixed normalization and decay
// parameters.
type Scorer struct {
	sigmaE  float64
	sigmaT  float64
	decayK  float64
	targetE float64
	targetT float64
}

// Params configure a Scorer. Zero values fall back to defaults.
type Params struct {
	SigmaE           float64 // extraction normalization, default 2.0 (half the 18-22% ideal band)
	SigmaT           float64 // TDS normalization, default 0.1 (half the 1.15-1.35% ideal band)
	DecayK           float64 // exponential decay constant, default 0.5
	TargetExtraction float64 // global ideal extraction, default 19.5
	TargetTDS        float64 // global ideal TDS, default 1.25
}

// New returns a Scorer with the given parameters, applying defaults for any
// zero value.
func New(p Params) *Scorer {
	if p.SigmaE == 0 {
		p.SigmaE = 2.0
	}
	if p.SigmaT == 0 {
		p.SigmaT = 0.1
	}
	if p.DecayK == 0 {
		p.DecayK = 0.5
	}
	if p.TargetExtraction == 0 {
		p.TargetExtraction = 19.5
	}
	if p.TargetTDS == 0 {
		p.TargetTDS = 1.25
	}
	return &Scorer{
		sigmaE:  p.SigmaE,
		sigmaT:  p.SigmaT,
		decayK:  p.DecayK,
		targetE: p.TargetExtraction,
		targetT: p.TargetTDS,
	}
}

// OptimalPoint returns the (extraction, TDS) pair on the isometric line for
// the given brew ratio (g/L) that minimizes the normalized distance to the
// global ideal zone center.
//
//	E_opt = (E0/sE^2 + (R/1000)*T0/sT^2) / (1/sE^2 + (R/1000)^2/sT^2)
//	T_opt = (R/1000) * E_opt
func (s *Scorer) OptimalPoint(gramsPerLiter float64) (eOpt, tOpt float64) {
	r := gramsPerLiter / 1000

	num := s.targetE/(s.sigmaE*s.sigmaE) + r*s.targetT/(s.sigmaT*s.sigmaT)
	den := 1/(s.sigmaE*s.sigmaE) + r*r/(s.sigmaT*s.sigmaT)

	eOpt = num / den
	tOpt = r * eOpt
	return eOpt, tOpt
}

// Distance returns the normalized Euclidean distance from the per-ratio
// optimal point. Zero at optimal, roughly one at a single sigma deviation.
func (s *Scorer) Distance(extraction, tds, gramsPerLiter float64) float64 {
	eOpt, tOpt := s.OptimalPoint(gramsPerLiter)

	dE := (extraction - eOpt) / s.sigmaE
	dT := (tds - tOpt) / s.sigmaT

	return math.Sqrt(dE*dE + dT*dT)
}

// Calculate returns the unified brewing score in (0, 100]: 100 at the optimal
// point, decaying exponentially with distance.
func (s *Scorer) Calculate(extraction, tds, gramsPerLiter float64) float64 {
	return 100 * math.Exp(-s.decayK*s.Distance(extraction, tds, gramsPerLiter))
}

// Score is the nil-tolerant entry point used by the calculation engine.
// It returns nil when any input is absent or the ratio is not positive.
func (s *Scorer) Score(extraction, tds, gramsPerLiter *float64) *float64 {
	if extraction == nil || tds == nil || gramsPerLiter == nil {
		return nil
	}
	if *gramsPerLiter <= 0 {
		return nil
	}
	v := s.Calculate(*extraction, *tds, *gramsPerLiter)
	return &v
}
