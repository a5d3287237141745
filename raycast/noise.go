package raycast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// NoiseParameters are the mixture weights and shape parameters of the beam
// sensor model. They are loaded once and read-only afterwards.
type NoiseParameters struct {
	ZHit        float64 `yaml:"z_hit" json:"zHit"`
	ZShort      float64 `yaml:"z_short" json:"zShort"`
	ZMax        float64 `yaml:"z_max" json:"zMax"`
	ZRand       float64 `yaml:"z_rand" json:"zRand"`
	SigmaHit    float64 `yaml:"sigma_hit" json:"sigmaHit"`
	LambdaShort float64 `yaml:"lambda_short" json:"lambdaShort"`
}

// DefaultNoiseParameters returns the mixture used when nothing is configured
func DefaultNoiseParameters() NoiseParameters {
	return NoiseParameters{
		ZHit:        0.8,
		ZShort:      0.1,
		ZMax:        0.05,
		ZRand:       0.05,
		SigmaHit:    0.02,
		LambdaShort: 0.1,
	}
}

// Validate rejects parameter sets for which some beam could get p <= 0 or
// a division by zero. Values are never clamped.
func (p NoiseParameters) Validate() error {
	for _, f := range []struct {
		key   string
		value float64
	}{
		{"z_hit", p.ZHit},
		{"z_short", p.ZShort},
		{"z_max", p.ZMax},
		{"z_rand", p.ZRand},
		{"sigma_hit", p.SigmaHit},
		{"lambda_short", p.LambdaShort},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("raycasting.%s needs to be finite, got %g", f.key, f.value)
		}
	}
	if p.ZMax <= 0 {
		return fmt.Errorf("raycasting.z_max needs to be > 0, got %g", p.ZMax)
	}
	if p.ZRand <= 0 {
		return fmt.Errorf("raycasting.z_rand needs to be > 0, got %g", p.ZRand)
	}
	if p.SigmaHit <= 0 {
		return fmt.Errorf("raycasting.sigma_hit needs to be > 0, got %g", p.SigmaHit)
	}
	if p.ZHit < 0 {
		return fmt.Errorf("raycasting.z_hit must not be negative, got %g", p.ZHit)
	}
	if p.ZShort < 0 {
		return fmt.Errorf("raycasting.z_short must not be negative, got %g", p.ZShort)
	}
	if p.LambdaShort < 0 {
		return fmt.Errorf("raycasting.lambda_short must not be negative, got %g", p.LambdaShort)
	}
	return nil
}

// Likelihood evaluates the beam model for a beam whose ray cast hit the map.
// It sums the obstacle-hit Gaussian, the short-reading exponential and the
// uniform random term. With squared set, the Gaussian's sigma grows with
// measured²·SigmaHit.
//
// The short-reading term is not divided by its truncation normalizer
// 1-exp(-LambdaShort·cast).
func Likelihood(measured, cast, maxRange float64, squared bool, params NoiseParameters) float64 {
	sigma := params.SigmaHit
	if squared {
		sigma = measured * measured * params.SigmaHit
	}

	var p float64

	// obstacle hit
	if sigma > 0 {
		hit := distuv.Normal{Mu: 0, Sigma: sigma}
		p += params.ZHit * hit.Prob(cast-measured)
	}

	// unexpected obstacle in front of the mapped surface
	if measured <= cast {
		short := distuv.Exponential{Rate: params.LambdaShort}
		p += params.ZShort * short.Prob(measured)
	}

	p += NoHitLikelihood(maxRange, params)
	return p
}

// NoHitLikelihood is the likelihood of an in-range beam whose ray cast found
// no occupied cell: it can only be explained as a random reading.
func NoHitLikelihood(maxRange float64, params NoiseParameters) float64 {
	return params.ZRand / maxRange
}

// MaxRangeLikelihood is the likelihood of a beam measured beyond the sensor's max range
func MaxRangeLikelihood(params NoiseParameters) float64 {
	return params.ZMax
}
