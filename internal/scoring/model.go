// Package scoring implements the closed-form urban outcome model.
package scoring

import (
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/models"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/utils"
)

// Func maps planning parameters to outcome metrics
type Func func(models.Parameters) (models.Results, error)

// Score evaluates the outcome model for p.
//
// Congestion is computed and saturated first; satisfaction, emissions and
// transit usage all read the saturated congestion value. Inputs are
// validated but never clamped.
func Score(p models.Parameters) (models.Results, error) {
	if err := p.Validate(); err != nil {
		return models.Results{}, err
	}

	congestion := saturate(100 - 0.8*p.Roads - 0.5*p.PublicTransport + 0.7*p.Population)

	return models.Results{
		Congestion:   congestion,
		Satisfaction: saturate(0.4*p.Housing + 0.2*p.Roads + 0.4*p.PublicTransport - 0.5*congestion),
		Emissions:    saturate(0.6*p.Population - 0.4*p.PublicTransport + 0.3*congestion),
		TransitUsage: saturate(0.7*p.PublicTransport + 0.3*congestion),
	}, nil
}

func saturate(v float64) float64 {
	return utils.ClampFloat64(v, models.MinValue, models.MaxValue)
}
