package improvement

import (
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/models"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/utils"
)

// ParameterExplorer defines strategies for exploring the parameter space
type ParameterExplorer interface {
	// Neighbors returns candidate points around base along one dimension,
	// in the order they should be tried.
	Neighbors(base models.Parameters, dim models.ParameterName, step float64) []models.Parameters
	// Name returns the name of the exploration strategy
	Name() string
}

// CoordinateExplorer perturbs one slider by +step then -step, clamped to the
// slider bounds. Candidates that clamp back onto base are dropped.
type CoordinateExplorer struct{}

// NewCoordinateExplorer creates the default explorer
func NewCoordinateExplorer() *CoordinateExplorer {
	return &CoordinateExplorer{}
}

func (e *CoordinateExplorer) Name() string {
	return "coordinate"
}

func (e *CoordinateExplorer) Neighbors(base models.Parameters, dim models.ParameterName, step float64) []models.Parameters {
	out := make([]models.Parameters, 0, 2)
	current := base.Value(dim)
	for _, delta := range []float64{step, -step} {
		v := utils.ClampFloat64(current+delta, models.MinValue, models.MaxValue)
		if v == current {
			continue
		}
		out = append(out, base.With(dim, v))
	}
	return out
}
