package improvement

import (
	"fmt"
	"sort"

	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/models"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/utils"
)

const (
	// FindingThresholdPercent is the smallest relative change reported as a key finding
	FindingThresholdPercent = 15.0
)

// Compare computes the relative difference of every outcome metric between
// baseline and each of others, and derives key findings.
func Compare(baseline models.SimulationRun, others []models.SimulationRun) (models.ComparisonMetric, error) {
	if len(others) == 0 {
		return models.ComparisonMetric{}, fmt.Errorf("%w: need at least one run to compare against the baseline", models.ErrInsufficientRuns)
	}

	ids := make([]string, len(others))
	for i, run := range others {
		ids[i] = runLabel(run, i)
	}

	metrics := make(map[models.MetricName]models.MetricComparison, len(models.MetricNames))
	for _, name := range models.MetricNames {
		base := baseline.Results.Value(name)
		values := make([]float64, len(others))
		diffs := make([]float64, len(others))
		for i, run := range others {
			values[i] = run.Results.Value(name)
			diffs[i] = utils.RelativeChange(base, values[i], relativeFloor)
		}
		metrics[name] = models.MetricComparison{
			BaselineValue:         base,
			ComparedValues:        values,
			PercentageDifferences: diffs,
		}
	}

	return models.ComparisonMetric{
		BaselineRunID:  baseline.ID,
		ComparedRunIDs: ids,
		Metrics:        metrics,
		Summary: models.ComparisonSummary{
			KeyFindings: keyFindings(metrics, ids),
		},
	}, nil
}

type finding struct {
	metric    models.MetricName
	magnitude float64
	text      string
}

// keyFindings reports every metric whose largest relative change reaches the
// threshold, strongest first. Ties keep metric order.
func keyFindings(metrics map[models.MetricName]models.MetricComparison, ids []string) []string {
	found := make([]finding, 0, len(models.MetricNames))
	for _, name := range models.MetricNames {
		mc := metrics[name]
		idx, magnitude := utils.MaxAbsIndex(mc.PercentageDifferences)
		if idx < 0 || magnitude < FindingThresholdPercent {
			continue
		}
		diff := mc.PercentageDifferences[idx]
		direction := "increased"
		if diff < 0 {
			direction = "decreased"
		}
		found = append(found, finding{
			metric:    name,
			magnitude: magnitude,
			text: fmt.Sprintf("%s %s by %.1f%% in run %s (%.2f vs baseline %.2f)",
				name, direction, magnitude, ids[idx], mc.ComparedValues[idx], mc.BaselineValue),
		})
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].magnitude > found[j].magnitude
	})

	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.text
	}
	return out
}

// runLabel identifies a compared run; unpersisted runs fall back to their position
func runLabel(run models.SimulationRun, index int) string {
	if run.ID != "" {
		return run.ID
	}
	return fmt.Sprintf("#%d", index)
}
