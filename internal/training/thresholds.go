package training

import (
	"math"

	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/scoring"
)

// ObjectiveSelectiveBalancedAccuracy is balanced accuracy over the examples
// left outside the uncertain band, subject to a minimum coverage.
const ObjectiveSelectiveBalancedAccuracy = "selective_balanced_accuracy"

// ObjectiveFallback marks thresholds that could not be tuned.
const ObjectiveFallback = "fallback"

const (
	gridSteps = 20
	scoreEps  = 1e-12
)

// ThresholdResult is the outcome of threshold tuning.
type ThresholdResult struct {
	Thresholds       model.Thresholds
	Objective        string
	BalancedAccuracy float64
	Coverage         float64
}

// TuneThresholds searches t_low < t_high on the 0.05 grid. Ties prefer
// higher coverage, then the smaller t_low, then the smaller t_high. When no
// pair reaches minCoverage the baseline thresholds are returned.
func TuneThresholds(probs []float64, y []int, minCoverage float64) ThresholdResult {
	best := ThresholdResult{
		Thresholds: scoring.BaselineThresholds,
		Objective:  ObjectiveFallback,
	}
	found := false
	for i := 1; i < gridSteps; i++ {
		for j := i + 1; j < gridSteps; j++ {
			th := model.Thresholds{Low: float64(i) / gridSteps, High: float64(j) / gridSteps}
			ba, cov := selectiveBalancedAccuracy(probs, y, th)
			if cov < minCoverage-scoreEps {
				continue
			}
			better := !found ||
				ba > best.BalancedAccuracy+scoreEps ||
				(math.Abs(ba-best.BalancedAccuracy) <= scoreEps && cov > best.Coverage+scoreEps)
			if better {
				best = ThresholdResult{
					Thresholds:       th,
					Objective:        ObjectiveSelectiveBalancedAccuracy,
					BalancedAccuracy: ba,
					Coverage:         cov,
				}
				found = true
			}
		}
	}
	if !found {
		best.BalancedAccuracy, best.Coverage = selectiveBalancedAccuracy(probs, y, best.Thresholds)
	}
	return best
}

func selectiveBalancedAccuracy(probs []float64, y []int, th model.Thresholds) (ba, coverage float64) {
	if len(probs) == 0 {
		return 0, 0
	}
	var tp, fn, tn, fp int
	for i, p := range probs {
		label := scoring.LabelFor(p, th)
		if label == model.LabelUncertain {
			continue
		}
		pred := label.Binary()
		switch {
		case y[i] == 1 && pred == 1:
			tp++
		case y[i] == 1:
			fn++
		case pred == 0:
			tn++
		default:
			fp++
		}
	}
	decided := tp + fn + tn + fp
	coverage = float64(decided) / float64(len(probs))
	tpr := ratio(tp, tp+fn)
	tnr := ratio(tn, tn+fp)
	return (tpr + tnr) / 2, coverage
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
