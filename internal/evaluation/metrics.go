// Package evaluation computes classification and calibration metrics over
// per-example predictions.
package evaluation

import (
	"cmp"
	"slices"

	"github.com/sells-group/veracity-cli/internal/model"
)

// Confusion is the 2x2 confusion matrix with credible as the positive class.
type Confusion struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	TN int `json:"tn"`
	FN int `json:"fn"`
}

// CalibrationBin is one uniform-width bin of the reliability table.
type CalibrationBin struct {
	Bin     int     `json:"bin"`
	Low     float64 `json:"low"`
	High    float64 `json:"high"`
	Count   int     `json:"count"`
	AvgPred float64 `json:"avg_pred"`
	AvgObs  float64 `json:"avg_obs"`
}

// Metrics aggregates one batch of predictions. AUROC is nil when the batch
// holds a single true class.
type Metrics struct {
	N           int              `json:"n"`
	Confusion   Confusion        `json:"confusion"`
	Accuracy    float64          `json:"accuracy"`
	Precision   float64          `json:"precision"`
	Recall      float64          `json:"recall"`
	F1          float64          `json:"f1"`
	Brier       float64          `json:"brier"`
	AUROC       *float64         `json:"auroc"`
	ECE         float64          `json:"ece"`
	Calibration []CalibrationBin `json:"calibration"`
}

// Options sets the bin counts used by Compute.
type Options struct {
	CalibrationBins int
	ECEBins         int
}

// DefaultOptions matches the evaluate section defaults.
var DefaultOptions = Options{CalibrationBins: 5, ECEBins: 10}

// Compute evaluates a batch. True and predicted labels are mapped to binary
// with only credible counting as positive.
func Compute(records []model.EvalRecord, opts Options) Metrics {
	probs := make([]float64, len(records))
	truth := make([]int, len(records))
	var m Metrics
	m.N = len(records)

	var sq float64
	for i, r := range records {
		y := r.TrueLabel.Binary()
		pred := r.PredictedLabel.Binary()
		probs[i] = r.Probability
		truth[i] = y

		switch {
		case pred == 1 && y == 1:
			m.Confusion.TP++
		case pred == 1 && y == 0:
			m.Confusion.FP++
		case pred == 0 && y == 0:
			m.Confusion.TN++
		default:
			m.Confusion.FN++
		}
		d := r.Probability - float64(y)
		sq += d * d
	}

	c := m.Confusion
	m.Accuracy = safeDiv(float64(c.TP+c.TN), float64(m.N))
	m.Precision = safeDiv(float64(c.TP), float64(c.TP+c.FP))
	m.Recall = safeDiv(float64(c.TP), float64(c.TP+c.FN))
	m.F1 = safeDiv(2*m.Precision*m.Recall, m.Precision+m.Recall)
	m.Brier = safeDiv(sq, float64(m.N))

	if auc, err := AUROC(probs, truth); err == nil {
		m.AUROC = &auc
	}
	m.Calibration = CalibrationTable(probs, truth, opts.CalibrationBins)
	m.ECE = ECE(probs, truth, opts.ECEBins)
	return m
}

// AUROC is the probability that a random positive outranks a random
// negative, with tied scores counted as one half. It returns
// model.ErrUndefinedMetric unless both classes are present.
func AUROC(probs []float64, truth []int) (float64, error) {
	var pos, neg int
	for _, y := range truth {
		if y == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0, model.ErrUndefinedMetric
	}

	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int { return cmp.Compare(probs[a], probs[b]) })

	// Average ranks over tie groups (Mann-Whitney U).
	var rankSum float64
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && probs[idx[j]] == probs[idx[i]] {
			j++
		}
		avgRank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if truth[idx[k]] == 1 {
				rankSum += avgRank
			}
		}
		i = j
	}
	u := rankSum - float64(pos)*float64(pos+1)/2
	return u / (float64(pos) * float64(neg)), nil
}

// CalibrationTable buckets probabilities into uniform bins on [0,1]. The
// last bin is closed on the right. Empty bins report zero averages.
func CalibrationTable(probs []float64, truth []int, bins int) []CalibrationBin {
	if bins < 1 {
		bins = 1
	}
	out := make([]CalibrationBin, bins)
	sumPred := make([]float64, bins)
	sumObs := make([]float64, bins)
	for i := range out {
		out[i] = CalibrationBin{
			Bin:  i,
			Low:  float64(i) / float64(bins),
			High: float64(i+1) / float64(bins),
		}
	}
	for i, p := range probs {
		b := binIndex(p, bins)
		out[b].Count++
		sumPred[b] += p
		sumObs[b] += float64(truth[i])
	}
	for i := range out {
		out[i].AvgPred = safeDiv(sumPred[i], float64(out[i].Count))
		out[i].AvgObs = safeDiv(sumObs[i], float64(out[i].Count))
	}
	return out
}

// ECE is the count-weighted mean |avg_pred - avg_obs| over uniform bins.
func ECE(probs []float64, truth []int, bins int) float64 {
	if len(probs) == 0 {
		return 0
	}
	var ece float64
	for _, b := range CalibrationTable(probs, truth, bins) {
		gap := b.AvgPred - b.AvgObs
		if gap < 0 {
			gap = -gap
		}
		ece += float64(b.Count) / float64(len(probs)) * gap
	}
	return ece
}

func binIndex(p float64, bins int) int {
	b := int(p * float64(bins))
	return max(0, min(b, bins-1))
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
