package scoring

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/veracity-cli/internal/model"
)

// Calibrator maps a raw score to a probability in [0,1].
type Calibrator interface {
	Probability(raw float64) float64
	Params() model.CalibrationParams
}

// Sigmoid is the logistic function, evaluated without overflow for large
// magnitudes.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Clamp01 bounds p to [0,1].
func Clamp01(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}

// Affine is the fixed shrinkage transform used by the baseline:
// p = clamp(Offset + Scale*sigmoid(raw)).
type Affine struct {
	Offset float64
	Scale  float64
}

func (a Affine) Probability(raw float64) float64 {
	return Clamp01(a.Offset + a.Scale*Sigmoid(raw))
}

func (a Affine) Params() model.CalibrationParams {
	return model.CalibrationParams{Method: model.CalibrationAffine, A: a.Scale, B: a.Offset}
}

// Platt is the fitted 2-parameter transform p = sigmoid(A*raw + B).
type Platt struct {
	A float64
	B float64
}

// Identity leaves the logistic output of a trained model unchanged.
var Identity = Platt{A: 1, B: 0}

func (p Platt) Probability(raw float64) float64 {
	return Clamp01(Sigmoid(p.A*raw + p.B))
}

func (p Platt) Params() model.CalibrationParams {
	method := model.CalibrationPlatt
	if p == Identity {
		method = model.CalibrationIdentity
	}
	return model.CalibrationParams{Method: method, A: p.A, B: p.B}
}

// CalibratorFor rebuilds a calibrator from stored parameters.
func CalibratorFor(p model.CalibrationParams) (Calibrator, error) {
	switch p.Method {
	case model.CalibrationIdentity, "":
		return Identity, nil
	case model.CalibrationPlatt:
		if p.A < 0 {
			return nil, eris.Errorf("scoring: platt slope %.4f is not monotone increasing", p.A)
		}
		return Platt{A: p.A, B: p.B}, nil
	case model.CalibrationAffine:
		return Affine{Offset: p.B, Scale: p.A}, nil
	default:
		return nil, eris.Errorf("scoring: unknown calibration method %q", p.Method)
	}
}

// LabelFor partitions a probability with two thresholds:
// p < Low is not_credible, p > High is credible, anything between is
// uncertain (both bounds inclusive).
func LabelFor(p float64, th model.Thresholds) model.Label {
	switch {
	case p < th.Low:
		return model.LabelNotCredible
	case p > th.High:
		return model.LabelCredible
	default:
		return model.LabelUncertain
	}
}

// ValidateThresholds checks 0 <= Low < High <= 1.
func ValidateThresholds(th model.Thresholds) error {
	if th.Low < 0 || th.High > 1 || th.Low >= th.High {
		return eris.Errorf("scoring: invalid thresholds t_low=%.4f t_high=%.4f", th.Low, th.High)
	}
	return nil
}
