package training

import (
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/veracity-cli/internal/config"
	"github.com/sells-group/veracity-cli/internal/evaluation"
	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/schema"
	"github.com/sells-group/veracity-cli/internal/scoring"
)

// Request describes one training invocation.
type Request struct {
	ModelID       string
	SchemaVersion string
	DatasetName   string
	DatasetHash   string
	Samples       []Sample
	Now           time.Time
}

// Train fits a logistic model, its Platt calibration and its thresholds.
// The returned record has Version 0; the store assigns the next version
// when it is saved. Nothing is returned when an optimizer fails to
// converge.
func Train(req Request, cfg config.TrainConfig) (*model.TrainedModel, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if req.ModelID == "" {
		return nil, eris.New("training: model id is required")
	}
	if req.ModelID == scoring.BaselineID {
		return nil, eris.Errorf("training: model id %q is reserved", req.ModelID)
	}
	if req.SchemaVersion == "" {
		req.SchemaVersion = schema.Latest
	}
	s, err := schema.Get(req.SchemaVersion)
	if err != nil {
		return nil, eris.Wrapf(err, "training: model %s", req.ModelID)
	}

	log := zap.L().With(
		zap.String("model_id", req.ModelID),
		zap.String("schema_version", s.Version),
		zap.String("dataset_hash", req.DatasetHash),
	)
	start := time.Now()

	trainSet, valSet := Split(req.Samples, cfg.ValidationRatio, cfg.Seed)
	if !hasBothClasses(trainSet) {
		return nil, eris.Errorf("training: model %s: training split of dataset %s needs both classes (%d rows)",
			req.ModelID, req.DatasetHash, len(trainSet))
	}

	xTrain, yTrain, err := design(s, trainSet)
	if err != nil {
		return nil, eris.Wrapf(err, "training: model %s", req.ModelID)
	}
	yTrainF := make([]float64, len(yTrain))
	for i, v := range yTrain {
		yTrainF[i] = float64(v)
	}

	fit, err := fitLogistic(xTrain, yTrainF, cfg.L2, cfg.MaxIterations, cfg.Tolerance)
	if err != nil {
		return nil, eris.Wrapf(err, "training: model %s", req.ModelID)
	}
	if !fit.Converged {
		return nil, &model.TrainingDidNotConvergeError{
			ModelID:      req.ModelID,
			DatasetHash:  req.DatasetHash,
			Stage:        "logistic",
			Iterations:   fit.Iterations,
			GradientNorm: fit.GradNorm,
		}
	}

	rec := &model.TrainedModel{
		ModelID:        req.ModelID,
		SchemaVersion:  s.Version,
		FeatureNames:   s.Names(),
		Weights:        fit.Weights,
		Bias:           fit.Bias,
		Calibration:    scoring.Identity.Params(),
		Thresholds:     scoring.BaselineThresholds,
		DatasetName:    req.DatasetName,
		DatasetHash:    req.DatasetHash,
		ConfigHash:     ConfigHash(cfg),
		Iterations:     fit.Iterations,
		TrainSize:      len(trainSet),
		ValidationSize: len(valSet),
		CreatedAt:      req.Now,
	}

	xVal, yVal, err := design(s, valSet)
	if err != nil {
		return nil, eris.Wrapf(err, "training: model %s", req.ModelID)
	}
	raw := make([]float64, len(xVal))
	for i, row := range xVal {
		raw[i] = rec.Bias + dot(rec.Weights, row)
	}

	cal, err := calibrate(req, raw, yVal, cfg, log)
	if err != nil {
		return nil, err
	}
	rec.Calibration = cal.Params()

	probs := make([]float64, len(raw))
	for i, r := range raw {
		probs[i] = cal.Probability(r)
	}
	tuned := TuneThresholds(probs, yVal, cfg.MinCoverage)
	rec.Thresholds = tuned.Thresholds
	rec.ThresholdObjective = tuned.Objective

	m, err := scoring.NewTrained(rec)
	if err != nil {
		return nil, err
	}
	rec.Metrics, err = validationMetrics(m, valSet, tuned)
	if err != nil {
		return nil, err
	}

	log.Info("training: model fitted",
		zap.Int("train_size", rec.TrainSize),
		zap.Int("validation_size", rec.ValidationSize),
		zap.Int("iterations", rec.Iterations),
		zap.String("calibration", string(rec.Calibration.Method)),
		zap.Float64("t_low", rec.Thresholds.Low),
		zap.Float64("t_high", rec.Thresholds.High),
		zap.String("threshold_objective", rec.ThresholdObjective),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rec, nil
}

// calibrate fits Platt scaling on validation raw scores. A validation set
// with one class, constant scores or an inverted fit keeps the identity.
func calibrate(req Request, raw []float64, y []int, cfg config.TrainConfig, log *zap.Logger) (scoring.Calibrator, error) {
	if !hasBothLabels(y) || constant(raw) {
		log.Warn("training: validation split cannot support calibration, using identity",
			zap.Int("validation_size", len(y)))
		return scoring.Identity, nil
	}
	platt, res, err := fitPlatt(raw, y, cfg.MaxIterations, cfg.Tolerance)
	if err != nil {
		return nil, eris.Wrapf(err, "training: model %s: platt", req.ModelID)
	}
	if !res.Converged {
		return nil, &model.TrainingDidNotConvergeError{
			ModelID:      req.ModelID,
			DatasetHash:  req.DatasetHash,
			Stage:        "platt",
			Iterations:   res.Iterations,
			GradientNorm: res.GradNorm,
		}
	}
	if platt.A <= 0 {
		log.Warn("training: platt slope is not positive, using identity", zap.Float64("a", platt.A))
		return scoring.Identity, nil
	}
	return platt, nil
}

func validationMetrics(m scoring.Model, val []Sample, tuned ThresholdResult) (map[string]float64, error) {
	records := make([]model.EvalRecord, 0, len(val))
	for _, smp := range val {
		res, err := scoring.Score(smp.Features, m)
		if err != nil {
			return nil, eris.Wrapf(err, "training: score validation row %s", smp.ID)
		}
		truth := model.LabelNotCredible
		if smp.Label == 1 {
			truth = model.LabelCredible
		}
		records = append(records, model.EvalRecord{
			ClaimID:        smp.ID,
			PredictedLabel: res.Label,
			Probability:    res.Probability,
			TrueLabel:      truth,
		})
	}

	met := evaluation.Compute(records, evaluation.DefaultOptions)
	out := map[string]float64{
		"accuracy":          met.Accuracy,
		"precision":         met.Precision,
		"recall":            met.Recall,
		"f1":                met.F1,
		"brier":             met.Brier,
		"ece":               met.ECE,
		"balanced_accuracy": tuned.BalancedAccuracy,
		"coverage":          tuned.Coverage,
	}
	if met.AUROC != nil {
		out["auroc"] = *met.AUROC
	}
	return out, nil
}

func design(s *schema.Schema, samples []Sample) ([][]float64, []int, error) {
	x := make([][]float64, len(samples))
	y := make([]int, len(samples))
	for i, smp := range samples {
		vec, err := s.Vectorize(smp.Features)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "row %s", smp.ID)
		}
		x[i] = vec
		y[i] = smp.Label
	}
	return x, y, nil
}

func hasBothClasses(samples []Sample) bool {
	y := make([]int, len(samples))
	for i, s := range samples {
		y[i] = s.Label
	}
	return hasBothLabels(y)
}

func hasBothLabels(y []int) bool {
	var pos, neg bool
	for _, v := range y {
		if v == 1 {
			pos = true
		} else {
			neg = true
		}
	}
	return pos && neg
}

func constant(xs []float64) bool {
	if len(xs) == 0 {
		return true
	}
	for _, x := range xs[1:] {
		if math.Abs(x-xs[0]) > minColumnStd {
			return false
		}
	}
	return true
}
