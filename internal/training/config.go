// Package training fits logistic-regression scoring models offline:
// deterministic split, regularized Newton fit, Platt calibration and
// threshold tuning on the validation split.
package training

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/veracity-cli/internal/config"
)

// DefaultConfig returns the trainer defaults.
func DefaultConfig() config.TrainConfig {
	return config.TrainConfig{
		MaxIterations:   100,
		Tolerance:       1e-8,
		L2:              1e-3,
		ValidationRatio: 0.2,
		Seed:            42,
		MinCoverage:     0.7,
	}
}

// ValidateConfig checks that a TrainConfig is internally consistent.
func ValidateConfig(c config.TrainConfig) error {
	var errs []string

	if c.MaxIterations < 1 {
		errs = append(errs, "max_iterations must be >= 1")
	}
	if c.Tolerance <= 0 {
		errs = append(errs, "tolerance must be > 0")
	}
	if c.L2 < 0 {
		errs = append(errs, "l2 must be >= 0")
	}
	if c.ValidationRatio <= 0 || c.ValidationRatio >= 1 {
		errs = append(errs, fmt.Sprintf("validation_ratio must be in (0, 1), got %.3f", c.ValidationRatio))
	}
	if c.MinCoverage < 0 || c.MinCoverage > 1 {
		errs = append(errs, "min_coverage must be in [0, 1]")
	}

	if len(errs) > 0 {
		return eris.Errorf("training: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ConfigHash fingerprints the training parameters recorded with a model.
func ConfigHash(c config.TrainConfig) string {
	b, _ := json.Marshal(c)
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%x", sum[:16])
}
