package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Train     TrainConfig     `yaml:"train" mapstructure:"train"`
	Evaluate  EvaluateConfig  `yaml:"evaluate" mapstructure:"evaluate"`
	Benchmark BenchmarkConfig `yaml:"benchmark" mapstructure:"benchmark"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ExtractConfig configures feature extraction.
type ExtractConfig struct {
	SchemaVersion string `yaml:"schema_version" mapstructure:"schema_version"`
}

// TrainConfig configures the logistic trainer.
type TrainConfig struct {
	MaxIterations   int     `yaml:"max_iterations" mapstructure:"max_iterations"`
	Tolerance       float64 `yaml:"tolerance" mapstructure:"tolerance"`
	L2              float64 `yaml:"l2" mapstructure:"l2"`
	ValidationRatio float64 `yaml:"validation_ratio" mapstructure:"validation_ratio"`
	Seed            int64   `yaml:"seed" mapstructure:"seed"`
	MinCoverage     float64 `yaml:"min_coverage" mapstructure:"min_coverage"`
}

// EvaluateConfig configures metric computation and error artifacts.
type EvaluateConfig struct {
	CalibrationBins int     `yaml:"calibration_bins" mapstructure:"calibration_bins"`
	ECEBins         int     `yaml:"ece_bins" mapstructure:"ece_bins"`
	ErrorTopN       int     `yaml:"error_top_n" mapstructure:"error_top_n"`
	HardCaseHigh    float64 `yaml:"hard_case_high" mapstructure:"hard_case_high"`
	HardCaseLow     float64 `yaml:"hard_case_low" mapstructure:"hard_case_low"`
}

// BenchmarkConfig configures the benchmark runner.
type BenchmarkConfig struct {
	Concurrency  int      `yaml:"concurrency" mapstructure:"concurrency"`
	OutputDir    string   `yaml:"output_dir" mapstructure:"output_dir"`
	AblationMode string   `yaml:"ablation_mode" mapstructure:"ablation_mode"`
	Models       []string `yaml:"models" mapstructure:"models"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VERACITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "veracity.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("extract.schema_version", "v2")
	v.SetDefault("train.max_iterations", 100)
	v.SetDefault("train.tolerance", 1e-8)
	v.SetDefault("train.l2", 1e-3)
	v.SetDefault("train.validation_ratio", 0.2)
	v.SetDefault("train.seed", 42)
	v.SetDefault("train.min_coverage", 0.7)
	v.SetDefault("evaluate.calibration_bins", 5)
	v.SetDefault("evaluate.ece_bins", 10)
	v.SetDefault("evaluate.error_top_n", 20)
	v.SetDefault("evaluate.hard_case_high", 0.8)
	v.SetDefault("evaluate.hard_case_low", 0.2)
	v.SetDefault("benchmark.concurrency", 4)
	v.SetDefault("benchmark.output_dir", "reports/benchmarks")
	v.SetDefault("benchmark.ablation_mode", "zero")
	v.SetDefault("benchmark.models", []string{"baseline_v1"})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the sections a command mode depends on. Every problem is
// reported, not just the first.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch mode {
	case "store":
	case "train":
		if c.Train.MaxIterations < 1 {
			errs = append(errs, "train.max_iterations must be >= 1")
		}
		if c.Train.Tolerance <= 0 {
			errs = append(errs, "train.tolerance must be > 0")
		}
		if c.Train.L2 < 0 {
			errs = append(errs, "train.l2 must be >= 0")
		}
		if c.Train.ValidationRatio <= 0 || c.Train.ValidationRatio >= 1 {
			errs = append(errs, "train.validation_ratio must be in (0, 1)")
		}
		if c.Train.MinCoverage < 0 || c.Train.MinCoverage > 1 {
			errs = append(errs, "train.min_coverage must be in [0, 1]")
		}
	case "evaluate":
		errs = append(errs, c.Evaluate.problems()...)
	case "benchmark":
		errs = append(errs, c.Evaluate.problems()...)
		if c.Benchmark.Concurrency < 1 || c.Benchmark.Concurrency > 64 {
			errs = append(errs, "benchmark.concurrency must be between 1 and 64")
		}
		if c.Benchmark.OutputDir == "" {
			errs = append(errs, "benchmark.output_dir is required")
		}
		if c.Benchmark.AblationMode != "zero" && c.Benchmark.AblationMode != "neutral" {
			errs = append(errs, fmt.Sprintf("benchmark.ablation_mode must be zero or neutral, got %q", c.Benchmark.AblationMode))
		}
		if len(c.Benchmark.Models) == 0 {
			errs = append(errs, "benchmark.models must list at least one model")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed for %s: %s", mode, strings.Join(errs, "; "))
	}
	return nil
}

func (e EvaluateConfig) problems() []string {
	var errs []string
	if e.CalibrationBins < 1 {
		errs = append(errs, "evaluate.calibration_bins must be >= 1")
	}
	if e.ECEBins < 1 {
		errs = append(errs, "evaluate.ece_bins must be >= 1")
	}
	if e.ErrorTopN < 0 {
		errs = append(errs, "evaluate.error_top_n must be >= 0")
	}
	if e.HardCaseLow < 0 || e.HardCaseHigh > 1 || e.HardCaseLow >= e.HardCaseHigh {
		errs = append(errs, "evaluate.hard_case_low must be < hard_case_high within [0, 1]")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
