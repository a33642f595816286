package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/veracity-cli/internal/benchmark"
	"github.com/sells-group/veracity-cli/internal/dataset"
	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/pipeline"
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Benchmark models on one or more datasets, with optional ablation",
	Long: `Scores each dataset with every model, optionally re-scoring with each
feature group neutralized, and writes a content-addressed report directory
(report.json, predictions.csv, report.xlsx) per dataset. Re-running with the
same inputs reproduces the same report id and leaves an existing report
untouched.

Datasets come from --plan (YAML) or repeated --dataset flags.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		planPath, _ := cmd.Flags().GetString("plan")
		plan, err := benchmarkPlan(cmd, planPath)
		if err != nil {
			return err
		}
		if len(plan.Models) == 0 {
			plan.Models = cfg.Benchmark.Models
		}
		if plan.Ablation.Mode == "" {
			plan.Ablation.Mode = cfg.Benchmark.AblationMode
		}
		if plan.OutputDir != "" {
			cfg.Benchmark.OutputDir = plan.OutputDir
		}
		if err := cfg.Validate("benchmark"); err != nil {
			return err
		}
		mode, err := benchmark.ParseAblationMode(plan.Ablation.Mode)
		if err != nil {
			return err
		}
		version := plan.SchemaVersion
		if version == "" {
			version = cfg.Extract.SchemaVersion
		}
		groups := make([]model.FeatureGroup, 0, len(plan.Ablation.Groups))
		for _, g := range plan.Ablation.Groups {
			groups = append(groups, model.FeatureGroup(g))
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		resolver := pipeline.New(cfg, st).Resolver(version, plan.AllowSynthetic)
		runner := benchmark.NewRunner(st, resolver, cfg)

		out := cmd.OutOrStdout()
		for _, dp := range plan.Datasets {
			ds, err := dataset.Load(dp.Path, dp.Name, dp.LabelMap)
			if err != nil {
				return err
			}
			res, err := runner.Run(ctx, ds, benchmark.Options{
				Models:        plan.Models,
				SchemaVersion: version,
				Ablate:        plan.Ablation.Enabled,
				AblationMode:  mode,
				Groups:        groups,
			})
			if err != nil {
				return err
			}

			state := "written"
			if !res.Created {
				state = "exists"
			}
			_, _ = fmt.Fprintf(out, "%s  %s  %s (%s)\n", ds.Name, res.Report.ID, res.Dir, state)
			rows := make([]metricsRow, 0, len(res.Report.Results))
			for _, mr := range res.Report.Results {
				rows = append(rows, metricsRow{Model: mr.Model, Variant: model.VariantFull, Metrics: mr.Full.Overall})
				for _, ab := range mr.Ablations {
					rows = append(rows, metricsRow{Model: mr.Model, Variant: model.AblationVariant(ab.Group), Metrics: ab.Metrics})
				}
			}
			formatMetrics(out, rows)
			_, _ = fmt.Fprintln(out)
		}
		return nil
	},
}

// benchmarkPlan loads --plan or builds a plan from the dataset flags.
func benchmarkPlan(cmd *cobra.Command, path string) (*benchmark.Plan, error) {
	if path != "" {
		return benchmark.LoadPlan(path)
	}

	paths, _ := cmd.Flags().GetStringSlice("dataset")
	labelMap, _ := cmd.Flags().GetString("label-map")
	models, _ := cmd.Flags().GetStringSlice("model")
	version, _ := cmd.Flags().GetString("schema")
	ablate, _ := cmd.Flags().GetBool("ablation")
	mode, _ := cmd.Flags().GetString("ablation-mode")
	groups, _ := cmd.Flags().GetStringSlice("groups")
	allowSynthetic, _ := cmd.Flags().GetBool("allow-synthetic")
	outputDir, _ := cmd.Flags().GetString("output-dir")

	if len(paths) == 0 {
		return nil, eris.New("benchmark: --plan or --dataset is required")
	}
	p := &benchmark.Plan{
		Models:         models,
		SchemaVersion:  version,
		AllowSynthetic: allowSynthetic,
		Ablation: benchmark.AblationPlan{
			Enabled: ablate,
			Mode:    mode,
			Groups:  groups,
		},
		OutputDir: outputDir,
	}
	for _, dp := range paths {
		p.Datasets = append(p.Datasets, benchmark.DatasetPlan{Path: dp, LabelMap: labelMap})
	}
	if err := p.Validate(); err != nil {
		return nil, eris.Wrap(err, "benchmark")
	}
	return p, nil
}

func init() {
	f := benchmarkCmd.Flags()
	f.String("plan", "", "YAML benchmark plan (overrides the dataset flags)")
	f.StringSlice("dataset", nil, "labeled dataset file, repeatable")
	f.String("label-map", dataset.LabelMapGeneric, "label map for --dataset files (generic, liar, fever)")
	f.StringSlice("model", nil, "model reference, repeatable (default benchmark.models)")
	f.String("schema", "", "feature schema version (default extract.schema_version)")
	f.Bool("ablation", false, "re-score with each feature group neutralized")
	f.String("ablation-mode", "", "ablation replacement: zero or neutral (default benchmark.ablation_mode)")
	f.StringSlice("groups", nil, "feature groups to ablate (default all groups of the schema)")
	f.Bool("allow-synthetic", false, "derive deterministic synthetic features for examples without features")
	f.String("output-dir", "", "report root directory (default benchmark.output_dir)")
	rootCmd.AddCommand(benchmarkCmd)
}
