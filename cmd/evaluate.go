package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/veracity-cli/internal/dataset"
	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/pipeline"
	"github.com/sells-group/veracity-cli/internal/scoring"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a model on a labeled dataset",
	Long:  "Scores every example of a dataset with one model and reports accuracy, precision, recall, F1, Brier score, AUROC and ECE, overall and per stratum. With --output-dir, false positives, false negatives, hard cases and a summary are written there.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("evaluate"); err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString("dataset")
		labelMap, _ := cmd.Flags().GetString("label-map")
		name, _ := cmd.Flags().GetString("name")
		ref, _ := cmd.Flags().GetString("model")
		version, _ := cmd.Flags().GetString("schema")
		allowSynthetic, _ := cmd.Flags().GetBool("allow-synthetic")
		outputDir, _ := cmd.Flags().GetString("output-dir")
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}

		ds, err := dataset.Load(path, name, labelMap)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ev, err := pipeline.New(cfg, st).Evaluate(ctx, pipeline.EvaluateRequest{
			Dataset:        ds,
			ModelRef:       ref,
			SchemaVersion:  version,
			AllowSynthetic: allowSynthetic,
			OutputDir:      outputDir,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if format == formatJSON {
			return writeJSON(out, ev)
		}
		_, _ = fmt.Fprintf(out, "%s on %s (%s)\n\n", ev.Model, ev.Dataset, truncateID(ev.Hash))
		formatMetrics(out, []metricsRow{{Model: ev.Model, Variant: model.VariantFull, Metrics: ev.Report.Overall}})
		if len(ev.Report.Strata) > 0 {
			_, _ = fmt.Fprintln(out)
			formatStrata(out, ev.Report.Strata)
		}
		return nil
	},
}

func init() {
	evaluateCmd.Flags().String("dataset", "", "labeled dataset file (csv, xlsx, json, jsonl)")
	evaluateCmd.Flags().String("label-map", dataset.LabelMapGeneric, "label map (generic, liar, fever)")
	evaluateCmd.Flags().String("name", "", "dataset name (default file base name)")
	evaluateCmd.Flags().String("model", scoring.BaselineID, "model reference (id or id@version)")
	evaluateCmd.Flags().String("schema", "", "feature schema version (default extract.schema_version)")
	evaluateCmd.Flags().Bool("allow-synthetic", false, "derive deterministic synthetic features for examples without features")
	evaluateCmd.Flags().String("output-dir", "", "directory for error artifacts and summary")
	evaluateCmd.Flags().String("format", formatTable, "output format (table, json)")
	_ = evaluateCmd.MarkFlagRequired("dataset")
	rootCmd.AddCommand(evaluateCmd)
}
