package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/veracity-cli/internal/dataset"
	"github.com/sells-group/veracity-cli/internal/pipeline"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit a calibrated logistic model on a labeled dataset",
	Long:  "Fits an L2-regularized logistic regression on the binary-labeled examples of a dataset, calibrates it with Platt scaling on a held-out split and stores it under the next version of --model-id.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("train"); err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString("dataset")
		labelMap, _ := cmd.Flags().GetString("label-map")
		name, _ := cmd.Flags().GetString("name")
		modelID, _ := cmd.Flags().GetString("model-id")
		version, _ := cmd.Flags().GetString("schema")
		allowSynthetic, _ := cmd.Flags().GetBool("allow-synthetic")

		ds, err := dataset.Load(path, name, labelMap)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		m, err := pipeline.New(cfg, st).Train(ctx, pipeline.TrainRequest{
			ModelID:        modelID,
			SchemaVersion:  version,
			Dataset:        ds,
			AllowSynthetic: allowSynthetic,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "trained %s on %s (%d train, %d validation)\n\n",
			m.Ref(), m.DatasetName, m.TrainSize, m.ValidationSize)
		formatModel(out, m)
		return nil
	},
}

func init() {
	trainCmd.Flags().String("dataset", "", "labeled dataset file (csv, xlsx, json, jsonl)")
	trainCmd.Flags().String("label-map", dataset.LabelMapGeneric, "label map (generic, liar, fever)")
	trainCmd.Flags().String("name", "", "dataset name (default file base name)")
	trainCmd.Flags().String("model-id", "lr", "model id to store the fit under")
	trainCmd.Flags().String("schema", "", "feature schema version (default extract.schema_version)")
	trainCmd.Flags().Bool("allow-synthetic", false, "derive deterministic synthetic features for examples without features")
	_ = trainCmd.MarkFlagRequired("dataset")
	rootCmd.AddCommand(trainCmd)
}
