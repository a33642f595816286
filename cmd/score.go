package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/veracity-cli/internal/pipeline"
	"github.com/sells-group/veracity-cli/internal/scoring"
)

var scoreCmd = &cobra.Command{
	Use:   "score <run-id>",
	Short: "Score a run's features with one or more models",
	Long:  "Scores the stored feature vector of a run. Models are given as id or id@version; a bare id resolves to the latest version. Re-scoring with the same model id replaces the earlier result.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		refs, _ := cmd.Flags().GetStringSlice("model")
		top, _ := cmd.Flags().GetInt("explain")
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		results, err := pipeline.New(cfg, st).Score(ctx, args[0], refs)
		if err != nil {
			return err
		}
		if format == formatJSON {
			return writeJSON(cmd.OutOrStdout(), results)
		}
		formatScores(cmd.OutOrStdout(), results, top)
		return nil
	},
}

func init() {
	scoreCmd.Flags().StringSlice("model", []string{scoring.BaselineID}, "model reference, repeatable (id or id@version)")
	scoreCmd.Flags().Int("explain", 3, "number of top contributing features to show")
	scoreCmd.Flags().String("format", formatTable, "output format (table, json)")
	rootCmd.AddCommand(scoreCmd)
}
