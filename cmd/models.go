package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/veracity-cli/internal/scoring"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect scoring models",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the baseline and every stored trained model version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		models, err := st.ListTrainedModels(ctx)
		if err != nil {
			return eris.Wrap(err, "models list")
		}
		if format == formatJSON {
			return writeJSON(cmd.OutOrStdout(), models)
		}
		formatModels(cmd.OutOrStdout(), models)
		return nil
	},
}

var modelsShowCmd = &cobra.Command{
	Use:   "show <model>",
	Short: "Show a trained model (id or id@version)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}
		id, version, err := scoring.ParseRef(args[0])
		if err != nil {
			return err
		}
		if id == scoring.BaselineID {
			return eris.Errorf("%s is built in and has no stored record", scoring.BaselineID)
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		m, err := st.GetTrainedModel(ctx, id, version)
		if err != nil {
			return eris.Wrap(err, "models show")
		}
		if format == formatJSON {
			return writeJSON(cmd.OutOrStdout(), m)
		}
		formatModel(cmd.OutOrStdout(), m)
		return nil
	},
}

func init() {
	modelsListCmd.Flags().String("format", formatTable, "output format (table, json)")
	modelsShowCmd.Flags().String("format", formatTable, "output format (table, json)")

	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsShowCmd)
	rootCmd.AddCommand(modelsCmd)
}
