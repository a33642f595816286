package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/veracity-cli/internal/priors"
)

var priorsCmd = &cobra.Command{
	Use:   "priors",
	Short: "Manage domain-level source reliability priors",
}

var priorsLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Load priors from a CSV, XLSX, JSON or JSONL file",
	Long:  "Reads rows with columns domain, reliability_label (-1, 0, 1) and an optional score in [0, 100], and upserts one prior per domain.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		ps, err := priors.LoadFile(args[0], time.Now().UTC())
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.UpsertPriors(ctx, ps)
		if err != nil {
			return eris.Wrap(err, "priors load")
		}
		zap.L().Info("priors loaded", zap.String("file", args[0]), zap.Int("domains", n))
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "loaded %d priors\n", n)
		return nil
	},
}

var priorsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List stored priors",
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

		ps, err := st.ListPriors(ctx)
		if err != nil {
			return eris.Wrap(err, "priors show")
		}
		if format == formatJSON {
			return writeJSON(cmd.OutOrStdout(), ps)
		}
		formatPriors(cmd.OutOrStdout(), ps)
		return nil
	},
}

func init() {
	priorsShowCmd.Flags().String("format", formatTable, "output format (table, json)")

	priorsCmd.AddCommand(priorsLoadCmd)
	priorsCmd.AddCommand(priorsShowCmd)
	rootCmd.AddCommand(priorsCmd)
}
