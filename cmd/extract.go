package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/veracity-cli/internal/pipeline"
	"github.com/sells-group/veracity-cli/internal/schema"
)

var extractCmd = &cobra.Command{
	Use:   "extract <run-id>",
	Short: "Compute and store the feature vector of a run",
	Long:  "Extracts features from the run's evidence and the stored source priors. The reference time for recency defaults to the run's creation time so re-extraction is reproducible.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		version, _ := cmd.Flags().GetString("schema")
		asOfRaw, _ := cmd.Flags().GetString("as-of")
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}

		opts := pipeline.ExtractOptions{SchemaVersion: version}
		if asOfRaw != "" {
			asOf, err := time.Parse(time.RFC3339, asOfRaw)
			if err != nil {
				return eris.Wrapf(err, "parse --as-of %q", asOfRaw)
			}
			opts.AsOf = &asOf
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		fv, err := pipeline.New(cfg, st).Extract(ctx, args[0], opts)
		if err != nil {
			return err
		}
		if format == formatJSON {
			return writeJSON(cmd.OutOrStdout(), fv)
		}
		formatFeatures(cmd.OutOrStdout(), fv, schema.MustGet(fv.SchemaVersion).Names())
		return nil
	},
}

func init() {
	extractCmd.Flags().String("schema", "", "feature schema version (default extract.schema_version)")
	extractCmd.Flags().String("as-of", "", "reference time for recency, RFC 3339 (default run creation time)")
	extractCmd.Flags().String("format", formatTable, "output format (table, json)")
	rootCmd.AddCommand(extractCmd)
}
