package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/pipeline"
	"github.com/sells-group/veracity-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Create runs, attach evidence and inspect run history",
}

// -- runs create --

var runsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a run for a claim",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		claim, _ := cmd.Flags().GetString("claim")
		query, _ := cmd.Flags().GetString("query")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.CreateRun(ctx, claim, query)
		if err != nil {
			return eris.Wrap(err, "runs create")
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), run.ID)
		return nil
	},
}

// -- runs ingest --

var runsIngestCmd = &cobra.Command{
	Use:   "ingest <run-id>",
	Short: "Attach evidence articles to a run",
	Long:  "Reads a JSON array of articles (url, domain, title, snippet, published_at, retrieved_at) from --file, or stdin when --file is -.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		path, _ := cmd.Flags().GetString("file")
		var r io.Reader = cmd.InOrStdin()
		if path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return eris.Wrap(err, "runs ingest")
			}
			defer f.Close() //nolint:errcheck
			r = f
		}
		items, err := pipeline.DecodeEvidence(r)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := pipeline.New(cfg, st).Ingest(ctx, args[0], items)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "received %d, unique %d, new %d\n", res.Received, res.Unique, res.New)
		return nil
	},
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if format == formatJSON {
			return writeJSON(cmd.OutOrStdout(), runs)
		}
		if len(runs) == 0 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No runs found.")
			return nil
		}
		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs show --

// runDetail is everything stored for a run.
type runDetail struct {
	Run      *model.Run           `json:"run"`
	Evidence []model.EvidenceItem `json:"evidence"`
	Features *model.FeatureVector `json:"features,omitempty"`
	Scores   []model.ScoreResult  `json:"scores,omitempty"`
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run with its evidence, features and scores",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		detail := runDetail{Run: run}
		if detail.Evidence, err = st.ListEvidence(ctx, run.ID); err != nil {
			return eris.Wrap(err, "runs show")
		}
		fv, err := st.GetFeatures(ctx, run.ID)
		switch {
		case err == nil:
			detail.Features = fv
		case !store.IsNotFound(err):
			return eris.Wrap(err, "runs show")
		}
		if detail.Scores, err = st.ListScores(ctx, run.ID); err != nil {
			return eris.Wrap(err, "runs show")
		}
		return writeJSON(cmd.OutOrStdout(), detail)
	},
}

func init() {
	runsCreateCmd.Flags().String("claim", "", "claim text (required)")
	runsCreateCmd.Flags().String("query", "", "search query used to retrieve evidence")
	_ = runsCreateCmd.MarkFlagRequired("claim")

	runsIngestCmd.Flags().String("file", "-", "JSON array of articles, - for stdin")

	runsListCmd.Flags().String("status", "", "filter by run status (created, extracted, scored, failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsListCmd.Flags().Int("offset", 0, "number of runs to skip")
	runsListCmd.Flags().String("format", formatTable, "output format (table, json)")

	runsCmd.AddCommand(runsCreateCmd)
	runsCmd.AddCommand(runsIngestCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
