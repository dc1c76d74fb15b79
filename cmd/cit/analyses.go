package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/p300-cit/internal/cli"
	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/model"
	"github.com/spf13/cobra"
)

func analysesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyses",
		Short: "Review stored classification runs",
	}

	cmd.AddCommand(analysesListCmd())
	cmd.AddCommand(analysesShowCmd())

	return cmd
}

func analysesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List classification runs, newest first",
		RunE:  runAnalysesList,
	}
	cmd.Flags().Int("limit", 20, "maximum runs to list (0 for all)")
	return cmd
}

func runAnalysesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	limit, _ := cmd.Flags().GetInt("limit")
	results, err := store.ListAnalyses(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list analyses: %w", err)
	}

	if len(results) == 0 {
		fmt.Println(cli.InfoStyle.Render("No analyses found. Use 'cit classify' to run one.")) //nolint:forbidigo // User-facing output
		return nil
	}

	fmt.Println(cli.FormatTitle("Analyses"))                                                                               //nolint:forbidigo // User-facing output
	fmt.Println(cli.RenderTable([]string{"ID", "Source", "Metric", "Verdict", "Max p", "Created"}, analysisRows(results))) //nolint:forbidigo // User-facing output
	return nil
}

func analysisRows(results []model.ClassificationResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		source := r.Source
		if source == "" {
			source = "-"
		}
		rows = append(rows, []string{
			r.ID,
			source,
			r.Metric,
			cli.LabelStyle(r.Label).Render(string(r.Label)),
			fmt.Sprintf("%.3f", r.MaxProportion),
			r.CreatedAt.Local().Format(time.DateTime),
		})
	}
	return rows
}

func analysesShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <analysis-id>",
		Short: "Show a stored classification run",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalysesShow,
	}
	cmd.Flags().StringSlice("export", nil, "export formats (csv, json)")
	return cmd
}

func runAnalysesShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	formatNames, _ := cmd.Flags().GetStringSlice("export")
	formats, err := parseFormats(formatNames)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	result, err := store.GetAnalysis(ctx, args[0])
	if errors.Is(err, common.ErrNotFound) {
		return common.NewUserError(fmt.Sprintf("No analysis with ID %s", args[0]), err)
	}
	if err != nil {
		return fmt.Errorf("failed to get analysis: %w", err)
	}

	fmt.Println(cli.RenderResult(result)) //nolint:forbidigo // User-facing output

	participant := model.Participant{ID: "unknown", Session: "1"}
	if result.SessionID != "" {
		session, err := store.GetSession(ctx, result.SessionID)
		switch {
		case err == nil:
			participant = session.Participant
		case !errors.Is(err, common.ErrNotFound):
			return fmt.Errorf("failed to get session: %w", err)
		}
	}

	paths, err := exportResult(result, participant, formats, outputDirectory())
	for _, p := range paths {
		fmt.Println(cli.FormatSuccess("Wrote " + p)) //nolint:forbidigo // User-facing output
	}
	return err
}
