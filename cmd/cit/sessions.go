package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Veraticus/p300-cit/internal/cli"
	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/sequence"
	"github.com/Veraticus/p300-cit/internal/service"
	"github.com/spf13/cobra"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Review stored sessions",
		Long: `📊 Stored Sessions

Every generated sequence is stored with the protocol and seed that produced
it. Use these commands to review, export, or remove them.`,
	}

	cmd.AddCommand(sessionsListCmd())
	cmd.AddCommand(sessionsShowCmd())
	cmd.AddCommand(sessionsDeleteCmd())

	return cmd
}

func sessionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions, newest first",
		RunE:  runSessionsList,
	}
	cmd.Flags().String("participant", "", "only list sessions of this participant")
	return cmd
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	participant, _ := cmd.Flags().GetString("participant")
	sessions, err := store.ListSessions(ctx, participant)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println(cli.InfoStyle.Render("No sessions found. Use 'cit generate' to create one.")) //nolint:forbidigo // User-facing output
		return nil
	}

	fmt.Println(cli.FormatTitle("Sessions")) //nolint:forbidigo // User-facing output
	fmt.Println(cli.RenderTable(             //nolint:forbidigo // User-facing output
		[]string{"ID", "Participant", "Session", "Condition", "Trials", "Blocks", "Seed", "Created"},
		sessionRows(sessions),
	))
	return nil
}

func sessionRows(sessions []service.SessionInfo) [][]string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		condition := s.Participant.Condition
		if condition == "" {
			condition = "-"
		}
		rows = append(rows, []string{
			s.ID,
			s.Participant.ID,
			s.Participant.Session,
			condition,
			fmt.Sprintf("%d", s.Trials),
			fmt.Sprintf("%d", s.Blocks),
			fmt.Sprintf("%d", s.Seed),
			s.CreatedAt.Local().Format(time.DateTime),
		})
	}
	return rows
}

func sessionsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a stored session's trial distribution",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionsShow,
	}
	cmd.Flags().StringSlice("export", nil, "export formats (csv, json)")
	return cmd
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
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

	session, err := store.GetSession(ctx, args[0])
	if errors.Is(err, common.ErrNotFound) {
		return common.NewUserError(fmt.Sprintf("No session with ID %s", args[0]), err)
	}
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	fmt.Println(cli.RenderSummary(session.Participant, sequence.Summarize(session.Trials))) //nolint:forbidigo // User-facing output

	paths, err := exportSession(session, formats, outputDirectory(), time.Now())
	for _, path := range paths {
		fmt.Println(cli.FormatSuccess("Wrote " + path)) //nolint:forbidigo // User-facing output
	}
	return err
}

func sessionsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a stored session and its trials",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionsDelete,
	}
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		reader := cli.NewNonBlockingReader(os.Stdin)
		ok, err := cli.Confirm(ctx, reader, os.Stdout, fmt.Sprintf("Delete session %s?", args[0]))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println(cli.FormatInfo("Nothing deleted.")) //nolint:forbidigo // User-facing output
			return nil
		}
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	if err := store.DeleteSession(ctx, args[0]); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewUserError(fmt.Sprintf("No session with ID %s", args[0]), err)
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}

	fmt.Println(cli.FormatSuccess("Deleted session " + args[0])) //nolint:forbidigo // User-facing output
	return nil
}
