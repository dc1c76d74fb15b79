package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Veraticus/p300-cit/internal/cli"
	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/config"
	"github.com/Veraticus/p300-cit/internal/markers"
	"github.com/Veraticus/p300-cit/internal/model"
	"github.com/spf13/cobra"
)

func markersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "markers <session-id>",
		Short: "Print the planned event markers of a stored session",
		Long: `Print the marker script a presentation run of the session emits.

Markers use the name|key=value,... format, for example
S1_onset_probe|trial=12,stim_id=pendrive. Times assume every response window
runs to completion; response markers depend on the participant and are not
planned.

With --emit only the marker tokens are written, one per line, ready to be
piped into a marker outlet.`,
		Args: cobra.ExactArgs(1),
		RunE: runMarkers,
	}

	cmd.Flags().Bool("emit", false, "write bare marker tokens, one per line")
	cmd.Flags().Int("limit", 0, "only show the first N markers")

	return cmd
}

func runMarkers(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

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

	script, err := sessionScript(session)
	if err != nil {
		return err
	}
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && limit < len(script) {
		script = script[:limit]
	}

	if emit, _ := cmd.Flags().GetBool("emit"); emit {
		_, err := emitScript(os.Stdout, script)
		return err
	}

	rows := make([][]string, 0, len(script))
	for _, p := range script {
		rows = append(rows, []string{
			fmt.Sprintf("%d", p.Seq),
			fmt.Sprintf("%.3f", p.At.Seconds()),
			p.String(),
		})
	}
	fmt.Println(cli.FormatTitle("Marker Script"))                                        //nolint:forbidigo // User-facing output
	fmt.Println(cli.RenderTable([]string{"#", "Time (s)", "Marker"}, rows))              //nolint:forbidigo // User-facing output
	fmt.Println()                                                                        //nolint:forbidigo // User-facing output
	fmt.Println(cli.FormatInfo("Planned duration " + markers.Duration(script).String())) //nolint:forbidigo // User-facing output
	return nil
}

// sessionScript plans the markers of a stored session using the timing of
// the protocol it was generated from.
func sessionScript(session *model.Session) ([]markers.Planned, error) {
	p, err := config.DecodeProtocol(strings.NewReader(session.Protocol))
	if err != nil {
		return nil, fmt.Errorf("stored protocol of session %s: %w", session.ID, err)
	}
	return markers.Script(session.Trials, markers.TimingFrom(p.Timing)), nil
}

// emitScript sends every planned marker through a numbered sender.
func emitScript(w io.Writer, script []markers.Planned) (int, error) {
	sender := markers.NewSender(markers.WriterOutlet{W: w})
	for _, p := range script {
		if _, err := sender.Send(p.Name, p.Fields...); err != nil {
			return sender.Count(), err
		}
	}
	return sender.Count(), nil
}
