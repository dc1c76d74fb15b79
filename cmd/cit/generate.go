package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/p300-cit/internal/catalog"
	"github.com/Veraticus/p300-cit/internal/cli"
	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/config"
	"github.com/Veraticus/p300-cit/internal/model"
	"github.com/Veraticus/p300-cit/internal/sequence"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a trial sequence for one session",
		Long: `Generate a counterbalanced Complex Trial Protocol sequence.

Every object is shown its configured number of times with its views rotated
evenly, repeats of an object are kept apart, and the S2 target ratio is met
exactly. The same protocol and seed always produce the same sequence.

The session is stored so its markers can be replayed and its recordings
analyzed later.`,
		RunE: runGenerate,
	}

	cmd.Flags().StringP("protocol", "p", "", "protocol file (default: built-in protocol)")
	cmd.Flags().String("dir", "", "stimulus directory (overrides stimuli.directory)")
	cmd.Flags().Uint64("seed", 0, "random seed (overrides the protocol seed)")
	cmd.Flags().String("participant", "", "participant ID (overrides participant.id)")
	cmd.Flags().String("session", "", "session label (overrides participant.session)")
	cmd.Flags().String("condition", "", "participant condition (overrides participant.condition)")
	cmd.Flags().StringSlice("export", nil, "export formats (csv, json)")
	cmd.Flags().Bool("no-save", false, "do not store the session in the database")

	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	p, err := protocolFromFlags(cmd)
	if err != nil {
		return err
	}
	applyParticipantFlags(cmd, &p)

	formatNames, _ := cmd.Flags().GetStringSlice("export")
	formats, err := parseFormats(formatNames)
	if err != nil {
		return err
	}

	c, err := buildCatalog(p)
	if err != nil {
		return err
	}

	session, err := generateSession(p, c, time.Now())
	if err != nil {
		return common.NewUserError("Could not generate a sequence for this protocol", err)
	}

	summary := sequence.Summarize(session.Trials)
	summary.Log()
	fmt.Println(cli.RenderSummary(session.Participant, summary)) //nolint:forbidigo // User-facing output

	if noSave, _ := cmd.Flags().GetBool("no-save"); !noSave {
		store, err := initStorage(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer closeStorage(store)

		if err := store.SaveSession(ctx, session); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		fmt.Println(cli.FormatSuccess("Saved session " + session.ID)) //nolint:forbidigo // User-facing output
	}

	paths, err := exportSession(session, formats, outputDirectory(), session.CreatedAt.Local())
	for _, path := range paths {
		fmt.Println(cli.FormatSuccess("Wrote " + path)) //nolint:forbidigo // User-facing output
	}
	if err != nil {
		return fmt.Errorf("failed to export session: %w", err)
	}

	return nil
}

func applyParticipantFlags(cmd *cobra.Command, p *config.Protocol) {
	if cmd.Flags().Changed("seed") {
		p.Seed, _ = cmd.Flags().GetUint64("seed")
	}
	if v, _ := cmd.Flags().GetString("participant"); v != "" {
		p.Participant.ID = v
	}
	if v, _ := cmd.Flags().GetString("session"); v != "" {
		p.Participant.Session = v
	}
	if v, _ := cmd.Flags().GetString("condition"); v != "" {
		p.Participant.Condition = v
	}
}

// generateSession runs the generator once and packages the trials with
// the protocol that produced them.
func generateSession(p config.Protocol, c *catalog.Catalog, now time.Time) (*model.Session, error) {
	gen, err := sequence.New(p, c)
	if err != nil {
		return nil, err
	}

	trials, err := gen.Generate(sequence.NewRand(p.Seed))
	if err != nil {
		return nil, err
	}

	protocol, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode protocol: %w", err)
	}

	slog.Debug("Generated session",
		"participant", p.Participant.ID,
		"seed", p.Seed,
		"trials", len(trials))

	return &model.Session{
		ID:          uuid.NewString(),
		CreatedAt:   now.UTC(),
		Participant: p.Participant,
		Protocol:    string(protocol),
		Seed:        p.Seed,
		BlockSize:   p.Trials.BlockSize,
		Trials:      trials,
	}, nil
}
