package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/p300-cit/internal/bootstrap"
	"github.com/Veraticus/p300-cit/internal/cli"
	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/config"
	"github.com/Veraticus/p300-cit/internal/epochs"
	"github.com/Veraticus/p300-cit/internal/model"
	"github.com/Veraticus/p300-cit/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <epochs-file>",
		Short: "Classify recorded epochs as guilty, innocent, or indeterminate",
		Long: `Run the bootstrap classifier on preprocessed epochs.

The epochs file is CSV or JSON. A CSV holds either one amplitude per epoch
(columns channel, category, amplitude) or one waveform per epoch (channel,
category, then one column per sample named by its time in seconds).

BAD compares probe and irrelevant amplitudes; waveforms are reduced to their
amplitude inside the analysis window first. BCD compares probe waveforms
against target and irrelevant waveforms.

Each channel is resampled independently; the channel verdicts are combined
with the configured aggregation policy.`,
		Args: cobra.ExactArgs(1),
		RunE: runClassify,
	}

	cmd.Flags().String("metric", "", "bootstrap metric (bad, bcd)")
	cmd.Flags().String("aggregation", "", "channel aggregation (any, majority)")
	cmd.Flags().Int("iterations", 0, "bootstrap iterations")
	cmd.Flags().Float64("guilty-threshold", 0, "proportion at or above which a channel is guilty")
	cmd.Flags().Float64("innocent-threshold", 0, "proportion at or below which a channel is innocent")
	cmd.Flags().Float64("irrelevant-fraction", 0, "irrelevant resample size as a fraction of the population")
	cmd.Flags().Int("min-epochs", 0, "minimum epochs per category")
	cmd.Flags().Uint64("seed", 0, "random seed")
	cmd.Flags().Int("workers", 0, "channels classified in parallel (0 uses all CPUs)")
	cmd.Flags().Float64("window-start", 0, "analysis window start in seconds")
	cmd.Flags().Float64("window-end", 0, "analysis window end in seconds")
	cmd.Flags().String("amplitude-mode", "", "window amplitude (mean, peak_to_peak)")

	for flag, key := range map[string]string{
		"metric":              keyMetric,
		"aggregation":         keyAggregation,
		"iterations":          keyIterations,
		"guilty-threshold":    keyGuiltyThreshold,
		"innocent-threshold":  keyInnocentThreshold,
		"irrelevant-fraction": keyIrrelevantFraction,
		"min-epochs":          keyMinEpochs,
		"seed":                keySeed,
		"workers":             keyWorkers,
		"window-start":        keyWindowStart,
		"window-end":          keyWindowEnd,
		"amplitude-mode":      keyAmplitudeMode,
	} {
		_ = viper.BindPFlag(key, cmd.Flags().Lookup(flag))
	}

	cmd.Flags().StringSlice("channels", nil, "only classify these channels")
	cmd.Flags().String("session", "", "stored session the recording belongs to")
	cmd.Flags().StringSlice("export", nil, "export formats (csv, json)")
	cmd.Flags().Bool("no-save", false, "do not store the result in the database")

	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := config.ExpandPath(args[0])

	settings, err := loadAnalysisSettings(viper.GetViper())
	if err != nil {
		return err
	}

	formatNames, _ := cmd.Flags().GetStringSlice("export")
	formats, err := parseFormats(formatNames)
	if err != nil {
		return err
	}

	set, err := epochs.Load(path)
	if err != nil {
		return err
	}

	channels, _ := cmd.Flags().GetStringSlice("channels")
	data, err := prepareChannels(set, settings, channels)
	if err != nil {
		return err
	}

	sessionID, _ := cmd.Flags().GetString("session")
	noSave, _ := cmd.Flags().GetBool("no-save")

	var store service.Storage
	participant := model.Participant{ID: "unknown", Session: "1"}
	if !noSave || sessionID != "" {
		store, err = initStorage(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer closeStorage(store)
	}
	if sessionID != "" {
		session, err := store.GetSession(ctx, sessionID)
		if errors.Is(err, common.ErrNotFound) {
			return common.NewUserError(fmt.Sprintf("No session with ID %s", sessionID), err)
		}
		if err != nil {
			return fmt.Errorf("failed to get session: %w", err)
		}
		participant = session.Participant
	}

	result, err := classify(ctx, settings.Classifier, data)
	if err != nil {
		return err
	}
	result.Source = filepath.Base(path)
	result.SessionID = sessionID

	fmt.Println(cli.RenderResult(result)) //nolint:forbidigo // User-facing output

	if !noSave {
		if err := store.SaveAnalysis(ctx, result); err != nil {
			return fmt.Errorf("failed to save analysis: %w", err)
		}
		fmt.Println(cli.FormatSuccess("Saved analysis " + result.ID)) //nolint:forbidigo // User-facing output
	}

	paths, err := exportResult(result, participant, formats, outputDirectory())
	for _, p := range paths {
		fmt.Println(cli.FormatSuccess("Wrote " + p)) //nolint:forbidigo // User-facing output
	}
	if err != nil {
		return fmt.Errorf("failed to export result: %w", err)
	}
	return nil
}

// classify runs the classifier with a progress bar and Ctrl-C handling.
func classify(ctx context.Context, cfg bootstrap.Config, data []model.ChannelData) (*model.ClassificationResult, error) {
	handler := cli.NewInterruptHandler(os.Stderr, "Classification")
	runCtx, cancel := context.WithCancel(handler.HandleInterrupts(ctx))
	defer cancel()

	progress := cli.NewProgress(os.Stderr, len(data), "Classifying channels...")
	classifier, err := bootstrap.New(cfg, bootstrap.WithProgress(progress.Update))
	if err != nil {
		return nil, err
	}

	result, err := classifier.Classify(runCtx, data)
	if err != nil {
		if handler.WasInterrupted() {
			return nil, common.NewUserError("Classification interrupted", err)
		}
		return nil, fmt.Errorf("classification failed: %w", err)
	}
	progress.Finish()
	return result, nil
}

// prepareChannels turns an epoch set into the populations the configured
// metric needs.
func prepareChannels(set *model.EpochSet, settings analysisSettings, channels []string) ([]model.ChannelData, error) {
	switch settings.Classifier.Metric {
	case bootstrap.MetricBCD:
		if !set.HasWaveforms() {
			return nil, common.NewConfigurationError("classifier.metric", "bcd needs waveform epochs")
		}
	case bootstrap.MetricBAD:
		if set.HasWaveforms() {
			if err := epochs.Amplitudes(set, settings.Window, settings.Mode); err != nil {
				return nil, err
			}
		}
	}

	data := epochs.Filter(epochs.ChannelData(set), channels)
	if len(data) == 0 {
		return nil, common.NewConfigurationError("channels", "no epochs for the requested channels")
	}
	return data, nil
}
