// Package export writes trial sequences and classification results to files
// for downstream analysis tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Veraticus/p300-cit/internal/model"
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts csv or json.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want csv or json)", s)
	}
}

// TrialColumns is the header of the trial sequence CSV. It follows the
// behavioral log layout with the response columns left out.
var TrialColumns = []string{
	"participant_id", "session_id", "condition", "block", "trial_index",
	"S1_type", "S1_object", "S1_filename",
	"ISI_duration",
	"S2_type", "S2_string",
	"ITI_duration",
}

// ResultColumns is the header of the classification result CSV.
var ResultColumns = []string{
	"analysis_id", "channel", "proportion", "exceeded", "iterations",
	"label", "confidence", "n_probe", "n_irrelevant", "n_target", "reason",
}

// OverallChannel names the aggregate row in result CSVs.
const OverallChannel = "overall"

// WriteTrialsCSV writes one row per trial.
func WriteTrialsCSV(w io.Writer, session *model.Session) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(TrialColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	p := session.Participant
	for _, t := range session.Trials {
		row := []string{
			p.ID,
			p.Session,
			p.Condition,
			strconv.Itoa(t.BlockIndex),
			strconv.Itoa(t.TrialIndex),
			string(t.S1Category),
			t.S1Object,
			filepath.Base(t.S1View),
			seconds(t.ISIDuration),
			string(t.S2Category),
			t.S2String,
			seconds(t.ITIDuration),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write trial %d: %w", t.TrialIndex, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteTrialsJSON writes the whole session, trials included.
func WriteTrialsJSON(w io.Writer, session *model.Session) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(session); err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return nil
}

// WriteResultCSV writes one row per channel followed by the overall verdict.
// Unevaluated channels leave the proportion empty.
func WriteResultCSV(w io.Writer, result *model.ClassificationResult) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(ResultColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, ch := range result.Channels {
		proportion := ""
		if ch.Proportion != nil {
			proportion = formatFloat(*ch.Proportion)
		}
		row := []string{
			result.ID,
			ch.Channel,
			proportion,
			strconv.Itoa(ch.Exceeded),
			strconv.Itoa(ch.Iterations),
			string(ch.Label),
			formatFloat(ch.Confidence),
			strconv.Itoa(ch.NProbe),
			strconv.Itoa(ch.NIrrelevant),
			strconv.Itoa(ch.NTarget),
			ch.Reason,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write channel %s: %w", ch.Channel, err)
		}
	}

	overall := []string{
		result.ID,
		OverallChannel,
		formatFloat(result.MaxProportion),
		"",
		strconv.Itoa(result.Iterations),
		string(result.Label),
		formatFloat(result.Confidence),
		"", "", "",
		result.Reason,
	}
	if err := writer.Write(overall); err != nil {
		return fmt.Errorf("failed to write overall row: %w", err)
	}

	writer.Flush()
	return writer.Error()
}

// WriteResultJSON writes the classification result.
func WriteResultJSON(w io.Writer, result *model.ClassificationResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

// OutputFilename builds <id>_S<session>[_<condition>]_<timestamp>_<suffix>.<ext>.
// Numeric session labels are zero-padded to two digits.
func OutputFilename(p model.Participant, suffix string, format Format, now time.Time) string {
	session := p.Session
	if n, err := strconv.Atoi(session); err == nil && n >= 0 {
		session = fmt.Sprintf("%02d", n)
	}

	name := fmt.Sprintf("%s_S%s", p.ID, session)
	if p.Condition != "" {
		name += "_" + p.Condition
	}
	name += "_" + now.Format("20060102_150405")
	if suffix != "" {
		name += "_" + suffix
	}
	return name + "." + string(format)
}

// WriteFile creates path, including missing parent directories, and hands
// the open file to write.
func WriteFile(path string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path) //nolint:gosec // path comes from the user's output settings
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	return write(f)
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
