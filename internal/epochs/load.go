// Package epochs reads preprocessed epoch data and arranges it into the
// per-channel populations the classifier consumes. Artifact rejection and
// baseline correction happen upstream; every epoch read here is used.
package epochs

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/markers"
	"github.com/Veraticus/p300-cit/internal/model"
)

// Column names recognized in CSV headers.
const (
	ColumnChannel   = "channel"
	ColumnCategory  = "category"
	ColumnAmplitude = "amplitude"
	ColumnEpoch     = "epoch"
)

// Load reads an epoch file, choosing the format from its extension.
func Load(path string) (*model.EpochSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open epochs: %w", err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(f)
	case ".csv":
		return LoadCSV(f)
	default:
		return nil, common.NewConfigurationError("epochs", "unsupported epoch file %s, want .csv or .json", filepath.Base(path))
	}
}

// LoadCSV reads epochs in one of two layouts. The scalar layout has the
// columns channel, category and amplitude. The waveform layout has channel
// and category followed by one column per sample whose header is the sample
// time in seconds. Both accept an optional epoch column. Categories may be
// category names or onset marker names such as S1_onset_probe.
func LoadCSV(r io.Reader) (*model.EpochSet, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("epoch file is empty: %w", common.ErrInsufficientData)
		}
		return nil, fmt.Errorf("failed to read epoch header: %w", err)
	}

	layout, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	set := &model.EpochSet{Times: layout.times}
	counters := make(map[string]int)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read epoch line %d: %w", line, err)
		}

		sample, err := layout.sample(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if layout.epoch < 0 {
			key := sample.Channel + "/" + string(sample.Category)
			counters[key]++
			sample.Epoch = counters[key]
		}
		set.Samples = append(set.Samples, sample)
	}

	return set, nil
}

type csvLayout struct {
	times     []float64
	timeCols  []int
	channel   int
	category  int
	amplitude int
	epoch     int
}

func parseHeader(header []string) (csvLayout, error) {
	l := csvLayout{channel: -1, category: -1, amplitude: -1, epoch: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case ColumnChannel:
			l.channel = i
		case ColumnCategory, "condition", "event":
			l.category = i
		case ColumnAmplitude:
			l.amplitude = i
		case ColumnEpoch:
			l.epoch = i
		default:
			t, err := strconv.ParseFloat(strings.TrimSpace(name), 64)
			if err != nil {
				return l, common.NewConfigurationError("epochs", "unknown column %q", name)
			}
			l.times = append(l.times, t)
			l.timeCols = append(l.timeCols, i)
		}
	}

	switch {
	case l.channel < 0 || l.category < 0:
		return l, common.NewConfigurationError("epochs", "header must contain channel and category columns")
	case l.amplitude < 0 && len(l.times) == 0:
		return l, common.NewConfigurationError("epochs", "header has neither an amplitude column nor sample time columns")
	}
	for i := 1; i < len(l.times); i++ {
		if l.times[i] <= l.times[i-1] {
			return l, common.NewConfigurationError("epochs", "sample times must increase, %v follows %v", l.times[i], l.times[i-1])
		}
	}
	return l, nil
}

func (l csvLayout) sample(record []string) (model.AmplitudeSample, error) {
	field := func(i int) string { return strings.TrimSpace(record[i]) }

	category, err := ParseCategory(field(l.category))
	if err != nil {
		return model.AmplitudeSample{}, err
	}
	s := model.AmplitudeSample{Channel: field(l.channel), Category: category}
	if s.Channel == "" {
		return s, errors.New("empty channel name")
	}

	if l.epoch >= 0 {
		if s.Epoch, err = strconv.Atoi(field(l.epoch)); err != nil {
			return s, fmt.Errorf("invalid epoch number %q", field(l.epoch))
		}
	}
	if l.amplitude >= 0 {
		if s.Amplitude, err = strconv.ParseFloat(field(l.amplitude), 64); err != nil {
			return s, fmt.Errorf("invalid amplitude %q", field(l.amplitude))
		}
	}
	if len(l.timeCols) > 0 {
		s.Waveform = make([]float64, len(l.timeCols))
		for i, col := range l.timeCols {
			if s.Waveform[i], err = strconv.ParseFloat(field(col), 64); err != nil {
				return s, fmt.Errorf("invalid sample %q at %vs", field(col), l.times[i])
			}
		}
	}
	return s, nil
}

// ParseCategory accepts category names and onset marker names.
func ParseCategory(tag string) (model.Category, error) {
	if c, ok := markers.CategoryFromTag(tag); ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown epoch category %q", tag)
}

// LoadJSON reads an EpochSet document.
func LoadJSON(r io.Reader) (*model.EpochSet, error) {
	var set model.EpochSet
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode epochs: %w", err)
	}

	for i, s := range set.Samples {
		if s.Channel == "" {
			return nil, fmt.Errorf("sample %d: empty channel name", i)
		}
		if _, err := model.ParseCategory(string(s.Category)); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		if len(s.Waveform) > 0 && len(s.Waveform) != len(set.Times) {
			return nil, fmt.Errorf("sample %d: waveform has %d points, time axis has %d", i, len(s.Waveform), len(set.Times))
		}
	}
	return &set, nil
}
