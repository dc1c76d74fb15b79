// Package config provides configuration utilities for the application.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/model"
	"gopkg.in/yaml.v3"
)

// Protocol is the complete experiment definition. Every recognized key is a
// field here; unknown keys are rejected when decoding.
type Protocol struct {
	Participant model.Participant `yaml:"participant"`
	Stimuli     Stimuli           `yaml:"stimuli"`
	Objects     []ObjectDecl      `yaml:"objects" validate:"dive"`
	Timing      Timing            `yaml:"timing"`
	Trials      Trials            `yaml:"trials"`
	Seed        uint64            `yaml:"seed"`
}

// Stimuli describes where S1 images come from and which S2 strings are shown.
type Stimuli struct {
	Directory     string   `yaml:"directory"`
	S2Target      string   `yaml:"s2_target" validate:"required"`
	S2Nontargets  []string `yaml:"s2_nontargets" validate:"required,min=1,dive,required"`
	UseNormalized bool     `yaml:"use_normalized"`
}

// ObjectDecl declares an expected stimulus object.
type ObjectDecl struct {
	Name     string `yaml:"name" validate:"required"`
	Category string `yaml:"category" validate:"required,oneof=probe irrelevant irr"`
	// Views is the expected view count; zero accepts whatever the directory holds.
	Views int `yaml:"views" validate:"gte=0"`
	// Repetitions overrides the category repetition count when positive.
	Repetitions int `yaml:"repetitions" validate:"gte=0"`
}

// Trials holds the repetition, ratio and sequencing constraints.
type Trials struct {
	ProbeRepetitions      int     `yaml:"probe_repetitions" validate:"gte=1"`
	IrrelevantRepetitions int     `yaml:"irrelevant_repetitions" validate:"gte=1"`
	IrrelevantObjects     int     `yaml:"irrelevant_objects" validate:"gte=0"`
	BlockSize             int     `yaml:"block_size" validate:"gte=1"`
	NumBlocks             int     `yaml:"num_blocks" validate:"gte=0"`
	TargetRatio           float64 `yaml:"target_ratio" validate:"gte=0,lte=1"`
	MinGap                int     `yaml:"min_gap" validate:"gte=0"`
	RepairBudget          int     `yaml:"repair_budget" validate:"gte=1"`
	// AvoidConsecutiveTargets keeps two S2 targets from following each other.
	AvoidConsecutiveTargets bool `yaml:"avoid_consecutive_targets"`
}

// Timing holds presentation durations in seconds.
type Timing struct {
	FixationDuration   float64 `yaml:"fixation_duration" validate:"gte=0"`
	S1Duration         float64 `yaml:"s1_duration" validate:"gte=0"`
	S2Duration         float64 `yaml:"s2_duration" validate:"gte=0"`
	S2ResponseWindow   float64 `yaml:"s2_response_window" validate:"gte=0"`
	ISIMin             float64 `yaml:"isi_min" validate:"gte=0"`
	ISIMax             float64 `yaml:"isi_max" validate:"gte=0"`
	ITIMin             float64 `yaml:"iti_min" validate:"gte=0"`
	ITIMax             float64 `yaml:"iti_max" validate:"gte=0"`
	BlockBreakDuration float64 `yaml:"block_break_duration" validate:"gte=0"`
}

// DefaultProtocol returns the five-object, 400-trial protocol.
func DefaultProtocol() Protocol {
	return Protocol{
		Participant: model.Participant{ID: "000", Session: "1"},
		Stimuli: Stimuli{
			Directory:     "stimuli/images",
			S2Target:      "111111",
			S2Nontargets:  []string{"222222", "333333", "444444", "555555"},
			UseNormalized: true,
		},
		Trials: Trials{
			ProbeRepetitions:        80,
			IrrelevantRepetitions:   80,
			IrrelevantObjects:       4,
			BlockSize:               80,
			TargetRatio:             0.2,
			MinGap:                  2,
			RepairBudget:            10000,
			AvoidConsecutiveTargets: true,
		},
		Timing: Timing{
			FixationDuration:   0.5,
			S1Duration:         0.3,
			S2Duration:         0.3,
			S2ResponseWindow:   1.5,
			ISIMin:             1.0,
			ISIMax:             1.5,
			ITIMin:             1.5,
			ITIMax:             2.0,
			BlockBreakDuration: 30,
		},
		Seed: 1,
	}
}

// LoadProtocol reads and validates a protocol file. Keys missing from the
// file keep their defaults.
func LoadProtocol(path string) (Protocol, error) {
	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Protocol{}, fmt.Errorf("failed to read protocol: %w", err)
	}
	return DecodeProtocol(bytes.NewReader(data))
}

// DecodeProtocol decodes a YAML protocol over the defaults and validates it.
func DecodeProtocol(r io.Reader) (Protocol, error) {
	p := DefaultProtocol()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Protocol{}, &common.ConfigurationError{Reason: err.Error()}
	}

	if err := p.Validate(); err != nil {
		return Protocol{}, err
	}
	return p, nil
}

// Validate checks field ranges and cross-field consistency.
func (p Protocol) Validate() error {
	if err := ValidateStruct(p); err != nil {
		return err
	}

	t := p.Timing
	if t.ISIMin > t.ISIMax {
		return common.NewConfigurationError("timing.isi_min", "%.3f exceeds isi_max %.3f", t.ISIMin, t.ISIMax)
	}
	if t.ITIMin > t.ITIMax {
		return common.NewConfigurationError("timing.iti_min", "%.3f exceeds iti_max %.3f", t.ITIMin, t.ITIMax)
	}

	probes := 0
	seen := make(map[string]bool)
	for _, obj := range p.Objects {
		if seen[obj.Name] {
			return common.NewConfigurationError("objects", "object %q declared twice", obj.Name)
		}
		seen[obj.Name] = true
		if !model.ValidObjectName(obj.Name) {
			return common.NewConfigurationError("objects", "object name %q may only contain letters, digits, '_' and '-'", obj.Name)
		}
		if obj.Category == string(model.CategoryProbe) {
			probes++
		}
	}
	if len(p.Objects) > 0 && probes != 1 {
		return common.NewConfigurationError("objects", "exactly one probe object required, got %d", probes)
	}

	return nil
}

// Seconds converts a configured duration in seconds.
func Seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// ISIRange returns the inter-stimulus interval bounds.
func (t Timing) ISIRange() (time.Duration, time.Duration) {
	return Seconds(t.ISIMin), Seconds(t.ISIMax)
}

// ITIRange returns the inter-trial interval bounds.
func (t Timing) ITIRange() (time.Duration, time.Duration) {
	return Seconds(t.ITIMin), Seconds(t.ITIMax)
}

// Repetitions returns how often an object is shown, honoring per-object overrides.
func (t Trials) Repetitions(category model.Category, override int) int {
	if override > 0 {
		return override
	}
	if category == model.CategoryProbe {
		return t.ProbeRepetitions
	}
	return t.IrrelevantRepetitions
}
