package model

import (
	"encoding/json"
	"time"
)

// Label is a classification verdict.
type Label string

// Label constants.
const (
	LabelGuilty        Label = "guilty"
	LabelInnocent      Label = "innocent"
	LabelIndeterminate Label = "indeterminate"
)

// ChannelResult is the bootstrap outcome for one channel.
type ChannelResult struct {
	// Proportion is nil when the channel could not be evaluated.
	Proportion  *float64 `json:"proportion"`
	Err         error    `json:"-"`
	Channel     string   `json:"channel"`
	Label       Label    `json:"label"`
	Reason      string   `json:"reason,omitempty"`
	Confidence  float64  `json:"confidence"`
	Exceeded    int      `json:"exceeded"`
	Iterations  int      `json:"iterations"`
	NProbe      int      `json:"n_probe"`
	NIrrelevant int      `json:"n_irrelevant"`
	NTarget     int      `json:"n_target,omitempty"`
}

// Evaluated reports whether a bootstrap proportion was computed.
func (r ChannelResult) Evaluated() bool {
	return r.Proportion != nil
}

// ClassificationResult is the outcome of one analysis run.
type ClassificationResult struct {
	CreatedAt         time.Time       `json:"created_at"`
	ID                string          `json:"id"`
	SessionID         string          `json:"session_id,omitempty"`
	Source            string          `json:"source,omitempty"`
	Metric            string          `json:"metric"`
	Aggregation       string          `json:"aggregation"`
	Label             Label           `json:"label"`
	Reason            string          `json:"reason,omitempty"`
	MaxChannel        string          `json:"max_channel,omitempty"`
	Channels          []ChannelResult `json:"channels"`
	Confidence        float64         `json:"confidence"`
	MaxProportion     float64         `json:"max_proportion"`
	GuiltyThreshold   float64         `json:"guilty_threshold"`
	InnocentThreshold float64         `json:"innocent_threshold"`
	Iterations        int             `json:"iterations"`
	Seed              uint64          `json:"seed"`
	// Settings is the full classifier configuration used for the run.
	Settings json.RawMessage `json:"settings,omitempty"`
}

// Counts returns how many channels received each label.
func (r *ClassificationResult) Counts() map[Label]int {
	counts := map[Label]int{
		LabelGuilty:        0,
		LabelInnocent:      0,
		LabelIndeterminate: 0,
	}
	for _, ch := range r.Channels {
		counts[ch.Label]++
	}
	return counts
}
