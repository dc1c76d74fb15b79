package markers

import (
	"time"

	"github.com/Veraticus/p300-cit/internal/config"
	"github.com/Veraticus/p300-cit/internal/model"
)

// Planned is a marker scheduled relative to the start of the session.
type Planned struct {
	Marker
	At  time.Duration
	Seq int
}

// Timing holds the fixed presentation durations of a trial. ISI and ITI come
// from each trial.
type Timing struct {
	Fixation       time.Duration
	S1             time.Duration
	S2             time.Duration
	ResponseWindow time.Duration
	BlockBreak     time.Duration
}

// TimingFrom converts the protocol timing.
func TimingFrom(t config.Timing) Timing {
	return Timing{
		Fixation:       config.Seconds(t.FixationDuration),
		S1:             config.Seconds(t.S1Duration),
		S2:             config.Seconds(t.S2Duration),
		ResponseWindow: config.Seconds(t.S2ResponseWindow),
		BlockBreak:     config.Seconds(t.BlockBreakDuration),
	}
}

// ScriptForTrial plans the stimulus-driven markers of one trial starting at
// start and returns them with the offset at which the next trial begins.
// Response markers depend on the participant and are not planned. The S2
// response window is assumed to run to completion.
func ScriptForTrial(t model.Trial, start time.Duration, tm Timing) ([]Planned, time.Duration) {
	trial := F("trial", t.TrialIndex)

	s1 := start + tm.Fixation
	s2 := s1 + tm.S1 + t.ISIDuration
	iti := s2 + tm.S2 + tm.ResponseWindow

	out := []Planned{
		{Marker: Marker{Name: TrialStart, Fields: []Field{trial, F("block", t.BlockIndex)}}, At: start},
		{Marker: Marker{Name: FixationOnset, Fields: []Field{trial}}, At: start},
		{Marker: Marker{Name: S1Onset(t.S1Category), Fields: []Field{trial, F("stim_id", t.S1Object)}}, At: s1},
		{Marker: Marker{Name: S2Onset(t.S2Category), Fields: []Field{trial}}, At: s2},
		{Marker: Marker{Name: ITIStart, Fields: []Field{trial}}, At: iti},
	}
	return out, iti + t.ITIDuration
}

// Script plans every marker of a session in emission order with block
// start/end markers around each block and a break between blocks. Sequence
// numbers start at 1 and increase by one per marker.
func Script(trials []model.Trial, tm Timing) []Planned {
	var out []Planned
	seq := 0
	add := func(ps ...Planned) {
		for _, p := range ps {
			seq++
			p.Seq = seq
			out = append(out, p)
		}
	}

	var at time.Duration
	for i, t := range trials {
		if i == 0 || trials[i-1].BlockIndex != t.BlockIndex {
			if i > 0 {
				at += tm.BlockBreak
			}
			add(Planned{Marker: Marker{Name: BlockStart, Fields: []Field{F("block", t.BlockIndex)}}, At: at})
		}

		planned, next := ScriptForTrial(t, at, tm)
		add(planned...)
		at = next

		if i == len(trials)-1 || trials[i+1].BlockIndex != t.BlockIndex {
			add(Planned{Marker: Marker{Name: BlockEnd, Fields: []Field{F("block", t.BlockIndex)}}, At: at})
		}
	}
	return out
}

// Duration is the planned length of a script.
func Duration(script []Planned) time.Duration {
	if len(script) == 0 {
		return 0
	}
	return script[len(script)-1].At
}
