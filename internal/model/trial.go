package model

import "time"

// Trial is one S1/S2 presentation. Trials are created by the sequence
// generator and are read-only afterwards.
type Trial struct {
	S1Object    string        `json:"s1_object"`
	S1View      string        `json:"s1_view"`
	S2String    string        `json:"s2_string"`
	S1Category  Category      `json:"s1_category"`
	S2Category  Category      `json:"s2_category"`
	BlockIndex  int           `json:"block_index"`
	TrialIndex  int           `json:"trial_index"`
	ISIDuration time.Duration `json:"isi_duration"`
	ITIDuration time.Duration `json:"iti_duration"`
}

// Participant identifies who a session was generated for.
type Participant struct {
	ID        string `json:"id" yaml:"id"`
	Session   string `json:"session" yaml:"session"`
	Condition string `json:"condition,omitempty" yaml:"condition"`
}

// Session is a generated trial sequence with the inputs needed to reproduce it.
type Session struct {
	CreatedAt   time.Time   `json:"created_at"`
	ID          string      `json:"id"`
	Protocol    string      `json:"protocol"`
	Participant Participant `json:"participant"`
	Trials      []Trial     `json:"trials"`
	Seed        uint64      `json:"seed"`
	BlockSize   int         `json:"block_size"`
}

// NumBlocks returns the number of blocks present in the session.
func (s *Session) NumBlocks() int {
	blocks := 0
	for _, t := range s.Trials {
		if t.BlockIndex > blocks {
			blocks = t.BlockIndex
		}
	}
	return blocks
}
