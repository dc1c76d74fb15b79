package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/p300-cit/internal/model"
)

// SessionBuilder constructs sessions with valid, predictable trials.
type SessionBuilder struct {
	t           *testing.T
	createdAt   time.Time
	id          string
	protocol    string
	participant model.Participant
	objects     []string
	trials      int
	blockSize   int
	seed        uint64
}

// NewSessionBuilder starts from a ten-trial session over one probe and four
// irrelevant objects in blocks of five.
func NewSessionBuilder(t *testing.T) *SessionBuilder {
	t.Helper()
	return &SessionBuilder{
		t:           t,
		createdAt:   time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		id:          "session-1",
		participant: model.Participant{ID: "P01", Session: "1"},
		objects:     []string{"pendrive", "mouse", "wallet", "watch", "keys"},
		trials:      10,
		blockSize:   5,
		seed:        1,
	}
}

// WithID sets the session ID.
func (b *SessionBuilder) WithID(id string) *SessionBuilder {
	b.id = id
	return b
}

// WithParticipant sets who the session belongs to.
func (b *SessionBuilder) WithParticipant(p model.Participant) *SessionBuilder {
	b.participant = p
	return b
}

// WithTrials sets the trial count.
func (b *SessionBuilder) WithTrials(n int) *SessionBuilder {
	b.trials = n
	return b
}

// WithBlockSize sets the block size.
func (b *SessionBuilder) WithBlockSize(n int) *SessionBuilder {
	b.blockSize = n
	return b
}

// WithProtocol stores protocol YAML with the session.
func (b *SessionBuilder) WithProtocol(yaml string) *SessionBuilder {
	b.protocol = yaml
	return b
}

// WithCreatedAt sets the creation time.
func (b *SessionBuilder) WithCreatedAt(at time.Time) *SessionBuilder {
	b.createdAt = at
	return b
}

// Build returns the session. Objects cycle in order, the first being the
// probe, and every fifth trial carries the S2 target.
func (b *SessionBuilder) Build() *model.Session {
	b.t.Helper()
	if b.blockSize <= 0 {
		b.t.Fatalf("block size must be positive, got %d", b.blockSize)
	}

	session := &model.Session{
		ID:          b.id,
		CreatedAt:   b.createdAt,
		Participant: b.participant,
		Protocol:    b.protocol,
		Seed:        b.seed,
		BlockSize:   b.blockSize,
	}
	for i := 0; i < b.trials; i++ {
		k := i % len(b.objects)
		s1 := model.CategoryIrrelevant
		if k == 0 {
			s1 = model.CategoryProbe
		}
		s2, str := model.CategoryNontarget, "222222"
		if i%5 == 4 {
			s2, str = model.CategoryTarget, "111111"
		}
		session.Trials = append(session.Trials, model.Trial{
			S1Object:    b.objects[k],
			S1View:      fmt.Sprintf("%s_view1.jpg", b.objects[k]),
			S1Category:  s1,
			S2String:    str,
			S2Category:  s2,
			TrialIndex:  i + 1,
			BlockIndex:  i/b.blockSize + 1,
			ISIDuration: time.Second + time.Duration(i)*time.Millisecond,
			ITIDuration: 1500 * time.Millisecond,
		})
	}
	return session
}
