package sequence

import (
	"testing"
	"time"

	"github.com/Veraticus/p300-cit/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestAssignTimingWithinRange(t *testing.T) {
	trials := make([]model.Trial, 500)
	AssignTiming(trials, time.Second, 1500*time.Millisecond, 1500*time.Millisecond, 2*time.Second, NewRand(3))

	var isiVaries bool
	for i, tr := range trials {
		assert.GreaterOrEqual(t, tr.ISIDuration, time.Second)
		assert.LessOrEqual(t, tr.ISIDuration, 1500*time.Millisecond)
		assert.GreaterOrEqual(t, tr.ITIDuration, 1500*time.Millisecond)
		assert.LessOrEqual(t, tr.ITIDuration, 2*time.Second)
		if i > 0 && tr.ISIDuration != trials[0].ISIDuration {
			isiVaries = true
		}
	}
	assert.True(t, isiVaries)
}

func TestAssignTimingFixedRange(t *testing.T) {
	trials := make([]model.Trial, 10)
	AssignTiming(trials, time.Second, time.Second, 2*time.Second, 2*time.Second, NewRand(3))
	for _, tr := range trials {
		assert.Equal(t, time.Second, tr.ISIDuration)
		assert.Equal(t, 2*time.Second, tr.ITIDuration)
	}
}

func TestPartition(t *testing.T) {
	trials := make([]model.Trial, 10)
	Partition(trials, 4)

	var blocks []int
	for i, tr := range trials {
		assert.Equal(t, i+1, tr.TrialIndex)
		blocks = append(blocks, tr.BlockIndex)
	}
	assert.Equal(t, []int{1, 1, 1, 1, 2, 2, 2, 2, 3, 3}, blocks)
}

func TestNumBlocks(t *testing.T) {
	assert.Equal(t, 5, NumBlocks(400, 80))
	assert.Equal(t, 3, NumBlocks(10, 4))
	assert.Equal(t, 1, NumBlocks(1, 80))
	assert.Equal(t, 0, NumBlocks(0, 80))
}
