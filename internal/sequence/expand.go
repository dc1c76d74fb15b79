// Package sequence generates the randomized S1/S2 trial order for a session.
//
// Generation runs in separate phases so each can be tested on its own:
// per-object expansion with view rotation, weighted interleaving across the
// whole session, spacing repair, S2 assignment, timing draws and block
// partitioning. All randomness comes from the *rand.Rand passed in.
package sequence

import (
	"math/rand/v2"

	"github.com/Veraticus/p300-cit/internal/model"
)

// Slot is one S1 presentation before S2 and timing are attached.
type Slot struct {
	Object   string
	View     string
	Category model.Category
}

// rotation is a circular pointer into an object's view list.
type rotation struct {
	views []string
	next  int
}

func (r *rotation) take() string {
	v := r.views[r.next]
	r.next = (r.next + 1) % len(r.views)
	return v
}

// Expand produces reps slots for obj with views assigned round-robin, so each
// view is used floor(reps/V) or ceil(reps/V) times. The rotation starts at a
// random view so the extra uses of an uneven split are not always given to
// the first views. Only the object's own view order is shuffled.
func Expand(obj model.StimulusObject, reps int, rng *rand.Rand) []Slot {
	if reps <= 0 || len(obj.Views) == 0 {
		return nil
	}

	rot := &rotation{views: obj.ViewIDs(), next: rng.IntN(len(obj.Views))}
	slots := make([]Slot, reps)
	for i := range slots {
		slots[i] = Slot{Object: obj.Name, View: rot.take(), Category: obj.Category}
	}

	rng.Shuffle(len(slots), func(i, j int) {
		slots[i], slots[j] = slots[j], slots[i]
	})
	return slots
}
