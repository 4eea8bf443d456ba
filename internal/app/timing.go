package app

import "time"

// timingTracker accounts per-question time and the overall countdown.
// Elapsed time on the current question is only moved into spent by flush.
type timingTracker struct {
	spent          map[int]int
	lastTransition time.Time
	remaining      int
	taken          int
}

func newTimingTracker() *timingTracker {
	return &timingTracker{spent: make(map[int]int)}
}

func (t *timingTracker) arm(seconds int, now time.Time) {
	if seconds < 0 {
		seconds = 0
	}
	t.remaining = seconds
	t.lastTransition = now
}

// flush credits whole seconds since the last transition to index.
func (t *timingTracker) flush(index int, now time.Time) {
	if t.lastTransition.IsZero() {
		return
	}
	elapsed := int(now.Sub(t.lastTransition) / time.Second)
	if elapsed > 0 {
		t.spent[index] += elapsed
	}
	t.lastTransition = now
}

// tick advances the countdown by one second and reports expiry.
func (t *timingTracker) tick() bool {
	if t.remaining > 0 {
		t.remaining--
		t.taken++
	}
	return t.remaining == 0
}

func (t *timingTracker) spentAt(index int) int {
	return t.spent[index]
}

func (t *timingTracker) totalSpent() int {
	total := 0
	for _, s := range t.spent {
		total += s
	}
	return total
}

func (t *timingTracker) spentCopy() map[int]int {
	out := make(map[int]int, len(t.spent))
	for k, v := range t.spent {
		out[k] = v
	}
	return out
}
