package schedule

import (
	"sort"
	"sync"
	"time"
)

// Gate decides, once per poll tick, which slots have newly arrived.
//
// Each slot carries a "last fired" marker. A slot fires when the sampled time
// is inside its minute and the marker differs from the slot key; firing records
// the key as the marker. Sampling the clock outside the minute clears the
// marker again, so a slot fires at most once per matching minute, which in
// practice means once per day.
//
// Markers are compared by value only and live for the process lifetime. A
// restart inside a slot minute fires that slot again, and a poll interval
// coarser than a minute can skip a slot entirely; there is no catch-up.
type Gate struct {
	mu      sync.Mutex
	markers map[string]string
}

// NewGate returns a gate with every slot armed.
func NewGate() *Gate {
	return &Gate{markers: make(map[string]string)}
}

// ShouldFire evaluates the slots in order against now and returns the keys of
// the slots that fired on this tick.
func (g *Gate) ShouldFire(now time.Time, slots []Slot) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var fired []string
	for _, slot := range slots {
		if !slot.Matches(now) {
			delete(g.markers, slot.Key)
			continue
		}
		if g.markers[slot.Key] == slot.Key {
			continue
		}
		g.markers[slot.Key] = slot.Key
		fired = append(fired, slot.Key)
	}
	return fired
}

// Markers returns a copy of the current markers, keyed by slot.
func (g *Gate) Markers() map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[string]string, len(g.markers))
	for k, v := range g.markers {
		out[k] = v
	}
	return out
}

// Fired returns the keys of the slots currently holding a marker, sorted.
func (g *Gate) Fired() []string {
	markers := g.Markers()
	keys := make([]string, 0, len(markers))
	for k := range markers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
