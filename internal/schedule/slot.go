package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Slot is a time-of-day trigger point for the prediction pipeline.
type Slot struct {
	Key    string `json:"key"`
	Hour   int    `json:"hour" validate:"min=0,max=23"`
	Minute int    `json:"minute" validate:"min=0,max=59"`
}

// Matches reports whether t falls within the slot's minute.
func (s Slot) Matches(t time.Time) bool {
	return t.Hour() == s.Hour && t.Minute() == s.Minute
}

// ParseSlots parses a comma separated list of HH:MM entries, e.g. "08:15,08:20".
// The key of each slot is the canonical "H:MM" form.
func ParseSlots(list string) ([]Slot, error) {
	var slots []Slot
	seen := make(map[string]bool)

	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		hh, mm, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("slot %q: expected HH:MM", part)
		}
		hour, err := strconv.Atoi(hh)
		if err != nil || hour < 0 || hour > 23 {
			return nil, fmt.Errorf("slot %q: invalid hour", part)
		}
		minute, err := strconv.Atoi(mm)
		if err != nil || minute < 0 || minute > 59 {
			return nil, fmt.Errorf("slot %q: invalid minute", part)
		}

		key := fmt.Sprintf("%d:%02d", hour, minute)
		if seen[key] {
			continue
		}
		seen[key] = true
		slots = append(slots, Slot{Key: key, Hour: hour, Minute: minute})
	}

	if len(slots) == 0 {
		return nil, fmt.Errorf("no prediction slots configured")
	}
	return slots, nil
}
