package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/irrigation-agent/internal/sensor"
)

var (
	// ErrNotFound is returned when no sensor reading has arrived yet.
	ErrNotFound = errors.New("no sensor reading received yet")
)

// SensorCache is a concurrency-safe single-slot holder for the latest sensor reading.
// It is written from the bus delivery goroutine and read from the poll loop.
type SensorCache struct {
	mu sync.RWMutex

	reading   sensor.Reading
	updatedAt time.Time
}

// NewSensorCache creates an empty cache.
func NewSensorCache() *SensorCache {
	return &SensorCache{
		reading: sensor.Reading{},
	}
}

// Update replaces the stored reading. There is no merge with the previous one.
func (c *SensorCache) Update(reading sensor.Reading) {
	next := reading.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.reading = next
	c.updatedAt = time.Now().UTC()
}

// Current returns a copy of the latest reading, or an empty reading if none arrived.
func (c *SensorCache) Current() sensor.Reading {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.reading.Clone()
}

// Populated reports whether the stored reading carries any values.
func (c *SensorCache) Populated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.reading) > 0
}

// Latest returns the reading together with the time it was stored.
func (c *SensorCache) Latest() (sensor.Reading, time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.updatedAt.IsZero() {
		return nil, time.Time{}, ErrNotFound
	}
	return c.reading.Clone(), c.updatedAt, nil
}
