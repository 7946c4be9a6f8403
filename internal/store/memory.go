package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weather-page/internal/weather"
)

var (
	// ErrNotFound is returned when no reading matches.
	ErrNotFound = errors.New("no weather readings")
)

// MemoryStore is a concurrency-safe, time-ordered history of readings.
type MemoryStore struct {
	mu       sync.RWMutex
	readings []weather.Reading

	// retention configuration
	maxHistory int           // max number of readings kept
	maxAge     time.Duration // optional max age for readings

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory or maxAge is <= 0, that limit is not applied.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Save appends a reading and enforces retention. A reading with the same
// timestamp as the newest one replaces it.
func (s *MemoryStore) Save(r weather.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.readings); n > 0 && s.readings[n-1].Timestamp.Equal(r.Timestamp) {
		s.readings[n-1] = r
	} else {
		s.readings = append(s.readings, r)
	}

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.readings) > s.maxHistory {
		over := len(s.readings) - s.maxHistory
		s.readings = s.readings[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.readings); i++ {
			if !s.readings[i].Timestamp.Before(cutoff) {
				break
			}
		}
		s.readings = s.readings[i:]
	}
}

// Latest returns the most recent reading.
func (s *MemoryStore) Latest() (weather.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.readings) == 0 {
		return weather.Reading{}, ErrNotFound
	}
	return s.readings[len(s.readings)-1], nil
}

// Range returns all readings between from and to (inclusive).
func (s *MemoryStore) Range(from, to time.Time) ([]weather.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []weather.Reading
	for _, r := range s.readings {
		if !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
