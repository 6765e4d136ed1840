package app

import (
	"sync"
	"time"
)

// IDGenerator returns unique identifiers for new tasks.
type IDGenerator func() int64

// Clock returns the current time.
type Clock func() time.Time

// NewTimestampIDGenerator returns Unix-millisecond ids taken from clock. When
// the clock has not advanced past the previous id the previous id plus one is
// used, so ids are strictly increasing and never reused.
func NewTimestampIDGenerator(clock Clock) IDGenerator {
	if clock == nil {
		clock = time.Now
	}
	var (
		mu   sync.Mutex
		last int64
	)
	return func() int64 {
		mu.Lock()
		defer mu.Unlock()
		id := clock().UnixMilli()
		if id <= last {
			id = last + 1
		}
		last = id
		return id
	}
}
