// Package idgen issues timestamp-derived identifiers for stored records.
package idgen

import (
	"sync"
	"time"
)

// Generator produces unique int64 ids derived from the current time with
// microsecond precision. The wall clock alone can repeat a value when ids are
// requested in quick succession, so the generator never hands out a value
// less than or equal to the previous one.
type Generator struct {
	mu   sync.Mutex
	last int64
}

// New constructs a Generator.
func New() *Generator {
	return &Generator{}
}

// Next returns the next unique id.
func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := time.Now().UnixMicro()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
