package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator mints deterministic "prefix-N" identifiers so tests can predict
// the ids a service will assign.
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	next   uint64
}

func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier in the sequence, starting at prefix-1.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%d", g.prefix, g.next)
}

// NextFunc adapts the generator to the `idGenerator func() string` parameter
// the services take.
func (g *IDGenerator) NextFunc() func() string {
	return g.Next
}
