package service

import (
	"fmt"
	"sync"
	"time"
)

const orderIDModulus = 100_000_000

// OrderIDGenerator issues human-readable order IDs: a fixed prefix followed by
// the low eight decimal digits of the current Unix time in milliseconds.
//
// Two calls in the same millisecond would collide, so the generator never
// issues a value at or below the last one it handed out; it bumps to last+1
// instead. IDs are therefore unique within one process until the eight digits
// wrap. Separate processes can still collide and rely on the store's unique
// orderId index.
type OrderIDGenerator struct {
	prefix string
	now    func() time.Time

	mu     sync.Mutex
	last   int64
	issued bool
}

// NewOrderIDGenerator creates a generator using prefix and clock now.
func NewOrderIDGenerator(prefix string, now func() time.Time) *OrderIDGenerator {
	if now == nil {
		now = time.Now
	}
	return &OrderIDGenerator{prefix: prefix, now: now}
}

// Next returns the next order ID.
func (g *OrderIDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.now().UnixMilli() % orderIDModulus
	if g.issued && n <= g.last && g.last-n < orderIDModulus/2 {
		n = (g.last + 1) % orderIDModulus
	}
	g.last = n
	g.issued = true

	return fmt.Sprintf("%s%08d", g.prefix, n)
}
