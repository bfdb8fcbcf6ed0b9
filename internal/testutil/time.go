package testutil

import (
	"strconv"
	"sync"
	"time"

	"shopkeep-go/internal/sk"
)

// RegistrationTime is the instant FixedClock reports. Registration dates
// and trial ends in tests are computed from it.
var RegistrationTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// StubClock is an sk.Clock that only moves when told to.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

var _ sk.Clock = (*StubClock)(nil)

// NewStubClock creates a StubClock reading t.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock at RegistrationTime.
func FixedClock() *StubClock {
	return NewStubClock(RegistrationTime)
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *StubClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// SequenceIDs is an sk.IDGenerator handing out "<prefix>-1", "<prefix>-2"
// and so on, remembering what it issued.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	issued []string
}

var _ sk.IDGenerator = (*SequenceIDs)(nil)

// NewSequenceIDs creates a SequenceIDs with the given prefix.
func NewSequenceIDs(prefix string) *SequenceIDs {
	return &SequenceIDs{prefix: prefix}
}

func (g *SequenceIDs) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.prefix + "-" + strconv.Itoa(len(g.issued)+1)
	g.issued = append(g.issued, id)
	return id
}

// Issued returns every id handed out so far, oldest first.
func (g *SequenceIDs) Issued() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.issued...)
}
