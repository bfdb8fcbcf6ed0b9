package sk

import "sync"

// Operation is the logical operation a flow is performing.
type Operation int

const (
	OperationNone Operation = iota
	OperationBackup
	OperationRestore
)

func (o Operation) String() string {
	switch o {
	case OperationBackup:
		return "backup"
	case OperationRestore:
		return "restore"
	default:
		return "none"
	}
}

// Phase is a state of the backup/restore state machine.
type Phase string

const (
	PhaseIdle                   Phase = "idle"
	PhaseCheckingAuth           Phase = "checking_auth"
	PhaseCheckingPermission     Phase = "checking_permission"
	PhaseAwaitingUserResolution Phase = "awaiting_user_resolution"
	PhaseTransferring           Phase = "transferring"
	PhaseSuccess                Phase = "success"
	PhaseNotFound               Phase = "not_found"
	PhaseFailure                Phase = "failure"
)

// Terminal reports whether no further transition happens without a new
// request from the caller.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseSuccess, PhaseNotFound, PhaseFailure, PhaseAwaitingUserResolution, PhaseIdle:
		return true
	}
	return false
}

// State is the value the presentation layer renders.
type State struct {
	Busy              bool
	Phase             Phase
	StatusText        string
	Error             string
	Success           bool
	PendingResolution *ResolutionHandle
	PendingOperation  Operation
}

// IdleState is the initial state.
func IdleState() State {
	return State{Phase: PhaseIdle, StatusText: "Idle"}
}

// StateStream holds the current State and delivers every replacement to
// subscribers. Subscribers see the latest value; intermediate values may be
// skipped if a subscriber falls behind. Safe for concurrent use.
type StateStream struct {
	mu      sync.Mutex
	current State
	subs    map[int]chan State
	nextID  int
}

// NewStateStream creates a stream starting at IdleState.
func NewStateStream() *StateStream {
	return &StateStream{
		current: IdleState(),
		subs:    make(map[int]chan State),
	}
}

// Current returns the latest state.
func (s *StateStream) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set replaces the state and notifies subscribers.
func (s *StateStream) Set(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = st
	for _, ch := range s.subs {
		deliverLatest(ch, st)
	}
}

// Update applies fn to the current state and publishes the result.
func (s *StateStream) Update(fn func(State) State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = fn(s.current)
	for _, ch := range s.subs {
		deliverLatest(ch, s.current)
	}
}

// Subscribe returns a channel that immediately carries the current state
// and then each replacement. The returned cancel func closes the channel.
func (s *StateStream) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan State, 1)
	ch <- s.current
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// deliverLatest replaces any undelivered value in ch with st.
// Callers hold s.mu, so ch has no other writer.
func deliverLatest(ch chan State, st State) {
	select {
	case ch <- st:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- st
}
