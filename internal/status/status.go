// Package status tracks the single user-visible transaction banner. A new
// status preempts the current one; success and error states dismiss
// themselves after a short delay while pending states stay until resolved.
package status

import (
	"sync"
	"time"
)

// Kind is the phase of the tracked transaction.
type Kind string

const (
	KindPending Kind = "pending"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// DefaultDismissDelay is how long terminal statuses stay visible.
const DefaultDismissDelay = 3 * time.Second

// Status is a point-in-time banner state.
type Status struct {
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Machine holds at most one current status. All methods are safe for
// concurrent use.
type Machine struct {
	mu         sync.Mutex
	current    *Status
	generation uint64
	delay      time.Duration
	timer      *time.Timer
}

// NewMachine constructs a machine whose terminal statuses auto-dismiss after
// delay. A non-positive delay falls back to DefaultDismissDelay.
func NewMachine(delay time.Duration) *Machine {
	if delay <= 0 {
		delay = DefaultDismissDelay
	}
	return &Machine{delay: delay}
}

// Pending shows a pending banner. It never auto-dismisses.
func (m *Machine) Pending(message string) {
	m.set(Status{Kind: KindPending, Message: message, At: time.Now()}, false)
}

// Succeed shows a success banner that auto-dismisses.
func (m *Machine) Succeed(message string) {
	m.set(Status{Kind: KindSuccess, Message: message, At: time.Now()}, true)
}

// Fail shows an error banner that auto-dismisses.
func (m *Machine) Fail(message string) {
	m.set(Status{Kind: KindError, Message: message, At: time.Now()}, true)
}

// Dismiss clears the current status immediately.
func (m *Machine) Dismiss() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.generation++
	m.stopTimerLocked()
	m.current = nil
}

// Current returns the visible status, if any.
func (m *Machine) Current() (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return Status{}, false
	}
	return *m.current, true
}

func (m *Machine) set(s Status, autoDismiss bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.generation++
	m.stopTimerLocked()
	m.current = &s

	if !autoDismiss {
		return
	}

	// The generation guard keeps a stale timer from dismissing a status
	// that preempted the one it was armed for.
	generation := m.generation
	m.timer = time.AfterFunc(m.delay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.generation != generation {
			return
		}
		m.current = nil
		m.timer = nil
	})
}

func (m *Machine) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
