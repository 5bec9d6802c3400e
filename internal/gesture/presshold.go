// Package gesture turns press and release events into short-press or
// long-press actions.
//
// PressHold is driven entirely by the timestamps it is given, so it can be
// fed by a UI event loop, a ticker or a test without goroutines.
package gesture

import "time"

// DefaultThreshold is how long a press must be held to count as long.
const DefaultThreshold = 500 * time.Millisecond

// State is the machine's current state.
type State int

const (
	Idle State = iota
	// Pending means pressed, threshold not reached yet.
	Pending
	// LongFired means the long-press action has run for the current press.
	LongFired
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pressed-pending"
	case LongFired:
		return "long-press-fired"
	}
	return "unknown"
}

// Action is what a transition asks the caller to do.
type Action int

const (
	None Action = iota
	// ShortPress opens the manual entry form.
	ShortPress
	// LongPress opens quick capture.
	LongPress
)

func (a Action) String() string {
	switch a {
	case ShortPress:
		return "short-press"
	case LongPress:
		return "long-press"
	}
	return "none"
}

// PressHold is not safe for concurrent use; drive it from one goroutine.
type PressHold struct {
	threshold time.Duration
	state     State
	pressedAt time.Time
}

// NewPressHold returns a machine with the given threshold. A non-positive
// threshold uses DefaultThreshold.
func NewPressHold(threshold time.Duration) *PressHold {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &PressHold{threshold: threshold}
}

// State returns the current state.
func (p *PressHold) State() State { return p.state }

// Threshold returns the configured hold time.
func (p *PressHold) Threshold() time.Duration { return p.threshold }

// Press starts a press at now. A press while one is already active is
// ignored.
func (p *PressHold) Press(now time.Time) Action {
	if p.state != Idle {
		return None
	}
	p.state = Pending
	p.pressedAt = now
	return None
}

// Poll advances the clock. It fires LongPress once when the threshold has
// elapsed since Press.
func (p *PressHold) Poll(now time.Time) Action {
	if p.state == Pending && now.Sub(p.pressedAt) >= p.threshold {
		p.state = LongFired
		return LongPress
	}
	return None
}

// Release ends the press. Releasing before the threshold yields ShortPress.
// If the threshold passed without a Poll, the long press fires here instead.
// After a long press has fired, the release does nothing.
func (p *PressHold) Release(now time.Time) Action {
	switch p.state {
	case Pending:
		p.state = Idle
		if now.Sub(p.pressedAt) >= p.threshold {
			return LongPress
		}
		return ShortPress
	case LongFired:
		p.state = Idle
	}
	return None
}

// Cancel abandons the current press without any action, for example when the
// pointer leaves the button.
func (p *PressHold) Cancel() {
	p.state = Idle
}

// Deadline reports when the pending press turns into a long press. ok is
// false when no press is pending.
func (p *PressHold) Deadline() (deadline time.Time, ok bool) {
	if p.state != Pending {
		return time.Time{}, false
	}
	return p.pressedAt.Add(p.threshold), true
}
