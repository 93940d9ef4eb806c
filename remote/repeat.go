package remote

import "time"

// DebounceWindow is the minimum spacing between two firings of the same
// non-repeatable action.
const DebounceWindow = 500 * time.Millisecond

// Outcome reports what a dispatch or invocation did.
type Outcome int

const (
	// OutcomeNone means nothing was remembered to repeat.
	OutcomeNone Outcome = iota
	// OutcomeExecuted means the action ran and a change notification was sent.
	OutcomeExecuted
	// OutcomeSuppressed means a non-repeatable action fired again inside the
	// debounce window and was dropped.
	OutcomeSuppressed
	// OutcomeUnknown means the code did not resolve in the active profile.
	OutcomeUnknown
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeExecuted:
		return "executed"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeUnknown:
		return "unknown"
	default:
		return "outcome(?)"
	}
}

// ChangeReason tells a Notifier why state changed.
type ChangeReason string

// ReasonButton is sent after every executed remote action.
const ReasonButton ChangeReason = "button"

// Notifier is told once after every executed action. Implementations must
// not block.
type Notifier interface {
	NotifyChanged(reason ChangeReason)
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(reason ChangeReason)

func (f NotifierFunc) NotifyChanged(reason ChangeReason) { f(reason) }

// RepeatState is a snapshot of the arbiter memory.
type RepeatState struct {
	LastAction  *ActionDescriptor
	LastInvoke  time.Time
	RepeatCount int
}

// RepeatArbiter gates action execution: it counts repeats of the last
// invoked action and suppresses rapid re-fires of non-repeatable ones.
type RepeatArbiter struct {
	notify Notifier
	state  RepeatState
}

// NewRepeatArbiter returns an arbiter with empty memory. notify may be nil.
func NewRepeatArbiter(notify Notifier) *RepeatArbiter {
	return &RepeatArbiter{notify: notify}
}

// Invoke runs d unless it is a debounced re-fire of the last action.
func (a *RepeatArbiter) Invoke(d *ActionDescriptor, now time.Time) Outcome {
	if d == a.state.LastAction {
		if !d.Repeatable && now.Sub(a.state.LastInvoke) < DebounceWindow {
			return OutcomeSuppressed
		}
		a.state.RepeatCount++
	} else {
		a.state.LastAction = d
		a.state.RepeatCount = 1
	}

	a.state.LastInvoke = now
	d.Execute.Execute()
	if a.notify != nil {
		a.notify.NotifyChanged(ReasonButton)
	}
	return OutcomeExecuted
}

// RepeatLast re-invokes the remembered action, if any.
func (a *RepeatArbiter) RepeatLast(now time.Time) Outcome {
	if a.state.LastAction == nil {
		return OutcomeNone
	}
	return a.Invoke(a.state.LastAction, now)
}

// ClearLast breaks the current repeat chain.
func (a *RepeatArbiter) ClearLast() {
	a.state.LastAction = nil
}

// State returns a copy of the arbiter memory.
func (a *RepeatArbiter) State() RepeatState {
	return a.state
}
