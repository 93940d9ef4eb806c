package remote

import (
	"log/slog"
	"time"
)

const (
	// DecodeInterval is the minimum spacing between decode attempts.
	DecodeInterval = 120 * time.Millisecond

	// acquireRetryInterval spaces out receiver acquisition retries after a
	// failure.
	acquireRetryInterval = time.Second
)

// Receiver is one acquired IR input.
type Receiver interface {
	// Listen starts reception.
	Listen() error
	// TryDecode returns a code if one has been received. It never blocks.
	// An error means the receiver is unusable and must be re-acquired.
	TryDecode() (uint32, bool, error)
	// Resume re-arms reception after a decode.
	Resume()
	// Release stops listening and frees the input.
	Release() error
}

// ReceiverSource acquires receivers bound to a configured input.
type ReceiverSource interface {
	Acquire(input string) (Receiver, error)
}

// PollState is the scheduler lifecycle state.
type PollState int

const (
	PollDisabled PollState = iota
	PollUninitialized
	PollArmed
)

func (s PollState) String() string {
	switch s {
	case PollDisabled:
		return "disabled"
	case PollUninitialized:
		return "uninitialized"
	case PollArmed:
		return "armed"
	default:
		return "poll_state(?)"
	}
}

// PollScheduler owns the receiver lifecycle and throttles decode attempts.
// It is driven by one Poll call per loop iteration.
type PollScheduler struct {
	source     ReceiverSource
	input      string
	dispatcher *Dispatcher
	logger     *slog.Logger

	state       PollState
	rx          Receiver
	lastCheck   time.Time
	lastFailure time.Time
}

// NewPollScheduler returns a scheduler in the disabled state.
func NewPollScheduler(source ReceiverSource, input string, dispatcher *Dispatcher, logger *slog.Logger) *PollScheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PollScheduler{
		source:     source,
		input:      input,
		dispatcher: dispatcher,
		logger:     logger,
		state:      PollDisabled,
	}
}

// State returns the current lifecycle state.
func (p *PollScheduler) State() PollState {
	return p.state
}

// Poll runs one scheduling step for the active profile. It returns the
// dispatch outcome, or OutcomeNone when no code was dispatched.
func (p *PollScheduler) Poll(profile ProfileID, now time.Time) Outcome {
	if !profile.Enabled() {
		p.release()
		p.state = PollDisabled
		return OutcomeNone
	}

	if p.rx == nil {
		p.state = PollUninitialized
		p.acquire(now)
		return OutcomeNone
	}

	if now.Sub(p.lastCheck) < DecodeInterval {
		return OutcomeNone
	}
	p.lastCheck = now

	code, ok, err := p.rx.TryDecode()
	if err != nil {
		p.logger.Warn("IR receiver failed", "input", p.input, "error", err)
		p.release()
		p.lastFailure = now
		p.state = PollUninitialized
		return OutcomeNone
	}
	if !ok {
		return OutcomeNone
	}
	p.rx.Resume()
	if code == 0 {
		return OutcomeNone
	}
	return p.dispatcher.Dispatch(code, profile, now)
}

func (p *PollScheduler) acquire(now time.Time) {
	if p.source == nil {
		return
	}
	if !p.lastFailure.IsZero() && now.Sub(p.lastFailure) < acquireRetryInterval {
		return
	}

	rx, err := p.source.Acquire(p.input)
	if err != nil {
		p.lastFailure = now
		p.logger.Warn("IR receiver acquire failed", "input", p.input, "error", err)
		return
	}
	if err := rx.Listen(); err != nil {
		p.lastFailure = now
		p.logger.Warn("IR receiver listen failed", "input", p.input, "error", err)
		if rerr := rx.Release(); rerr != nil {
			p.logger.Debug("IR receiver release failed", "input", p.input, "error", rerr)
		}
		return
	}

	p.rx = rx
	p.lastCheck = now
	p.lastFailure = time.Time{}
	p.state = PollArmed
	p.logger.Info("IR receiver armed", "input", p.input)
}

func (p *PollScheduler) release() {
	if p.rx == nil {
		return
	}
	if err := p.rx.Release(); err != nil {
		p.logger.Warn("IR receiver release failed", "input", p.input, "error", err)
	}
	p.rx = nil
	p.logger.Info("IR receiver released", "input", p.input)
}

// Close releases any held receiver.
func (p *PollScheduler) Close() {
	p.release()
	p.state = PollDisabled
}
