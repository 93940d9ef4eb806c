package remote

import (
	"fmt"
	"log/slog"
	"time"
)

// Config wires an Engine to its collaborators. Every field except Source
// is optional.
type Config struct {
	// Profiles defaults to the built-in remote tables.
	Profiles *Profiles
	// Binder supplies executors for every action except the preset slots,
	// which are always bound to the preset cycler.
	Binder   Binder
	Presets  PresetStore
	Effects  Effects
	Notifier Notifier

	Source ReceiverSource
	Input  string

	Logger *slog.Logger
}

// Engine owns all remote handling state: the action registry, repeat
// memory, preset cycling memory and the receiver lifecycle. It is not safe
// for concurrent use; a single loop goroutine must own it.
type Engine struct {
	profiles   *Profiles
	registry   *Registry
	arbiter    *RepeatArbiter
	dispatcher *Dispatcher
	cycler     *PresetCycler
	poller     *PollScheduler

	// Profile and time of the call in progress, read by preset executors.
	curProfile ProfileID
	curNow     time.Time
}

// NewEngine builds an engine from cfg.
func NewEngine(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	profiles := cfg.Profiles
	if profiles == nil {
		var err error
		profiles, err = BuiltinProfiles()
		if err != nil {
			return nil, fmt.Errorf("load builtin remotes: %w", err)
		}
	}
	for id := ProfileDisabled + 1; id < ProfileCount; id++ {
		if p, ok := profiles.Get(id); ok {
			if err := p.Validate(); err != nil {
				return nil, err
			}
		}
	}

	e := &Engine{profiles: profiles}
	e.cycler = NewPresetCycler(profiles, cfg.Presets, cfg.Effects, logger)
	e.registry = NewRegistry(BinderFunc(func(id ActionID) Executor {
		if n, ok := id.PresetSlot(); ok {
			return ExecutorFunc(func() { e.cycler.Select(n, e.curProfile, e.curNow) })
		}
		if cfg.Binder == nil {
			return nil
		}
		return cfg.Binder.Bind(id)
	}))
	e.arbiter = NewRepeatArbiter(cfg.Notifier)
	e.dispatcher = NewDispatcher(profiles, e.registry, e.arbiter, logger)
	e.poller = NewPollScheduler(cfg.Source, cfg.Input, e.dispatcher, logger)
	return e, nil
}

// Poll runs one receiver scheduling step.
func (e *Engine) Poll(profile ProfileID, now time.Time) Outcome {
	e.curProfile, e.curNow = profile, now
	return e.poller.Poll(profile, now)
}

// Dispatch handles a code that arrived through another path (IPC, tests).
func (e *Engine) Dispatch(code uint32, profile ProfileID, now time.Time) Outcome {
	e.curProfile, e.curNow = profile, now
	return e.dispatcher.Dispatch(code, profile, now)
}

// Close releases the receiver.
func (e *Engine) Close() {
	e.poller.Close()
}

// SetCustomProfile replaces the user-defined remote table.
func (e *Engine) SetCustomProfile(p *Profile) error {
	if err := e.profiles.SetCustom(p); err != nil {
		return err
	}
	e.cycler.Invalidate(ProfileCustom)
	return nil
}

// PollState returns the receiver lifecycle state.
func (e *Engine) PollState() PollState {
	return e.poller.State()
}

// RepeatState returns a copy of the repeat memory.
func (e *Engine) RepeatState() RepeatState {
	return e.arbiter.State()
}

// LastPreset returns the preset number selected most recently.
func (e *Engine) LastPreset() int {
	return e.cycler.LastPreset()
}

// Actions lists every registered action.
func (e *Engine) Actions() []ActionInfo {
	return e.registry.Actions()
}

// Profile returns the table for id.
func (e *Engine) Profile(id ProfileID) (*Profile, bool) {
	return e.profiles.Get(id)
}

// PresetButtonsConfigured reports the preset group size for profile.
func (e *Engine) PresetButtonsConfigured(profile ProfileID) int {
	return e.cycler.PresetButtonsConfigured(profile)
}
