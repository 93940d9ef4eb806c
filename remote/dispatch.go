package remote

import (
	"fmt"
	"log/slog"
	"time"
)

// Dispatcher resolves decoded codes against the active profile and hands
// the matched action to the repeat arbiter.
type Dispatcher struct {
	profiles *Profiles
	registry *Registry
	arbiter  *RepeatArbiter
	logger   *slog.Logger
}

// NewDispatcher wires a dispatcher. A nil logger discards diagnostics.
func NewDispatcher(profiles *Profiles, registry *Registry, arbiter *RepeatArbiter, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		profiles: profiles,
		registry: registry,
		arbiter:  arbiter,
		logger:   logger,
	}
}

// Dispatch handles one decoded code. The repeat sentinel replays the last
// action; a code missing from the profile clears the repeat chain.
func (d *Dispatcher) Dispatch(code uint32, profile ProfileID, now time.Time) Outcome {
	if code == RepeatCode {
		out := d.arbiter.RepeatLast(now)
		d.logger.Debug("IR repeat", "outcome", out.String())
		return out
	}

	table, ok := d.profiles.Get(profile)
	if ok {
		if m, found := table.Lookup(code); found {
			desc, err := d.registry.Lookup(m.Action)
			if err == nil {
				out := d.arbiter.Invoke(desc, now)
				d.logger.Debug("IR code",
					"code", fmt.Sprintf("0x%08x", code),
					"action", desc.Name,
					"profile", profile.String(),
					"outcome", out.String(),
				)
				return out
			}
			// Profiles are validated on construction; treat a bad id as unknown.
			d.logger.Warn("IR mapping has invalid action", "code", fmt.Sprintf("0x%08x", code), "error", err)
		}
	}

	d.arbiter.ClearLast()
	d.logger.Debug("IR code unknown", "code", fmt.Sprintf("0x%08x", code), "profile", profile.String())
	return OutcomeUnknown
}
