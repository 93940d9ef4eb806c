package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"irbrainz/remote"
)

// ============================================================================
// Central daemon loop
// ============================================================================
//
// The daemon goroutine owns the remote engine, the light model and the
// active remote selection. Everything else talks to it through Events:
//   - the ticker drives the IR receiver poll
//   - IPC, MQTT and HTTP deliver commands and queries
//
// State changes leave the loop as StateBroadcast values on buffered sink
// channels. Sinks never block the loop; a full sink drops the update.
//
// ============================================================================

// ErrPresetsDisabled is returned for preset commands when no store is open.
var ErrPresetsDisabled = errors.New("preset store disabled")

const presetNumMax = 250

// Daemon is the state owned by the daemon goroutine.
type Daemon struct {
	engine  *remote.Engine
	light   *Light
	store   *PresetStore
	profile remote.ProfileID
	sinks   []chan<- StateBroadcast
	logger  *slog.Logger
}

// NewDaemon returns a daemon without an engine; call AttachEngine before
// running it. The split exists because the engine needs the daemon as its
// notifier.
func NewDaemon(light *Light, store *PresetStore, profile remote.ProfileID, logger *slog.Logger, sinks ...chan<- StateBroadcast) *Daemon {
	return &Daemon{
		light:   light,
		store:   store,
		profile: profile,
		sinks:   sinks,
		logger:  logger,
	}
}

// AttachEngine sets the engine the daemon drives.
func (d *Daemon) AttachEngine(e *remote.Engine) {
	d.engine = e
}

// NotifyChanged implements remote.Notifier. It runs inside Dispatch on the
// daemon goroutine.
func (d *Daemon) NotifyChanged(reason remote.ChangeReason) {
	ev := BroadcastLightChanged{
		State:  d.light.State(),
		Reason: string(reason),
		At:     time.Now().UTC(),
	}
	if d.engine != nil {
		rs := d.engine.RepeatState()
		if rs.LastAction != nil {
			ev.Action = rs.LastAction.ID.Key()
			ev.Repeat = rs.RepeatCount
		}
	}
	d.broadcast(ev)
}

func (d *Daemon) broadcast(b StateBroadcast) {
	for _, sink := range d.sinks {
		select {
		case sink <- b:
		default:
			d.logger.Debug("state sink full, dropping broadcast", "type", fmt.Sprintf("%T", b))
		}
	}
}

// Snapshot returns the externally visible state.
func (d *Daemon) Snapshot(now time.Time) StateSnapshot {
	snap := StateSnapshot{
		Light:  d.light.State(),
		Remote: d.profile.String(),
		At:     now.UTC(),
	}
	if d.engine != nil {
		snap.Receiver = d.engine.PollState().String()
		snap.LastPreset = d.engine.LastPreset()
		rs := d.engine.RepeatState()
		if rs.LastAction != nil {
			snap.LastAction = rs.LastAction.ID.Key()
			snap.RepeatCount = rs.RepeatCount
		}
	}
	return snap
}

// Tick runs one receiver poll.
func (d *Daemon) Tick(now time.Time) remote.Outcome {
	return d.engine.Poll(d.profile, now)
}

// Handle applies one event.
func (d *Daemon) Handle(ctx context.Context, ev Event, now time.Time) {
	switch e := ev.(type) {
	case IRCode:
		// Zero is receiver noise and must not break the repeat chain.
		if e.Code == 0 {
			return
		}
		out := d.engine.Dispatch(uint32(e.Code), d.profile, now)
		d.logger.Debug("injected code", "code", fmt.Sprintf("0x%08x", uint32(e.Code)), "outcome", out)

	case SetRemote:
		answer(e.Reply, d.setRemote(e.Remote, now))

	case SavePreset:
		answer(e.Reply, d.savePreset(ctx, e.Num))

	case DeletePreset:
		answer(e.Reply, d.deletePreset(ctx, e.Num))

	case RequestStateSnapshot:
		answer(e.Reply, d.Snapshot(now))

	case ListActions:
		answer(e.Reply, d.engine.Actions())

	case ListPresets:
		var res PresetListResult
		if d.store == nil {
			res.Err = ErrPresetsDisabled
		} else {
			res.Presets, res.Err = d.store.List(ctx)
		}
		answer(e.Reply, res)

	default:
		d.logger.Warn("daemon: unhandled event", "type", fmt.Sprintf("%T", ev))
	}
}

func (d *Daemon) setRemote(key string, now time.Time) error {
	id, err := remote.ParseProfileID(key)
	if err != nil {
		return err
	}
	if id == d.profile {
		return nil
	}
	d.logger.Info("remote changed", "from", d.profile, "to", id)
	d.profile = id
	d.broadcast(BroadcastRemoteChanged{Remote: id.String(), At: now.UTC()})
	return nil
}

func checkPresetNum(n int) error {
	if n < 1 || n > presetNumMax {
		return fmt.Errorf("preset number must be between 1 and %d", presetNumMax)
	}
	return nil
}

func (d *Daemon) savePreset(ctx context.Context, n int) error {
	if d.store == nil {
		return ErrPresetsDisabled
	}
	if err := checkPresetNum(n); err != nil {
		return err
	}
	st := d.light.State()
	st.Preset = 0
	if err := d.store.Save(ctx, n, st); err != nil {
		return err
	}
	d.logger.Info("preset saved", "preset", n)
	return nil
}

func (d *Daemon) deletePreset(ctx context.Context, n int) error {
	if d.store == nil {
		return ErrPresetsDisabled
	}
	if err := checkPresetNum(n); err != nil {
		return err
	}
	if err := d.store.Delete(ctx, n); err != nil {
		return err
	}
	d.logger.Info("preset deleted", "preset", n)
	return nil
}

// runDaemon drives d until ctx is canceled or events is closed.
func runDaemon(ctx context.Context, events <-chan Event, d *Daemon, interval time.Duration, logger *slog.Logger) {
	if d == nil || d.engine == nil {
		logger.Error("daemon has no engine")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer d.engine.Close()

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return
			}
			d.Handle(ctx, ev, time.Now())

		case now := <-ticker.C:
			d.Tick(now)
		}
	}
}
