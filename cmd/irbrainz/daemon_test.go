package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"irbrainz/remote"
)

// noReceiverSource never yields a receiver; codes reach the engine only via
// injected IRCode events in these tests.
type noReceiverSource struct{}

var errNoReceiver = errors.New("no receiver")

func (noReceiverSource) Acquire(string) (remote.Receiver, error) { return nil, errNoReceiver }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testDaemon struct {
	d     *Daemon
	light *Light
	sink  chan StateBroadcast
}

func newTestDaemon(t *testing.T, store *PresetStore, profile remote.ProfileID) *testDaemon {
	t.Helper()
	logger := testLogger()
	light := NewLight(LightConfig{})
	sink := make(chan StateBroadcast, 16)
	d := NewDaemon(light, store, profile, logger, sink)

	engine, err := remote.NewEngine(remote.Config{
		Binder:   light,
		Presets:  &presetApplier{store: store, light: light, logger: logger},
		Effects:  light,
		Notifier: d,
		Source:   noReceiverSource{},
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	d.AttachEngine(engine)
	return &testDaemon{d: d, light: light, sink: sink}
}

func (td *testDaemon) nextBroadcast(t *testing.T) StateBroadcast {
	t.Helper()
	select {
	case b := <-td.sink:
		return b
	default:
		t.Fatalf("expected a broadcast")
		return nil
	}
}

func TestDaemon_IRCodeRunsActionAndBroadcasts(t *testing.T) {
	td := newTestDaemon(t, nil, remote.ProfileIR44)
	ctx := context.Background()
	t0 := time.Unix(1000, 0)

	before := td.light.State().Brightness
	td.d.Handle(ctx, IRCode{Code: 0xFF3AC5}, t0)

	if got := td.light.State().Brightness; got <= before {
		t.Fatalf("brightness %d -> %d, want increase", before, got)
	}
	b, ok := td.nextBroadcast(t).(BroadcastLightChanged)
	if !ok {
		t.Fatalf("expected BroadcastLightChanged")
	}
	if b.Action != "bright_up" || b.Repeat != 1 || b.Reason != string(remote.ReasonButton) {
		t.Fatalf("broadcast=%+v", b)
	}
	if b.State != td.light.State() {
		t.Fatalf("broadcast state does not match light")
	}

	// Held button: the repeat code re-runs bright_up.
	td.d.Handle(ctx, IRCode{Code: IRCodeValue(remote.RepeatCode)}, t0.Add(110*time.Millisecond))
	b = td.nextBroadcast(t).(BroadcastLightChanged)
	if b.Action != "bright_up" || b.Repeat != 2 {
		t.Fatalf("repeat broadcast=%+v", b)
	}
}

func TestDaemon_UnknownCodeDoesNotBroadcast(t *testing.T) {
	td := newTestDaemon(t, nil, remote.ProfileIR44)
	td.d.Handle(context.Background(), IRCode{Code: 0x12345678}, time.Unix(1000, 0))

	select {
	case b := <-td.sink:
		t.Fatalf("unexpected broadcast %#v", b)
	default:
	}
}

func TestDaemon_ZeroCodeKeepsRepeatChain(t *testing.T) {
	td := newTestDaemon(t, nil, remote.ProfileIR44)
	ctx := context.Background()
	t0 := time.Unix(1000, 0)

	td.d.Handle(ctx, IRCode{Code: 0xFF3AC5}, t0)
	td.nextBroadcast(t)

	td.d.Handle(ctx, IRCode{Code: 0}, t0.Add(50*time.Millisecond))
	if got := td.d.engine.RepeatState().RepeatCount; got != 1 {
		t.Fatalf("repeat count=%d after zero code, want 1", got)
	}

	td.d.Handle(ctx, IRCode{Code: IRCodeValue(remote.RepeatCode)}, t0.Add(110*time.Millisecond))
	b := td.nextBroadcast(t).(BroadcastLightChanged)
	if b.Action != "bright_up" || b.Repeat != 2 {
		t.Fatalf("repeat broadcast=%+v", b)
	}
}

func TestDaemon_SetRemote(t *testing.T) {
	td := newTestDaemon(t, nil, remote.ProfileIR44)
	ctx := context.Background()
	now := time.Unix(1000, 0)

	reply := make(chan error, 1)
	td.d.Handle(ctx, SetRemote{Remote: "ir24", Reply: reply}, now)
	if err := <-reply; err != nil {
		t.Fatalf("SetRemote: %v", err)
	}
	if rc, ok := td.nextBroadcast(t).(BroadcastRemoteChanged); !ok || rc.Remote != "ir24" {
		t.Fatalf("expected remote_changed to ir24")
	}

	// IR24 "on" is now recognized, IR44 codes are not.
	td.d.Handle(ctx, IRCode{Code: 0xF740BF}, now)
	if td.light.State().On {
		t.Fatalf("ir24 off code was not handled")
	}

	td.d.Handle(ctx, SetRemote{Remote: "nope", Reply: reply}, now)
	if err := <-reply; !errors.Is(err, remote.ErrInvalidProfile) {
		t.Fatalf("SetRemote(nope)=%v, want ErrInvalidProfile", err)
	}

	// Nil reply channels are allowed (MQTT commands).
	td.d.Handle(ctx, SetRemote{Remote: "disabled"}, now)
	if td.d.profile != remote.ProfileDisabled {
		t.Fatalf("profile=%v, want disabled", td.d.profile)
	}
}

func TestDaemon_PresetsDisabledWithoutStore(t *testing.T) {
	td := newTestDaemon(t, nil, remote.ProfileIR24)
	ctx := context.Background()

	reply := make(chan error, 1)
	td.d.Handle(ctx, SavePreset{Num: 1, Reply: reply}, time.Now())
	if err := <-reply; !errors.Is(err, ErrPresetsDisabled) {
		t.Fatalf("SavePreset=%v, want ErrPresetsDisabled", err)
	}

	list := make(chan PresetListResult, 1)
	td.d.Handle(ctx, ListPresets{Reply: list}, time.Now())
	if res := <-list; !errors.Is(res.Err, ErrPresetsDisabled) {
		t.Fatalf("ListPresets err=%v", res.Err)
	}

	// Preset buttons fall back to built-in effects. IR24 "strobe" is preset 2.
	td.d.Handle(ctx, IRCode{Code: 0xF7F00F}, time.Unix(1000, 0))
	if got := td.light.State().Effect; got != int(remote.FXTwinkle) {
		t.Fatalf("effect=%d, want fallback %d", got, remote.FXTwinkle)
	}
}

func TestDaemon_SavedPresetIsAppliedByButton(t *testing.T) {
	store := openTestStore(t)
	td := newTestDaemon(t, store, remote.ProfileIR24)
	ctx := context.Background()
	t0 := time.Unix(1000, 0)

	td.light.SetEffect(remote.FXTwinkleFox)
	td.light.setBrightness(43)
	reply := make(chan error, 1)
	td.d.Handle(ctx, SavePreset{Num: 1, Reply: reply}, t0)
	if err := <-reply; err != nil {
		t.Fatalf("SavePreset: %v", err)
	}

	td.d.Handle(ctx, SavePreset{Num: 0, Reply: reply}, t0)
	if err := <-reply; err == nil {
		t.Fatalf("SavePreset(0) should fail")
	}

	// Change the light, then press the IR24 preset_1 button.
	td.light.SetEffect(remote.FXStatic)
	td.light.setBrightness(255)
	td.d.Handle(ctx, IRCode{Code: 0xF7D02F}, t0.Add(time.Second))

	st := td.light.State()
	if st.Effect != int(remote.FXTwinkleFox) || st.Brightness != 43 || st.Preset != 1 {
		t.Fatalf("preset not applied: %+v", st)
	}

	snap := make(chan StateSnapshot, 1)
	td.d.Handle(ctx, RequestStateSnapshot{Reply: snap}, t0.Add(time.Second))
	s := <-snap
	if s.LastPreset != 1 || s.LastAction != "preset_1" || s.Remote != "ir24" {
		t.Fatalf("snapshot=%+v", s)
	}

	td.d.Handle(ctx, DeletePreset{Num: 1, Reply: reply}, t0)
	if err := <-reply; err != nil {
		t.Fatalf("DeletePreset: %v", err)
	}
	td.d.Handle(ctx, DeletePreset{Num: 1, Reply: reply}, t0)
	if err := <-reply; !errors.Is(err, ErrPresetNotFound) {
		t.Fatalf("second DeletePreset=%v, want ErrPresetNotFound", err)
	}
}

func TestDaemon_ListActions(t *testing.T) {
	td := newTestDaemon(t, nil, remote.ProfileIR44)
	reply := make(chan []remote.ActionInfo, 1)
	td.d.Handle(context.Background(), ListActions{Reply: reply}, time.Now())
	if got := <-reply; len(got) != int(remote.ActionCount) {
		t.Fatalf("len(actions)=%d, want %d", len(got), remote.ActionCount)
	}
}

func TestRunDaemon_StopsOnCancel(t *testing.T) {
	td := newTestDaemon(t, nil, remote.ProfileIR44)
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event, 4)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runDaemon(ctx, events, td.d, 5*time.Millisecond, testLogger())
	}()

	snap, err := requestSnapshot(ctx, events)
	if err != nil {
		t.Fatalf("requestSnapshot: %v", err)
	}
	if snap.Remote != "ir44" {
		t.Fatalf("snapshot remote=%q", snap.Remote)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("daemon did not stop")
	}
}
