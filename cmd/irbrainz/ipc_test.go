package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"irbrainz/remote"
)

// startIPC runs a daemon and the IPC server on a short socket path; unix
// socket paths are limited to ~100 bytes, which t.TempDir can exceed.
func startIPC(t *testing.T, store *PresetStore) (string, *testDaemon) {
	t.Helper()
	dir, err := os.MkdirTemp("", "irb")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	socket := filepath.Join(dir, "s.sock")

	td := newTestDaemon(t, store, remote.ProfileIR44)
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event, 8)

	daemonDone := make(chan struct{})
	go func() {
		defer close(daemonDone)
		runDaemon(ctx, events, td.d, 10*time.Millisecond, testLogger())
	}()
	ipcDone := make(chan struct{})
	go func() {
		defer close(ipcDone)
		if err := runIPCServer(ctx, socket, events, testLogger()); err != nil {
			t.Errorf("runIPCServer: %v", err)
		}
	}()

	t.Cleanup(func() {
		cancel()
		<-ipcDone
		<-daemonDone
		_ = os.RemoveAll(dir)
	})

	waitUntil(t, time.Second, func() bool {
		_, err := os.Stat(socket)
		return err == nil
	}, "ipc socket not created")
	return socket, td
}

func TestIPC_CodeAndStateRoundTrip(t *testing.T) {
	socket, _ := startIPC(t, nil)

	if _, err := SendIPCEvent(socket, IRCode{Code: 0xFF3AC5}); err != nil {
		t.Fatalf("send ir_code: %v", err)
	}

	// ir_code is acknowledged once queued; get_state is answered by the
	// daemon after it, so the change is visible.
	data, err := SendIPCEvent(socket, RequestStateSnapshot{})
	if err != nil {
		t.Fatalf("get_state: %v", err)
	}
	var snap StateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.LastAction != "bright_up" || snap.Remote != "ir44" || snap.Receiver == remote.PollArmed.String() {
		t.Fatalf("snapshot=%+v", snap)
	}
}

func TestIPC_CommandErrorsAreReported(t *testing.T) {
	socket, _ := startIPC(t, nil)

	_, err := SendIPCEvent(socket, SavePreset{Num: 1})
	if err == nil || !strings.Contains(err.Error(), ErrPresetsDisabled.Error()) {
		t.Fatalf("save_preset without store: %v", err)
	}

	_, err = SendIPCEvent(socket, SetRemote{Remote: "ir1000"})
	if err == nil || !strings.Contains(err.Error(), "unknown remote") {
		t.Fatalf("set_remote invalid: %v", err)
	}

	if _, err := SendIPCEvent(socket, SetRemote{Remote: "roku_express"}); err != nil {
		t.Fatalf("set_remote: %v", err)
	}
}

func TestIPC_ListActionsAndPresets(t *testing.T) {
	socket, _ := startIPC(t, openTestStore(t))

	data, err := SendIPCEvent(socket, ListActions{})
	if err != nil {
		t.Fatalf("list_actions: %v", err)
	}
	var actions []remote.ActionInfo
	if err := json.Unmarshal(data, &actions); err != nil {
		t.Fatalf("decode actions: %v", err)
	}
	if len(actions) != int(remote.ActionCount) || actions[0].Key != "power_off" {
		t.Fatalf("actions=%d first=%+v", len(actions), actions[0])
	}

	if _, err := SendIPCEvent(socket, SavePreset{Num: 7}); err != nil {
		t.Fatalf("save_preset: %v", err)
	}
	data, err = SendIPCEvent(socket, ListPresets{})
	if err != nil {
		t.Fatalf("list_presets: %v", err)
	}
	var presets []PresetInfo
	if err := json.Unmarshal(data, &presets); err != nil {
		t.Fatalf("decode presets: %v", err)
	}
	if len(presets) != 1 || presets[0].Num != 7 || presets[0].State.Preset != 7 {
		t.Fatalf("presets=%+v", presets)
	}
}

func TestHandleIPCLine_ParseError(t *testing.T) {
	resp := handleIPCLine(context.Background(), []byte(`{"type":"bogus"}`), make(chan Event))
	if resp.Status != "error" || !strings.Contains(resp.Error, "parse event") {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestHandleIPCLine_QueueFull(t *testing.T) {
	resp := handleIPCLine(context.Background(), []byte(`{"type":"ir_repeat"}`), make(chan Event))
	if resp.Status != "error" || resp.Error != "event queue full" {
		t.Fatalf("resp=%+v", resp)
	}
}
