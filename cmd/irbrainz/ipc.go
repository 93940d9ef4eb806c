package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"

	"irbrainz/remote"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// Protocol: line-delimited JSON
//   - Client sends: {"type": "event_name", "data": {...}}
//   - Server responds: {"status": "ok", "data": ...} or
//     {"status": "error", "error": "msg"}
//
// Commands that can fail (set_remote, save_preset, delete_preset) and queries
// (get_state, list_actions, list_presets) wait for the daemon's answer.
// ir_code and ir_repeat are acknowledged as soon as they are queued.
// ============================================================================

// IPCResponse is sent back for every request line.
type IPCResponse struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// runIPCServer serves the socket until ctx is canceled.
func runIPCServer(ctx context.Context, socketPath string, events chan<- Event, logger *slog.Logger) error {
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	if err := os.Chmod(socketPath, 0666); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				logger.Debug("IPC listener closed")
				return nil
			}
			logger.Error("IPC accept error", "error", err)
			continue
		}
		go handleIPCConnection(ctx, conn, events, logger)
	}
}

func handleIPCConnection(ctx context.Context, conn net.Conn, events chan<- Event, logger *slog.Logger) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Text()
		logger.Debug("IPC received", "line", line)

		resp := handleIPCLine(ctx, []byte(line), events)
		if err := encoder.Encode(resp); err != nil {
			logger.Error("IPC failed to send response", "error", err)
			return
		}
	}
}

func ipcError(format string, args ...any) IPCResponse {
	return IPCResponse{Status: "error", Error: fmt.Sprintf(format, args...)}
}

func ipcOK(v any) IPCResponse {
	if v == nil {
		return IPCResponse{Status: "ok"}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ipcError("marshal response: %v", err)
	}
	return IPCResponse{Status: "ok", Data: data}
}

// handleIPCLine decodes one request, forwards it to the daemon and builds
// the response.
func handleIPCLine(ctx context.Context, line []byte, events chan<- Event) IPCResponse {
	ev, err := UnmarshalEvent(line)
	if err != nil {
		return ipcError("parse event: %v", err)
	}

	// errReply waits for commands that report success or failure.
	errReply := func(mk func(chan error) Event) IPCResponse {
		cmdErr, err := roundTrip(ctx, events, mk)
		if err != nil {
			return ipcError("daemon: %v", err)
		}
		if cmdErr != nil {
			return ipcError("%v", cmdErr)
		}
		return ipcOK(nil)
	}

	switch e := ev.(type) {
	case SetRemote:
		return errReply(func(r chan error) Event { e.Reply = r; return e })
	case SavePreset:
		return errReply(func(r chan error) Event { e.Reply = r; return e })
	case DeletePreset:
		return errReply(func(r chan error) Event { e.Reply = r; return e })

	case RequestStateSnapshot:
		snap, err := requestSnapshot(ctx, events)
		if err != nil {
			return ipcError("daemon: %v", err)
		}
		return ipcOK(snap)

	case ListActions:
		actions, err := roundTrip(ctx, events, func(r chan []remote.ActionInfo) Event {
			return ListActions{Reply: r}
		})
		if err != nil {
			return ipcError("daemon: %v", err)
		}
		return ipcOK(actions)

	case ListPresets:
		res, err := roundTrip(ctx, events, func(r chan PresetListResult) Event {
			return ListPresets{Reply: r}
		})
		if err != nil {
			return ipcError("daemon: %v", err)
		}
		if res.Err != nil {
			return ipcError("%v", res.Err)
		}
		return ipcOK(res.Presets)
	}

	select {
	case events <- ev:
		return ipcOK(nil)
	default:
		return ipcError("event queue full")
	}
}

// ============================================================================
// IPC Client
// ============================================================================

// SendIPCEvent sends ev to the daemon and returns the response data, if any.
func SendIPCEvent(socketPath string, ev Event) (json.RawMessage, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := MarshalEvent(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", strings.TrimSpace(string(data))); err != nil {
		return nil, fmt.Errorf("send event: %w", err)
	}

	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("ipc error: %s", resp.Error)
	}
	return resp.Data, nil
}
