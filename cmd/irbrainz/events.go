package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"irbrainz/remote"
)

// ============================================================================
// Daemon events
// ============================================================================
// Events carry intent from the IPC socket, MQTT and the HTTP side into the
// daemon loop, which is the only goroutine touching the engine and light.
// Query events carry a Reply channel; a nil Reply means the sender does not
// wait for an answer.
// ============================================================================

// Event is a marker interface for everything the daemon loop consumes.
type Event interface {
	eventMarker()
}

// IRCode injects a code as if the receiver had decoded it.
type IRCode struct {
	Code IRCodeValue `json:"code"`
}

func (IRCode) eventMarker() {}

// SetRemote switches the active remote profile.
type SetRemote struct {
	Remote string     `json:"remote"`
	Reply  chan error `json:"-"`
}

func (SetRemote) eventMarker() {}

// SavePreset stores the current light state as preset Num.
type SavePreset struct {
	Num   int        `json:"num"`
	Reply chan error `json:"-"`
}

func (SavePreset) eventMarker() {}

// DeletePreset removes preset Num.
type DeletePreset struct {
	Num   int        `json:"num"`
	Reply chan error `json:"-"`
}

func (DeletePreset) eventMarker() {}

// RequestStateSnapshot asks for the current daemon state.
type RequestStateSnapshot struct {
	Reply chan StateSnapshot `json:"-"`
}

func (RequestStateSnapshot) eventMarker() {}

// ListActions asks for the action registry.
type ListActions struct {
	Reply chan []remote.ActionInfo `json:"-"`
}

func (ListActions) eventMarker() {}

// ListPresets asks for the stored presets.
type ListPresets struct {
	Reply chan PresetListResult `json:"-"`
}

func (ListPresets) eventMarker() {}

// PresetListResult is the answer to ListPresets.
type PresetListResult struct {
	Presets []PresetInfo
	Err     error
}

// StateSnapshot is the daemon state exposed to clients.
type StateSnapshot struct {
	Light       LightState `json:"light"`
	Remote      string     `json:"remote"`
	Receiver    string     `json:"receiver"`
	LastAction  string     `json:"last_action,omitempty"`
	RepeatCount int        `json:"repeat_count"`
	LastPreset  int        `json:"last_preset,omitempty"`
	At          time.Time  `json:"at"`
}

// IRCodeValue is a 32-bit code that decodes from a JSON number or a string
// such as "0xFF3AC5".
type IRCodeValue uint32

func (v IRCodeValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("0x%08X", uint32(v)))
}

func (v *IRCodeValue) UnmarshalJSON(b []byte) error {
	var n uint32
	if err := json.Unmarshal(b, &n); err == nil {
		*v = IRCodeValue(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("ir code must be a number or string")
	}
	c, err := ParseIRCode(s)
	if err != nil {
		return err
	}
	*v = c
	return nil
}

// ParseIRCode parses decimal, 0x-hex or the word "repeat".
func ParseIRCode(s string) (IRCodeValue, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "repeat") {
		return IRCodeValue(remote.RepeatCode), nil
	}
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid ir code %q: %w", s, err)
	}
	return IRCodeValue(n), nil
}

// queryTimeout bounds a round trip through the daemon loop when the caller's
// context has no deadline.
const queryTimeout = time.Second

// roundTrip sends the event built by mk and waits for the daemon to answer on
// its reply channel.
func roundTrip[T any](ctx context.Context, events chan<- Event, mk func(reply chan T) Event) (T, error) {
	var zero T
	if _, has := ctx.Deadline(); !has {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, queryTimeout)
		defer cancel()
	}

	reply := make(chan T, 1)
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case events <- mk(reply):
	}

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case v := <-reply:
		return v, nil
	}
}

// answer delivers v on an optional reply channel without blocking.
func answer[T any](reply chan T, v T) {
	if reply == nil {
		return
	}
	select {
	case reply <- v:
	default:
	}
}

// ============================================================================
// State broadcasts
// ============================================================================

// StateBroadcast is a marker interface for daemon-emitted state changes.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastLightChanged follows every executed action.
type BroadcastLightChanged struct {
	State  LightState
	Reason string
	Action string
	Repeat int
	At     time.Time
}

func (BroadcastLightChanged) broadcastMarker() {}

// BroadcastRemoteChanged follows a remote profile switch.
type BroadcastRemoteChanged struct {
	Remote string
	At     time.Time
}

func (BroadcastRemoteChanged) broadcastMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "ir_code":
		var a IRCode
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal IRCode: %w", err)
		}
		return a, nil

	case "ir_repeat":
		return IRCode{Code: IRCodeValue(remote.RepeatCode)}, nil

	case "set_remote":
		var a SetRemote
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal SetRemote: %w", err)
		}
		return a, nil

	case "save_preset":
		var a SavePreset
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal SavePreset: %w", err)
		}
		return a, nil

	case "delete_preset":
		var a DeletePreset
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal DeletePreset: %w", err)
		}
		return a, nil

	case "get_state":
		return RequestStateSnapshot{}, nil
	case "list_actions":
		return ListActions{}, nil
	case "list_presets":
		return ListPresets{}, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalEvent serializes an Event into a JSON envelope with type discriminator
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e := e.(type) {
	case IRCode:
		if uint32(e.Code) == remote.RepeatCode {
			env.Type = "ir_repeat"
			break
		}
		env.Type = "ir_code"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal IRCode: %w", err)
		}
		env.Data = data

	case SetRemote:
		env.Type = "set_remote"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal SetRemote: %w", err)
		}
		env.Data = data

	case SavePreset:
		env.Type = "save_preset"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal SavePreset: %w", err)
		}
		env.Data = data

	case DeletePreset:
		env.Type = "delete_preset"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal DeletePreset: %w", err)
		}
		env.Data = data

	case RequestStateSnapshot:
		env.Type = "get_state"
	case ListActions:
		env.Type = "list_actions"
	case ListPresets:
		env.Type = "list_presets"

	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	return json.Marshal(env)
}
