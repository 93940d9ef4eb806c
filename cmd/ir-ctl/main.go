package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// ============================================================================
// ir-ctl - Command-line IPC Client
// ============================================================================
// Sends commands to the irbrainz daemon over its Unix socket.
//
// Usage:
//   ir-ctl code 0xFF3AC5
//   ir-ctl repeat
//   ir-ctl remote ir24
//   ir-ctl save-preset 3
//   ir-ctl state
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/irbrainz.sock)
// ============================================================================

// Envelope is the daemon's line-delimited JSON request format.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

const dialTimeout = 2 * time.Second

func main() {
	socketPath := "/tmp/irbrainz.sock"

	args := os.Args[1:]
	if len(args) > 0 && (args[0] == "-socket" || args[0] == "--socket") {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	req, err := buildRequest(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if req == nil {
		printUsage()
		return
	}

	data, err := send(socketPath, *req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if len(data) == 0 {
		fmt.Println("ok")
		return
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return
	}
	fmt.Println(out.String())
}

// buildRequest maps a command line onto a request envelope. It returns nil
// for help.
func buildRequest(args []string) (*Envelope, error) {
	needArg := func(what string) (string, error) {
		if len(args) < 2 {
			return "", fmt.Errorf("%s requires %s", args[0], what)
		}
		return args[1], nil
	}
	presetNum := func() (int, error) {
		s, err := needArg("a preset number")
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid preset number %q", s)
		}
		return n, nil
	}

	switch args[0] {
	case "code", "send":
		s, err := needArg("an IR code")
		if err != nil {
			return nil, err
		}
		if _, err := strconv.ParseUint(s, 0, 32); err != nil {
			return nil, fmt.Errorf("invalid IR code %q", s)
		}
		return &Envelope{Type: "ir_code", Data: map[string]string{"code": s}}, nil

	case "repeat":
		return &Envelope{Type: "ir_repeat"}, nil

	case "remote":
		key, err := needArg("a remote name")
		if err != nil {
			return nil, err
		}
		return &Envelope{Type: "set_remote", Data: map[string]string{"remote": key}}, nil

	case "save-preset", "save":
		n, err := presetNum()
		if err != nil {
			return nil, err
		}
		return &Envelope{Type: "save_preset", Data: map[string]int{"num": n}}, nil

	case "delete-preset", "delete":
		n, err := presetNum()
		if err != nil {
			return nil, err
		}
		return &Envelope{Type: "delete_preset", Data: map[string]int{"num": n}}, nil

	case "state":
		return &Envelope{Type: "get_state"}, nil
	case "actions":
		return &Envelope{Type: "list_actions"}, nil
	case "presets":
		return &Envelope{Type: "list_presets"}, nil

	case "help", "-h", "--help":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown command: %s", args[0])
	}
}

func send(socketPath string, req Envelope) (json.RawMessage, error) {
	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	line, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status == "error" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return resp.Data, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `ir-ctl - Control the irbrainz daemon via IPC

Usage:
  ir-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/irbrainz.sock)

Commands:
  code, send <code>       Inject an IR code (decimal or 0x hex)
  repeat                  Inject the NEC repeat code
  remote <name>           Switch remote profile (ir44, ir24, ..., disabled)
  save-preset <n>         Store the current light state as preset n
  delete-preset <n>       Delete preset n
  state                   Print the daemon state
  actions                 List every action
  presets                 List stored presets
  help, -h, --help        Show this help message

Examples:
  ir-ctl code 0xFF3AC5
  ir-ctl remote squeezebox
  ir-ctl -socket /run/irbrainz.sock state
`)
}
