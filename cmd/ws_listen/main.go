package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// ws_listen connects to the irbrainz state websocket and prints every
// message it receives, one line per state change.

type envelope struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type lightState struct {
	On         bool     `json:"on"`
	Brightness uint8    `json:"brightness"`
	Color      [4]uint8 `json:"color"`
	Effect     int      `json:"effect"`
	Speed      uint8    `json:"speed"`
	Intensity  uint8    `json:"intensity"`
	Palette    int      `json:"palette"`
	Preset     int      `json:"preset,omitempty"`
}

type stateInit struct {
	Light       lightState `json:"light"`
	Remote      string     `json:"remote"`
	Receiver    string     `json:"receiver"`
	LastAction  string     `json:"last_action"`
	RepeatCount int        `json:"repeat_count"`
}

type lightChanged struct {
	Light  lightState `json:"light"`
	Action string     `json:"action"`
	Repeat int        `json:"repeat"`
}

type remoteChanged struct {
	Remote string `json:"remote"`
}

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:3001/ws", "irbrainz state websocket URL")
		raw   = flag.Bool("raw", false, "Print raw JSON frames")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()
	log.Printf("connected! (press Ctrl+C to exit)")

	var writeMu sync.Mutex

	// The server pings every 20s; answer with pongs (default handler) and
	// extend the deadline on each ping.
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				fmt.Printf("[BINARY] %d bytes\n", len(message))
				continue
			}
			if *raw {
				fmt.Println(string(message))
				continue
			}
			handleTextMessage(message)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

func handleTextMessage(message []byte) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		fmt.Printf("[TEXT] %s\n", string(message))
		return
	}

	switch env.Type {
	case "state_init":
		var s stateInit
		if err := json.Unmarshal(env.Data, &s); err != nil {
			break
		}
		fmt.Printf("[INIT] remote=%s receiver=%s %s\n", s.Remote, s.Receiver, formatLight(s.Light))
		return

	case "light_changed":
		var c lightChanged
		if err := json.Unmarshal(env.Data, &c); err != nil {
			break
		}
		action := c.Action
		if c.Repeat > 1 {
			action = fmt.Sprintf("%s x%d", action, c.Repeat)
		}
		fmt.Printf("[LIGHT] %-20s %s\n", action, formatLight(c.Light))
		return

	case "remote_changed":
		var c remoteChanged
		if err := json.Unmarshal(env.Data, &c); err != nil {
			break
		}
		fmt.Printf("[REMOTE] %s\n", c.Remote)
		return
	}

	fmt.Printf("[%s] %s\n", env.Type, string(env.Data))
}

func formatLight(l lightState) string {
	power := "off"
	if l.On {
		power = "on"
	}
	s := fmt.Sprintf("%s bri=%d rgbw=%02x%02x%02x%02x fx=%d sx=%d ix=%d pal=%d",
		power, l.Brightness, l.Color[0], l.Color[1], l.Color[2], l.Color[3],
		l.Effect, l.Speed, l.Intensity, l.Palette)
	if l.Preset > 0 {
		s += fmt.Sprintf(" preset=%d", l.Preset)
	}
	return s
}
