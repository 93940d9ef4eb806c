package main

import (
	"bytes"
	"encoding/binary"

	"irbrainz/remote"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = binary.Size(inputEvent{})

// evdevDecoder turns a stream of input events into remote codes. Events are
// grouped into frames ending at SYN_REPORT: a frame carrying an MSC_SCAN
// yields the scancode; a frame carrying only a key autorepeat yields the
// repeat sentinel.
//
// Like an IR receiver's decode buffer it holds at most one code until
// resume. A newer scancode replaces the held one; a repeat never replaces a
// held scancode.
type evdevDecoder struct {
	scan    uint32
	hasScan bool
	repeat  bool

	code    uint32
	ready   bool
	dropped int
}

func (d *evdevDecoder) feed(ev inputEvent) {
	switch ev.Type {
	case EV_MSC:
		if ev.Code == MSC_SCAN {
			d.scan = uint32(ev.Value)
			d.hasScan = true
		}
	case EV_KEY:
		if ev.Value == evValueRepeat {
			d.repeat = true
		}
	case EV_SYN:
		if ev.Code != SYN_REPORT {
			return
		}
		switch {
		case d.hasScan:
			d.hold(d.scan)
		case d.repeat:
			d.hold(remote.RepeatCode)
		}
		d.resetFrame()
	}
}

// feedBytes decodes whole events from b. Trailing partial events are
// ignored.
func (d *evdevDecoder) feedBytes(b []byte) {
	r := bytes.NewReader(nil)
	for len(b) >= inputEventSize {
		r.Reset(b[:inputEventSize])
		b = b[inputEventSize:]

		var ev inputEvent
		if err := binary.Read(r, binary.LittleEndian, &ev); err != nil {
			// Skip malformed events
			continue
		}
		d.feed(ev)
	}
}

func (d *evdevDecoder) hold(code uint32) {
	if d.ready {
		d.dropped++
		if code == remote.RepeatCode && d.code != remote.RepeatCode {
			return
		}
	}
	d.code = code
	d.ready = true
}

// result returns the held code. It stays held until resume.
func (d *evdevDecoder) result() (uint32, bool) {
	return d.code, d.ready
}

// resume empties the buffer for the next reception.
func (d *evdevDecoder) resume() {
	d.code = 0
	d.ready = false
}

func (d *evdevDecoder) resetFrame() {
	d.scan = 0
	d.hasScan = false
	d.repeat = false
}

func (d *evdevDecoder) reset() {
	d.resetFrame()
	d.resume()
	d.dropped = 0
}
