package main

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_SYN = 0x00
	EV_KEY = 0x01
	EV_MSC = 0x04

	SYN_REPORT = 0x00
	MSC_SCAN   = 0x04
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// EVIOCGRAB is _IOW('E', 0x90, int).
const EVIOCGRAB = 0x40044590

// Daemon defaults
const (
	defaultPollIntervalMS = 20 // Daemon loop tick (ms); decode attempts are throttled separately
	defaultPaletteCount   = 71 // Palettes available on the light
	defaultModeCount      = 118

	maxEventsPerRead = 64 // Input events drained per TryDecode
)
