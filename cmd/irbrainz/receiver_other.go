//go:build !linux

package main

import (
	"errors"
	"log/slog"

	"irbrainz/remote"
)

var errNoEvdev = errors.New("IR input requires Linux evdev")

type unsupportedSource struct{}

func newReceiverSource(grab bool, logger *slog.Logger) remote.ReceiverSource {
	return unsupportedSource{}
}

func (unsupportedSource) Acquire(string) (remote.Receiver, error) {
	return nil, errNoEvdev
}
