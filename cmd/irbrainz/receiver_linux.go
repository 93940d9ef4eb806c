//go:build linux

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"syscall"

	"irbrainz/remote"

	"golang.org/x/sys/unix"
)

// evdevSource opens Linux input devices as IR receivers.
type evdevSource struct {
	grab   bool
	logger *slog.Logger
}

func newReceiverSource(grab bool, logger *slog.Logger) remote.ReceiverSource {
	return &evdevSource{grab: grab, logger: logger}
}

// Acquire binds a receiver to an input device path. The device is not
// opened until Listen.
func (s *evdevSource) Acquire(device string) (remote.Receiver, error) {
	if device == "" {
		return nil, errors.New("no input device configured")
	}
	return &evdevReceiver{
		device: device,
		grab:   s.grab,
		fd:     -1,
		buf:    make([]byte, inputEventSize*maxEventsPerRead),
		logger: s.logger,
	}, nil
}

// evdevReceiver reads an input device without blocking. rc-core remotes
// report their scancode as EV_MSC/MSC_SCAN.
type evdevReceiver struct {
	device string
	grab   bool
	fd     int
	buf    []byte
	dec    evdevDecoder
	logger *slog.Logger
}

func (r *evdevReceiver) Listen() error {
	fd, err := unix.Open(r.device, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", r.device, err)
	}
	if r.grab {
		if err := unix.IoctlSetInt(fd, EVIOCGRAB, 1); err != nil {
			unix.Close(fd)
			return fmt.Errorf("grab %s: %w", r.device, err)
		}
	}
	r.fd = fd
	r.dec.reset()
	return nil
}

// TryDecode drains whatever the kernel has queued and returns the held
// code. A read error other than EAGAIN means the device is gone.
func (r *evdevReceiver) TryDecode() (uint32, bool, error) {
	if r.fd < 0 {
		return 0, false, fmt.Errorf("%s: receiver not listening", r.device)
	}
	for {
		n, err := unix.Read(r.fd, r.buf)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			if err != unix.EAGAIN {
				return 0, false, fmt.Errorf("read %s: %w", r.device, err)
			}
			break
		}
		if n <= 0 {
			break
		}
		r.dec.feedBytes(r.buf[:n])
		if n < len(r.buf) {
			break
		}
	}
	if r.dec.dropped > 0 {
		r.logger.Debug("superseded IR codes", "device", r.device, "count", r.dec.dropped)
		r.dec.dropped = 0
	}
	code, ok := r.dec.result()
	return code, ok, nil
}

// Resume discards the held code so the next reception can be decoded.
func (r *evdevReceiver) Resume() {
	r.dec.resume()
}

func (r *evdevReceiver) Release() error {
	if r.fd < 0 {
		return nil
	}
	fd := r.fd
	r.fd = -1
	r.dec.reset()
	if r.grab {
		if err := unix.IoctlSetInt(fd, EVIOCGRAB, 0); err != nil {
			r.logger.Debug("ungrab failed", "device", r.device, "error", err)
		}
	}
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("close %s: %w", r.device, err)
	}
	return nil
}
