package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPollFixture(codes ...uint32) (*PollScheduler, *fakeSource, *countingBinder) {
	b := &countingBinder{}
	ps := singleProfile(
		KeyMapping{Code: 0xAB, Action: ActionColorBlue},
		KeyMapping{Code: 0xCD, Action: ActionBrightUp},
	)
	d := NewDispatcher(ps, NewRegistry(b), NewRepeatArbiter(nil), nil)
	src := &fakeSource{rx: &fakeReceiver{codes: codes}}
	return NewPollScheduler(src, "/dev/input/event0", d, nil), src, b
}

func TestPollFirstCallAcquiresWithoutDecode(t *testing.T) {
	p, src, _ := newPollFixture(0xAB)
	assert.Equal(t, PollDisabled, p.State())

	assert.Equal(t, OutcomeNone, p.Poll(ProfileCustom, at(0)))
	assert.Equal(t, PollArmed, p.State())
	assert.Equal(t, []string{"/dev/input/event0"}, src.acquired)
	assert.Equal(t, 1, src.rx.listened)
	assert.Equal(t, 0, src.rx.decodes)
}

func TestPollThrottle(t *testing.T) {
	p, src, b := newPollFixture(0xAB)
	p.Poll(ProfileCustom, at(0))

	p.Poll(ProfileCustom, at(119))
	assert.Equal(t, 0, src.rx.decodes)

	assert.Equal(t, OutcomeExecuted, p.Poll(ProfileCustom, at(120)))
	assert.Equal(t, 1, src.rx.decodes)
	assert.Equal(t, 1, src.rx.resumes)
	assert.Equal(t, 1, b.calls[ActionColorBlue])

	// Throttle restarts from the last attempt.
	p.Poll(ProfileCustom, at(200))
	assert.Equal(t, 1, src.rx.decodes)
}

func TestPollNothingReady(t *testing.T) {
	p, src, _ := newPollFixture()
	p.Poll(ProfileCustom, at(0))

	assert.Equal(t, OutcomeNone, p.Poll(ProfileCustom, at(150)))
	assert.Equal(t, 1, src.rx.decodes)
	assert.Equal(t, 0, src.rx.resumes)

	p.Poll(ProfileCustom, at(200))
	assert.Equal(t, 1, src.rx.decodes)
	p.Poll(ProfileCustom, at(270))
	assert.Equal(t, 2, src.rx.decodes)
}

func TestPollZeroCodeIsNoise(t *testing.T) {
	p, src, b := newPollFixture(0, 0xAB)
	p.Poll(ProfileCustom, at(0))

	assert.Equal(t, OutcomeNone, p.Poll(ProfileCustom, at(120)))
	assert.Equal(t, 1, src.rx.resumes)
	assert.Equal(t, 0, b.calls[ActionColorBlue])

	assert.Equal(t, OutcomeExecuted, p.Poll(ProfileCustom, at(240)))
	assert.Equal(t, 1, b.calls[ActionColorBlue])
}

func TestPollCodesInArrivalOrder(t *testing.T) {
	p, _, b := newPollFixture(0xCD, RepeatCode, 0xAB)
	p.Poll(ProfileCustom, at(0))

	p.Poll(ProfileCustom, at(120))
	p.Poll(ProfileCustom, at(240))
	require.Equal(t, 2, b.calls[ActionBrightUp])
	require.Equal(t, 0, b.calls[ActionColorBlue])
	p.Poll(ProfileCustom, at(360))
	assert.Equal(t, 1, b.calls[ActionColorBlue])
}

func TestPollDisableReleases(t *testing.T) {
	p, src, _ := newPollFixture()
	p.Poll(ProfileCustom, at(0))
	require.Equal(t, PollArmed, p.State())

	p.Poll(ProfileDisabled, at(10))
	assert.Equal(t, PollDisabled, p.State())
	assert.Equal(t, 1, src.rx.released)

	// Stays a no-op while disabled.
	p.Poll(ProfileCount, at(20))
	assert.Equal(t, 1, src.rx.released)

	// Re-enabling acquires again.
	p.Poll(ProfileCustom, at(30))
	assert.Equal(t, PollArmed, p.State())
	assert.Len(t, src.acquired, 2)
}

func TestPollAcquireFailureRetries(t *testing.T) {
	p, src, _ := newPollFixture()
	src.err = errNoDevice

	p.Poll(ProfileCustom, at(0))
	assert.Equal(t, PollUninitialized, p.State())
	require.Len(t, src.acquired, 1)

	p.Poll(ProfileCustom, at(500))
	assert.Len(t, src.acquired, 1)

	src.err = nil
	p.Poll(ProfileCustom, at(1000))
	assert.Len(t, src.acquired, 2)
	assert.Equal(t, PollArmed, p.State())
}

func TestPollListenFailureReleases(t *testing.T) {
	p, src, _ := newPollFixture()
	src.rx.listenErr = errNoDevice

	p.Poll(ProfileCustom, at(0))
	assert.Equal(t, PollUninitialized, p.State())
	assert.Equal(t, 1, src.rx.released)
}

func TestPollClose(t *testing.T) {
	p, src, _ := newPollFixture()
	p.Poll(ProfileCustom, at(0))
	p.Close()
	assert.Equal(t, PollDisabled, p.State())
	assert.Equal(t, 1, src.rx.released)

	p.Close()
	assert.Equal(t, 1, src.rx.released)
}

func TestPollReceiverFailureReacquires(t *testing.T) {
	p, src, b := newPollFixture()
	p.Poll(ProfileCustom, at(0))
	require.Equal(t, PollArmed, p.State())

	src.rx.decodeErr = errNoDevice
	assert.Equal(t, OutcomeNone, p.Poll(ProfileCustom, at(120)))
	assert.Equal(t, PollUninitialized, p.State())
	assert.Equal(t, 1, src.rx.released)
	assert.Equal(t, 0, src.rx.resumes)

	// Re-acquisition waits out the retry interval.
	p.Poll(ProfileCustom, at(500))
	assert.Len(t, src.acquired, 1)

	src.rx.decodeErr = nil
	src.rx.codes = []uint32{0xAB}
	p.Poll(ProfileCustom, at(1120))
	require.Len(t, src.acquired, 2)
	assert.Equal(t, PollArmed, p.State())

	assert.Equal(t, OutcomeExecuted, p.Poll(ProfileCustom, at(1240)))
	assert.Equal(t, 1, b.calls[ActionColorBlue])
}
