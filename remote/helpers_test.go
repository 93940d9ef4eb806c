package remote

import (
	"errors"
	"time"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

// countingBinder counts executions per action.
type countingBinder struct {
	calls [ActionCount]int
}

func (b *countingBinder) Bind(id ActionID) Executor {
	return ExecutorFunc(func() { b.calls[id]++ })
}

type countingNotifier struct {
	reasons []ChangeReason
}

func (n *countingNotifier) NotifyChanged(reason ChangeReason) {
	n.reasons = append(n.reasons, reason)
}

type fakeStore struct {
	defined map[int]bool
	applied []int
}

func (s *fakeStore) Apply(n int) bool {
	s.applied = append(s.applied, n)
	return s.defined[n]
}

type fakeEffects struct {
	effects  []EffectMode
	palettes []int
}

func (f *fakeEffects) SetEffect(mode EffectMode) { f.effects = append(f.effects, mode) }
func (f *fakeEffects) SetPalette(p int)          { f.palettes = append(f.palettes, p) }

type fakeReceiver struct {
	codes    []uint32
	listened int
	decodes  int
	resumes  int
	released int

	listenErr error
	decodeErr error
}

func (r *fakeReceiver) Listen() error {
	r.listened++
	return r.listenErr
}

func (r *fakeReceiver) TryDecode() (uint32, bool, error) {
	r.decodes++
	if r.decodeErr != nil {
		return 0, false, r.decodeErr
	}
	if len(r.codes) == 0 {
		return 0, false, nil
	}
	c := r.codes[0]
	r.codes = r.codes[1:]
	return c, true, nil
}

func (r *fakeReceiver) Resume() { r.resumes++ }

func (r *fakeReceiver) Release() error {
	r.released++
	return nil
}

type fakeSource struct {
	rx       *fakeReceiver
	acquired []string
	err      error
}

func (s *fakeSource) Acquire(input string) (Receiver, error) {
	s.acquired = append(s.acquired, input)
	if s.err != nil {
		return nil, s.err
	}
	return s.rx, nil
}

var errNoDevice = errors.New("no such device")

// singleProfile returns a profile set where ProfileCustom holds mappings.
func singleProfile(mappings ...KeyMapping) *Profiles {
	ps, err := NewProfiles(map[ProfileID]*Profile{
		ProfileCustom: {Name: "custom", Mappings: mappings},
	})
	if err != nil {
		panic(err)
	}
	return ps
}
