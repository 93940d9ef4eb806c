// Package remote turns decoded infrared remote codes into light actions.
//
// An Engine polls a Receiver at a throttled rate, resolves each code
// against the active remote Profile (first match wins) and runs the bound
// action through a RepeatArbiter, which counts held-button repeats and
// debounces single-shot actions. Preset buttons go through a PresetCycler:
// pressing the same preset again between 500 ms and 20 s later selects the
// matching preset in the next group.
//
// All time is passed in explicitly, so an Engine never sleeps and never
// reads the clock itself.
//
// Tests in this package use testify (require/assert) with hand-written
// fakes; the daemon under cmd/irbrainz tests with the plain testing package.
package remote
