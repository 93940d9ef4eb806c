package remote

import (
	"log/slog"
	"time"
)

const (
	// A second press of the same preset button strictly inside this window
	// selects the next preset group.
	presetAdvanceMin = 500 * time.Millisecond
	presetAdvanceMax = 20000 * time.Millisecond
)

// EffectMode is a light effect number (WLED mode numbering).
type EffectMode int

const (
	FXStatic       EffectMode = 0
	FXBreath       EffectMode = 2
	FXRainbow      EffectMode = 8
	FXRainbowCycle EffectMode = 9
	FXTwinkle      EffectMode = 17
	FXFireFlicker  EffectMode = 45
	FXPalette      EffectMode = 65
	FXColorTwinkle EffectMode = 74
	FXMeteorSmooth EffectMode = 77
	FXTwinkleFox   EffectMode = 80
)

// DefaultPalette is the palette restored with a fallback effect.
const DefaultPalette = 0

// fallbackEffects is indexed by (preset-1) % 10.
var fallbackEffects = [10]EffectMode{
	FXStatic,
	FXTwinkle,
	FXBreath,
	FXColorTwinkle,
	FXRainbowCycle,
	FXRainbow,
	FXMeteorSmooth,
	FXFireFlicker,
	FXPalette,
	FXTwinkleFox,
}

// FallbackEffect returns the canned effect used when preset n is undefined.
func FallbackEffect(n int) EffectMode {
	i := (n - 1) % len(fallbackEffects)
	if i < 0 {
		i += len(fallbackEffects)
	}
	return fallbackEffects[i]
}

// PresetStore applies stored presets. Apply reports false when preset n is
// not defined.
type PresetStore interface {
	Apply(n int) bool
}

// Effects is the part of the light used for fallback effects.
type Effects interface {
	SetEffect(mode EffectMode)
	SetPalette(palette int)
}

// PresetCycler implements the preset slot actions: a deliberate second
// press of the same slot advances by the number of preset buttons on the
// active remote.
type PresetCycler struct {
	profiles *Profiles
	store    PresetStore
	effects  Effects
	logger   *slog.Logger

	lastSelect time.Time
	lastPreset int
	buttons    [ProfileCount]int
}

// NewPresetCycler wires a cycler. store and effects may be nil, in which case
// every preset is treated as undefined and fallbacks are skipped.
func NewPresetCycler(profiles *Profiles, store PresetStore, effects Effects, logger *slog.Logger) *PresetCycler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PresetCycler{
		profiles: profiles,
		store:    store,
		effects:  effects,
		logger:   logger,
	}
}

// Select applies preset slot n and returns the preset number actually
// selected after any group advance.
func (c *PresetCycler) Select(n int, profile ProfileID, now time.Time) int {
	elapsed := now.Sub(c.lastSelect)
	if n == c.lastPreset && elapsed > presetAdvanceMin && elapsed < presetAdvanceMax {
		n += c.PresetButtonsConfigured(profile)
	}

	applied := c.store != nil && c.store.Apply(n)
	if !applied {
		mode := FallbackEffect(n)
		if c.effects != nil {
			c.effects.SetEffect(mode)
			c.effects.SetPalette(DefaultPalette)
		}
		c.logger.Debug("preset undefined, using fallback effect", "preset", n, "effect", int(mode))
	} else {
		c.logger.Debug("preset applied", "preset", n)
	}

	c.lastSelect = now
	c.lastPreset = n
	return n
}

// LastPreset returns the preset number selected by the previous Select.
func (c *PresetCycler) LastPreset() int {
	return c.lastPreset
}

// Invalidate drops the cached preset button count for profile, for use
// after its table is replaced.
func (c *PresetCycler) Invalidate(profile ProfileID) {
	if profile.Enabled() {
		c.buttons[profile] = 0
	}
}

// PresetButtonsConfigured counts the mappings in profile bound to the tenth
// preset slot. The result is cached per profile; a zero count is never
// cached and is recomputed on each call.
func (c *PresetCycler) PresetButtonsConfigured(profile ProfileID) int {
	if !profile.Enabled() {
		return 0
	}
	if n := c.buttons[profile]; n != 0 {
		return n
	}
	table, ok := c.profiles.Get(profile)
	if !ok {
		return 0
	}
	n := table.Count(ActionPreset10)
	c.buttons[profile] = n
	return n
}
