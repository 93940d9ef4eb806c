package main

import (
	"math"

	"irbrainz/remote"
)

// ============================================================================
// Light model
// ============================================================================
// Light holds the state of the controlled LED strip and implements every
// remote action as a method. It is owned by the daemon goroutine; other
// goroutines only ever see LightState snapshots.
// ============================================================================

// brightnessSteps is a geometric progression so each step feels the same.
var brightnessSteps = [...]uint8{
	5, 7, 9, 12, 16, 20, 26, 34, 43, 56, 72, 93, 119, 154, 198, 255,
}

// Named colors, 0xRRGGBB. White variants have an RGBW form, 0xWWRRGGBB.
const (
	colorRed       = 0xFF0000
	colorReddish   = 0xFF7800
	colorOrange    = 0xFFA000
	colorYellowish = 0xFFC800
	colorYellow    = 0xFFFF00
	colorGreen     = 0x00FF00
	colorGreenish  = 0x00FF78
	colorTurquoise = 0x00FFA0
	colorCyan      = 0x00FFDC
	colorAqua      = 0x00C8FF
	colorBlue      = 0x00A0FF
	colorDeepblue  = 0x0000FF
	colorPurple    = 0x7800FF
	colorMagenta   = 0xB400FF
	colorPink      = 0xFF00A0
	colorWhite     = 0xFFFFDC

	colorWarmWhite2   = 0xFFAA69
	colorWarmWhite    = 0xFFBF8E
	colorNeutralWhite = 0xFFD4B4
	colorColdWhite    = 0xFFE9DC
	colorColdWhite2   = 0xFFFFFF

	color2WarmWhite2   = 0xFFFFAA69
	color2WarmWhite    = 0x80FFBF8E
	color2NeutralWhite = 0xFF000000
	color2ColdWhite    = 0x7F7F7F7F
	color2ColdWhite2   = 0x00FFFFFF
)

var rotateColors = [...]uint32{
	colorRed, colorReddish, colorOrange, colorYellowish, colorGreen,
	colorGreenish, colorTurquoise, colorCyan, colorBlue, colorDeepblue,
	colorPurple, colorPink, colorWhite,
}

const (
	defaultBrightness = 128
	effectStepAmount  = 10
)

// LightState is the externally visible light state.
type LightState struct {
	On         bool     `json:"on"`
	Brightness uint8    `json:"brightness"`
	Color      [4]uint8 `json:"color"` // R, G, B, W
	Effect     int      `json:"effect"`
	Speed      uint8    `json:"speed"`
	Intensity  uint8    `json:"intensity"`
	Palette    int      `json:"palette"`
	Preset     int      `json:"preset,omitempty"`
}

// Light is the daemon's light model.
type Light struct {
	rgbw         bool
	paletteCount int
	modeCount    int

	state     LightState
	briLast   uint8
	whiteLast uint8
	rotateIdx int
}

// NewLight returns a light that is on, at default brightness, showing a
// static warm white.
func NewLight(cfg LightConfig) *Light {
	l := &Light{
		rgbw:         cfg.RGBW,
		paletteCount: cfg.PaletteCount,
		modeCount:    cfg.ModeCount,
		briLast:      defaultBrightness,
	}
	if l.paletteCount <= 0 {
		l.paletteCount = defaultPaletteCount
	}
	if l.modeCount <= 0 {
		l.modeCount = defaultModeCount
	}
	l.state = LightState{
		Brightness: defaultBrightness,
		Speed:      128,
		Intensity:  128,
	}
	l.setColor24(colorWarmWhite)
	l.sync()
	return l
}

// State returns a copy of the current state.
func (l *Light) State() LightState {
	return l.state
}

// Restore replaces the visible state, for example from a stored preset.
func (l *Light) Restore(s LightState) {
	l.state = s
	if s.Brightness > 0 {
		l.briLast = s.Brightness
	}
	l.sync()
}

func (l *Light) sync() {
	l.state.On = l.state.Brightness > 0
}

// ---------------------------------------------------------------------------
// Power and brightness
// ---------------------------------------------------------------------------

func (l *Light) PowerOff() {
	if l.state.Brightness > 0 {
		l.briLast = l.state.Brightness
		l.state.Brightness = 0
	}
	l.sync()
}

func (l *Light) PowerOn() {
	if l.state.Brightness == 0 {
		l.state.Brightness = l.briLast
		if l.state.Brightness == 0 {
			l.state.Brightness = defaultBrightness
		}
	}
	l.sync()
}

func (l *Light) PowerToggle() {
	if l.state.Brightness > 0 {
		l.PowerOff()
	} else {
		l.PowerOn()
	}
}

func (l *Light) PowerOffWhite() {
	if l.state.Color[3] > 0 {
		l.whiteLast = l.state.Color[3]
		l.state.Color[3] = 0
	}
}

func (l *Light) PowerOnWhite() {
	if l.state.Color[3] == 0 {
		l.state.Color[3] = l.whiteLast
		if l.state.Color[3] == 0 {
			l.state.Color[3] = 255
		}
	}
}

func (l *Light) PowerToggleWhite() {
	if l.state.Color[3] > 0 {
		l.PowerOffWhite()
	} else {
		l.PowerOnWhite()
	}
}

// stepUp moves v to the next brightness step above it.
func stepUp(v uint8) uint8 {
	for _, s := range brightnessSteps {
		if s > v {
			return s
		}
	}
	return v
}

// stepDown moves v to the next brightness step below it.
func stepDown(v uint8) uint8 {
	for i := len(brightnessSteps) - 1; i >= 0; i-- {
		if brightnessSteps[i] < v {
			return brightnessSteps[i]
		}
	}
	return v
}

func (l *Light) BrightUp() {
	l.state.Brightness = stepUp(l.state.Brightness)
	l.sync()
}

func (l *Light) BrightDown() {
	l.state.Brightness = stepDown(l.state.Brightness)
	l.sync()
}

func (l *Light) WhiteBrightUp()   { l.state.Color[3] = stepUp(l.state.Color[3]) }
func (l *Light) WhiteBrightDown() { l.state.Color[3] = stepDown(l.state.Color[3]) }

func (l *Light) setBrightness(v uint8) {
	l.state.Brightness = v
	l.sync()
}

// ---------------------------------------------------------------------------
// Colors
// ---------------------------------------------------------------------------

// setColor24 sets RGB and leaves the white channel alone.
func (l *Light) setColor24(c uint32) {
	l.state.Color[0] = uint8(c >> 16)
	l.state.Color[1] = uint8(c >> 8)
	l.state.Color[2] = uint8(c)
}

// setColor32 sets all four channels from 0xWWRRGGBB.
func (l *Light) setColor32(c uint32) {
	l.setColor24(c)
	l.state.Color[3] = uint8(c >> 24)
}

// setWhite uses the dedicated white channel when the strip has one.
func (l *Light) setWhite(rgb, rgbw uint32) {
	if l.rgbw {
		l.setColor32(rgbw)
		l.state.Effect = int(remote.FXStatic)
		return
	}
	l.setColor24(rgb)
}

func (l *Light) ColorRotate() {
	l.setColor32(rotateColors[l.rotateIdx])
	l.rotateIdx = (l.rotateIdx + 1) % len(rotateColors)
}

// ---------------------------------------------------------------------------
// Effect parameters
// ---------------------------------------------------------------------------

func clampAdd(v uint8, amount int) uint8 {
	n := int(v) + amount
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}

// changeSpeed adjusts effect speed, or hue while the static effect is on.
func (l *Light) changeSpeed(amount int) {
	if l.state.Effect != int(remote.FXStatic) {
		l.state.Speed = clampAdd(l.state.Speed, amount)
		return
	}
	l.changeHue(amount)
}

// changeIntensity adjusts effect intensity, or saturation while the static
// effect is on.
func (l *Light) changeIntensity(amount int) {
	if l.state.Effect != int(remote.FXStatic) {
		l.state.Intensity = clampAdd(l.state.Intensity, amount)
		return
	}
	l.changeSaturation(amount)
}

// changeHue rotates the hue; amount is in 1/256 turns.
func (l *Light) changeHue(amount int) {
	h, s, v := rgbToHSV(l.state.Color[0], l.state.Color[1], l.state.Color[2])
	h = math.Mod(h+float64(amount)/256+1, 1)
	l.state.Color[0], l.state.Color[1], l.state.Color[2] = hsvToRGB(h, s, v)
}

func (l *Light) changeSaturation(amount int) {
	h, s, v := rgbToHSV(l.state.Color[0], l.state.Color[1], l.state.Color[2])
	s = float64(clampAdd(uint8(math.Round(s*255)), amount)) / 255
	l.state.Color[0], l.state.Color[1], l.state.Color[2] = hsvToRGB(h, s, v)
}

// wrap returns (v+offset) mod n, always in [0, n).
func wrap(v, offset, n int) int {
	return ((v+offset)%n + n) % n
}

func (l *Light) changeEffect(offset int) {
	l.state.Effect = wrap(l.state.Effect, offset, l.modeCount)
}

func (l *Light) changePalette(offset int) {
	l.state.Palette = wrap(l.state.Palette, offset, l.paletteCount)
}

// SetEffect and SetPalette implement remote.Effects for preset fallbacks.
func (l *Light) SetEffect(mode remote.EffectMode) {
	l.state.Effect = wrap(int(mode), 0, l.modeCount)
	l.state.Preset = 0
}

func (l *Light) SetPalette(palette int) {
	l.state.Palette = wrap(palette, 0, l.paletteCount)
	l.state.Preset = 0
}

// ---------------------------------------------------------------------------
// Action binding
// ---------------------------------------------------------------------------

// Bind implements remote.Binder. Preset slots are bound by the engine.
// Any bound action leaves the active preset.
func (l *Light) Bind(id remote.ActionID) remote.Executor {
	fn := l.actionFunc(id)
	if fn == nil {
		return nil
	}
	return remote.ExecutorFunc(func() {
		fn()
		l.state.Preset = 0
	})
}

func (l *Light) actionFunc(id remote.ActionID) func() {
	switch id {
	case remote.ActionPowerOff:
		return l.PowerOff
	case remote.ActionPowerOn:
		return l.PowerOn
	case remote.ActionPowerToggle:
		return l.PowerToggle
	case remote.ActionPowerOffWhite:
		return l.PowerOffWhite
	case remote.ActionPowerOnWhite:
		return l.PowerOnWhite
	case remote.ActionPowerToggleWhite:
		return l.PowerToggleWhite

	case remote.ActionBrightUp:
		return l.BrightUp
	case remote.ActionBrightDown:
		return l.BrightDown
	case remote.ActionBright25:
		return func() { l.setBrightness(63) }
	case remote.ActionBright50:
		return func() { l.setBrightness(127) }
	case remote.ActionBright75:
		return func() { l.setBrightness(191) }
	case remote.ActionBright100:
		return func() { l.setBrightness(255) }
	case remote.ActionWhiteBrightUp:
		return l.WhiteBrightUp
	case remote.ActionWhiteBrightDown:
		return l.WhiteBrightDown

	case remote.ActionSpeedUp:
		return func() { l.changeSpeed(effectStepAmount) }
	case remote.ActionSpeedDown:
		return func() { l.changeSpeed(-effectStepAmount) }
	case remote.ActionIntensityUp:
		return func() { l.changeIntensity(effectStepAmount) }
	case remote.ActionIntensityDown:
		return func() { l.changeIntensity(-effectStepAmount) }

	case remote.ActionPresetNext:
		return func() { l.changeEffect(1) }
	case remote.ActionPresetPrev:
		return func() { l.changeEffect(-1) }
	case remote.ActionPaletteNext:
		return func() { l.changePalette(1) }
	case remote.ActionPalettePrev:
		return func() { l.changePalette(-1) }

	case remote.ActionColorColdWhite:
		return func() { l.setWhite(colorColdWhite, color2ColdWhite) }
	case remote.ActionColorColdWhite2:
		return func() { l.setWhite(colorColdWhite2, color2ColdWhite2) }
	case remote.ActionColorNeutralWhite:
		return func() { l.setWhite(colorNeutralWhite, color2NeutralWhite) }
	case remote.ActionColorWarmWhite:
		return func() { l.setWhite(colorWarmWhite, color2WarmWhite) }
	case remote.ActionColorWarmWhite2:
		return func() { l.setWhite(colorWarmWhite2, color2WarmWhite2) }
	case remote.ActionColorRotate:
		return l.ColorRotate
	}

	if c, ok := namedColors[id]; ok {
		return func() { l.setColor24(c) }
	}
	return nil
}

var namedColors = map[remote.ActionID]uint32{
	remote.ActionColorAqua:      colorAqua,
	remote.ActionColorBlue:      colorBlue,
	remote.ActionColorCyan:      colorCyan,
	remote.ActionColorDeepblue:  colorDeepblue,
	remote.ActionColorGreen:     colorGreen,
	remote.ActionColorGreenish:  colorGreenish,
	remote.ActionColorMagenta:   colorMagenta,
	remote.ActionColorOrange:    colorOrange,
	remote.ActionColorPink:      colorPink,
	remote.ActionColorPurple:    colorPurple,
	remote.ActionColorRed:       colorRed,
	remote.ActionColorReddish:   colorReddish,
	remote.ActionColorTurquoise: colorTurquoise,
	remote.ActionColorWhite:     colorWhite,
	remote.ActionColorYellow:    colorYellow,
	remote.ActionColorYellowish: colorYellowish,
}

// ---------------------------------------------------------------------------
// HSV helpers (h, s, v in [0, 1])
// ---------------------------------------------------------------------------

func rgbToHSV(r, g, b uint8) (h, s, v float64) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	mx := math.Max(rf, math.Max(gf, bf))
	mn := math.Min(rf, math.Min(gf, bf))
	v = mx
	d := mx - mn
	if mx == 0 || d == 0 {
		return 0, 0, v
	}
	s = d / mx
	switch mx {
	case rf:
		h = (gf - bf) / d
		if gf < bf {
			h += 6
		}
	case gf:
		h = (bf-rf)/d + 2
	default:
		h = (rf-gf)/d + 4
	}
	return h / 6, s, v
}

func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch int(i) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return to8(r), to8(g), to8(b)
}

func to8(x float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, x)) * 255))
}
