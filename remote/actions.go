package remote

import (
	"errors"
	"fmt"
)

// ============================================================================
// Action Registry
// ============================================================================
// Every behavior a remote button can trigger has a stable ActionID. The
// registry maps an ActionID to a descriptor holding a human readable name,
// the executor that performs it and whether it may fire repeatedly while a
// button is held.
//
// Remote profiles only ever refer to ActionIDs; the executors are bound once
// at construction, which keeps profile tables pure data.
// ============================================================================

// ErrUnknownAction is returned when an ActionID is outside the registry.
// It indicates a corrupt configuration table, not a runtime input.
var ErrUnknownAction = errors.New("unknown action")

// ActionID identifies one behavior. Values index the registry directly.
type ActionID int

const (
	ActionPowerOff ActionID = iota
	ActionPowerOn
	ActionPowerToggle

	ActionPowerOffWhite
	ActionPowerOnWhite
	ActionPowerToggleWhite

	ActionBrightUp
	ActionBrightDown
	ActionBright25
	ActionBright50
	ActionBright75
	ActionBright100
	ActionWhiteBrightUp
	ActionWhiteBrightDown

	ActionSpeedUp
	ActionSpeedDown
	ActionIntensityUp
	ActionIntensityDown

	ActionPreset1
	ActionPreset2
	ActionPreset3
	ActionPreset4
	ActionPreset5
	ActionPreset6
	ActionPreset7
	ActionPreset8
	ActionPreset9
	ActionPreset10
	ActionPresetNext
	ActionPresetPrev
	ActionPaletteNext
	ActionPalettePrev

	ActionColorAqua
	ActionColorBlue
	ActionColorColdWhite
	ActionColorColdWhite2
	ActionColorCyan
	ActionColorDeepblue
	ActionColorGreen
	ActionColorGreenish
	ActionColorMagenta
	ActionColorNeutralWhite
	ActionColorOrange
	ActionColorPink
	ActionColorPurple
	ActionColorRed
	ActionColorReddish
	ActionColorTurquoise
	ActionColorWarmWhite
	ActionColorWarmWhite2
	ActionColorWhite
	ActionColorYellow
	ActionColorYellowish
	ActionColorRotate

	// ActionCount must stay last.
	ActionCount
)

// actionMeta is the static part of every descriptor, in ActionID order.
var actionMeta = [ActionCount]struct {
	key        string
	name       string
	repeatable bool
}{
	ActionPowerOff:    {"power_off", "Power Off", false},
	ActionPowerOn:     {"power_on", "Power On", false},
	ActionPowerToggle: {"power_toggle", "Power Toggle", false},

	ActionPowerOffWhite:    {"power_off_white", "Power Off White (for RGBW)", false},
	ActionPowerOnWhite:     {"power_on_white", "Power On White (for RGBW)", false},
	ActionPowerToggleWhite: {"power_toggle_white", "Power Toggle White (for RGBW)", false},

	ActionBrightUp:        {"bright_up", "Brightness Up", true},
	ActionBrightDown:      {"bright_down", "Brightness Down", true},
	ActionBright25:        {"bright_25", "Brightness 25%", false},
	ActionBright50:        {"bright_50", "Brightness 50%", false},
	ActionBright75:        {"bright_75", "Brightness 75%", false},
	ActionBright100:       {"bright_100", "Brightness 100%", false},
	ActionWhiteBrightUp:   {"white_bright_up", "White Brightness Up (for RGBW)", true},
	ActionWhiteBrightDown: {"white_bright_down", "White Brightness Down (for RGBW)", true},

	ActionSpeedUp:       {"speed_up", "Speed Up", true},
	ActionSpeedDown:     {"speed_down", "Speed Down", true},
	ActionIntensityUp:   {"intensity_up", "Intensity Up", true},
	ActionIntensityDown: {"intensity_down", "Intensity Down", true},

	ActionPreset1:     {"preset_1", "Preset 1", false},
	ActionPreset2:     {"preset_2", "Preset 2", false},
	ActionPreset3:     {"preset_3", "Preset 3", false},
	ActionPreset4:     {"preset_4", "Preset 4", false},
	ActionPreset5:     {"preset_5", "Preset 5", false},
	ActionPreset6:     {"preset_6", "Preset 6", false},
	ActionPreset7:     {"preset_7", "Preset 7", false},
	ActionPreset8:     {"preset_8", "Preset 8", false},
	ActionPreset9:     {"preset_9", "Preset 9", false},
	ActionPreset10:    {"preset_10", "Preset 10", false},
	ActionPresetNext:  {"preset_next", "Next Preset", false},
	ActionPresetPrev:  {"preset_prev", "Prev Preset", false},
	ActionPaletteNext: {"palette_next", "Next Palette", false},
	ActionPalettePrev: {"palette_prev", "Prev Palette", false},

	ActionColorAqua:         {"color_aqua", "Aqua", false},
	ActionColorBlue:         {"color_blue", "Blue", false},
	ActionColorColdWhite:    {"color_cold_white", "ColdWhite", false},
	ActionColorColdWhite2:   {"color_cold_white2", "ColdWhite2", false},
	ActionColorCyan:         {"color_cyan", "Cyan", false},
	ActionColorDeepblue:     {"color_deepblue", "Deepblue", false},
	ActionColorGreen:        {"color_green", "Green", false},
	ActionColorGreenish:     {"color_greenish", "Greenish", false},
	ActionColorMagenta:      {"color_magenta", "Magenta", false},
	ActionColorNeutralWhite: {"color_neutral_white", "NeutralWhite", false},
	ActionColorOrange:       {"color_orange", "Orange", false},
	ActionColorPink:         {"color_pink", "Pink", false},
	ActionColorPurple:       {"color_purple", "Purple", false},
	ActionColorRed:          {"color_red", "Red", false},
	ActionColorReddish:      {"color_reddish", "Reddish", false},
	ActionColorTurquoise:    {"color_turquoise", "Turquoise", false},
	ActionColorWarmWhite:    {"color_warm_white", "WarmWhite", false},
	ActionColorWarmWhite2:   {"color_warm_white2", "WarmWhite2", false},
	ActionColorWhite:        {"color_white", "White", false},
	ActionColorYellow:       {"color_yellow", "Yellow", false},
	ActionColorYellowish:    {"color_yellowish", "Yellowish", false},
	ActionColorRotate:       {"color_rotate", "Rotate Colors", false},
}

// Valid reports whether id indexes the registry.
func (id ActionID) Valid() bool {
	return id >= 0 && id < ActionCount
}

// Key is the stable snake_case identifier used in profile files.
func (id ActionID) Key() string {
	if !id.Valid() {
		return fmt.Sprintf("action(%d)", int(id))
	}
	return actionMeta[id].key
}

func (id ActionID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("ActionID(%d)", int(id))
	}
	return actionMeta[id].name
}

// PresetSlot returns the 1-based preset number for ActionPreset1..ActionPreset10.
func (id ActionID) PresetSlot() (int, bool) {
	if id < ActionPreset1 || id > ActionPreset10 {
		return 0, false
	}
	return int(id-ActionPreset1) + 1, true
}

// ParseActionID resolves a snake_case action key (e.g. "bright_up").
func ParseActionID(key string) (ActionID, error) {
	for i := range actionMeta {
		if actionMeta[i].key == key {
			return ActionID(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, key)
}

// Executor performs the side effect of an action.
type Executor interface {
	Execute()
}

// ExecutorFunc adapts a plain function to Executor.
type ExecutorFunc func()

func (f ExecutorFunc) Execute() { f() }

// Binder supplies the executor for an action. Returning nil leaves the
// action bound to a no-op.
type Binder interface {
	Bind(id ActionID) Executor
}

// BinderFunc adapts a plain function to Binder.
type BinderFunc func(id ActionID) Executor

func (f BinderFunc) Bind(id ActionID) Executor { return f(id) }

var noop = ExecutorFunc(func() {})

// ActionDescriptor is immutable after registration.
type ActionDescriptor struct {
	ID         ActionID
	Name       string
	Execute    Executor
	Repeatable bool
}

// ActionInfo is the externally visible part of a descriptor.
type ActionInfo struct {
	ID         ActionID `json:"id"`
	Key        string   `json:"key"`
	Name       string   `json:"name"`
	Repeatable bool     `json:"repeatable"`
}

// Registry is a fixed-size table of descriptors indexed by ActionID.
type Registry struct {
	actions [ActionCount]ActionDescriptor
}

// NewRegistry builds the registry, asking bind for every action's executor.
// A nil binder leaves every action a no-op.
func NewRegistry(bind Binder) *Registry {
	r := &Registry{}
	for i := range r.actions {
		id := ActionID(i)
		var ex Executor
		if bind != nil {
			ex = bind.Bind(id)
		}
		if ex == nil {
			ex = noop
		}
		r.actions[i] = ActionDescriptor{
			ID:         id,
			Name:       actionMeta[i].name,
			Execute:    ex,
			Repeatable: actionMeta[i].repeatable,
		}
	}
	return r
}

// Lookup returns the descriptor for id. Descriptor identity is stable for the
// registry lifetime, which the repeat arbiter relies on.
func (r *Registry) Lookup(id ActionID) (*ActionDescriptor, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAction, int(id))
	}
	return &r.actions[id], nil
}

// Actions lists every registered action in ActionID order.
func (r *Registry) Actions() []ActionInfo {
	out := make([]ActionInfo, 0, len(r.actions))
	for i := range r.actions {
		d := &r.actions[i]
		out = append(out, ActionInfo{
			ID:         d.ID,
			Key:        actionMeta[i].key,
			Name:       d.Name,
			Repeatable: d.Repeatable,
		})
	}
	return out
}
