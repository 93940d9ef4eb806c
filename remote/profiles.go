package remote

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// RepeatCode is sent by NEC-style remotes while a button is held. It means
// "repeat whatever was invoked last" and never appears in a profile.
const RepeatCode uint32 = 0xFFFFFFFF

// ErrInvalidProfile is returned for malformed remote profile data.
var ErrInvalidProfile = errors.New("invalid remote profile")

// ProfileID selects the active remote layout.
type ProfileID int

const (
	ProfileDisabled ProfileID = iota
	ProfileIR24Old
	ProfileIR24CT
	ProfileIR40
	ProfileIR44
	ProfileIR21
	ProfileIR6
	ProfileIR9
	ProfileIR24
	ProfileCustom
	ProfileSqueezebox
	ProfileRokuExpress

	// ProfileCount bounds the configurable range; it must stay last.
	ProfileCount
)

var profileKeys = [ProfileCount]string{
	ProfileDisabled:    "disabled",
	ProfileIR24Old:     "ir24_old",
	ProfileIR24CT:      "ir24_ct",
	ProfileIR40:        "ir40",
	ProfileIR44:        "ir44",
	ProfileIR21:        "ir21",
	ProfileIR6:         "ir6",
	ProfileIR9:         "ir9",
	ProfileIR24:        "ir24",
	ProfileCustom:      "custom",
	ProfileSqueezebox:  "squeezebox",
	ProfileRokuExpress: "roku_express",
}

// Enabled reports whether id selects a configured remote. The disabled
// sentinel and anything out of range are not enabled.
func (id ProfileID) Enabled() bool {
	return id > ProfileDisabled && id < ProfileCount
}

func (id ProfileID) String() string {
	if id < 0 || id >= ProfileCount {
		return fmt.Sprintf("profile(%d)", int(id))
	}
	return profileKeys[id]
}

// ParseProfileID resolves a profile key such as "ir44". Matching is case
// insensitive and accepts '-' for '_'.
func ParseProfileID(s string) (ProfileID, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, k := range profileKeys {
		if k == key {
			return ProfileID(i), nil
		}
	}
	return ProfileDisabled, fmt.Errorf("%w: unknown remote %q", ErrInvalidProfile, s)
}

// KeyMapping pairs a received code with the action it triggers.
type KeyMapping struct {
	Code   uint32
	Action ActionID
}

// Profile is the ordered code table for one physical remote. Order is match
// priority: the first mapping with a matching code wins.
type Profile struct {
	Name        string
	Description string
	Mappings    []KeyMapping
}

// Lookup returns the first mapping whose code equals code.
func (p *Profile) Lookup(code uint32) (KeyMapping, bool) {
	if p == nil {
		return KeyMapping{}, false
	}
	for _, m := range p.Mappings {
		if m.Code == code {
			return m, true
		}
	}
	return KeyMapping{}, false
}

// Count returns the number of mappings bound to action.
func (p *Profile) Count(action ActionID) int {
	if p == nil {
		return 0
	}
	n := 0
	for _, m := range p.Mappings {
		if m.Action == action {
			n++
		}
	}
	return n
}

// Validate checks every mapping refers to a registered action and uses a
// code that can actually be dispatched.
func (p *Profile) Validate() error {
	for i, m := range p.Mappings {
		if !m.Action.Valid() {
			return fmt.Errorf("%w: %s mapping %d: %w", ErrInvalidProfile, p.Name, i, ErrUnknownAction)
		}
		if m.Code == 0 || m.Code == RepeatCode {
			return fmt.Errorf("%w: %s mapping %d: reserved code 0x%08x", ErrInvalidProfile, p.Name, i, m.Code)
		}
	}
	return nil
}

// ============================================================================
// YAML profile format
// ============================================================================

type profileFile struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description,omitempty"`
	Keys        []profileFileKey `yaml:"keys"`
}

type profileFileKey struct {
	Button string `yaml:"button,omitempty"`
	Code   string `yaml:"code"`
	Action string `yaml:"action"`
}

// ParseProfile decodes one YAML remote profile. Unknown fields are rejected.
func ParseProfile(r io.Reader) (*Profile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f profileFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: decode yaml: %w", ErrInvalidProfile, err)
	}

	p := &Profile{
		Name:        f.Name,
		Description: f.Description,
		Mappings:    make([]KeyMapping, 0, len(f.Keys)),
	}
	for i, k := range f.Keys {
		code, err := strconv.ParseUint(strings.TrimSpace(k.Code), 0, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %s key %d (%s): code %q: %w", ErrInvalidProfile, f.Name, i, k.Button, k.Code, err)
		}
		action, err := ParseActionID(k.Action)
		if err != nil {
			return nil, fmt.Errorf("%w: %s key %d (%s): %w", ErrInvalidProfile, f.Name, i, k.Button, err)
		}
		p.Mappings = append(p.Mappings, KeyMapping{Code: uint32(code), Action: action})
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadProfileFile reads a user-defined remote profile from disk.
func LoadProfileFile(path string) (*Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read remote profile: %w", err)
	}
	return ParseProfile(bytes.NewReader(b))
}

// ============================================================================
// Profile set
// ============================================================================

//go:embed profiles/*.yaml
var builtinFS embed.FS

// Profiles holds the table for every ProfileID. The disabled slot is always
// empty; the custom slot is empty until SetCustom is called.
type Profiles struct {
	tables [ProfileCount]*Profile
}

// BuiltinProfiles loads the remote tables compiled into the binary.
func BuiltinProfiles() (*Profiles, error) {
	ps := &Profiles{}
	for id := ProfileDisabled + 1; id < ProfileCount; id++ {
		if id == ProfileCustom {
			ps.tables[id] = &Profile{Name: profileKeys[id]}
			continue
		}
		b, err := builtinFS.ReadFile("profiles/" + profileKeys[id] + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("builtin profile %s: %w", profileKeys[id], err)
		}
		p, err := ParseProfile(bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		ps.tables[id] = p
	}
	return ps, nil
}

// NewProfiles builds a set from explicit tables; ids not present stay empty.
func NewProfiles(tables map[ProfileID]*Profile) (*Profiles, error) {
	ps := &Profiles{}
	for id, p := range tables {
		if !id.Enabled() {
			return nil, fmt.Errorf("%w: cannot assign table to %s", ErrInvalidProfile, id)
		}
		if p == nil {
			continue
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		ps.tables[id] = p
	}
	return ps, nil
}

// SetCustom installs the user-defined remote table.
func (ps *Profiles) SetCustom(p *Profile) error {
	if p == nil {
		return fmt.Errorf("%w: nil custom profile", ErrInvalidProfile)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	ps.tables[ProfileCustom] = p
	return nil
}

// Get returns the table for id, or false when id is disabled or unknown.
func (ps *Profiles) Get(id ProfileID) (*Profile, bool) {
	if ps == nil || !id.Enabled() || ps.tables[id] == nil {
		return nil, false
	}
	return ps.tables[id], true
}
