// api/schemas/settings.go
package schemas

import "math"

// Gain bounds enforced by the settings surface.
const (
	MinGain = 0.2
	MaxGain = 2.0
)

// ScrollSettings holds the user-tunable gains of a scroll surface.
// The JSON shape is the persisted blob format.
type ScrollSettings struct {
	// DragGain scales pointer-move deltas before they move the content.
	DragGain float64 `json:"dragGain" yaml:"drag_gain" mapstructure:"drag_gain"`
	// InertiaGain scales the release velocity before it seeds the kinetic phase.
	InertiaGain float64 `json:"inertiaGain" yaml:"inertia_gain" mapstructure:"inertia_gain"`
}

var (
	// PresetGentle damps both dragging and flinging.
	PresetGentle = ScrollSettings{DragGain: 0.8, InertiaGain: 0.6}
	// PresetStudy is the configuration used by the reading tasks.
	PresetStudy = ScrollSettings{DragGain: 0.9, InertiaGain: 0.75}
)

// DefaultScrollSettings returns unity gains.
func DefaultScrollSettings() ScrollSettings {
	return ScrollSettings{DragGain: 1.0, InertiaGain: 1.0}
}

// ClampGain forces a gain into [MinGain, MaxGain]. Non-finite values fall back to 1.
func ClampGain(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 1.0
	}
	return math.Min(MaxGain, math.Max(MinGain, v))
}

// Clamped returns a copy with both gains forced into range.
func (s ScrollSettings) Clamped() ScrollSettings {
	return ScrollSettings{DragGain: ClampGain(s.DragGain), InertiaGain: ClampGain(s.InertiaGain)}
}

// LookupPreset resolves a preset by name.
func LookupPreset(name string) (ScrollSettings, bool) {
	switch name {
	case "gentle", "0.8/0.6":
		return PresetGentle, true
	case "study", "0.9/0.75":
		return PresetStudy, true
	case "default", "reset", "1":
		return DefaultScrollSettings(), true
	}
	return ScrollSettings{}, false
}
