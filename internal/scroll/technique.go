// internal/scroll/technique.go
package scroll

import (
	"fmt"
	"strings"
)

// Technique identifies one of the four interaction policies under study.
type Technique string

const (
	TechniqueI   Technique = "I"
	TechniqueII  Technique = "II"
	TechniqueIII Technique = "III"
	TechniqueIV  Technique = "IV"
)

// Policy holds the switches that distinguish the techniques.
type Policy struct {
	ShowsHighlight bool
	LimitsDistance bool
	// StopsAtBounds ends the kinetic phase when a step is clamped at either
	// end of the scroll range. Only the baseline does this; the other
	// techniques let velocity decay against the bound.
	StopsAtBounds bool
}

var policies = map[Technique]Policy{
	TechniqueI:   {StopsAtBounds: true},
	TechniqueII:  {ShowsHighlight: true},
	TechniqueIII: {LimitsDistance: true},
	TechniqueIV:  {ShowsHighlight: true, LimitsDistance: true},
}

// Techniques lists all techniques in study order.
func Techniques() []Technique {
	return []Technique{TechniqueI, TechniqueII, TechniqueIII, TechniqueIV}
}

// Policy returns the switches for t. Unknown techniques behave like Technique I.
func (t Technique) Policy() Policy {
	if p, ok := policies[t]; ok {
		return p
	}
	return policies[TechniqueI]
}

// Valid reports whether t is a known technique.
func (t Technique) Valid() bool {
	_, ok := policies[t]
	return ok
}

func (t Technique) String() string { return string(t) }

// ParseTechnique accepts roman numerals, digits 1-4 and the descriptive names.
func ParseTechnique(s string) (Technique, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", "-", " ", "-", "+", "-").Replace(key)
	key = strings.TrimPrefix(key, "type-")
	key = strings.TrimPrefix(key, "technique-")
	switch key {
	case "i", "1", "baseline", "normal":
		return TechniqueI, nil
	case "ii", "2", "highlight", "highlighted":
		return TechniqueII, nil
	case "iii", "3", "limited", "limited-distance", "limit":
		return TechniqueIII, nil
	case "iv", "4", "limited-highlight", "highlight-limited", "limited-distance-highlight":
		return TechniqueIV, nil
	}
	return "", fmt.Errorf("unknown scroll technique %q", s)
}
