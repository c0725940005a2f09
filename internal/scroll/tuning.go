// internal/scroll/tuning.go
package scroll

// Tuning carries the empirically tuned thresholds of the interaction model.
// Times are milliseconds, velocities px/ms, distances px.
type Tuning struct {
	DecayTauMs         float64
	FlickMinVelocity   float64
	FlickMaxIntervalMs float64
	MaxFrameDeltaMs    float64
	StopVelocity       float64
	EdgeMargin         float64
	MarkerRadius       float64
	// StopAtScrollBounds lets policies with StopsAtBounds end the kinetic
	// phase when the [0, maxScrollable] clamp cuts a step short.
	StopAtScrollBounds bool
}

// DefaultTuning returns the thresholds used by the study.
func DefaultTuning() Tuning {
	return Tuning{
		DecayTauMs:         500,
		FlickMinVelocity:   0.5,
		FlickMaxIntervalMs: 180,
		MaxFrameDeltaMs:    32,
		StopVelocity:       0.02,
		EdgeMargin:         24,
		MarkerRadius:       40,
		StopAtScrollBounds: true,
	}
}

// normalized replaces unusable values with defaults so the frame math stays finite.
func (t Tuning) normalized() Tuning {
	d := DefaultTuning()
	pos := func(v, fallback float64) float64 {
		if !finite(v) || v <= 0 {
			return fallback
		}
		return v
	}
	t.DecayTauMs = pos(t.DecayTauMs, d.DecayTauMs)
	t.FlickMinVelocity = pos(t.FlickMinVelocity, d.FlickMinVelocity)
	t.FlickMaxIntervalMs = pos(t.FlickMaxIntervalMs, d.FlickMaxIntervalMs)
	t.MaxFrameDeltaMs = pos(t.MaxFrameDeltaMs, d.MaxFrameDeltaMs)
	t.StopVelocity = pos(t.StopVelocity, d.StopVelocity)
	t.MarkerRadius = pos(t.MarkerRadius, d.MarkerRadius)
	if !finite(t.EdgeMargin) || t.EdgeMargin < 0 {
		t.EdgeMargin = d.EdgeMargin
	}
	return t
}
