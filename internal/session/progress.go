// internal/session/progress.go
package session

import (
	"time"

	"github.com/xkilldash9x/scrolllab/api/schemas"
)

// isoMillis matches the timestamps written by the study front end.
const isoMillis = "2006-01-02T15:04:05.000Z"

// Progress applies the unlock rules of Part I to a schemas.Progress.
type Progress struct {
	state schemas.Progress
}

// NewProgress returns progress with nothing done and only step 1 unlocked.
func NewProgress() *Progress {
	return &Progress{state: schemas.Progress{
		Steps: map[int]schemas.StepState{
			1: {Done: false},
			2: {Done: false},
			3: {Done: false},
		},
		UnlockedMax: 1,
		ActiveIdx:   1,
	}}
}

// RestoreProgress starts from defaults and takes whichever saved fields are usable.
func RestoreProgress(saved schemas.Progress) *Progress {
	p := NewProgress()
	for idx := 1; idx <= StepCount; idx++ {
		if st, ok := saved.Steps[idx]; ok {
			p.state.Steps[idx] = st
		}
	}
	if validIndex(saved.UnlockedMax) {
		p.state.UnlockedMax = saved.UnlockedMax
	}
	if validIndex(saved.ActiveIdx) {
		p.state.ActiveIdx = saved.ActiveIdx
	}
	return p
}

// State returns a copy suitable for persisting.
func (p *Progress) State() schemas.Progress {
	out := p.state
	out.Steps = make(map[int]schemas.StepState, len(p.state.Steps))
	for k, v := range p.state.Steps {
		out.Steps[k] = v
	}
	return out
}

// Active returns the current step index.
func (p *Progress) Active() int { return p.state.ActiveIdx }

// Done reports whether step idx is complete.
func (p *Progress) Done(idx int) bool { return p.state.Steps[idx].Done }

// CanSelect reports whether step idx is unlocked.
func (p *Progress) CanSelect(idx int) bool {
	return validIndex(idx) && idx <= p.state.UnlockedMax
}

// Pick makes idx the active step if it is unlocked.
func (p *Progress) Pick(idx int) bool {
	if !p.CanSelect(idx) {
		return false
	}
	p.state.ActiveIdx = idx
	return true
}

// CompleteCurrent marks the active step done at now, unlocks the next step
// and moves to it unless it is already done. Completing a finished step is a
// no-op and returns false.
func (p *Progress) CompleteCurrent(now time.Time) bool {
	idx := p.state.ActiveIdx
	if p.state.Steps[idx].Done {
		return false
	}
	p.state.Steps[idx] = schemas.StepState{Done: true, TS: now.UTC().Format(isoMillis)}

	if idx < StepCount && p.state.UnlockedMax < StepCount {
		p.state.UnlockedMax = max(p.state.UnlockedMax, idx+1)
		if !p.state.Steps[idx+1].Done {
			p.state.ActiveIdx = idx + 1
		}
	}
	return true
}

// Finished reports whether every step is done.
func (p *Progress) Finished() bool {
	for idx := 1; idx <= StepCount; idx++ {
		if !p.state.Steps[idx].Done {
			return false
		}
	}
	return true
}

// ActionLabel is the label of the completion button for the active step.
func (p *Progress) ActionLabel() string {
	switch {
	case p.Done(p.state.ActiveIdx):
		return "Done"
	case p.state.ActiveIdx == StepCount:
		return "Complete"
	default:
		return "Next"
	}
}

func validIndex(idx int) bool { return idx >= 1 && idx <= StepCount }
