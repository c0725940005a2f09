// api/schemas/progress.go
package schemas

// StepState records completion of one study step.
type StepState struct {
	Done bool   `json:"done"`
	TS   string `json:"ts,omitempty"`
}

// Progress is the persisted per-session step state.
type Progress struct {
	Steps       map[int]StepState `json:"steps"`
	UnlockedMax int               `json:"unlockedMax"`
	ActiveIdx   int               `json:"activeIdx"`
}
