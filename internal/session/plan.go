// internal/session/plan.go
package session

import (
	"fmt"

	"github.com/xkilldash9x/scrolllab/api/schemas"
	"github.com/xkilldash9x/scrolllab/internal/scroll"
)

// StepCount is the number of reading tasks in Part I.
const StepCount = 3

// stepTechniques fixes the technique used at each step regardless of order.
var stepTechniques = [StepCount + 1]scroll.Technique{
	1: scroll.TechniqueI,
	2: scroll.TechniqueIII,
	3: scroll.TechniqueIV,
}

var docContent = map[schemas.DocLetter]string{
	schemas.DocA: "T1",
	schemas.DocB: "T2",
	schemas.DocC: "T3",
}

// Step is one row of the Part I plan.
type Step struct {
	Index     int
	Doc       schemas.DocLetter
	Technique scroll.Technique
	Content   string
}

// BuildPlan maps the assigned document order onto the fixed step techniques.
func BuildPlan(order schemas.PartIOrder) ([]Step, error) {
	if !order.IsValid() {
		return nil, fmt.Errorf("invalid Part I order %q", order)
	}
	plan := make([]Step, 0, StepCount)
	for i, doc := range order.Letters() {
		idx := i + 1
		plan = append(plan, Step{
			Index:     idx,
			Doc:       doc,
			Technique: stepTechniques[idx],
			Content:   docContent[doc],
		})
	}
	return plan, nil
}
