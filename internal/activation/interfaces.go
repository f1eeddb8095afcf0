package activation

import "lessonplay/internal/grading"

type Evaluator interface {
	Evaluate(tl Timeline, t float64) (ActiveSet, Transition)
	Answer(tl Timeline, id BindingID, selected int) (grading.Result, error)
	Consume(lessonID string, id BindingID) bool
	Leave(lessonID string)
	Restore(lessonID string, consumed []BindingID)
	Consumed(lessonID string) []BindingID
}
