package devtools

import "lessonplay/internal/activation"

type Simulator interface {
	Simulate(tl activation.Timeline, opts Options) ([]Entry, error)
}

type Options struct {
	From float64
	// To defaults to the lesson duration.
	To   float64
	Step float64
	// Answers selects an option for a prompt as soon as it activates.
	Answers map[activation.BindingID]int
}

type EntryKind string

const (
	EntryActivated   EntryKind = "activated"
	EntryDeactivated EntryKind = "deactivated"
	EntryAnswered    EntryKind = "answered"
)

type Entry struct {
	Time    float64
	Kind    EntryKind
	ID      activation.BindingID
	Binding activation.Kind
	Correct *bool
	Detail  string
}
