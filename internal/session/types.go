package session

import (
	"lessonplay/internal/activation"
	"lessonplay/internal/grading"
	"lessonplay/internal/playback"
	"lessonplay/internal/state"
)

type EventKind int

const (
	EventSwitched EventKind = iota + 1
	EventActivated
	EventDeactivated
	EventAnswered
	EventCompleted
	EventDegraded
)

func (k EventKind) String() string {
	switch k {
	case EventSwitched:
		return "switched"
	case EventActivated:
		return "activated"
	case EventDeactivated:
		return "deactivated"
	case EventAnswered:
		return "answered"
	case EventCompleted:
		return "completed"
	case EventDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Event reports a state change of the current lesson. Generation ties it
// to the lesson attempt that produced it.
type Event struct {
	Kind       EventKind
	Generation uint64
	LessonID   string
	IDs        []activation.BindingID
	Result     *grading.Result
	Message    string
}

type PromptView struct {
	ID       activation.BindingID
	At       float64
	Question string
	Options  []string
}

type ComponentView struct {
	ID          activation.BindingID
	Name        string
	Description string
	At          float64
	End         float64
}

type LessonRow struct {
	LessonID   string
	Title      string
	Duration   float64
	Completed  bool
	Percentage int
	Current    bool
}

// Frame is the read model the shell renders.
type Frame struct {
	Generation uint64
	LessonID   string
	Title      string

	Playback         playback.State
	ActivePrompts    []PromptView
	ActiveComponents []ComponentView
	Progress         state.ProgressRecord
	Overall          int
	Degraded         string
	LastResult       *grading.Result

	Lessons   []LessonRow
	Bookmarks []state.Bookmark
	Scores    []grading.LessonScore
}
