package activation

import "slices"

type BindingID string

type Kind int

const (
	KindPrompt Kind = iota + 1
	KindComponent
)

func (k Kind) String() string {
	switch k {
	case KindPrompt:
		return "prompt"
	case KindComponent:
		return "component"
	default:
		return "unknown"
	}
}

// Prompt is a one-shot question. It activates once playback passes its
// timestamp and stays active until answered.
type Prompt struct {
	Question    string
	Options     []string
	Correct     int
	Explanation string
}

// ComponentRef points at an entry of the component registry and is active
// while playback is inside [At, At+Window].
type ComponentRef struct {
	Name        string
	Description string
	Window      float64
}

// Binding is a timestamp-anchored interactive element. Exactly one of
// Prompt or Component is set, matching Kind.
type Binding struct {
	ID        BindingID
	Kind      Kind
	At        float64
	Prompt    *Prompt
	Component *ComponentRef
}

// End is the last second at which the binding can be window-active.
// Prompts have no window.
func (b Binding) End() float64 {
	if b.Kind == KindComponent && b.Component != nil {
		return b.At + b.Component.Window
	}
	return b.At
}

// Timeline is the compiled, immutable binding schedule of one lesson.
type Timeline struct {
	LessonID string
	Duration float64
	Bindings []Binding
}

func (tl Timeline) Find(id BindingID) (Binding, bool) {
	for _, b := range tl.Bindings {
		if b.ID == id {
			return b, true
		}
	}
	return Binding{}, false
}

func (tl Timeline) PromptCount() int {
	n := 0
	for _, b := range tl.Bindings {
		if b.Kind == KindPrompt {
			n++
		}
	}
	return n
}

type PromptState int

const (
	Pending PromptState = iota
	Active
	Consumed
)

func (s PromptState) String() string {
	switch s {
	case Active:
		return "active"
	case Consumed:
		return "consumed"
	default:
		return "pending"
	}
}

// StateTable maps prompt bindings of one lesson attempt to their state.
// Missing entries are Pending.
type StateTable map[BindingID]PromptState

type ActiveSet struct {
	Prompts    []BindingID
	Components []BindingID
}

func (s ActiveSet) Contains(id BindingID) bool {
	return slices.Contains(s.Prompts, id) || slices.Contains(s.Components, id)
}

func (s ActiveSet) Empty() bool {
	return len(s.Prompts) == 0 && len(s.Components) == 0
}

func (s ActiveSet) all() []BindingID {
	out := make([]BindingID, 0, len(s.Prompts)+len(s.Components))
	out = append(out, s.Prompts...)
	return append(out, s.Components...)
}

// Transition lists what changed between two consecutive evaluations.
type Transition struct {
	Activated   []BindingID
	Deactivated []BindingID
}

func (t Transition) Empty() bool {
	return len(t.Activated) == 0 && len(t.Deactivated) == 0
}
