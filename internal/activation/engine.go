package activation

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"lessonplay/internal/grading"
)

var (
	ErrUnknownBinding   = errors.New("unknown binding")
	ErrNotPrompt        = errors.New("binding is not a prompt")
	ErrPromptInactive   = errors.New("prompt is not active")
	ErrPromptConsumed   = errors.New("prompt already answered")
	ErrOptionOutOfRange = grading.ErrOptionOutOfRange
)

// IsWindowActive reports whether a component binding's window contains t.
// It is a pure function of time; prompts never have a window.
func IsWindowActive(b Binding, t float64) bool {
	if b.Kind != KindComponent || b.Component == nil {
		return false
	}
	t = clampTime(t, 0)
	return b.At <= t && t <= b.At+b.Component.Window
}

func promptActive(b Binding, t float64, st PromptState) bool {
	return b.Kind == KindPrompt && st != Consumed && t >= b.At
}

// ComputeActiveSet returns the bindings active at t given the lesson's
// prompt states. Results follow timeline order.
func ComputeActiveSet(tl Timeline, t float64, states StateTable) ActiveSet {
	pt := clampTime(t, tl.Duration)
	var set ActiveSet
	for _, b := range tl.Bindings {
		switch b.Kind {
		case KindPrompt:
			if promptActive(b, pt, states[b.ID]) {
				set.Prompts = append(set.Prompts, b.ID)
			}
		case KindComponent:
			// Windows are not clamped to the duration, so a time past the
			// end only sees windows that still contain it.
			if IsWindowActive(b, t) {
				set.Components = append(set.Components, b.ID)
			}
		}
	}
	return set
}

type attempt struct {
	states StateTable
	last   ActiveSet
	now    float64
}

// Engine owns the per-lesson-attempt state tables. It is not safe for
// concurrent use; callers serialize access.
type Engine struct {
	attempts map[string]*attempt
	grader   grading.Grader
}

func NewEngine() *Engine {
	return &Engine{attempts: map[string]*attempt{}, grader: grading.NewGrader()}
}

func (e *Engine) attempt(lessonID string) *attempt {
	a, ok := e.attempts[lessonID]
	if !ok {
		a = &attempt{states: StateTable{}}
		e.attempts[lessonID] = a
	}
	return a
}

// Evaluate recomputes the active set for t and reports the transition from
// the previous evaluation of the same lesson.
func (e *Engine) Evaluate(tl Timeline, t float64) (ActiveSet, Transition) {
	a := e.attempt(tl.LessonID)
	set := ComputeActiveSet(tl, t, a.states)
	t = clampTime(t, tl.Duration)

	for _, b := range tl.Bindings {
		if b.Kind != KindPrompt || a.states[b.ID] == Consumed {
			continue
		}
		if slices.Contains(set.Prompts, b.ID) {
			a.states[b.ID] = Active
		} else {
			delete(a.states, b.ID)
		}
	}

	tr := diff(a.last, set)
	a.last = set
	a.now = t
	return set, tr
}

// Answer grades a selection for an active prompt and consumes it. The first
// in-range selection always consumes, whether or not it is correct.
func (e *Engine) Answer(tl Timeline, id BindingID, selected int) (grading.Result, error) {
	b, ok := tl.Find(id)
	if !ok {
		return grading.Result{}, fmt.Errorf("lesson %s binding %s: %w", tl.LessonID, id, ErrUnknownBinding)
	}
	if b.Kind != KindPrompt || b.Prompt == nil {
		return grading.Result{}, fmt.Errorf("lesson %s binding %s: %w", tl.LessonID, id, ErrNotPrompt)
	}
	a := e.attempt(tl.LessonID)
	st := a.states[id]
	if st == Consumed {
		return grading.Result{}, fmt.Errorf("lesson %s prompt %s: %w", tl.LessonID, id, ErrPromptConsumed)
	}
	if !promptActive(b, a.now, st) {
		return grading.Result{}, fmt.Errorf("lesson %s prompt %s at %.1fs: %w", tl.LessonID, id, a.now, ErrPromptInactive)
	}
	res, err := e.grader.Grade(grading.Request{
		LessonID:    tl.LessonID,
		PromptID:    string(id),
		Options:     b.Prompt.Options,
		Correct:     b.Prompt.Correct,
		Selected:    selected,
		Explanation: b.Prompt.Explanation,
	})
	if err != nil {
		return grading.Result{}, err
	}
	e.consume(a, id)
	return res, nil
}

// Consume marks a prompt as answered. It is idempotent and reports whether
// the state changed.
func (e *Engine) Consume(lessonID string, id BindingID) bool {
	return e.consume(e.attempt(lessonID), id)
}

func (e *Engine) consume(a *attempt, id BindingID) bool {
	if a.states[id] == Consumed {
		return false
	}
	a.states[id] = Consumed
	a.last.Prompts = slices.DeleteFunc(slices.Clone(a.last.Prompts), func(p BindingID) bool { return p == id })
	return true
}

// Leave drops transient activity for a lesson being switched away from.
// Consumed prompts stay consumed.
func (e *Engine) Leave(lessonID string) {
	a, ok := e.attempts[lessonID]
	if !ok {
		return
	}
	for id, st := range a.states {
		if st != Consumed {
			delete(a.states, id)
		}
	}
	a.last = ActiveSet{}
	a.now = 0
}

func (e *Engine) Restore(lessonID string, consumed []BindingID) {
	a := e.attempt(lessonID)
	for _, id := range consumed {
		if id != "" {
			a.states[id] = Consumed
		}
	}
}

func (e *Engine) Consumed(lessonID string) []BindingID {
	a, ok := e.attempts[lessonID]
	if !ok {
		return nil
	}
	var out []BindingID
	for id, st := range a.states {
		if st == Consumed {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func (e *Engine) State(lessonID string, id BindingID) PromptState {
	a, ok := e.attempts[lessonID]
	if !ok {
		return Pending
	}
	return a.states[id]
}

// States returns a copy of the lesson's state table.
func (e *Engine) States(lessonID string) StateTable {
	out := StateTable{}
	if a, ok := e.attempts[lessonID]; ok {
		for id, st := range a.states {
			out[id] = st
		}
	}
	return out
}

func diff(prev, next ActiveSet) Transition {
	var tr Transition
	for _, id := range next.all() {
		if !prev.Contains(id) {
			tr.Activated = append(tr.Activated, id)
		}
	}
	for _, id := range prev.all() {
		if !next.Contains(id) {
			tr.Deactivated = append(tr.Deactivated, id)
		}
	}
	return tr
}

// clampTime keeps t inside [0, duration]; a non-positive duration only
// clamps the lower bound.
func clampTime(t, duration float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if duration > 0 && t > duration {
		return duration
	}
	return t
}
