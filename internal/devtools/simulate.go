package devtools

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"lessonplay/internal/activation"
	"lessonplay/internal/catalog"
)

const DefaultStep = 1.0

var ErrBadRange = errors.New("simulation range is empty")

type Manager struct{}

func NewManager() *Manager { return &Manager{} }

// Simulate replays tl against a fresh engine on a virtual clock and
// returns every transition in time order. The final step always lands on
// To so a window that closes at the end is reported.
func (m *Manager) Simulate(tl activation.Timeline, opts Options) ([]Entry, error) {
	step := opts.Step
	if step <= 0 || math.IsNaN(step) {
		step = DefaultStep
	}
	to := opts.To
	if to <= 0 || to > tl.Duration {
		to = tl.Duration
	}
	from := math.Max(opts.From, 0)
	if from > to {
		return nil, fmt.Errorf("from %s to %s: %w", catalog.FormatClock(from), catalog.FormatClock(to), ErrBadRange)
	}
	for id := range opts.Answers {
		b, ok := tl.Find(id)
		if !ok {
			return nil, fmt.Errorf("answer for %s: %w", id, activation.ErrUnknownBinding)
		}
		if b.Kind != activation.KindPrompt {
			return nil, fmt.Errorf("answer for %s: %w", id, activation.ErrNotPrompt)
		}
	}

	engine := activation.NewEngine()
	var out []Entry
	for i := 0; ; i++ {
		t := math.Min(from+float64(i)*step, to)
		_, tr := engine.Evaluate(tl, t)
		for _, id := range tr.Activated {
			out = append(out, entryFor(tl, t, EntryActivated, id))
		}
		for _, id := range tr.Deactivated {
			out = append(out, entryFor(tl, t, EntryDeactivated, id))
		}
		for _, id := range tr.Activated {
			sel, ok := opts.Answers[id]
			if !ok {
				continue
			}
			res, err := engine.Answer(tl, id, sel)
			if err != nil {
				return out, err
			}
			e := entryFor(tl, t, EntryAnswered, id)
			correct := res.Correct
			e.Correct = &correct
			e.Detail = res.Feedback
			out = append(out, e)
		}
		if t >= to {
			break
		}
	}
	return out, nil
}

func entryFor(tl activation.Timeline, t float64, kind EntryKind, id activation.BindingID) Entry {
	e := Entry{Time: t, Kind: kind, ID: id}
	if b, ok := tl.Find(id); ok {
		e.Binding = b.Kind
		switch {
		case b.Prompt != nil:
			e.Detail = b.Prompt.Question
		case b.Component != nil:
			e.Detail = b.Component.Name
		}
	}
	return e
}

// WriteLog prints entries one per line as "m:ss kind id detail".
func WriteLog(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		line := fmt.Sprintf("%6s  %-11s %-10s %s", catalog.FormatClock(e.Time), e.Kind, e.ID, e.Binding)
		if e.Correct != nil {
			line += fmt.Sprintf(" correct=%t", *e.Correct)
		}
		if e.Detail != "" {
			line += "  " + strings.TrimSpace(e.Detail)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
