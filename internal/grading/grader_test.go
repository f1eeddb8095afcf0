package grading

import (
	"errors"
	"strings"
	"testing"
)

func TestGradeCorrectSelection(t *testing.T) {
	g := NewGrader()
	res, err := g.Grade(Request{
		LessonID:    "immediate-maternal",
		PromptID:    "blood-loss",
		Options:     []string{"<300mL", "<500mL", "<1000mL", "<1500mL"},
		Correct:     1,
		Selected:    1,
		Explanation: "Normal blood loss for vaginal delivery is less than 500mL.",
	})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if !res.Correct {
		t.Fatalf("expected correct result, got %#v", res)
	}
	if !strings.HasPrefix(res.Feedback, "Correct!") {
		t.Fatalf("unexpected feedback: %q", res.Feedback)
	}
	if res.Kind != ResultKind || res.SchemaVersion != SchemaVersion {
		t.Fatalf("unexpected result metadata: kind=%s schema=%d", res.Kind, res.SchemaVersion)
	}
}

func TestGradeIncorrectSelectionNamesAnswer(t *testing.T) {
	g := NewGrader()
	res, err := g.Grade(Request{
		PromptID:    "fundus",
		Options:     []string{"Every 5 minutes", "Every 15 minutes"},
		Correct:     1,
		Selected:    0,
		Explanation: "Every 15 minutes for the first hour.",
	})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if res.Correct {
		t.Fatalf("expected incorrect result")
	}
	if !strings.Contains(res.Feedback, "Every 15 minutes.") || !strings.Contains(res.Feedback, "first hour") {
		t.Fatalf("feedback should name the answer and explanation: %q", res.Feedback)
	}
}

func TestGradeRejectsOutOfRangeSelection(t *testing.T) {
	g := NewGrader()
	for _, selected := range []int{-1, 2} {
		_, err := g.Grade(Request{PromptID: "p", Options: []string{"a", "b"}, Correct: 0, Selected: selected})
		if !errors.Is(err, ErrOptionOutOfRange) {
			t.Fatalf("selected=%d: expected ErrOptionOutOfRange, got %v", selected, err)
		}
	}
}

func TestTally(t *testing.T) {
	s := Tally(map[string]bool{"a": true, "b": false, "c": true})
	if s.Answered != 3 || s.Correct != 2 || s.Percent != 67 {
		t.Fatalf("unexpected tally: %#v", s)
	}
	if empty := Tally(nil); empty.Percent != 0 || empty.Answered != 0 {
		t.Fatalf("unexpected empty tally: %#v", empty)
	}
}
