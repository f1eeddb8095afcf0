package grading

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrOptionOutOfRange = errors.New("selected option out of range")

type DefaultGrader struct{}

func NewGrader() *DefaultGrader { return &DefaultGrader{} }

// Grade evaluates a single selection. Any in-range selection is a valid
// attempt; callers decide what consuming the prompt means.
func (g *DefaultGrader) Grade(req Request) (Result, error) {
	if req.Selected < 0 || req.Selected >= len(req.Options) {
		return Result{}, fmt.Errorf("prompt %s option %d of %d: %w", req.PromptID, req.Selected, len(req.Options), ErrOptionOutOfRange)
	}
	if req.Correct < 0 || req.Correct >= len(req.Options) {
		return Result{}, fmt.Errorf("prompt %s has invalid correct index %d", req.PromptID, req.Correct)
	}
	correct := req.Selected == req.Correct
	return Result{
		Kind:          ResultKind,
		SchemaVersion: SchemaVersion,
		LessonID:      req.LessonID,
		PromptID:      req.PromptID,
		Selected:      req.Selected,
		CorrectIndex:  req.Correct,
		Correct:       correct,
		Explanation:   req.Explanation,
		Feedback:      feedback(correct, req.Options[req.Correct], req.Explanation),
	}, nil
}

func feedback(correct bool, answer, explanation string) string {
	var b strings.Builder
	if correct {
		b.WriteString("Correct!")
	} else {
		b.WriteString("Not quite. The answer is: ")
		b.WriteString(answer)
		b.WriteString(".")
	}
	if explanation = strings.TrimSpace(explanation); explanation != "" {
		b.WriteString(" ")
		b.WriteString(explanation)
	}
	return b.String()
}

// Tally counts recorded answers keyed by prompt id.
func Tally(answers map[string]bool) Score {
	var s Score
	for _, ok := range answers {
		s.Answered++
		if ok {
			s.Correct++
		}
	}
	s.Percent = percent(s.Correct, s.Answered)
	return s
}

// TallyLesson scores one lesson against the number of prompts it offers.
func TallyLesson(lessonID string, prompts int, answers map[string]bool) LessonScore {
	return LessonScore{LessonID: lessonID, Prompts: prompts, Score: Tally(answers)}
}

func percent(n, d int) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(float64(n) * 100 / float64(d)))
}
