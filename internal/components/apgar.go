package components

import (
	"fmt"
	"strings"
)

type APGARSign struct {
	Name    string
	Ratings [3]string
}

var apgarSigns = []APGARSign{
	{Name: "Appearance", Ratings: [3]string{"Blue or pale all over", "Body pink, extremities blue", "Completely pink"}},
	{Name: "Pulse", Ratings: [3]string{"Absent", "Below 100 bpm", "100 bpm or more"}},
	{Name: "Grimace", Ratings: [3]string{"No response", "Grimace", "Cry, cough or sneeze"}},
	{Name: "Activity", Ratings: [3]string{"Limp", "Some flexion", "Active motion"}},
	{Name: "Respiration", Ratings: [3]string{"Absent", "Slow, irregular", "Good, crying"}},
}

type APGARCalculator struct{}

func NewAPGARCalculator() *APGARCalculator { return &APGARCalculator{} }

func (a *APGARCalculator) Name() string  { return "APGARCalculator" }
func (a *APGARCalculator) Title() string { return "APGAR Calculator" }

// APGARScore totals five 0-2 ratings in sign order.
func APGARScore(ratings []int) (int, string, error) {
	if len(ratings) != len(apgarSigns) {
		return 0, "", fmt.Errorf("expected %d ratings, got %d", len(apgarSigns), len(ratings))
	}
	total := 0
	for i, v := range ratings {
		if v < 0 || v > 2 {
			return 0, "", fmt.Errorf("%s rating must be 0-2, got %d", apgarSigns[i].Name, v)
		}
		total += v
	}
	return total, APGARInterpretation(total), nil
}

func APGARInterpretation(score int) string {
	switch {
	case score >= 7:
		return "Normal: routine care"
	case score >= 4:
		return "Moderately abnormal: stimulation and oxygen may be needed"
	default:
		return "Severely depressed: immediate resuscitation"
	}
}

func (a *APGARCalculator) Render(width int) string {
	lines := []string{"Score each sign 0-2 at 1 and 5 minutes (max 10)."}
	for _, s := range apgarSigns {
		lines = append(lines, fmt.Sprintf("%-12s 0 %s | 1 %s | 2 %s", s.Name, s.Ratings[0], s.Ratings[1], s.Ratings[2]))
	}
	lines = append(lines, "", strings.Join([]string{
		"7-10 " + APGARInterpretation(10),
		"4-6 " + APGARInterpretation(5),
		"0-3 " + APGARInterpretation(0),
	}, "\n"))
	return fitLines(strings.Split(strings.Join(lines, "\n"), "\n"), width)
}
