package components

import (
	"fmt"
	"math"
)

type ChecklistItem struct {
	ID       string
	Text     string
	Critical bool
}

type ChecklistSection struct {
	Title string
	Items []ChecklistItem
}

type Checklist struct {
	name     string
	title    string
	Sections []ChecklistSection
}

type ChecklistStats struct {
	Checked         int
	Total           int
	Percent         int
	CriticalMissing []string
}

func (c *Checklist) Name() string  { return c.name }
func (c *Checklist) Title() string { return c.title }

// Completion tallies checked items and lists unchecked critical ones in
// checklist order.
func (c *Checklist) Completion(checked map[string]bool) ChecklistStats {
	var s ChecklistStats
	for _, sec := range c.Sections {
		for _, item := range sec.Items {
			s.Total++
			switch {
			case checked[item.ID]:
				s.Checked++
			case item.Critical:
				s.CriticalMissing = append(s.CriticalMissing, item.Text)
			}
		}
	}
	if s.Total > 0 {
		s.Percent = int(math.Round(float64(s.Checked) * 100 / float64(s.Total)))
	}
	return s
}

func (c *Checklist) Render(width int) string {
	var lines []string
	for _, sec := range c.Sections {
		lines = append(lines, sec.Title)
		for _, item := range sec.Items {
			mark := " "
			if item.Critical {
				mark = "!"
			}
			lines = append(lines, fmt.Sprintf(" [ ]%s %s", mark, item.Text))
		}
	}
	lines = append(lines, "", "! critical finding")
	return fitLines(lines, width)
}

func NewbornChecklist() *Checklist {
	return &Checklist{
		name:  "NewbornAssessmentChecklist",
		title: "Newborn Assessment Checklist",
		Sections: []ChecklistSection{
			{Title: "Head & Neck", Items: []ChecklistItem{
				{ID: "nose", Text: "Nares patent bilaterally", Critical: true},
				{ID: "mouth", Text: "Palate intact, strong suck", Critical: true},
				{ID: "neck", Text: "Full ROM, no masses"},
			}},
			{Title: "Cardiovascular", Items: []ChecklistItem{
				{ID: "heart_sounds", Text: "Regular rate and rhythm, no murmur", Critical: true},
				{ID: "femoral", Text: "Femoral pulses present and equal", Critical: true},
				{ID: "perfusion", Text: "Good peripheral perfusion"},
			}},
			{Title: "Respiratory", Items: []ChecklistItem{
				{ID: "chest_shape", Text: "Chest symmetric, no retractions", Critical: true},
				{ID: "breath_clear", Text: "Breath sounds clear throughout", Critical: true},
				{ID: "effort", Text: "Respiratory effort unlabored", Critical: true},
			}},
			{Title: "Abdomen", Items: []ChecklistItem{
				{ID: "soft", Text: "Soft, non-distended", Critical: true},
				{ID: "cord_intact", Text: "Umbilical cord clamped, no bleeding", Critical: true},
				{ID: "bowel", Text: "Bowel sounds present"},
			}},
			{Title: "Musculoskeletal", Items: []ChecklistItem{
				{ID: "spine", Text: "Spine straight, no dimples or tufts", Critical: true},
				{ID: "hips", Text: "Hips: negative Ortolani/Barlow", Critical: true},
				{ID: "digits", Text: "10 fingers, 10 toes, no webbing"},
			}},
			{Title: "Skin", Items: []ChecklistItem{
				{ID: "color_pink", Text: "Pink, well-perfused", Critical: true},
				{ID: "turgor", Text: "Good skin turgor"},
			}},
		},
	}
}
