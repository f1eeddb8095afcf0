package components

import (
	"fmt"
	"math"
	"strings"
)

const (
	lbsToKg              = 0.453592
	acetaminophenMaxDose = 1000
)

type Medication struct {
	Key               string
	Name              string
	MinDose           float64
	MaxDose           float64
	PerKg             bool
	Frequency         string
	MaxDaily          float64
	Notes             string
	Contraindications []string
}

type DoseRange struct {
	Min  float64
	Max  float64
	Unit string
}

var medications = []Medication{
	{
		Key: "acetaminophen", Name: "Acetaminophen",
		MinDose: 10, MaxDose: 15, PerKg: true,
		Frequency: "every 4-6 hours", MaxDaily: 4000,
		Notes:             "Safe for breastfeeding",
		Contraindications: []string{"Liver disease", "Chronic alcohol use"},
	},
	{
		Key: "ibuprofen", Name: "Ibuprofen",
		MinDose: 400, MaxDose: 800,
		Frequency: "every 6-8 hours", MaxDaily: 3200,
		Notes:             "Take with food. Safe for breastfeeding",
		Contraindications: []string{"Peptic ulcer", "Renal disease", "Bleeding disorders"},
	},
	{
		Key: "oxycodone", Name: "Oxycodone",
		MinDose: 5, MaxDose: 10,
		Frequency: "every 4-6 hours", MaxDaily: 40,
		Notes:             "Monitor infant for sedation if breastfeeding",
		Contraindications: []string{"Respiratory depression", "Paralytic ileus"},
	},
	{
		Key: "ketorolac", Name: "Ketorolac",
		MinDose: 10, MaxDose: 30,
		Frequency: "every 6 hours", MaxDaily: 120,
		Notes:             "Maximum 5 days use",
		Contraindications: []string{"Bleeding risk", "Renal impairment", "Peptic ulcer"},
	},
}

// PainCalculator computes postpartum analgesic dose ranges for a patient
// weight and suggests an approach for a 0-10 pain score.
type PainCalculator struct {
	WeightKg  float64
	PainScore int
}

func NewPainCalculator() *PainCalculator {
	return &PainCalculator{WeightKg: 70, PainScore: 5}
}

func (p *PainCalculator) Name() string  { return "PainManagementCalculator" }
func (p *PainCalculator) Title() string { return "Pain Management Calculator" }

func KgFromLbs(lbs float64) float64 { return lbs * lbsToKg }

func Medications() []Medication { return append([]Medication(nil), medications...) }

// Dose returns the single-dose range for a medication. Weight-based doses
// are capped at the maximum single dose.
func Dose(key string, weightKg float64) (DoseRange, error) {
	for _, m := range medications {
		if m.Key != key {
			continue
		}
		if !m.PerKg {
			return DoseRange{Min: m.MinDose, Max: m.MaxDose, Unit: "mg"}, nil
		}
		if weightKg <= 0 || math.IsNaN(weightKg) {
			return DoseRange{}, fmt.Errorf("weight must be positive, got %v", weightKg)
		}
		return DoseRange{
			Min:  math.Min(weightKg*m.MinDose, acetaminophenMaxDose),
			Max:  math.Min(weightKg*m.MaxDose, acetaminophenMaxDose),
			Unit: "mg",
		}, nil
	}
	return DoseRange{}, fmt.Errorf("unknown medication %q", key)
}

func Recommendation(painScore int) string {
	switch {
	case painScore <= 3:
		return "Consider non-pharmacological methods first"
	case painScore <= 6:
		return "Moderate pain - consider scheduled dosing"
	default:
		return "Severe pain - multimodal approach recommended"
	}
}

func (p *PainCalculator) Render(width int) string {
	lines := []string{
		fmt.Sprintf("Weight %.1f kg  |  Pain score %d/10", p.WeightKg, p.PainScore),
		Recommendation(p.PainScore),
		"",
	}
	for _, m := range medications {
		d, err := Dose(m.Key, p.WeightKg)
		if err != nil {
			lines = append(lines, fmt.Sprintf("%-14s %v", m.Name, err))
			continue
		}
		lines = append(lines,
			fmt.Sprintf("%-14s %4.0f-%-4.0f %s %s (max %.0f mg/day)", m.Name, d.Min, d.Max, d.Unit, m.Frequency, m.MaxDaily),
			"  "+m.Notes,
			"  Avoid with: "+strings.Join(m.Contraindications, ", "),
		)
	}
	return fitLines(lines, width)
}
