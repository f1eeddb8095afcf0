package components

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Card is a static reference unit: a short summary followed by titled
// bullet groups.
type Card struct {
	name    string
	title   string
	Summary string
	Groups  []Group
}

type Group struct {
	Title string
	Items []string
}

func NewCard(name, title, summary string, groups ...Group) *Card {
	return &Card{name: name, title: title, Summary: summary, Groups: groups}
}

func (c *Card) Name() string  { return c.name }
func (c *Card) Title() string { return c.title }

func (c *Card) Render(width int) string {
	var lines []string
	if c.Summary != "" {
		lines = append(lines, wrapText(c.Summary, width)...)
	}
	for _, g := range c.Groups {
		lines = append(lines, "", g.Title)
		for _, item := range g.Items {
			lines = append(lines, "  • "+item)
		}
	}
	return fitLines(lines, width)
}

type contraceptiveMethod struct {
	Name          string
	Typical       float64
	Duration      string
	Breastfeeding string
}

var contraceptiveMethods = []contraceptiveMethod{
	{"Implant (Nexplanon)", 99.95, "3 years", "Safe"},
	{"Copper IUD", 99.2, "10-12 years", "Safe"},
	{"Hormonal IUD (Mirena/Skyla)", 99.8, "3-7 years", "Safe"},
	{"Sterilization", 99.5, "Permanent", "Safe"},
	{"Depo-Provera Injection", 94, "3 months", "Safe"},
	{"Mini-Pill (POP)", 91, "Daily", "Preferred"},
	{"Combined Pill", 91, "Daily", "Not recommended"},
	{"Patch", 91, "Weekly", "Not recommended"},
	{"Vaginal Ring", 91, "Monthly", "Not recommended"},
	{"Male Condom", 82, "Each use", "Safe"},
	{"LAM (Lactational Amenorrhea)", 95, "Up to 6 months", "Required"},
	{"Withdrawal", 78, "Each use", "Safe"},
}

type methodChart struct {
	name string
}

func contraceptionChart(name string) *methodChart { return &methodChart{name: name} }

func (m *methodChart) Name() string  { return m.name }
func (m *methodChart) Title() string { return "Contraception Effectiveness Chart" }

// Render lists methods by typical-use effectiveness, highest first.
func (m *methodChart) Render(width int) string {
	sorted := slices.Clone(contraceptiveMethods)
	slices.SortStableFunc(sorted, func(a, b contraceptiveMethod) int {
		return cmp.Compare(b.Typical, a.Typical)
	})
	lines := []string{fmt.Sprintf("%-30s %7s  %-14s %s", "Method", "Typical", "Duration", "Breastfeeding")}
	for _, c := range sorted {
		lines = append(lines, fmt.Sprintf("%-30s %6.2f%%  %-14s %s", c.Name, c.Typical, c.Duration, c.Breastfeeding))
	}
	return fitLines(lines, width)
}

func breastfeedingPositions() *Card {
	return NewCard("BreastfeedingPositionGuide", "Breastfeeding Position Guide",
		"Try positions until one gives a comfortable, deep latch.",
		Group{Title: "Cradle Hold", Items: []string{"Baby's head in the crook of your elbow, tummy to tummy", "Good for full-term babies; harder after C-section"}},
		Group{Title: "Cross-Cradle Hold", Items: []string{"Opposite arm supports baby, hand guides the head", "Better latch control; good for premature babies"}},
		Group{Title: "Football Hold", Items: []string{"Baby tucked under the arm on the same side", "Good after C-section; best view of the latch"}},
		Group{Title: "Side-Lying Position", Items: []string{"Mother and baby lie facing each other", "Restful for night feeds; harder to see the latch"}},
		Group{Title: "Laid-Back Position", Items: []string{"Recline at 45 degrees, baby tummy-down on chest", "Triggers feeding reflexes; may need practice"}},
	)
}

func referenceCards() []Component {
	return []Component{
		NewCard("PostpartumAssessment", "Postpartum Assessment (BUBBLE-LE)",
			"Systematic maternal assessment performed with each set of vital signs.",
			Group{Title: "Check", Items: []string{
				"Breasts: soft, filling, nipple integrity",
				"Uterus: firm, midline, at or below umbilicus",
				"Bladder: voiding within 4-6 hours, no distention",
				"Bowel: bowel sounds, flatus, stool softener",
				"Lochia: rubra, moderate, no large clots",
				"Episiotomy/perineum: REEDA scale",
				"Lower extremities: DVT signs",
				"Emotions: bonding, mood",
			}},
		),
		NewCard("MaternalAdaptationQuiz", "Maternal Adaptation Review",
			"Key maternal milestones of the extended postpartum period.",
			Group{Title: "Milestones", Items: []string{
				"Fundus non-palpable by 10-14 days",
				"Lochia rubra 1-3 days, serosa 4-10 days, alba up to 6 weeks",
				"Menses return at 6-10 weeks if not lactating",
				"Edinburgh score 13 or higher needs mental health referral",
			}},
		),
		NewCard("InvolutionSimulator", "Uterine Involution",
			"The fundus descends about 1 cm per day after delivery.",
			Group{Title: "Fundal height", Items: []string{
				"Day 0: at the umbilicus",
				"Day 1: 1 cm above to at the umbilicus",
				"Day 3: 2-3 cm below the umbilicus",
				"Day 7: midway to the symphysis",
				"Day 10-14: non-palpable",
			}},
		),
		NewCard("LactationStagesExplorer", "Lactation Stages",
			"Milk composition changes over the first two weeks.",
			Group{Title: "Stages", Items: []string{
				"Colostrum (0-3 days): high protein and antibodies, small volume",
				"Transitional milk (3-14 days): rising volume, fat and lactose",
				"Mature milk (14+ days): foremilk then hindmilk each feed",
			}},
		),
		NewCard("FeedingMethodComparison", "Feeding Method Comparison",
			"Compare breast milk, expressed milk and formula.",
			Group{Title: "Breastfeeding", Items: []string{"Antibodies and adaptive composition", "Reduces maternal bleeding via oxytocin"}},
			Group{Title: "Expressed milk", Items: []string{"Shared feeding", "Requires pump and storage"}},
			Group{Title: "Formula", Items: []string{"Measurable intake", "Preparation and cost"}},
		),
		NewCard("BreastfeedingTroubleshooter", "Breastfeeding Troubleshooter",
			"Common problems and first-line responses.",
			Group{Title: "Problems", Items: []string{
				"Sore nipples: check latch depth, vary positions",
				"Engorgement: frequent feeds, cold compresses after feeding",
				"Low supply: feed 8-12 times per day, skin-to-skin",
				"Mastitis: keep feeding, rest, seek care for fever",
			}},
		),
		NewCard("ContraceptionSelector", "Contraception Selector",
			"Match methods to breastfeeding status and timing.",
			Group{Title: "Breastfeeding", Items: []string{"Progestin-only methods and IUDs are safe", "LAM requires exclusive feeding and amenorrhea"}},
			Group{Title: "Not breastfeeding", Items: []string{"Combined methods from 6 weeks", "All long-acting methods available"}},
		),
		NewCard("BallardScoreAssessment", "Ballard Score",
			"Neuromuscular and physical maturity estimate gestational age.",
			Group{Title: "Neuromuscular", Items: []string{"Posture", "Square window", "Arm recoil", "Popliteal angle", "Scarf sign", "Heel to ear"}},
			Group{Title: "Physical", Items: []string{"Skin", "Lanugo", "Plantar surface", "Breast", "Eye/ear", "Genitals"}},
		),
		NewCard("NewbornCareProtocols", "Newborn Care Protocols",
			"Evidence-based routine care in the first days.",
			Group{Title: "Protocols", Items: []string{
				"Vitamin K within 1 hour of birth",
				"Erythromycin eye prophylaxis",
				"Hepatitis B vaccine before discharge",
				"Metabolic screening at 24-48 hours",
				"Safe sleep: back to sleep, firm surface",
			}},
		),
		NewCard("NewbornTransitionSimulator", "Newborn Transition",
			"Breathing and circulation change within minutes of birth.",
			Group{Title: "Stimuli for first breath", Items: []string{"Chemical: falling O2, rising CO2", "Mechanical: thoracic recoil", "Thermal: temperature drop", "Sensory: light, sound, touch"}},
		),
		fetalCirculation("SimpleFetalCirculation", "Fetal Shunt Closure"),
		fetalCirculation("FetalCirculationDiagram", "Fetal Circulation Pathways"),
	}
}

func fetalCirculation(name, title string) *Card {
	return NewCard(name, title,
		strings.Join([]string{
			"Three shunts bypass the liver and lungs before birth.",
			"Each closes on its own trigger after delivery.",
		}, " "),
		Group{Title: "Ductus venosus", Items: []string{"Umbilical vein to IVC", "Closes at cord clamping"}},
		Group{Title: "Foramen ovale", Items: []string{"Right to left atrium", "Closes over hours to days as left atrial pressure rises"}},
		Group{Title: "Ductus arteriosus", Items: []string{"Pulmonary artery to aorta", "Closes in 15-24 hours; transient murmur is normal"}},
	)
}
