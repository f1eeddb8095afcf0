package components

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

type Registry struct {
	byName map[string]Component
}

func NewRegistry(items ...Component) (*Registry, error) {
	r := &Registry{byName: map[string]Component{}}
	for _, c := range items {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(c Component) error {
	name := strings.TrimSpace(c.Name())
	if name == "" {
		return fmt.Errorf("component name is required")
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("duplicate component %q", name)
	}
	r.byName[name] = c
	return nil
}

func (r *Registry) Lookup(name string) (Component, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.byName[name]
	return c, ok
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Builtin returns the registry shipped with the player.
func Builtin() *Registry {
	items := []Component{
		NewPainCalculator(),
		NewAPGARCalculator(),
		NewbornChecklist(),
		contraceptionChart("ContraceptionEffectivenessChart"),
		contraceptionChart("MethodEffectivenessChart"),
		breastfeedingPositions(),
	}
	items = append(items, referenceCards()...)
	r, err := NewRegistry(items...)
	if err != nil {
		panic(err)
	}
	return r
}

func fitLines(lines []string, width int) string {
	if width > 0 {
		for i, line := range lines {
			if ansi.StringWidth(line) > width {
				lines[i] = ansi.Truncate(line, width, "…")
			}
		}
	}
	return strings.Join(lines, "\n")
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	var out []string
	for _, para := range strings.Split(ansi.Wordwrap(text, width, ""), "\n") {
		out = append(out, strings.TrimRight(para, " "))
	}
	return out
}
