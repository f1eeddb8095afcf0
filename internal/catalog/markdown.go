package catalog

import "strings"

// Markdown renders the lesson content for the shell's markdown renderer.
func (c Content) Markdown() string {
	var b strings.Builder
	if c.Title != "" {
		b.WriteString("# " + c.Title + "\n\n")
	}
	for _, s := range c.Sections {
		b.WriteString("## " + s.Heading + "\n\n")
		for _, p := range s.Paragraphs {
			b.WriteString(strings.TrimSpace(p) + "\n\n")
		}
		if s.Table != nil && len(s.Table.Headers) > 0 {
			writeTable(&b, *s.Table)
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeTable(b *strings.Builder, t Table) {
	row := func(cells []string) {
		b.WriteString("|")
		for i := range t.Headers {
			cell := ""
			if i < len(cells) {
				cell = strings.ReplaceAll(cells[i], "|", `\|`)
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}
	row(t.Headers)
	b.WriteString("|" + strings.Repeat(" --- |", len(t.Headers)) + "\n")
	for _, r := range t.Rows {
		row(r)
	}
	b.WriteString("\n")
}
