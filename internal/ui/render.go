package ui

import (
	"fmt"
	"math"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"

	"lessonplay/internal/catalog"
)

const maxComponentLines = 14

func sidebarWidth(cols int) int {
	return min(36, max(28, cols/4))
}

func (r *Root) render() string {
	w, h := r.cols, r.rows
	r.layout = DetermineLayoutMode(w, h)
	if r.layout == LayoutTooSmall {
		msg := []string{
			"Terminal too small",
			fmt.Sprintf("Current: %dx%d", w, h),
			"Minimum: 60x18",
		}
		panel := r.drawPanel("Resize Required", msg, min(40, w), min(7, h))
		return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, panel)
	}

	header := r.headerText()
	transport := r.transportText()
	status := r.statusText()
	bodyH := max(3, h-3)

	clear(r.sidebarRows)
	var body string
	if r.layout == LayoutWide {
		sideW := sidebarWidth(w)
		side := r.drawPanel("Lessons", r.sidebarLines(sideW-2, 2), sideW, bodyH)
		main := r.renderMain(w-sideW, bodyH)
		body = lipgloss.JoinHorizontal(lipgloss.Top, side, main)
	} else {
		body = r.renderMain(w, bodyH)
	}
	return header + "\n" + body + "\n" + transport + "\n" + status
}

func (r *Root) headerText() string {
	width := max(1, r.cols-2)
	parts := []string{"lessonplay"}
	if r.frame.CourseTitle != "" {
		parts = append(parts, r.frame.CourseTitle)
	}
	if r.frame.LessonTitle != "" {
		parts = append(parts, r.frame.LessonTitle)
	}
	parts = append(parts, fmt.Sprintf("%d%% complete", r.frame.Overall))
	txt := strings.Join(parts, " | ")
	if r.debug {
		txt = fmt.Sprintf("%s | %dx%d", txt, r.cols, r.rows)
	}
	return r.theme.Header.Width(max(1, r.cols)).Render(trimForWidth(txt, width))
}

func (r *Root) statusText() string {
	txt := r.help.View(r.keymap)
	if r.statusFlash != "" {
		txt = r.statusFlash + " | " + txt
	}
	return r.theme.Status.Width(max(1, r.cols)).Render(trimForWidth(txt, max(1, r.cols-2)))
}

func (r *Root) transportText() string {
	f := r.frame
	state := "⏸"
	if r.ascii {
		state = "||"
	}
	if f.Playing {
		state = "▶ " + strings.TrimSpace(r.spin.View())
		if r.ascii {
			state = ">"
		}
	}
	clock := fmt.Sprintf("%s / %s", catalog.FormatClock(f.Time), catalog.FormatClock(f.Duration))
	tail := fmt.Sprintf("%gx  vol %d%%", rateOrOne(f.Rate), int(math.Round(f.Volume*100)))
	if f.Degraded != "" {
		tail += "  ! audio unavailable"
	}
	barW := max(8, r.cols-ansi.StringWidth(state)-len(clock)-len(tail)-8)
	fraction := 0.0
	if f.Duration > 0 {
		fraction = f.Time / f.Duration
	}
	line := fmt.Sprintf(" %s %s %s %s", state, clock, r.progressBar(barW, fraction), tail)
	return padCell(line, r.cols)
}

func rateOrOne(r float64) float64 {
	if r <= 0 {
		return 1
	}
	return r
}

func (r *Root) progressBar(width int, fraction float64) string {
	fraction = math.Max(0, math.Min(1, fraction))
	if r.ascii {
		filled := int(math.Round(fraction * float64(width-2)))
		return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-2-filled) + "]"
	}
	m := r.bar
	m.SetWidth(max(4, width))
	return m.ViewAs(fraction)
}

// sidebarLines lists lessons with completion marks and records which
// screen row each lesson occupies. originY is the first row inside the
// panel.
func (r *Root) sidebarLines(width, originY int) []string {
	done, todo := "✓", "○"
	if r.ascii {
		done, todo = "x", "o"
	}
	var lines []string
	for i, l := range r.frame.Lessons {
		mark := r.theme.Muted.Render(todo)
		if l.Completed {
			mark = r.theme.Pass.Render(done)
		}
		title := trimForWidth(fmt.Sprintf("%d. %s", i+1, l.Title), width-2)
		if l.Current {
			title = r.theme.Current.Render(title)
		}
		r.sidebarRows[originY+len(lines)] = l.LessonID
		lines = append(lines, mark+" "+title)
		if l.Percent > 0 && !l.Completed {
			r.sidebarRows[originY+len(lines)] = l.LessonID
			lines = append(lines, "  "+r.progressBar(width-8, float64(l.Percent)/100)+fmt.Sprintf(" %d%%", l.Percent))
		}
	}
	lines = append(lines, "", r.theme.PanelTitle.Render("Overall progress"))
	lines = append(lines, r.progressBar(width-6, float64(r.frame.Overall)/100)+fmt.Sprintf(" %d%%", r.frame.Overall))
	if n := len(r.frame.Bookmarks); n > 0 {
		lines = append(lines, "", r.theme.PanelTitle.Render(fmt.Sprintf("Bookmarks (%d)", n)))
		for _, b := range r.frame.Bookmarks {
			note := b.Note
			if note == "" {
				note = "(no note)"
			}
			lines = append(lines, trimForWidth(catalog.FormatClock(b.At)+"  "+note, width))
		}
	}
	return lines
}

func (r *Root) renderMain(width, height int) string {
	inner := max(1, width-2)
	active := r.activeLines(inner)
	if len(active) == 0 {
		return r.drawPanel(r.contentTitle(), r.contentLines(inner, height-2), width, height)
	}
	activeH := min(len(active)+2, max(5, height*3/5))
	contentH := height - activeH
	if contentH < 3 {
		return r.drawPanel("Now", active, width, height)
	}
	content := r.drawPanel(r.contentTitle(), r.contentLines(inner, contentH-2), width, contentH)
	return content + "\n" + r.drawPanel("Now", active, width, activeH)
}

func (r *Root) contentTitle() string {
	if r.frame.LessonTitle == "" {
		return "Lesson"
	}
	return r.frame.LessonTitle
}

// activeLines renders the answer feedback, active prompts and active
// component panels in that order.
func (r *Root) activeLines(width int) []string {
	var out []string
	if res := r.frame.Result; res != nil {
		style := r.theme.Fail
		if res.Correct {
			style = r.theme.Pass
		}
		for _, line := range wrap(res.Feedback, width) {
			out = append(out, style.Render(line))
		}
		out = append(out, r.theme.Muted.Render("esc to dismiss"), "")
	}
	for _, p := range r.frame.Prompts {
		out = append(out, r.theme.Accent.Render("Question"))
		out = append(out, wrap(p.Question, width)...)
		for i, opt := range p.Options {
			out = append(out, wrap(fmt.Sprintf("  %d. %s", i+1, opt), width)...)
		}
		out = append(out, r.theme.Muted.Render(fmt.Sprintf("press 1-%d to answer", len(p.Options))), "")
	}
	for _, c := range r.frame.Components {
		title := c.Name
		body := ""
		if r.components != nil {
			if comp, ok := r.components.Lookup(c.Name); ok {
				title = comp.Title()
				body = comp.Render(width)
			}
		}
		window := fmt.Sprintf(" %s-%s", catalog.FormatClock(c.At), catalog.FormatClock(c.End))
		out = append(out, r.theme.PanelTitle.Render(title)+r.theme.Muted.Render(window))
		if c.Description != "" {
			out = append(out, r.theme.Muted.Render(trimForWidth(c.Description, width)))
		}
		lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
		if len(lines) > maxComponentLines {
			lines = append(lines[:maxComponentLines-1], r.theme.Muted.Render("…"))
		}
		out = append(out, lines...)
		out = append(out, "")
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func (r *Root) contentLines(width, height int) []string {
	key := fmt.Sprintf("%s|%d|%s", r.frame.LessonID, width, r.theme.Name)
	if key != r.mdKey {
		r.mdKey = key
		r.mdLines = r.renderMarkdown(r.frame.ContentMD, width)
	}
	lines := r.mdLines
	maxScroll := max(0, len(lines)-height)
	if r.scroll > maxScroll {
		r.scroll = maxScroll
	}
	return lines[r.scroll:]
}

func (r *Root) renderMarkdown(md string, width int) []string {
	if strings.TrimSpace(md) == "" {
		return []string{r.theme.Muted.Render("No written content for this lesson.")}
	}
	renderer, ok := r.markdown[width]
	if !ok {
		var err error
		renderer, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.theme.Markdown),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			r.logger.Warn("ui.markdown_renderer", "error", err)
			renderer = nil
		}
		r.markdown[width] = renderer
	}
	if renderer != nil {
		if out, err := renderer.Render(md); err == nil {
			return strings.Split(strings.Trim(out, "\n"), "\n")
		}
	}
	return wrap(md, width)
}

func (r *Root) renderOverlay() string {
	var title string
	var lines []string
	switch r.topOverlay() {
	case "help":
		title = "Keys"
		lines = r.helpLines()
	case "dashboard":
		title = "Progress dashboard"
		lines = r.dashboardLines()
	default:
		return ""
	}
	// The overlay grows into place as the spring settles.
	shown := int(math.Ceil(float64(len(lines)) * math.Max(0, math.Min(1, r.overlayPos))))
	if r.motion == "off" {
		shown = len(lines)
	}
	body := r.theme.OverlayTitle.Render(title) + "\n\n" + strings.Join(lines[:shown], "\n")
	return r.theme.Overlay.Render(body)
}

func (r *Root) helpLines() []string {
	var out []string
	for _, group := range r.keymap.FullHelp() {
		for _, b := range group {
			h := b.Help()
			out = append(out, fmt.Sprintf("%-7s %s", h.Key, h.Desc))
		}
	}
	return append(out, "", "esc closes this window")
}

func (r *Root) dashboardLines() []string {
	out := []string{fmt.Sprintf("Overall: %d%% of lessons complete", r.frame.Overall), ""}
	titleW := 0
	for _, s := range r.frame.Scores {
		titleW = max(titleW, len([]rune(s.Title)))
	}
	titleW = min(titleW, 40)
	for _, s := range r.frame.Scores {
		quiz := "no questions"
		if s.Prompts > 0 {
			quiz = fmt.Sprintf("%d/%d answered, %d correct (%d%%)", s.Answered, s.Prompts, s.Correct, s.Percent)
		}
		out = append(out, fmt.Sprintf("%s  %s", padCell(trimForWidth(s.Title, titleW), titleW), quiz))
	}
	return append(out, "", "esc closes this window")
}

func (r *Root) drawPanel(title string, lines []string, width, height int) string {
	width = max(4, width)
	height = max(3, height)
	innerW := width - 2
	innerH := height - 2

	h := "─"
	v := "│"
	tl := "┌"
	tr := "┐"
	bl := "└"
	br := "┘"
	if r.ascii {
		h = "-"
		v = "|"
		tl, tr, bl, br = "+", "+", "+", "+"
	}

	top := tl + strings.Repeat(h, innerW) + tr
	if title != "" && innerW > 2 {
		t := " " + trimForWidth(title, innerW-2) + " "
		runes := []rune(top)
		for i, ch := range []rune(t) {
			pos := 1 + i
			if pos >= len(runes)-1 {
				break
			}
			runes[pos] = ch
		}
		top = string(runes)
	}

	out := make([]string, 0, height)
	out = append(out, r.theme.PanelBorder.Render(top))
	for row := 0; row < innerH; row++ {
		line := ""
		if row < len(lines) {
			line = lines[row]
		}
		out = append(out, r.theme.PanelBorder.Render(v)+r.theme.PanelBody.Render(padCell(line, innerW))+r.theme.PanelBorder.Render(v))
	}
	out = append(out, r.theme.PanelBorder.Render(bl+strings.Repeat(h, innerW)+br))
	return strings.Join(out, "\n")
}

// padCell truncates or pads s to exactly width terminal cells, keeping
// escape sequences intact.
func padCell(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(s) > width {
		s = ansi.Truncate(s, width, "…")
	}
	if pad := width - ansi.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func wrap(text string, width int) []string {
	if width <= 0 {
		return nil
	}
	return strings.Split(ansi.Wordwrap(strings.TrimSpace(text), width, ""), "\n")
}

func padRune(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}

func composeOverlay(base, overlay string, cols, rows int) string {
	if cols <= 0 || rows <= 0 {
		return base
	}
	base = ansi.Strip(base)
	overlay = ansi.Strip(overlay)
	baseLines := strings.Split(base, "\n")
	if len(baseLines) < rows {
		baseLines = append(baseLines, make([]string, rows-len(baseLines))...)
	}
	for i := 0; i < rows; i++ {
		baseLines[i] = padRune(baseLines[i], cols)
	}

	overlayLines := strings.Split(strings.TrimRight(overlay, "\n"), "\n")
	ow := 1
	for _, line := range overlayLines {
		ow = max(ow, len([]rune(line)))
	}
	ow = min(ow, cols)
	oh := min(len(overlayLines), rows)
	startRow := (rows - oh) / 2
	startCol := max(0, (cols-ow)/2)

	for i := 0; i < oh; i++ {
		row := startRow + i
		dst := []rune(baseLines[row])
		src := []rune(overlayLines[i])
		if len(src) > ow {
			src = src[:ow]
		}
		for j := 0; j < ow && startCol+j < len(dst); j++ {
			dst[startCol+j] = ' '
		}
		for j := 0; j < len(src) && startCol+j < len(dst); j++ {
			dst[startCol+j] = src[j]
		}
		baseLines[row] = string(dst)
	}
	return strings.Join(baseLines[:rows], "\n")
}

func trimForWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(strings.ReplaceAll(ansi.Strip(s), "\n", " "))
	if len(r) <= width {
		return string(r)
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
