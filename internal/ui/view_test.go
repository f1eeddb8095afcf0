package ui

import (
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"

	"lessonplay/internal/components"
)

type call struct {
	name string
	arg  int
	id   string
}

type mockController struct {
	calls chan call
}

func newMockController() *mockController {
	return &mockController{calls: make(chan call, 16)}
}

func (m *mockController) OnTogglePlay()            { m.calls <- call{name: "play"} }
func (m *mockController) OnSkip(d int)             { m.calls <- call{name: "skip", arg: d} }
func (m *mockController) OnVolume(d int)           { m.calls <- call{name: "volume", arg: d} }
func (m *mockController) OnRate(d int)             { m.calls <- call{name: "rate", arg: d} }
func (m *mockController) OnBookmark()              { m.calls <- call{name: "bookmark"} }
func (m *mockController) OnAnswer(option int)      { m.calls <- call{name: "answer", arg: option} }
func (m *mockController) OnDismissResult()         { m.calls <- call{name: "dismiss"} }
func (m *mockController) OnLesson(d int)           { m.calls <- call{name: "lesson", arg: d} }
func (m *mockController) OnSelectLesson(id string) { m.calls <- call{name: "select", id: id} }
func (m *mockController) OnToggleTheme()           { m.calls <- call{name: "theme"} }
func (m *mockController) OnQuit()                  { m.calls <- call{name: "quit"} }

func (m *mockController) next(t *testing.T) call {
	t.Helper()
	select {
	case c := <-m.calls:
		return c
	case <-time.After(time.Second):
		t.Fatalf("expected a controller call")
		return call{}
	}
}

func (m *mockController) none(t *testing.T) {
	t.Helper()
	select {
	case c := <-m.calls:
		t.Fatalf("unexpected controller call %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func press(v *Root, code rune, text string) {
	_, _ = v.Update(tea.KeyPressMsg{Code: code, Text: text})
}

func sampleFrame() Frame {
	return Frame{
		CourseTitle: "Postpartum Care",
		LessonID:    "maternal",
		LessonTitle: "Immediate Maternal Care",
		ContentMD:   "# Assessment\n\nCheck the fundus every 15 minutes.\n",
		Time:        480,
		Duration:    720,
		Rate:        1,
		Volume:      1,
		Prompts: []PromptCard{{
			ID:       "q1",
			Question: "What is normal blood loss?",
			Options:  []string{"100-200 mL", "300-500 mL", "800-1000 mL"},
		}},
		Components: []ComponentPanel{{ID: "c1", Name: "APGARCalculator", At: 300, End: 600}},
		Lessons: []LessonItem{
			{LessonID: "intro", Title: "Introduction", Completed: true, Percent: 100},
			{LessonID: "maternal", Title: "Immediate Maternal Care", Percent: 66, Current: true},
		},
		Overall: 50,
	}
}

func newTestRoot(t *testing.T) (*Root, *mockController) {
	t.Helper()
	v := New(Options{Components: components.Builtin(), Motion: "off"})
	ctrl := newMockController()
	v.SetController(ctrl)
	v.SetFrame(sampleFrame())
	_, _ = v.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return v, ctrl
}

func TestTransportKeysDispatch(t *testing.T) {
	v, ctrl := newTestRoot(t)
	tests := []struct {
		code rune
		text string
		want call
	}{
		{tea.KeySpace, " ", call{name: "play"}},
		{tea.KeyLeft, "", call{name: "skip", arg: -1}},
		{tea.KeyRight, "", call{name: "skip", arg: 1}},
		{tea.KeyUp, "", call{name: "volume", arg: 1}},
		{'[', "[", call{name: "rate", arg: -1}},
		{']', "]", call{name: "rate", arg: 1}},
		{'b', "b", call{name: "bookmark"}},
		{'n', "n", call{name: "lesson", arg: 1}},
		{'p', "p", call{name: "lesson", arg: -1}},
		{'t', "t", call{name: "theme"}},
		{'q', "q", call{name: "quit"}},
	}
	for _, tc := range tests {
		press(v, tc.code, tc.text)
		if got := ctrl.next(t); got != tc.want {
			t.Fatalf("key %q: expected %+v, got %+v", tc.code, tc.want, got)
		}
	}
}

func TestDigitAnswersActivePrompt(t *testing.T) {
	v, ctrl := newTestRoot(t)
	press(v, '2', "2")
	if got := ctrl.next(t); got.name != "answer" || got.arg != 1 {
		t.Fatalf("expected answer option 1, got %+v", got)
	}
	press(v, '7', "7")
	ctrl.none(t)
	if !strings.Contains(v.statusFlash, "1-3") {
		t.Fatalf("expected range hint, got %q", v.statusFlash)
	}
}

func TestDigitWithoutPromptFlashes(t *testing.T) {
	v, ctrl := newTestRoot(t)
	f := sampleFrame()
	f.Prompts = nil
	v.SetFrame(f)
	press(v, '1', "1")
	ctrl.none(t)
	if v.statusFlash == "" {
		t.Fatalf("expected status flash")
	}
}

func TestOverlayBlocksTransportKeys(t *testing.T) {
	v, ctrl := newTestRoot(t)
	press(v, '?', "?")
	if !v.helpOpen {
		t.Fatalf("expected help overlay")
	}
	press(v, tea.KeySpace, " ")
	ctrl.none(t)
	press(v, tea.KeyEsc, "")
	if v.helpOpen {
		t.Fatalf("expected esc to close help")
	}
	press(v, 'd', "d")
	if !v.dashboardOpen {
		t.Fatalf("expected dashboard overlay")
	}
}

func TestRenderShowsActiveContent(t *testing.T) {
	v, _ := newTestRoot(t)
	out := ansi.Strip(v.render())
	for _, want := range []string{
		"Immediate Maternal Care",
		"What is normal blood loss?",
		"2. 300-500 mL",
		"APGAR Calculator",
		"8:00 / 12:00",
		"50% complete",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in render:\n%s", want, out)
		}
	}
}

func TestRenderDashboardOverlay(t *testing.T) {
	v, _ := newTestRoot(t)
	f := sampleFrame()
	f.Scores = []ScoreRow{{LessonID: "maternal", Title: "Immediate Maternal Care", Prompts: 2, Answered: 1, Correct: 1, Percent: 100}}
	v.SetFrame(f)
	press(v, 'd', "d")
	overlay := ansi.Strip(v.renderOverlay())
	if !strings.Contains(overlay, "1/2 answered, 1 correct (100%)") {
		t.Fatalf("unexpected dashboard:\n%s", overlay)
	}
}

func TestSidebarClickSelectsLesson(t *testing.T) {
	v, ctrl := newTestRoot(t)
	_ = v.render()
	_, _ = v.Update(tea.MouseClickMsg{X: 3, Y: 2, Button: tea.MouseLeft})
	if got := ctrl.next(t); got.name != "select" || got.id != "intro" {
		t.Fatalf("expected intro selected, got %+v", got)
	}
}

func TestTooSmall(t *testing.T) {
	v, _ := newTestRoot(t)
	_, _ = v.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	if out := ansi.Strip(v.render()); !strings.Contains(out, "Terminal too small") {
		t.Fatalf("expected resize notice, got:\n%s", out)
	}
}

func TestFrameThemeSwitchesStyles(t *testing.T) {
	v, _ := newTestRoot(t)
	f := sampleFrame()
	f.Theme = "dark"
	v.SetFrame(f)
	if v.theme.Name != "dark" {
		t.Fatalf("expected dark theme, got %q", v.theme.Name)
	}
}

func TestViewImplementsInterface(t *testing.T) {
	var _ View = New(Options{})
}
