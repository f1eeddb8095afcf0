package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/pflag"

	"lessonplay/internal/session"
	"lessonplay/internal/state"
	"lessonplay/internal/ui"
)

type fakeView struct {
	mu      sync.Mutex
	frames  []ui.Frame
	flashes []string
	stopped bool
}

func (f *fakeView) Run() error                  { return nil }
func (f *fakeView) SetController(ui.Controller) {}

func (f *fakeView) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeView) SetFrame(fr ui.Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fr)
}

func (f *fakeView) FlashStatus(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flashes = append(f.flashes, msg)
}

func (f *fakeView) last(t *testing.T) ui.Frame {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		t.Fatalf("expected a frame")
	}
	return f.frames[len(f.frames)-1]
}

func (f *fakeView) lastFlash() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.flashes) == 0 {
		return ""
	}
	return f.flashes[len(f.flashes)-1]
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.CourseDir = filepath.Join("..", "..", "courses", "postpartum")
	cfg.DataDir = t.TempDir()
	cfg.Store.Backend = state.BackendMemory
	cfg.Playback.Backend = "silent"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return cfg
}

func newTestApp(t *testing.T) (*App, *fakeView) {
	t.Helper()
	a, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	v := &fakeView{}
	a.view = v
	t.Cleanup(a.Close)
	return a, v
}

func TestLoadLayersFileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lessonplay.yaml")
	body := "course_dir: custom/course\nstore:\n  backend: file\nplayback:\n  tick_ms: 100\nui:\n  theme: light\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LESSONPLAY_PLAYBACK__SKIP_SECONDS", "15")
	t.Setenv("LESSONPLAY_DATA_DIR", dir)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("store", "", "")
	flags.String("theme", "", "")
	flags.Bool("debug", false, "")
	if err := flags.Parse([]string{"--theme", "dark"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CourseDir != "custom/course" || cfg.Store.Backend != state.BackendFile {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Playback.TickMS != 100 || cfg.Playback.SkipSeconds != 15 {
		t.Fatalf("unexpected playback config: %+v", cfg.Playback)
	}
	if cfg.DataDir != dir {
		t.Fatalf("expected env data dir, got %q", cfg.DataDir)
	}
	if cfg.UI.Theme != state.ThemeDark {
		t.Fatalf("expected flag to override theme, got %q", cfg.UI.Theme)
	}
	if cfg.Debug {
		t.Fatalf("unset flag must not override defaults")
	}
	if !cfg.Activation.RetainConsumed || cfg.Playback.Fallback != "silent" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv("LESSONPLAY_DATA_DIR", t.TempDir())
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Backend != state.BackendSQLite || cfg.Playback.Backend != "auto" || cfg.Playback.TickMS != 250 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"store", func(c *Config) { c.Store.Backend = "redis" }},
		{"playback", func(c *Config) { c.Playback.Backend = "vlc" }},
		{"fallback", func(c *Config) { c.Playback.Fallback = "beep" }},
		{"theme", func(c *Config) { c.UI.Theme = "sepia" }},
		{"motion", func(c *Config) { c.UI.Motion = "slow" }},
		{"window", func(c *Config) { c.Activation.DefaultWindowSeconds = -1 }},
		{"course", func(c *Config) { c.CourseDir = " " }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DataDir = t.TempDir()
			tc.mut(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidateNormalizes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Store.Backend = " SQLite "
	cfg.Playback.Backend = ""
	cfg.Playback.TickMS = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Store.Backend != state.BackendSQLite || cfg.Playback.Backend != "auto" || cfg.Playback.TickMS != 250 {
		t.Fatalf("unexpected normalization: %+v", cfg)
	}
}

func TestLessonNavigationAndTransport(t *testing.T) {
	a, v := newTestApp(t)

	a.OnSelectLesson("immediate-maternal")
	f := v.last(t)
	if f.LessonID != "immediate-maternal" || f.CourseTitle != "The Postpartum Process" {
		t.Fatalf("unexpected frame: %+v", f)
	}
	if f.Duration != 720 || !strings.Contains(f.ContentMD, "#") {
		t.Fatalf("expected lesson duration and content, got %v %q", f.Duration, f.ContentMD)
	}

	a.OnSkip(1)
	if got := v.last(t).Time; got != 10 {
		t.Fatalf("expected skip to 10s, got %v", got)
	}
	a.OnBookmark()
	if got := v.lastFlash(); got != "Bookmarked at 0:10" {
		t.Fatalf("unexpected flash %q", got)
	}
	if bms := v.last(t).Bookmarks; len(bms) != 1 || bms[0].At != 10 {
		t.Fatalf("expected bookmark in frame, got %+v", bms)
	}

	a.OnRate(1)
	if got := v.last(t).Rate; got != 1.25 {
		t.Fatalf("expected 1.25x, got %v", got)
	}
	a.OnVolume(-1)
	if got := v.lastFlash(); got != "Volume 90%" {
		t.Fatalf("unexpected flash %q", got)
	}

	a.OnLesson(-1)
	if got := v.last(t).LessonID; got != "introduction" {
		t.Fatalf("expected introduction, got %q", got)
	}
	a.OnLesson(-1)
	if got := v.lastFlash(); got != "Already at the first lesson" {
		t.Fatalf("unexpected flash %q", got)
	}

	a.OnSelectLesson("missing")
	if got := v.lastFlash(); !strings.Contains(got, "missing") {
		t.Fatalf("expected not-found flash, got %q", got)
	}
}

func TestAnsweringShowsResultAndScores(t *testing.T) {
	a, v := newTestApp(t)
	a.OnSelectLesson("immediate-maternal")

	a.OnAnswer(0)
	if got := v.lastFlash(); got == "" {
		t.Fatalf("expected inactive prompt flash")
	}

	if err := a.session.Seek(300); err != nil {
		t.Fatalf("seek: %v", err)
	}
	a.push()
	if ps := v.last(t).Prompts; len(ps) != 1 || len(ps[0].Options) != 4 {
		t.Fatalf("expected active prompt, got %+v", ps)
	}

	a.OnAnswer(1)
	f := v.last(t)
	if f.Result == nil || !f.Result.Correct {
		t.Fatalf("expected correct result, got %+v", f.Result)
	}
	if len(f.Prompts) != 0 {
		t.Fatalf("answered prompt must leave the active set, got %+v", f.Prompts)
	}
	var found bool
	for _, s := range f.Scores {
		if s.LessonID == "immediate-maternal" {
			found = true
			if s.Answered != 1 || s.Correct != 1 || s.Title == "" {
				t.Fatalf("unexpected score row %+v", s)
			}
		}
	}
	if !found {
		t.Fatalf("expected score row for lesson")
	}

	a.OnDismissResult()
	if v.last(t).Result != nil {
		t.Fatalf("expected result dismissed")
	}
}

func TestThemeToggleAndQuit(t *testing.T) {
	a, v := newTestApp(t)
	a.OnSelectLesson("introduction")
	a.OnToggleTheme()
	if got := v.last(t).Theme; got != state.ThemeDark {
		t.Fatalf("expected dark theme, got %q", got)
	}
	a.OnQuit()
	if !v.stopped {
		t.Fatalf("expected view stopped")
	}
}

func TestDescribeEvents(t *testing.T) {
	a, _ := newTestApp(t)
	if got := a.describe(session.Event{Kind: session.EventCompleted}); got != "Lesson complete!" {
		t.Fatalf("unexpected completion text %q", got)
	}
	if got := a.describe(session.Event{
		Kind:     session.EventActivated,
		LessonID: "immediate-maternal",
		IDs:      nil,
	}); got != "" {
		t.Fatalf("expected no text without ids, got %q", got)
	}
	if got := a.describe(session.Event{Kind: session.EventDegraded, Message: "no device"}); !strings.Contains(got, "no device") {
		t.Fatalf("unexpected degraded text %q", got)
	}
}
