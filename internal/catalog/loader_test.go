package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"lessonplay/internal/activation"
	"lessonplay/internal/components"
)

func TestBuiltinCourseLoadsExpectedLessons(t *testing.T) {
	loader := NewLoader(components.Builtin())
	course, err := loader.LoadCourse(context.Background(), filepath.Join("..", "..", "courses", "postpartum"))
	if err != nil {
		t.Fatalf("load course: %v", err)
	}
	want := []string{
		"introduction",
		"immediate-maternal",
		"immediate-neonatal",
		"early-postpartum",
		"extended-postpartum",
		"breastfeeding-support",
		"newborn-assessment",
	}
	got := course.LessonIDs()
	if len(got) != len(want) {
		t.Fatalf("expected %d lessons, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("lesson order mismatch at %d: got %q want %q", i, got[i], want[i])
		}
	}

	lesson, err := loader.FindLesson(course, "immediate-maternal")
	if err != nil {
		t.Fatalf("find lesson: %v", err)
	}
	if lesson.Timeline.Duration != 720 {
		t.Fatalf("expected 720s duration, got %v", lesson.Timeline.Duration)
	}
	b, ok := lesson.Timeline.Find("prompt@480")
	if !ok {
		t.Fatalf("derived prompt id not found: %+v", lesson.Timeline.Bindings)
	}
	if b.Prompt.Correct != 1 {
		t.Fatalf("unexpected correct index %d", b.Prompt.Correct)
	}
	pain, ok := lesson.Timeline.Find("component@570")
	if !ok || pain.Component.Window != 120 {
		t.Fatalf("expected component window override, got %+v", pain)
	}
	assess, _ := lesson.Timeline.Find("component@360")
	if assess.Component == nil || assess.Component.Window != 300 {
		t.Fatalf("expected course default window, got %+v", assess)
	}
	if lesson.AudioPath != SilentSource {
		t.Fatalf("expected silent audio, got %q", lesson.AudioPath)
	}

	if _, err := loader.FindLesson(course, "nope"); !errors.Is(err, ErrLessonNotFound) {
		t.Fatalf("expected ErrLessonNotFound, got %v", err)
	}
}

func writeCourse(t *testing.T, lessonYAML string) string {
	t.Helper()
	dir := t.TempDir()
	course := `kind: course
schema_version: 1
course_id: test-course
title: Test
version: 0.0.1
`
	if err := os.WriteFile(filepath.Join(dir, "course.yaml"), []byte(course), 0o644); err != nil {
		t.Fatalf("write course: %v", err)
	}
	lessonDir := filepath.Join(dir, "lessons", "one")
	if err := os.MkdirAll(lessonDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(lessonDir, "lesson.yaml"), []byte(lessonYAML), 0o644); err != nil {
		t.Fatalf("write lesson: %v", err)
	}
	return dir
}

const lessonHeader = `kind: lesson
schema_version: 1
lesson_id: one
title: One
duration: "15:00"
audio:
  source: silent
`

func TestLoadRejectsBrokenLessons(t *testing.T) {
	cases := []struct {
		name     string
		bindings string
		want     error
		contains string
	}{
		{
			name: "unknown component",
			bindings: `bindings:
  - type: component
    at: 10
    component: HoloDeck
`,
			want: ErrUnknownComponent,
		},
		{
			name: "duplicate ids",
			bindings: `bindings:
  - type: component
    at: 10
    component: APGARCalculator
  - type: component
    at: 10
    component: PainManagementCalculator
`,
			want: ErrDuplicateBinding,
		},
		{
			name: "correct out of range",
			bindings: `bindings:
  - type: prompt
    at: 10
    question: q?
    options: [a, b]
    correct: 2
`,
			contains: "out of range",
		},
		{
			name: "single option",
			bindings: `bindings:
  - type: prompt
    at: 10
    question: q?
    options: [a]
    correct: 0
`,
			contains: "at least 2 options",
		},
		{
			name: "negative timestamp",
			bindings: `bindings:
  - type: prompt
    at: -5
    question: q?
    options: [a, b]
    correct: 0
`,
			contains: "at failed gte",
		},
		{
			name: "past duration",
			bindings: `bindings:
  - type: prompt
    at: "20:00"
    question: q?
    options: [a, b]
    correct: 0
`,
			contains: "past lesson duration",
		},
		{
			name: "zero window",
			bindings: `bindings:
  - type: component
    at: 10
    component: APGARCalculator
    window_seconds: 0
`,
			contains: "window_seconds",
		},
		{
			name: "unknown type",
			bindings: `bindings:
  - type: video
    at: 10
`,
			contains: "oneof",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeCourse(t, lessonHeader+tc.bindings)
			_, err := NewLoader(components.Builtin()).LoadCourse(context.Background(), dir)
			if err == nil {
				t.Fatalf("expected error")
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %T: %v", err, err)
			}
			if ce.LessonID == "" && tc.want != nil {
				t.Fatalf("expected lesson id on error: %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.contains != "" && !strings.Contains(err.Error(), tc.contains) {
				t.Fatalf("expected %q in %q", tc.contains, err.Error())
			}
		})
	}
}

func TestLoadRejectsMissingAudio(t *testing.T) {
	lesson := strings.Replace(lessonHeader, "source: silent", "source: narration.wav", 1)
	dir := writeCourse(t, lesson)
	_, err := NewLoader(components.Builtin()).LoadCourse(context.Background(), dir)
	if !errors.Is(err, ErrAudioMissing) {
		t.Fatalf("expected ErrAudioMissing, got %v", err)
	}
}

func TestLoadProbesWAVDuration(t *testing.T) {
	lesson := `kind: lesson
schema_version: 1
lesson_id: one
title: One
audio:
  source: narration.wav
bindings:
  - type: prompt
    at: 1
    question: q?
    options: [a, b]
    correct: 0
`
	dir := writeCourse(t, lesson)
	writeWAV(t, filepath.Join(dir, "lessons", "one", "narration.wav"), 8000, 2*8000)

	course, err := NewLoader(components.Builtin()).LoadCourse(context.Background(), dir)
	if err != nil {
		t.Fatalf("load course: %v", err)
	}
	got := course.LoadedLessons[0]
	if got.Timeline.Duration < 1.99 || got.Timeline.Duration > 2.01 {
		t.Fatalf("expected probed 2s duration, got %v", got.Timeline.Duration)
	}
	if !filepath.IsAbs(got.AudioPath) && !strings.HasSuffix(got.AudioPath, "narration.wav") {
		t.Fatalf("unexpected audio path %q", got.AudioPath)
	}
	if got.Timeline.Bindings[0].Kind != activation.KindPrompt {
		t.Fatalf("unexpected binding kind")
	}
}

func TestManifestSkipsDisabledLessons(t *testing.T) {
	dir := writeCourse(t, lessonHeader)
	course := `kind: course
schema_version: 1
course_id: test-course
title: Test
version: 0.0.1
lessons:
  - lesson_id: one
    path: lessons/one
  - lesson_id: two
    path: lessons/two
    enabled: false
`
	if err := os.WriteFile(filepath.Join(dir, "course.yaml"), []byte(course), 0o644); err != nil {
		t.Fatalf("write course: %v", err)
	}
	loaded, err := NewLoader(components.Builtin()).LoadCourse(context.Background(), dir)
	if err != nil {
		t.Fatalf("load course: %v", err)
	}
	if len(loaded.LoadedLessons) != 1 {
		t.Fatalf("expected 1 lesson, got %d", len(loaded.LoadedLessons))
	}
}

func TestManifestIDMismatch(t *testing.T) {
	dir := writeCourse(t, lessonHeader)
	course := `kind: course
schema_version: 1
course_id: test-course
title: Test
version: 0.0.1
lessons:
  - lesson_id: other
    path: lessons/one
`
	if err := os.WriteFile(filepath.Join(dir, "course.yaml"), []byte(course), 0o644); err != nil {
		t.Fatalf("write course: %v", err)
	}
	if _, err := NewLoader(components.Builtin()).LoadCourse(context.Background(), dir); err == nil || !strings.Contains(err.Error(), "mismatch") {
		t.Fatalf("expected id mismatch, got %v", err)
	}
}

func TestClockParsing(t *testing.T) {
	cases := map[string]float64{
		"5:30":    330,
		"12:00":   720,
		"1:02:03": 3723,
		"90":      90,
		"2.5":     2.5,
	}
	for in, want := range cases {
		got, err := ParseClock(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %v want %v", in, got, want)
		}
	}
	for _, bad := range []string{"", "a:b", "1:75", "1:2:3:4"} {
		if _, err := ParseClock(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if FormatClock(330) != "5:30" || FormatClock(3723) != "1:02:03" || FormatClock(-4) != "0:00" {
		t.Fatalf("unexpected formatting")
	}
}

func writeWAV(t *testing.T, path string, sampleRate, frames int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, frames),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
}

func TestContentMarkdown(t *testing.T) {
	c := Content{
		Title: "Assessment",
		Sections: []Section{
			{Heading: "Vitals", Paragraphs: []string{"Check every 15 minutes."}},
			{Heading: "Lochia", Table: &Table{Headers: []string{"Stage", "Color"}, Rows: [][]string{{"Rubra", "Red"}, {"Serosa"}}}},
		},
	}
	md := c.Markdown()
	for _, want := range []string{"# Assessment", "## Vitals", "Check every 15 minutes.", "| Stage | Color |", "| --- | --- |", "| Serosa |  |"} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in markdown:\n%s", want, md)
		}
	}
}
