package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lessonplay/internal/activation"
	"lessonplay/internal/catalog"
	"lessonplay/internal/playback"
	"lessonplay/internal/state"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testOpener struct {
	clock *fakeClock
	fail  map[string]error
	media map[string]*playback.SilentMedia
}

func (o *testOpener) Open(_ context.Context, src playback.Source) (playback.Media, error) {
	if err := o.fail[src.LessonID]; err != nil {
		return nil, err
	}
	m := playback.NewSilentMedia(src.Duration, playback.WithClock(o.clock.Now), playback.WithManualTicks())
	o.media[src.LessonID] = m
	return m, nil
}

func testCourse() catalog.Course {
	maternal := catalog.Lesson{
		LessonID:  "maternal",
		Title:     "Immediate Maternal Care",
		Duration:  catalog.Clock(720),
		AudioPath: catalog.SilentSource,
		Timeline: activation.Timeline{
			LessonID: "maternal",
			Duration: 720,
			Bindings: []activation.Binding{
				{ID: "assessment", Kind: activation.KindComponent, At: 300, Component: &activation.ComponentRef{Name: "PostpartumAssessment", Window: 300}},
				{ID: "q1", Kind: activation.KindPrompt, At: 480, Prompt: &activation.Prompt{
					Question:    "What is the normal range for postpartum blood loss?",
					Options:     []string{"100-200 mL", "300-500 mL", "800-1000 mL"},
					Correct:     1,
					Explanation: "Up to 500 mL is expected after vaginal birth.",
				}},
			},
		},
	}
	neonatal := catalog.Lesson{
		LessonID:  "neonatal",
		Title:     "Immediate Neonatal Care",
		Duration:  catalog.Clock(600),
		AudioPath: catalog.SilentSource,
		Timeline:  activation.Timeline{LessonID: "neonatal", Duration: 600},
	}
	return catalog.Course{CourseID: "postpartum", LoadedLessons: []catalog.Lesson{maternal, neonatal}}
}

type fixture struct {
	s      *Session
	store  *state.Store
	clock  *fakeClock
	opener *testOpener
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	opener := &testOpener{clock: clock, fail: map[string]error{}, media: map[string]*playback.SilentMedia{}}
	store := state.Open(context.Background(), state.NewMemoryKV(), state.Options{Namespace: "postpartum"})
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	s := New(testCourse(), activation.NewEngine(), store, opener, opts)
	t.Cleanup(func() { _ = s.Close() })
	return &fixture{s: s, store: store, clock: clock, opener: opener}
}

func (f *fixture) play(t *testing.T, lessonID string, d time.Duration) {
	t.Helper()
	if err := f.s.Play(); err != nil {
		t.Fatalf("play: %v", err)
	}
	f.clock.Advance(d)
	f.opener.media[lessonID].Tick()
}

func TestPromptActivatesAndConsumes(t *testing.T) {
	f := newFixture(t, Options{RetainConsumed: true})
	if _, err := f.s.Switch(context.Background(), "maternal"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	f.play(t, "maternal", 479*time.Second)
	frame := f.s.Frame()
	if len(frame.ActivePrompts) != 0 {
		t.Fatalf("expected no prompt at 479, got %+v", frame.ActivePrompts)
	}
	if len(frame.ActiveComponents) != 1 || frame.ActiveComponents[0].Name != "PostpartumAssessment" {
		t.Fatalf("expected assessment window active, got %+v", frame.ActiveComponents)
	}

	f.clock.Advance(time.Second)
	f.opener.media["maternal"].Tick()
	frame = f.s.Frame()
	if len(frame.ActivePrompts) != 1 || frame.ActivePrompts[0].ID != "q1" {
		t.Fatalf("expected q1 active at 480, got %+v", frame.ActivePrompts)
	}

	res, err := f.s.AnswerActive(1)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !res.Correct || res.Explanation == "" {
		t.Fatalf("expected correct answer with explanation, got %+v", res)
	}
	if got := f.store.QuizScores("maternal"); !got["q1"] {
		t.Fatalf("expected recorded score, got %v", got)
	}
	if got := f.store.Consumed("maternal"); len(got) != 1 || got[0] != "q1" {
		t.Fatalf("expected persisted consumption, got %v", got)
	}
	if frame = f.s.Frame(); len(frame.ActivePrompts) != 0 || frame.LastResult == nil {
		t.Fatalf("expected prompt gone and result shown, got %+v", frame)
	}

	if err := f.s.Seek(470); err != nil {
		t.Fatalf("seek back: %v", err)
	}
	if err := f.s.Seek(500); err != nil {
		t.Fatalf("seek forward: %v", err)
	}
	if frame = f.s.Frame(); len(frame.ActivePrompts) != 0 {
		t.Fatalf("expected consumed prompt to stay hidden, got %+v", frame.ActivePrompts)
	}
	if _, err := f.s.Answer("q1", 0); !errors.Is(err, activation.ErrPromptConsumed) {
		t.Fatalf("expected ErrPromptConsumed, got %v", err)
	}
}

func TestPercentageAndCompletion(t *testing.T) {
	f := newFixture(t, Options{})
	if _, err := f.s.Switch(context.Background(), "maternal"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	f.play(t, "maternal", 72*time.Second)
	if got := f.store.Read("maternal").Percentage; got != 10 {
		t.Fatalf("expected 10%%, got %d", got)
	}
	f.clock.Advance(time.Hour)
	f.opener.media["maternal"].Tick()
	rec := f.store.Read("maternal")
	if !rec.Completed || rec.Percentage != 100 || rec.CompletedAt == nil {
		t.Fatalf("expected completion, got %+v", rec)
	}
	first := *rec.CompletedAt

	if err := f.s.Play(); err != nil {
		t.Fatalf("replay: %v", err)
	}
	f.clock.Advance(time.Hour)
	f.opener.media["maternal"].Tick()
	if rec := f.store.Read("maternal"); !rec.CompletedAt.Equal(first) {
		t.Fatalf("expected original completion time kept, got %v", rec.CompletedAt)
	}
}

func TestStaleNotificationDropped(t *testing.T) {
	f := newFixture(t, Options{})
	if _, err := f.s.Switch(context.Background(), "maternal"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	old := f.s.Generation()
	if _, err := f.s.Switch(context.Background(), "neonatal"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	f.s.handle(playback.Notification{Kind: playback.TimeUpdate, Generation: old, LessonID: "maternal", Time: 360})
	f.s.handle(playback.Notification{Kind: playback.Ended, Generation: old, LessonID: "maternal", Time: 720})
	if rec := f.store.Read("maternal"); rec.Percentage != 0 || rec.Completed {
		t.Fatalf("expected stale notifications ignored, got %+v", rec)
	}
	if frame := f.s.Frame(); frame.LessonID != "neonatal" || len(frame.ActiveComponents) != 0 {
		t.Fatalf("unexpected frame after stale tick: %+v", frame)
	}
}

func TestSwitchResetsPlaybackKeepsConsumption(t *testing.T) {
	f := newFixture(t, Options{RetainConsumed: true})
	ctx := context.Background()
	if _, err := f.s.Switch(ctx, "maternal"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if _, err := f.s.CycleRate(1); err != nil {
		t.Fatalf("rate: %v", err)
	}
	if _, err := f.s.NudgeVolume(-1); err != nil {
		t.Fatalf("volume: %v", err)
	}
	if err := f.s.Seek(480); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if _, err := f.s.Answer("q1", 0); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := f.s.Switch(ctx, "neonatal"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	frame, err := f.s.Switch(ctx, "maternal")
	if err != nil {
		t.Fatalf("switch back: %v", err)
	}
	pb := frame.Playback
	if pb.CurrentTime != 0 || pb.Rate != 1 || pb.Volume != 1 || pb.IsPlaying {
		t.Fatalf("expected default playback state, got %+v", pb)
	}
	if err := f.s.Seek(500); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if frame := f.s.Frame(); len(frame.ActivePrompts) != 0 {
		t.Fatalf("expected q1 to stay consumed, got %+v", frame.ActivePrompts)
	}
	if got := f.store.Preferences().LastLessonID; got != "maternal" {
		t.Fatalf("expected last lesson maternal, got %q", got)
	}
}

func TestTransportControls(t *testing.T) {
	f := newFixture(t, Options{})
	if _, err := f.s.Switch(context.Background(), "maternal"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	rates := []float64{1.25, 1.5, 2, 2}
	for _, want := range rates {
		got, err := f.s.CycleRate(1)
		if err != nil {
			t.Fatalf("cycle rate: %v", err)
		}
		if got != want {
			t.Fatalf("expected rate %v, got %v", want, got)
		}
	}
	for i := 0; i < 12; i++ {
		_, _ = f.s.NudgeVolume(-1)
	}
	if v := f.s.Frame().Playback.Volume; v != 0 {
		t.Fatalf("expected volume floor 0, got %v", v)
	}
	if err := f.s.Skip(-1); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if got := f.s.Frame().Playback.CurrentTime; got != 0 {
		t.Fatalf("expected skip clamp at 0, got %v", got)
	}
	if err := f.s.Skip(1); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if got := f.s.Frame().Playback.CurrentTime; got != DefaultSkipSeconds {
		t.Fatalf("expected %d, got %v", DefaultSkipSeconds, got)
	}
	if err := f.s.SetRate(0); !errors.Is(err, playback.ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
}

func TestDegradedFallsBackToSilentClock(t *testing.T) {
	f := newFixture(t, Options{Fallback: playback.SilentOpener{Manual: true}})
	f.opener.fail["maternal"] = &playback.PlaybackError{Op: "open", Source: "lesson.wav", Err: errors.New("no device")}
	frame, err := f.s.Switch(context.Background(), "maternal")
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if frame.Degraded == "" {
		t.Fatalf("expected degraded notice")
	}
	if err := f.s.Seek(480); err != nil {
		t.Fatalf("seek on fallback clock: %v", err)
	}
	if frame := f.s.Frame(); len(frame.ActivePrompts) != 1 {
		t.Fatalf("expected prompt reachable while degraded, got %+v", frame.ActivePrompts)
	}
}

func TestDegradedWithoutFallback(t *testing.T) {
	f := newFixture(t, Options{})
	f.opener.fail["maternal"] = errors.New("decode failed")
	frame, err := f.s.Switch(context.Background(), "maternal")
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if frame.Degraded == "" || frame.Title == "" {
		t.Fatalf("expected lesson shown with degraded notice, got %+v", frame)
	}
	if err := f.s.TogglePlay(); !errors.Is(err, ErrNoMedia) {
		t.Fatalf("expected ErrNoMedia, got %v", err)
	}
}

func TestNextSkipsEventsFromOldLesson(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	if _, err := f.s.Switch(ctx, "maternal"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if err := f.s.Seek(480); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if _, err := f.s.Switch(ctx, "neonatal"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	ev, err := f.s.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if ev.LessonID != "neonatal" || ev.Kind != EventSwitched {
		t.Fatalf("expected neonatal switch event, got %+v", ev)
	}
}

func TestBookmarkAtCurrentTime(t *testing.T) {
	f := newFixture(t, Options{})
	if _, err := f.s.Switch(context.Background(), "maternal"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if err := f.s.Seek(125); err != nil {
		t.Fatalf("seek: %v", err)
	}
	bm, err := f.s.AddBookmark("fundal massage")
	if err != nil {
		t.Fatalf("bookmark: %v", err)
	}
	if bm.At != 125 || bm.LessonID != "maternal" {
		t.Fatalf("unexpected bookmark %+v", bm)
	}
	if got := f.s.Frame().Bookmarks; len(got) != 1 {
		t.Fatalf("expected bookmark in frame, got %v", got)
	}
}

func TestNeighborAndResume(t *testing.T) {
	f := newFixture(t, Options{})
	if got := f.s.ResumeLesson(); got != "maternal" {
		t.Fatalf("expected first lesson, got %q", got)
	}
	if _, err := f.s.Switch(context.Background(), "neonatal"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if id, ok := f.s.Neighbor(-1); !ok || id != "maternal" {
		t.Fatalf("expected maternal before neonatal, got %q %v", id, ok)
	}
	if _, ok := f.s.Neighbor(1); ok {
		t.Fatalf("expected no lesson after the last")
	}
	if got := f.s.ResumeLesson(); got != "neonatal" {
		t.Fatalf("expected resume at neonatal, got %q", got)
	}
	if _, err := f.s.Switch(context.Background(), "missing"); !errors.Is(err, catalog.ErrLessonNotFound) {
		t.Fatalf("expected ErrLessonNotFound, got %v", err)
	}
}
