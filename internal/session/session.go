package session

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"lessonplay/internal/activation"
	"lessonplay/internal/catalog"
	"lessonplay/internal/grading"
	"lessonplay/internal/playback"
	"lessonplay/internal/state"
	"lessonplay/internal/telemetry"
)

const (
	DefaultSkipSeconds = 10
	VolumeStep         = 0.1
	eventBuffer        = 64
)

type Options struct {
	Logger telemetry.Logger
	// Fallback opens a silent clock when the lesson's media fails, so its
	// bindings stay reachable.
	Fallback       playback.Opener
	SkipSeconds    float64
	RetainConsumed bool
}

// Session drives one learner through a course. Every entry point is
// serialized behind mu, so the engine sees a single execution context.
type Session struct {
	ID string

	course  catalog.Course
	lessons map[string]catalog.Lesson
	engine  *activation.Engine
	store   state.ProgressStore
	opener  playback.Opener
	opts    Options
	log     telemetry.Logger
	events  chan Event

	mu          sync.Mutex
	gen         uint64
	lesson      catalog.Lesson
	adapter     *playback.Adapter
	active      activation.ActiveSet
	now         float64
	lastPercent int
	degraded    string
	lastResult  *grading.Result
	restored    map[string]bool
	closed      bool
}

func New(course catalog.Course, engine *activation.Engine, store state.ProgressStore, opener playback.Opener, opts Options) *Session {
	if opts.SkipSeconds <= 0 {
		opts.SkipSeconds = DefaultSkipSeconds
	}
	id := uuid.NewString()
	var log telemetry.Logger = telemetry.Nop()
	if opts.Logger != nil {
		log = opts.Logger
	}
	if jl, ok := log.(*telemetry.JSONLogger); ok {
		log = jl.With(map[string]any{"session_id": id})
	}
	lessons := make(map[string]catalog.Lesson, len(course.LoadedLessons))
	for _, l := range course.LoadedLessons {
		lessons[l.LessonID] = l
	}
	return &Session{
		ID:       id,
		course:   course,
		lessons:  lessons,
		engine:   engine,
		store:    store,
		opener:   opener,
		opts:     opts,
		log:      log,
		events:   make(chan Event, eventBuffer),
		restored: map[string]bool{},
	}
}

// Switch makes lessonID current. The previous lesson's adapter is closed
// and its generation retired before the new media is opened.
func (s *Session) Switch(ctx context.Context, lessonID string) (Frame, error) {
	lesson, ok := s.lessons[lessonID]
	if !ok {
		return s.Frame(), fmt.Errorf("lesson %s/%s: %w", s.course.CourseID, lessonID, catalog.ErrLessonNotFound)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Frame{}, ErrClosed
	}
	s.gen++
	gen := s.gen
	s.leaveLocked()
	s.lesson = lesson
	s.active = activation.ActiveSet{}
	s.now = 0
	s.degraded = ""
	s.lastResult = nil
	if s.opts.RetainConsumed && !s.restored[lessonID] {
		s.engine.Restore(lessonID, toBindingIDs(s.store.Consumed(lessonID)))
		s.restored[lessonID] = true
	}
	s.mu.Unlock()

	src := playback.Source{LessonID: lessonID, Path: lesson.AudioPath, Duration: lesson.Duration.Seconds()}
	media, openErr := s.opener.Open(ctx, src)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.gen != gen {
		if media != nil {
			_ = media.Close()
		}
		return s.frameLocked(), ErrSuperseded
	}
	if openErr != nil {
		s.degraded = openErr.Error()
		s.log.Warn("session.playback_degraded", map[string]any{"lesson_id": lessonID, "source": src.Path, "error": openErr})
		s.emitLocked(Event{Kind: EventDegraded, Message: s.degraded})
		if s.opts.Fallback != nil {
			media, _ = s.opts.Fallback.Open(ctx, src)
		}
	}
	if media != nil {
		s.adapter = playback.NewAdapter(media, gen, src, s.handle)
	}
	s.lastPercent = s.store.Read(lessonID).Percentage
	s.store.SetLastLesson(lessonID)
	s.log.Info("session.switch", map[string]any{"lesson_id": lessonID, "generation": gen, "degraded": s.degraded != ""})
	s.emitLocked(Event{Kind: EventSwitched})
	s.evaluateLocked(0)
	return s.frameLocked(), nil
}

func (s *Session) leaveLocked() {
	if s.adapter != nil {
		if err := s.adapter.Close(); err != nil {
			s.log.Warn("session.media_close_failed", map[string]any{"lesson_id": s.lesson.LessonID, "error": err})
		}
		s.adapter = nil
	}
	if s.lesson.LessonID == "" {
		return
	}
	if s.opts.RetainConsumed {
		s.store.SetConsumed(s.lesson.LessonID, fromBindingIDs(s.engine.Consumed(s.lesson.LessonID)))
	}
	s.engine.Leave(s.lesson.LessonID)
}

// handle receives adapter notifications on the media goroutine.
func (s *Session) handle(n playback.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || n.Generation != s.gen || n.LessonID != s.lesson.LessonID {
		s.log.Debug("session.stale_notification", map[string]any{"generation": n.Generation, "current": s.gen, "kind": n.Kind.String()})
		return
	}
	s.evaluateLocked(n.Time)
	switch n.Kind {
	case playback.TimeUpdate:
		s.recordPercentLocked(n.Time)
	case playback.Ended:
		rec, changed := s.store.MarkCompleted(s.lesson.LessonID)
		s.lastPercent = rec.Percentage
		if changed {
			s.log.Info("session.lesson_completed", map[string]any{"lesson_id": s.lesson.LessonID})
			s.emitLocked(Event{Kind: EventCompleted})
		}
	}
}

func (s *Session) evaluateLocked(t float64) {
	if s.lesson.LessonID == "" {
		return
	}
	set, tr := s.engine.Evaluate(s.lesson.Timeline, t)
	s.active = set
	s.now = t
	if len(tr.Activated) > 0 {
		s.emitLocked(Event{Kind: EventActivated, IDs: tr.Activated})
	}
	if len(tr.Deactivated) > 0 {
		s.emitLocked(Event{Kind: EventDeactivated, IDs: tr.Deactivated})
	}
}

// recordPercentLocked writes the playback fraction only when its integer
// value changes.
func (s *Session) recordPercentLocked(t float64) {
	d := s.lesson.Duration.Seconds()
	if d <= 0 {
		return
	}
	p := int(math.Floor(t / d * 100))
	if p > 100 {
		p = 100
	}
	if p < 0 {
		p = 0
	}
	if p == s.lastPercent {
		return
	}
	s.lastPercent = p
	s.store.Write(s.lesson.LessonID, state.ProgressUpdate{Percentage: &p})
}

func (s *Session) emitLocked(ev Event) {
	ev.Generation = s.gen
	ev.LessonID = s.lesson.LessonID
	select {
	case s.events <- ev:
	default:
		s.log.Debug("session.event_dropped", map[string]any{"kind": ev.Kind.String()})
	}
}

// Next blocks for the next event of the current lesson. Events queued by a
// lesson that is no longer current are discarded.
func (s *Session) Next(ctx context.Context) (Event, error) {
	for {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case ev := <-s.events:
			s.mu.Lock()
			current := !s.closed && ev.Generation == s.gen
			s.mu.Unlock()
			if current {
				return ev, nil
			}
		}
	}
}

func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Session) withAdapter(fn func(a *playback.Adapter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.lesson.LessonID == "" {
		return ErrNoLesson
	}
	if s.adapter == nil {
		return ErrNoMedia
	}
	return fn(s.adapter)
}

func (s *Session) TogglePlay() error {
	return s.withAdapter(func(a *playback.Adapter) error { return a.Toggle() })
}

func (s *Session) Play() error {
	return s.withAdapter(func(a *playback.Adapter) error { return a.Play() })
}

func (s *Session) Pause() error {
	return s.withAdapter(func(a *playback.Adapter) error { return a.Pause() })
}

// Seek moves playback and re-evaluates the engine at the applied time.
func (s *Session) Seek(t float64) error {
	return s.withAdapter(func(a *playback.Adapter) error {
		applied, err := a.Seek(t)
		if err != nil {
			return err
		}
		s.evaluateLocked(applied)
		s.recordPercentLocked(applied)
		return nil
	})
}

func (s *Session) Skip(direction int) error {
	return s.withAdapter(func(a *playback.Adapter) error {
		applied, err := a.Skip(float64(direction) * s.opts.SkipSeconds)
		if err != nil {
			return err
		}
		s.evaluateLocked(applied)
		s.recordPercentLocked(applied)
		return nil
	})
}

func (s *Session) SetRate(r float64) error {
	return s.withAdapter(func(a *playback.Adapter) error { return a.SetRate(r) })
}

// CycleRate steps through playback.Rates and returns the applied rate.
func (s *Session) CycleRate(direction int) (float64, error) {
	var out float64
	err := s.withAdapter(func(a *playback.Adapter) error {
		next := playback.NextRate(a.State().Rate, direction)
		if err := a.SetRate(next); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

func (s *Session) SetVolume(v float64) (float64, error) {
	var out float64
	err := s.withAdapter(func(a *playback.Adapter) error {
		applied, err := a.SetVolume(v)
		out = applied
		return err
	})
	return out, err
}

func (s *Session) NudgeVolume(direction int) (float64, error) {
	var out float64
	err := s.withAdapter(func(a *playback.Adapter) error {
		v := math.Round((a.State().Volume+float64(direction)*VolumeStep)*100) / 100
		applied, err := a.SetVolume(v)
		out = applied
		return err
	})
	return out, err
}

// Answer submits a selection for an active prompt of the current lesson.
// The prompt is consumed and the answer recorded on the first selection.
func (s *Session) Answer(promptID activation.BindingID, option int) (grading.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return grading.Result{}, ErrClosed
	}
	if s.lesson.LessonID == "" {
		return grading.Result{}, ErrNoLesson
	}
	lessonID := s.lesson.LessonID
	res, err := s.engine.Answer(s.lesson.Timeline, promptID, option)
	if err != nil {
		return grading.Result{}, err
	}
	s.store.RecordAnswer(lessonID, string(promptID), res.Correct)
	if s.opts.RetainConsumed {
		s.store.SetConsumed(lessonID, fromBindingIDs(s.engine.Consumed(lessonID)))
	}
	s.lastResult = &res
	s.log.Info("session.answer", map[string]any{"lesson_id": lessonID, "prompt_id": string(promptID), "correct": res.Correct})
	s.emitLocked(Event{Kind: EventAnswered, IDs: []activation.BindingID{promptID}, Result: &res})
	s.evaluateLocked(s.now)
	return res, nil
}

// AnswerActive answers the first active prompt.
func (s *Session) AnswerActive(option int) (grading.Result, error) {
	s.mu.Lock()
	if len(s.active.Prompts) == 0 {
		s.mu.Unlock()
		return grading.Result{}, activation.ErrPromptInactive
	}
	id := s.active.Prompts[0]
	s.mu.Unlock()
	return s.Answer(id, option)
}

func (s *Session) DismissResult() {
	s.mu.Lock()
	s.lastResult = nil
	s.mu.Unlock()
}

func (s *Session) AddBookmark(note string) (state.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lesson.LessonID == "" {
		return state.Bookmark{}, ErrNoLesson
	}
	at := s.now
	if s.adapter != nil {
		at = s.adapter.State().CurrentTime
	}
	bm := s.store.AddBookmark(s.lesson.LessonID, at, note)
	s.log.Info("session.bookmark", map[string]any{"lesson_id": s.lesson.LessonID, "at": at, "id": bm.ID})
	return bm, nil
}

// Neighbor returns the lesson direction steps away from the current one
// in course order.
func (s *Session) Neighbor(direction int) (string, bool) {
	s.mu.Lock()
	current := s.lesson.LessonID
	s.mu.Unlock()
	ids := s.course.LessonIDs()
	for i, id := range ids {
		if id != current {
			continue
		}
		j := i + direction
		if j < 0 || j >= len(ids) {
			return "", false
		}
		return ids[j], true
	}
	if len(ids) == 0 {
		return "", false
	}
	return ids[0], true
}

// ResumeLesson is the lesson to open at startup.
func (s *Session) ResumeLesson() string {
	if id := s.store.Preferences().LastLessonID; id != "" {
		if _, ok := s.lessons[id]; ok {
			return id
		}
	}
	if ids := s.course.LessonIDs(); len(ids) > 0 {
		return ids[0]
	}
	return ""
}

func (s *Session) ToggleTheme() string {
	theme := state.ThemeDark
	if s.store.Preferences().Theme == state.ThemeDark {
		theme = state.ThemeLight
	}
	s.store.SetTheme(theme)
	return theme
}

func (s *Session) Theme() string { return s.store.Preferences().Theme }

func (s *Session) Course() catalog.Course { return s.course }

func (s *Session) Lesson(id string) (catalog.Lesson, bool) {
	l, ok := s.lessons[id]
	return l, ok
}

func (s *Session) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameLocked()
}

func (s *Session) frameLocked() Frame {
	f := Frame{
		Generation: s.gen,
		LessonID:   s.lesson.LessonID,
		Title:      s.lesson.Title,
		Playback:   playback.DefaultState(),
		Degraded:   s.degraded,
		LastResult: s.lastResult,
		Overall:    s.store.Overall(s.course.LessonIDs()),
	}
	f.Playback.Duration = s.lesson.Duration.Seconds()
	if s.adapter != nil {
		f.Playback = s.adapter.State()
	}
	if s.lesson.LessonID != "" {
		f.Progress = s.store.Read(s.lesson.LessonID)
		f.Bookmarks = s.store.ListBookmarks(s.lesson.LessonID)
	}
	tl := s.lesson.Timeline
	for _, id := range s.active.Prompts {
		if b, ok := tl.Find(id); ok && b.Prompt != nil {
			f.ActivePrompts = append(f.ActivePrompts, PromptView{
				ID:       b.ID,
				At:       b.At,
				Question: b.Prompt.Question,
				Options:  append([]string(nil), b.Prompt.Options...),
			})
		}
	}
	for _, id := range s.active.Components {
		if b, ok := tl.Find(id); ok && b.Component != nil {
			f.ActiveComponents = append(f.ActiveComponents, ComponentView{
				ID:          b.ID,
				Name:        b.Component.Name,
				Description: b.Component.Description,
				At:          b.At,
				End:         b.End(),
			})
		}
	}
	for _, l := range s.course.LoadedLessons {
		rec := s.store.Read(l.LessonID)
		f.Lessons = append(f.Lessons, LessonRow{
			LessonID:   l.LessonID,
			Title:      l.Title,
			Duration:   l.Duration.Seconds(),
			Completed:  rec.Completed,
			Percentage: rec.Percentage,
			Current:    l.LessonID == s.lesson.LessonID,
		})
		f.Scores = append(f.Scores, grading.TallyLesson(l.LessonID, l.Timeline.PromptCount(), s.store.QuizScores(l.LessonID)))
	}
	return f
}

// Close retires the current generation and releases the media. The store
// is owned by the caller.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.gen++
	s.leaveLocked()
	s.closed = true
	return nil
}

func toBindingIDs(ids []string) []activation.BindingID {
	out := make([]activation.BindingID, 0, len(ids))
	for _, id := range ids {
		out = append(out, activation.BindingID(id))
	}
	return out
}

func fromBindingIDs(ids []activation.BindingID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
