package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"lessonplay/internal/activation"
	"lessonplay/internal/catalog"
	"lessonplay/internal/components"
	"lessonplay/internal/media/beepaudio"
	"lessonplay/internal/playback"
	"lessonplay/internal/session"
	"lessonplay/internal/state"
	"lessonplay/internal/telemetry"
	"lessonplay/internal/ui"
)

const closeTimeout = 5 * time.Second

type App struct {
	cfg Config

	logger   *telemetry.JSONLogger
	registry *components.Registry
	course   catalog.Course
	store    *state.Store
	session  *session.Session
	view     ui.View

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// LoadCourse reads and validates the course configured in cfg.
func LoadCourse(ctx context.Context, cfg Config, reg components.Lookuper) (catalog.Course, error) {
	loader := catalog.NewLoader(reg)
	loader.DefaultWindow = cfg.Activation.DefaultWindowSeconds
	return loader.LoadCourse(ctx, cfg.CourseDir)
}

// OpenStore opens the configured backend with records namespaced by course.
func OpenStore(ctx context.Context, cfg Config, courseID string, log telemetry.Logger) (*state.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	kv, err := state.NewBackend(ctx, cfg.Store.Backend, cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return state.Open(ctx, kv, state.Options{Namespace: courseID, Logger: log}), nil
}

// NewOpener builds the media chain for cfg.Playback.Backend. Silent
// sources always get a synthetic clock.
func NewOpener(cfg PlaybackConfig) playback.Opener {
	interval := time.Duration(cfg.TickMS) * time.Millisecond
	silent := playback.SilentOpener{Interval: interval}
	switch cfg.Backend {
	case "silent":
		return playback.Router{Silent: silent, Files: silent}
	default:
		return playback.Router{Silent: silent, Files: beepaudio.NewOpener(interval)}
	}
}

func New(ctx context.Context, cfg Config) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	logger, err := telemetry.NewJSONLogger(cfg.LogPath)
	if err != nil {
		return nil, err
	}
	if cfg.Debug {
		logger.SetLevel(telemetry.LevelDebug)
	}

	registry := components.Builtin()
	course, err := LoadCourse(ctx, cfg, registry)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	if len(course.LoadedLessons) == 0 {
		_ = logger.Close()
		return nil, fmt.Errorf("course %s has no enabled lessons", course.CourseID)
	}

	store, err := OpenStore(ctx, cfg, course.CourseID, logger)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	var fallback playback.Opener
	if cfg.Playback.Fallback == "silent" {
		fallback = playback.SilentOpener{Interval: time.Duration(cfg.Playback.TickMS) * time.Millisecond}
	}
	sess := session.New(course, activation.NewEngine(), store, NewOpener(cfg.Playback), session.Options{
		Logger:         logger,
		Fallback:       fallback,
		SkipSeconds:    cfg.Playback.SkipSeconds,
		RetainConsumed: cfg.Activation.RetainConsumed,
	})

	theme := cfg.UI.Theme
	if theme == "" {
		theme = store.Preferences().Theme
	}
	view := ui.New(ui.Options{
		ASCIIOnly:  cfg.UI.ASCII,
		Debug:      cfg.Debug,
		Theme:      theme,
		Motion:     cfg.UI.Motion,
		Components: registry,
	})

	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		course:   course,
		store:    store,
		session:  sess,
		view:     view,
	}
	view.SetController(a)
	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("app.start", map[string]any{
		"session":  a.session.ID,
		"course":   a.course.CourseID,
		"playback": a.cfg.Playback.Backend,
		"store":    a.cfg.Store.Backend,
	})
	a.start(ctx)

	lessonID := a.session.ResumeLesson()
	if err := a.switchLesson(lessonID); err != nil {
		a.logger.Error("app.resume_failed", map[string]any{"lesson": lessonID, "error": err})
	}
	return a.view.Run()
}

// start launches the frame pump and the event loop.
func (a *App) start(ctx context.Context) {
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.wg.Add(2)
	go a.pumpFrames()
	go a.pumpEvents()
}

func (a *App) pumpFrames() {
	defer a.wg.Done()
	ticker := time.NewTicker(time.Duration(a.cfg.Playback.TickMS) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.push()
		}
	}
}

func (a *App) pumpEvents() {
	defer a.wg.Done()
	for {
		ev, err := a.session.Next(a.ctx)
		if err != nil {
			return
		}
		a.logger.Debug("session.event", map[string]any{
			"kind":       ev.Kind.String(),
			"lesson":     ev.LessonID,
			"generation": ev.Generation,
		})
		if msg := a.describe(ev); msg != "" {
			a.view.FlashStatus(msg)
		}
		a.push()
	}
}

func (a *App) push() {
	a.view.SetFrame(a.frame())
}

func (a *App) frame() ui.Frame {
	sf := a.session.Frame()
	lesson, _ := a.session.Lesson(sf.LessonID)
	return toUIFrame(a.course, lesson, sf, a.session.Theme())
}

// describe turns a session event into a status line, or "" when the
// frame alone shows it.
func (a *App) describe(ev session.Event) string {
	switch ev.Kind {
	case session.EventActivated:
		lesson, _ := a.session.Lesson(ev.LessonID)
		for _, id := range ev.IDs {
			b, ok := lesson.Timeline.Find(id)
			if !ok {
				continue
			}
			if b.Prompt != nil {
				return fmt.Sprintf("Question: answer with 1-%d", len(b.Prompt.Options))
			}
			if b.Component != nil {
				if c, ok := a.registry.Lookup(b.Component.Name); ok {
					return "Now showing: " + c.Title()
				}
			}
		}
	case session.EventCompleted:
		return "Lesson complete!"
	case session.EventDegraded:
		return "Audio unavailable, using silent clock: " + ev.Message
	}
	return ""
}

func (a *App) switchLesson(lessonID string) error {
	ctx := a.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := a.session.Switch(ctx, lessonID)
	if errors.Is(err, session.ErrSuperseded) {
		return nil
	}
	if err == nil {
		a.logger.Info("lesson.open", map[string]any{"lesson": lessonID})
	}
	a.push()
	return err
}

func (a *App) report(op string, err error) {
	if err == nil {
		a.push()
		return
	}
	a.logger.Warn("app."+op+"_failed", map[string]any{"error": err})
	a.view.FlashStatus(err.Error())
	a.push()
}

func (a *App) OnTogglePlay() { a.report("toggle_play", a.session.TogglePlay()) }

func (a *App) OnSkip(direction int) { a.report("skip", a.session.Skip(direction)) }

func (a *App) OnVolume(direction int) {
	v, err := a.session.NudgeVolume(direction)
	if err == nil {
		a.view.FlashStatus(fmt.Sprintf("Volume %d%%", int(v*100+0.5)))
	}
	a.report("volume", err)
}

func (a *App) OnRate(direction int) {
	r, err := a.session.CycleRate(direction)
	if err == nil {
		a.view.FlashStatus(fmt.Sprintf("Speed %gx", r))
	}
	a.report("rate", err)
}

func (a *App) OnBookmark() {
	b, err := a.session.AddBookmark("")
	if err == nil {
		a.view.FlashStatus("Bookmarked at " + catalog.FormatClock(b.At))
	}
	a.report("bookmark", err)
}

func (a *App) OnAnswer(option int) {
	res, err := a.session.AnswerActive(option)
	if err == nil {
		a.logger.Info("prompt.answered", map[string]any{
			"lesson":  res.LessonID,
			"prompt":  res.PromptID,
			"correct": res.Correct,
		})
	}
	a.report("answer", err)
}

func (a *App) OnDismissResult() {
	a.session.DismissResult()
	a.push()
}

func (a *App) OnLesson(direction int) {
	id, ok := a.session.Neighbor(direction)
	if !ok {
		if direction > 0 {
			a.view.FlashStatus("Already at the last lesson")
		} else {
			a.view.FlashStatus("Already at the first lesson")
		}
		return
	}
	a.report("switch", a.switchLesson(id))
}

func (a *App) OnSelectLesson(lessonID string) {
	a.report("switch", a.switchLesson(lessonID))
}

func (a *App) OnToggleTheme() {
	theme := a.session.ToggleTheme()
	a.view.FlashStatus("Theme: " + theme)
	a.push()
}

func (a *App) OnQuit() {
	a.view.Stop()
}

func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		a.wg.Wait()
		_ = a.session.Close()
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := a.store.Close(ctx); err != nil {
			a.logger.Error("store.close_failed", map[string]any{"error": err})
		}
		a.logger.Info("app.stop", map[string]any{"session": a.session.ID})
		_ = a.logger.Close()
	})
}
