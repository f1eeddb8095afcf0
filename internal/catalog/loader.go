package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"lessonplay/internal/activation"
	"lessonplay/internal/components"
)

type FSLoader struct {
	Components components.Lookuper
	Prober     AudioProber
	// DefaultWindow applies to component bindings when neither the binding
	// nor the course sets a window.
	DefaultWindow float64
}

func NewLoader(reg components.Lookuper) *FSLoader {
	return &FSLoader{Components: reg, Prober: WAVProber{}, DefaultWindow: DefaultWindowSeconds}
}

func (l *FSLoader) LoadCourse(ctx context.Context, dir string) (Course, error) {
	path := filepath.Join(dir, "course.yaml")
	course, err := readCourse(path)
	if err != nil {
		return Course{}, configErr(path, "", err)
	}
	course.Path = dir

	lessons, err := l.readLessons(ctx, course)
	if err != nil {
		return Course{}, err
	}
	if len(lessons) == 0 {
		return Course{}, configErr(path, "", fmt.Errorf("course %s has no lessons", course.CourseID))
	}
	seen := map[string]string{}
	for _, lesson := range lessons {
		if prev, ok := seen[lesson.LessonID]; ok {
			return Course{}, configErr(lesson.Path, lesson.LessonID, fmt.Errorf("lesson_id also used by %s", prev))
		}
		seen[lesson.LessonID] = lesson.Path
	}
	course.LoadedLessons = lessons
	return course, nil
}

func readCourse(path string) (Course, error) {
	var course Course
	b, err := os.ReadFile(path)
	if err != nil {
		return course, err
	}
	if err := yaml.Unmarshal(b, &course); err != nil {
		return course, fmt.Errorf("parse: %w", err)
	}
	if err := course.Validate(); err != nil {
		return course, err
	}
	return course, nil
}

type lessonJob struct {
	dir        string
	expectedID string
}

func (l *FSLoader) readLessons(ctx context.Context, course Course) ([]Lesson, error) {
	jobs, err := lessonJobs(course)
	if err != nil {
		return nil, err
	}
	out := make([]Lesson, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			lesson, err := l.loadLesson(course, job)
			if err != nil {
				return err
			}
			out[i] = lesson
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func lessonJobs(course Course) ([]lessonJob, error) {
	if len(course.Lessons) > 0 {
		jobs := make([]lessonJob, 0, len(course.Lessons))
		for _, ref := range course.Lessons {
			if ref.Enabled != nil && !*ref.Enabled {
				continue
			}
			jobs = append(jobs, lessonJob{dir: filepath.Join(course.Path, ref.Path), expectedID: ref.LessonID})
		}
		return jobs, nil
	}

	root := filepath.Join(course.Path, "lessons")
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, configErr(root, "", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), "lesson.yaml")); err != nil {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	jobs := make([]lessonJob, 0, len(names))
	for _, name := range names {
		jobs = append(jobs, lessonJob{dir: filepath.Join(root, name)})
	}
	return jobs, nil
}

func (l *FSLoader) loadLesson(course Course, job lessonJob) (Lesson, error) {
	path := filepath.Join(job.dir, "lesson.yaml")
	lesson, err := loadLessonFile(path)
	if err != nil {
		return Lesson{}, configErr(path, job.expectedID, err)
	}
	if job.expectedID != "" && lesson.LessonID != job.expectedID {
		return Lesson{}, configErr(path, job.expectedID, fmt.Errorf("lesson id mismatch: manifest=%s file=%s", job.expectedID, lesson.LessonID))
	}
	lesson.Path = job.dir
	if err := l.resolveAudio(&lesson); err != nil {
		return Lesson{}, configErr(path, lesson.LessonID, err)
	}
	tl, err := l.compile(lesson, course.Defaults)
	if err != nil {
		return Lesson{}, configErr(path, lesson.LessonID, err)
	}
	lesson.Timeline = tl
	return lesson, nil
}

func loadLessonFile(path string) (Lesson, error) {
	var lesson Lesson
	b, err := os.ReadFile(path)
	if err != nil {
		return lesson, err
	}
	if err := yaml.Unmarshal(b, &lesson); err != nil {
		return lesson, fmt.Errorf("parse: %w", err)
	}
	if err := lesson.Validate(); err != nil {
		return lesson, fmt.Errorf("validate: %w", err)
	}
	return lesson, nil
}

var supportedAudio = map[string]bool{".wav": true, ".mp3": true}

func (l *FSLoader) resolveAudio(lesson *Lesson) error {
	if lesson.Audio.Silent() {
		lesson.AudioPath = SilentSource
		if lesson.Duration <= 0 {
			return fmt.Errorf("duration is required for silent audio")
		}
		return nil
	}
	src := lesson.Audio.Source
	if !filepath.IsAbs(src) {
		src = filepath.Join(lesson.Path, src)
	}
	ext := strings.ToLower(filepath.Ext(src))
	if !supportedAudio[ext] {
		return fmt.Errorf("unsupported audio format %q", ext)
	}
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", src, ErrAudioMissing)
		}
		return err
	}
	lesson.AudioPath = src

	var probed float64
	if l.Prober != nil && ext == ".wav" {
		d, err := l.Prober.Probe(src)
		if err != nil {
			return fmt.Errorf("probe audio: %w", err)
		}
		probed = d
	}
	if lesson.Duration <= 0 {
		if probed <= 0 {
			return fmt.Errorf("duration is required when audio length is unknown")
		}
		lesson.Duration = Clock(probed)
	}
	return nil
}

func (l *FSLoader) compile(lesson Lesson, defaults CourseDefaults) (activation.Timeline, error) {
	window := l.DefaultWindow
	if defaults.WindowSeconds > 0 {
		window = defaults.WindowSeconds.Seconds()
	}
	if window <= 0 {
		window = DefaultWindowSeconds
	}

	tl := activation.Timeline{
		LessonID: lesson.LessonID,
		Duration: lesson.Duration.Seconds(),
		Bindings: make([]activation.Binding, 0, len(lesson.Bindings)),
	}
	seen := map[activation.BindingID]int{}
	for i, spec := range lesson.Bindings {
		if spec.At.Seconds() > tl.Duration {
			return tl, fmt.Errorf("bindings[%d] at %s is past lesson duration %s", i, spec.At, lesson.Duration)
		}
		b := activation.Binding{
			ID:   bindingID(spec),
			Kind: spec.Kind(),
			At:   spec.At.Seconds(),
		}
		if prev, ok := seen[b.ID]; ok {
			return tl, fmt.Errorf("bindings[%d] and bindings[%d] share id %q: %w", prev, i, b.ID, ErrDuplicateBinding)
		}
		seen[b.ID] = i

		switch b.Kind {
		case activation.KindPrompt:
			b.Prompt = &activation.Prompt{
				Question:    spec.Question,
				Options:     append([]string(nil), spec.Options...),
				Correct:     *spec.Correct,
				Explanation: spec.Explanation,
			}
		case activation.KindComponent:
			if l.Components == nil {
				return tl, fmt.Errorf("bindings[%d] component %q: %w", i, spec.Component, ErrUnknownComponent)
			}
			if _, ok := l.Components.Lookup(spec.Component); !ok {
				return tl, fmt.Errorf("bindings[%d] component %q: %w", i, spec.Component, ErrUnknownComponent)
			}
			w := window
			if spec.WindowSeconds != nil {
				w = spec.WindowSeconds.Seconds()
			}
			b.Component = &activation.ComponentRef{Name: spec.Component, Description: spec.Description, Window: w}
		}
		tl.Bindings = append(tl.Bindings, b)
	}
	sort.SliceStable(tl.Bindings, func(i, j int) bool { return tl.Bindings[i].At < tl.Bindings[j].At })
	return tl, nil
}

func bindingID(spec BindingSpec) activation.BindingID {
	if id := strings.TrimSpace(spec.ID); id != "" {
		return activation.BindingID(id)
	}
	return activation.BindingID(spec.Kind().String() + "@" + strconv.FormatFloat(spec.At.Seconds(), 'f', -1, 64))
}

func (l *FSLoader) FindLesson(course Course, lessonID string) (Lesson, error) {
	for _, lesson := range course.LoadedLessons {
		if lesson.LessonID == lessonID {
			return lesson, nil
		}
	}
	return Lesson{}, fmt.Errorf("lesson %s/%s: %w", course.CourseID, lessonID, ErrLessonNotFound)
}

func (c Course) LessonIDs() []string {
	ids := make([]string, 0, len(c.LoadedLessons))
	for _, lesson := range c.LoadedLessons {
		ids = append(ids, lesson.LessonID)
	}
	return ids
}
