package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"lessonplay/internal/activation"
)

const (
	CourseKind             = "course"
	LessonKind             = "lesson"
	SupportedSchemaVersion = 1

	// SilentSource marks a lesson whose narration is not recorded yet. It
	// plays on a simulated clock.
	SilentSource = "silent"

	DefaultWindowSeconds = 300
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{1,63}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type Course struct {
	Kind          string         `yaml:"kind" validate:"required"`
	SchemaVersion int            `yaml:"schema_version" validate:"required"`
	CourseID      string         `yaml:"course_id" validate:"required"`
	Title         string         `yaml:"title" validate:"required"`
	Version       string         `yaml:"version" validate:"required"`
	Description   string         `yaml:"description"`
	Defaults      CourseDefaults `yaml:"defaults"`
	Lessons       []LessonRef    `yaml:"lessons" validate:"dive"`

	Path          string   `yaml:"-"`
	LoadedLessons []Lesson `yaml:"-"`
}

type CourseDefaults struct {
	WindowSeconds Clock `yaml:"window_seconds" validate:"gte=0"`
}

type LessonRef struct {
	LessonID string `yaml:"lesson_id" validate:"required"`
	Path     string `yaml:"path" validate:"required"`
	Enabled  *bool  `yaml:"enabled"`
}

type Lesson struct {
	Kind          string        `yaml:"kind" validate:"required"`
	SchemaVersion int           `yaml:"schema_version" validate:"required"`
	LessonID      string        `yaml:"lesson_id" validate:"required"`
	Title         string        `yaml:"title" validate:"required"`
	Duration      Clock         `yaml:"duration" validate:"gte=0"`
	Audio         AudioSpec     `yaml:"audio"`
	Content       Content       `yaml:"content"`
	Bindings      []BindingSpec `yaml:"bindings" validate:"dive"`

	Path      string              `yaml:"-"`
	AudioPath string              `yaml:"-"`
	Timeline  activation.Timeline `yaml:"-"`
}

type AudioSpec struct {
	Source string `yaml:"source" validate:"required"`
}

func (a AudioSpec) Silent() bool { return strings.EqualFold(strings.TrimSpace(a.Source), SilentSource) }

type Content struct {
	Title    string    `yaml:"title"`
	Sections []Section `yaml:"sections" validate:"dive"`
}

type Section struct {
	Heading    string   `yaml:"heading" validate:"required"`
	Paragraphs []string `yaml:"paragraphs"`
	Table      *Table   `yaml:"table"`
}

type Table struct {
	Headers []string   `yaml:"headers" validate:"min=1"`
	Rows    [][]string `yaml:"rows"`
}

// BindingSpec is the YAML form of a binding. Type selects which of the
// prompt or component fields apply.
type BindingSpec struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type" validate:"required,oneof=prompt quiz component"`
	At   Clock  `yaml:"at" validate:"gte=0"`

	Question    string   `yaml:"question"`
	Options     []string `yaml:"options"`
	Correct     *int     `yaml:"correct"`
	Explanation string   `yaml:"explanation"`

	Component     string `yaml:"component"`
	Description   string `yaml:"description"`
	WindowSeconds *Clock `yaml:"window_seconds"`
}

func (b BindingSpec) Kind() activation.Kind {
	if b.Type == "component" {
		return activation.KindComponent
	}
	return activation.KindPrompt
}

func (c Course) Validate() error {
	if err := validate.Struct(c); err != nil {
		return describeValidation(err)
	}
	if c.Kind != CourseKind {
		return fmt.Errorf("kind must be %q", CourseKind)
	}
	if c.SchemaVersion > SupportedSchemaVersion {
		return fmt.Errorf("unsupported course schema_version %d (max supported %d)", c.SchemaVersion, SupportedSchemaVersion)
	}
	if !idPattern.MatchString(c.CourseID) {
		return fmt.Errorf("invalid course_id %q", c.CourseID)
	}
	seen := map[string]struct{}{}
	for _, l := range c.Lessons {
		if _, ok := seen[l.LessonID]; ok {
			return fmt.Errorf("duplicate lesson_id %q in course.yaml", l.LessonID)
		}
		seen[l.LessonID] = struct{}{}
	}
	return nil
}

func (l Lesson) Validate() error {
	if err := validate.Struct(l); err != nil {
		return describeValidation(err)
	}
	if l.Kind != LessonKind {
		return fmt.Errorf("kind must be %q", LessonKind)
	}
	if l.SchemaVersion > SupportedSchemaVersion {
		return fmt.Errorf("unsupported lesson schema_version %d (max supported %d)", l.SchemaVersion, SupportedSchemaVersion)
	}
	if !idPattern.MatchString(l.LessonID) {
		return fmt.Errorf("invalid lesson_id %q", l.LessonID)
	}
	for i, s := range l.Content.Sections {
		if s.Table == nil {
			continue
		}
		for r, row := range s.Table.Rows {
			if len(row) != len(s.Table.Headers) {
				return fmt.Errorf("content.sections[%d].table.rows[%d] has %d cells, want %d", i, r, len(row), len(s.Table.Headers))
			}
		}
	}
	for i, b := range l.Bindings {
		if err := b.validate(); err != nil {
			return fmt.Errorf("bindings[%d]: %w", i, err)
		}
	}
	return nil
}

func (b BindingSpec) validate() error {
	switch b.Kind() {
	case activation.KindPrompt:
		if strings.TrimSpace(b.Question) == "" {
			return fmt.Errorf("question is required")
		}
		if len(b.Options) < 2 {
			return fmt.Errorf("prompt needs at least 2 options, got %d", len(b.Options))
		}
		if b.Correct == nil {
			return fmt.Errorf("correct is required")
		}
		if *b.Correct < 0 || *b.Correct >= len(b.Options) {
			return fmt.Errorf("correct index %d out of range for %d options", *b.Correct, len(b.Options))
		}
		if b.Component != "" {
			return fmt.Errorf("prompt must not reference a component")
		}
	case activation.KindComponent:
		if strings.TrimSpace(b.Component) == "" {
			return fmt.Errorf("component is required")
		}
		if b.WindowSeconds != nil && *b.WindowSeconds <= 0 {
			return fmt.Errorf("window_seconds must be >0")
		}
		if b.Question != "" || len(b.Options) > 0 {
			return fmt.Errorf("component binding must not carry prompt fields")
		}
	}
	return nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.SplitN(fe.Namespace(), ".", 2)
		name := fe.Namespace()
		if len(field) == 2 {
			name = field[1]
		}
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", name, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", name, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
