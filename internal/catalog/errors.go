package catalog

import (
	"errors"
	"strings"
)

var (
	ErrUnknownComponent = errors.New("unknown component")
	ErrDuplicateBinding = errors.New("duplicate binding id")
	ErrAudioMissing     = errors.New("audio source not found")
	ErrLessonNotFound   = errors.New("lesson not found")
)

// ConfigError marks a broken course or lesson definition. It is fatal at
// load time.
type ConfigError struct {
	Path     string
	LessonID string
	Err      error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("catalog")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.LessonID != "" {
		b.WriteString(" lesson ")
		b.WriteString(e.LessonID)
	}
	b.WriteString(": ")
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString("invalid configuration")
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErr(path, lessonID string, err error) error {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return err
	}
	return &ConfigError{Path: path, LessonID: lessonID, Err: err}
}
