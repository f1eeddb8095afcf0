package catalog

import "context"

type Loader interface {
	LoadCourse(ctx context.Context, dir string) (Course, error)
	FindLesson(course Course, lessonID string) (Lesson, error)
}

// AudioProber reports the playable length of an audio file in seconds.
// Zero means the length is unknown.
type AudioProber interface {
	Probe(path string) (float64, error)
}
