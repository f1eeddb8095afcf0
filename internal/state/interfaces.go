package state

import (
	"context"
	"time"
)

// KV is the blob store records persist to. Get reports found=false for a
// missing key; absence is never an error.
type KV interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// ProgressStore is the read/write surface the session and CLI use.
type ProgressStore interface {
	Read(lessonID string) ProgressRecord
	Write(lessonID string, update ProgressUpdate) ProgressRecord
	MarkCompleted(lessonID string) (ProgressRecord, bool)
	Overall(lessonIDs []string) int

	AddBookmark(lessonID string, at float64, note string) Bookmark
	ListBookmarks(lessonID string) []Bookmark
	DeleteBookmark(id int64) bool

	RecordAnswer(lessonID, promptID string, correct bool) bool
	QuizScores(lessonID string) map[string]bool
	SetConsumed(lessonID string, promptIDs []string)
	Consumed(lessonID string) []string

	Preferences() Preferences
	SetTheme(theme string)
	SetLastLesson(lessonID string)

	Flush(ctx context.Context) error
}

type ProgressRecord struct {
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Percentage  int        `json:"percentage"`
}

// ProgressUpdate is a partial write; nil fields are left unchanged.
type ProgressUpdate struct {
	Completed  *bool
	Percentage *int
}

type Bookmark struct {
	ID        int64     `json:"id"`
	LessonID  string    `json:"lessonId"`
	At        float64   `json:"timestamp"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created"`
}

type Preferences struct {
	Theme        string `json:"theme"`
	LastLessonID string `json:"last_lesson_id,omitempty"`
}

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

const (
	RecordProgress     = "progress"
	RecordBookmarks    = "bookmarks"
	RecordPreferences  = "preferences"
	RecordPromptStates = "prompt_states"
	RecordQuizScores   = "quiz_scores"
)
