package ui

// Controller receives every learner action. The shell never changes lesson
// state itself.
type Controller interface {
	OnTogglePlay()
	OnSkip(direction int)
	OnVolume(direction int)
	OnRate(direction int)
	OnBookmark()
	OnAnswer(option int)
	OnDismissResult()
	OnLesson(direction int)
	OnSelectLesson(lessonID string)
	OnToggleTheme()
	OnQuit()
}

type View interface {
	Run() error
	Stop()
	SetController(Controller)
	SetFrame(Frame)
	FlashStatus(msg string)
}

type LayoutMode int

const (
	LayoutWide LayoutMode = iota
	LayoutMedium
	LayoutTooSmall
)

// Frame is everything the shell draws for one moment of a lesson.
type Frame struct {
	CourseTitle string
	LessonID    string
	LessonTitle string
	ContentMD   string

	Time     float64
	Duration float64
	Playing  bool
	Rate     float64
	Volume   float64
	Degraded string

	Prompts    []PromptCard
	Components []ComponentPanel
	Result     *ResultCard

	Lessons   []LessonItem
	Overall   int
	Bookmarks []BookmarkItem
	Scores    []ScoreRow
	Theme     string
}

type PromptCard struct {
	ID       string
	Question string
	Options  []string
}

type ComponentPanel struct {
	ID          string
	Name        string
	Description string
	At          float64
	End         float64
}

type ResultCard struct {
	Correct     bool
	Feedback    string
	Explanation string
}

type LessonItem struct {
	LessonID  string
	Title     string
	Duration  float64
	Completed bool
	Percent   int
	Current   bool
}

type BookmarkItem struct {
	At   float64
	Note string
}

type ScoreRow struct {
	LessonID string
	Title    string
	Prompts  int
	Answered int
	Correct  int
	Percent  int
}
