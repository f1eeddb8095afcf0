package grading

const (
	ResultKind    = "prompt_answer"
	SchemaVersion = 1
)

type Request struct {
	LessonID string
	PromptID string

	Options     []string
	Correct     int
	Selected    int
	Explanation string
}

type Result struct {
	Kind          string `json:"kind"`
	SchemaVersion int    `json:"schema_version"`

	LessonID     string `json:"lesson_id"`
	PromptID     string `json:"prompt_id"`
	Selected     int    `json:"selected"`
	CorrectIndex int    `json:"correct_index"`
	Correct      bool   `json:"correct"`
	Explanation  string `json:"explanation,omitempty"`
	Feedback     string `json:"feedback"`
}

// Score is a tally of recorded answers, used by the dashboard.
type Score struct {
	Answered int
	Correct  int
	Percent  int
}

type LessonScore struct {
	LessonID string
	Prompts  int
	Score
}
