package playback

import "strings"

const SilentPath = "silent"

// Source identifies the audio behind one lesson.
type Source struct {
	LessonID string
	Path     string
	// Duration is the catalog's nominal length, used when the media cannot
	// report one.
	Duration float64
}

func (s Source) Silent() bool {
	return s.Path == "" || strings.EqualFold(s.Path, SilentPath)
}

// State is the transient transport state of the current lesson.
type State struct {
	CurrentTime float64
	Duration    float64
	IsPlaying   bool
	Rate        float64
	Volume      float64
}

func DefaultState() State {
	return State{Rate: 1, Volume: 1}
}

type NotificationKind int

const (
	TimeUpdate NotificationKind = iota + 1
	Ended
)

func (k NotificationKind) String() string {
	switch k {
	case TimeUpdate:
		return "time_update"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

type Notification struct {
	Kind       NotificationKind
	Generation uint64
	LessonID   string
	Time       float64
}

// Rates lists the selectable playback rates in order.
var Rates = []float64{0.5, 0.75, 1, 1.25, 1.5, 2}

// NextRate cycles through Rates; an unlisted rate moves to 1.
func NextRate(current float64, dir int) float64 {
	idx := -1
	for i, r := range Rates {
		if r == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 1
	}
	idx += dir
	if idx < 0 {
		idx = 0
	}
	if idx >= len(Rates) {
		idx = len(Rates) - 1
	}
	return Rates[idx]
}
