package session

import "errors"

var (
	ErrNoLesson   = errors.New("no lesson selected")
	ErrNoMedia    = errors.New("no playback media for lesson")
	ErrSuperseded = errors.New("lesson switch superseded")
	ErrClosed     = errors.New("session closed")
)
