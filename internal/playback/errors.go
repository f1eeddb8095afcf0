package playback

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRate = errors.New("playback rate must be > 0")
	ErrNoBackend   = errors.New("no audio backend for source")
	ErrClosed      = errors.New("media closed")
)

// PlaybackError reports a media failure. The lesson stays usable without
// audio.
type PlaybackError struct {
	Op     string
	Source string
	Err    error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback %s %s: %v", e.Op, e.Source, e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }
