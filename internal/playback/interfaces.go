package playback

import "context"

// Media is the external audio primitive. OnTick callbacks run on the
// media's own goroutine.
type Media interface {
	Position() float64
	Duration() float64
	Playing() bool
	Play() error
	Pause() error
	Seek(t float64) error
	SetRate(r float64) error
	SetVolume(v float64) error
	OnTick(fn func())
	Close() error
}

type Opener interface {
	Open(ctx context.Context, src Source) (Media, error)
}
