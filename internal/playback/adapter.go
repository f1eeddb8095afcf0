package playback

import (
	"math"
	"sync"
	"sync/atomic"
)

// Adapter wraps one Media for one lesson. Every notification carries the
// generation it was created with; after Close none is delivered.
type Adapter struct {
	gen      uint64
	lessonID string
	notify   func(Notification)
	closed   atomic.Bool

	mu       sync.Mutex
	media    Media
	duration float64
	rate     float64
	volume   float64
	last     float64
	ended    bool
}

func NewAdapter(media Media, gen uint64, src Source, notify func(Notification)) *Adapter {
	d := media.Duration()
	if d <= 0 || math.IsNaN(d) {
		d = src.Duration
	}
	a := &Adapter{
		gen:      gen,
		lessonID: src.LessonID,
		notify:   notify,
		media:    media,
		duration: d,
		rate:     1,
		volume:   1,
	}
	media.OnTick(a.onTick)
	return a
}

func (a *Adapter) Generation() uint64 { return a.gen }
func (a *Adapter) LessonID() string   { return a.lessonID }

func (a *Adapter) onTick() {
	if a.closed.Load() {
		return
	}
	a.mu.Lock()
	t := a.clamp(a.media.Position())
	if a.media.Playing() && t < a.last {
		t = a.last
	}
	a.last = t
	out := []Notification{{Kind: TimeUpdate, Generation: a.gen, LessonID: a.lessonID, Time: t}}
	if a.duration > 0 && t >= a.duration && !a.ended {
		a.ended = true
		_ = a.media.Pause()
		out = append(out, Notification{Kind: Ended, Generation: a.gen, LessonID: a.lessonID, Time: t})
	}
	a.mu.Unlock()

	for _, n := range out {
		if a.closed.Load() || a.notify == nil {
			return
		}
		a.notify(n)
	}
}

func (a *Adapter) clamp(t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if a.duration > 0 && t > a.duration {
		return a.duration
	}
	return t
}

func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	t := a.clamp(a.media.Position())
	playing := a.media.Playing()
	if playing && t < a.last {
		t = a.last
	}
	return State{
		CurrentTime: t,
		Duration:    a.duration,
		IsPlaying:   playing,
		Rate:        a.rate,
		Volume:      a.volume,
	}
}

// Play is a no-op while playing. At the end it restarts from zero.
func (a *Adapter) Play() error {
	if a.closed.Load() {
		return ErrClosed
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.media.Playing() {
		return nil
	}
	if a.ended || (a.duration > 0 && a.clamp(a.media.Position()) >= a.duration) {
		if err := a.media.Seek(0); err != nil {
			return err
		}
		a.last = 0
		a.ended = false
	}
	return a.media.Play()
}

func (a *Adapter) Pause() error {
	if a.closed.Load() {
		return ErrClosed
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.media.Playing() {
		return nil
	}
	return a.media.Pause()
}

func (a *Adapter) Toggle() error {
	if a.State().IsPlaying {
		return a.Pause()
	}
	return a.Play()
}

// Seek clamps t to [0, duration] and returns the applied time. Seeking
// below the end re-arms the Ended notification.
func (a *Adapter) Seek(t float64) (float64, error) {
	if a.closed.Load() {
		return 0, ErrClosed
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	t = a.clamp(t)
	if err := a.media.Seek(t); err != nil {
		return a.last, err
	}
	a.last = t
	if a.duration <= 0 || t < a.duration {
		a.ended = false
	}
	return t, nil
}

func (a *Adapter) Skip(delta float64) (float64, error) {
	return a.Seek(a.State().CurrentTime + delta)
}

func (a *Adapter) SetRate(r float64) error {
	if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return ErrInvalidRate
	}
	if a.closed.Load() {
		return ErrClosed
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.media.SetRate(r); err != nil {
		return err
	}
	a.rate = r
	return nil
}

// SetVolume clamps v to [0, 1] and returns the applied value.
func (a *Adapter) SetVolume(v float64) (float64, error) {
	if a.closed.Load() {
		return 0, ErrClosed
	}
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.media.SetVolume(v); err != nil {
		return a.volume, err
	}
	a.volume = v
	return v, nil
}

// Close detaches the adapter and releases the media. It is safe to call
// more than once.
func (a *Adapter) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.media.Close()
}
