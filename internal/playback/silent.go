package playback

import (
	"context"
	"math"
	"sync"
	"time"
)

const DefaultTickInterval = 250 * time.Millisecond

// SilentMedia is a wall-clock timeline with no audio output. It stands in
// for lessons without audio and for backends that failed to open.
type SilentMedia struct {
	mu       sync.Mutex
	duration float64
	base     float64
	anchor   time.Time
	playing  bool
	rate     float64
	volume   float64
	closed   bool

	now      func() time.Time
	interval time.Duration
	manual   bool
	ticks    []func()
	stop     chan struct{}
}

type SilentOption func(*SilentMedia)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SilentOption {
	return func(m *SilentMedia) { m.now = now }
}

func WithTickInterval(d time.Duration) SilentOption {
	return func(m *SilentMedia) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithManualTicks disables the ticker goroutine; callers drive Tick.
func WithManualTicks() SilentOption {
	return func(m *SilentMedia) { m.manual = true }
}

func NewSilentMedia(duration float64, opts ...SilentOption) *SilentMedia {
	m := &SilentMedia{
		duration: duration,
		rate:     1,
		volume:   1,
		now:      time.Now,
		interval: DefaultTickInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *SilentMedia) Duration() float64 { return m.duration }

func (m *SilentMedia) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positionLocked()
}

func (m *SilentMedia) positionLocked() float64 {
	if !m.playing {
		return m.base
	}
	t := m.base + m.now().Sub(m.anchor).Seconds()*m.rate
	if m.duration > 0 && t >= m.duration {
		m.base = m.duration
		m.playing = false
		if m.stop != nil {
			// The read that crossed the end may not be a tick; deliver one
			// final tick so listeners observe the end position.
			m.stopTickerLocked()
			go m.Tick()
		}
		return m.duration
	}
	return t
}

func (m *SilentMedia) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positionLocked()
	return m.playing
}

func (m *SilentMedia) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.playing {
		return nil
	}
	if m.duration > 0 && m.base >= m.duration {
		return nil
	}
	m.anchor = m.now()
	m.playing = true
	m.startTickerLocked()
	return nil
}

func (m *SilentMedia) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.playing {
		return nil
	}
	m.base = m.positionLocked()
	m.playing = false
	m.stopTickerLocked()
	return nil
}

func (m *SilentMedia) Seek(t float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if m.duration > 0 && t > m.duration {
		t = m.duration
	}
	m.base = t
	m.anchor = m.now()
	return nil
}

func (m *SilentMedia) SetRate(r float64) error {
	if r <= 0 || math.IsNaN(r) {
		return ErrInvalidRate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.base = m.positionLocked()
	m.anchor = m.now()
	m.rate = r
	return nil
}

func (m *SilentMedia) SetVolume(v float64) error {
	m.mu.Lock()
	m.volume = v
	m.mu.Unlock()
	return nil
}

func (m *SilentMedia) OnTick(fn func()) {
	m.mu.Lock()
	m.ticks = append(m.ticks, fn)
	m.mu.Unlock()
}

// Tick runs the registered callbacks once.
func (m *SilentMedia) Tick() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	fns := append([]func(){}, m.ticks...)
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (m *SilentMedia) startTickerLocked() {
	if m.manual || m.stop != nil {
		return
	}
	stop := make(chan struct{})
	m.stop = stop
	go func() {
		t := time.NewTicker(m.interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				m.Tick()
			}
		}
	}()
}

func (m *SilentMedia) stopTickerLocked() {
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}

func (m *SilentMedia) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.playing = false
	m.stopTickerLocked()
	m.ticks = nil
	return nil
}

// SilentOpener opens SilentMedia for any source.
type SilentOpener struct {
	Interval time.Duration
	Now      func() time.Time
	Manual   bool
}

func (o SilentOpener) Open(_ context.Context, src Source) (Media, error) {
	opts := []SilentOption{WithTickInterval(o.Interval)}
	if o.Now != nil {
		opts = append(opts, WithClock(o.Now))
	}
	if o.Manual {
		opts = append(opts, WithManualTicks())
	}
	return NewSilentMedia(src.Duration, opts...), nil
}
