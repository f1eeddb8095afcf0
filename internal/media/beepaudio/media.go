package beepaudio

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"

	"lessonplay/internal/playback"
)

const resampleQuality = 4

// Opener decodes .wav and .mp3 files into speaker-backed media.
type Opener struct {
	Interval time.Duration
	out      output
}

func NewOpener(interval time.Duration) *Opener {
	return &Opener{Interval: interval, out: defaultOutput}
}

func (o *Opener) Open(ctx context.Context, src playback.Source) (playback.Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := o.out
	if out == nil {
		out = defaultOutput
	}
	if err := out.Init(DeviceRate); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}

	f, err := os.Open(src.Path)
	if err != nil {
		return nil, err
	}
	var (
		stream beep.StreamSeekCloser
		format beep.Format
	)
	switch strings.ToLower(filepath.Ext(src.Path)) {
	case ".wav":
		stream, format, err = wav.Decode(f)
	case ".mp3":
		stream, format, err = mp3.Decode(f)
	default:
		err = fmt.Errorf("unsupported audio format %q", filepath.Ext(src.Path))
	}
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	m := newMedia(stream, format, out, o.Interval)
	out.Play(m.chain)
	return m, nil
}

// Media plays one decoded stream through the speaker.
type Media struct {
	stream   beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	resample *beep.Resampler
	volume   *effects.Volume
	chain    beep.Streamer
	out      output

	done atomic.Bool

	mu       sync.Mutex
	closed   bool
	interval time.Duration
	ticks    []func()
	stop     chan struct{}
}

func newMedia(stream beep.StreamSeekCloser, format beep.Format, out output, interval time.Duration) *Media {
	if interval <= 0 {
		interval = playback.DefaultTickInterval
	}
	m := &Media{stream: stream, format: format, out: out, interval: interval}
	m.ctrl = &beep.Ctrl{Streamer: stream, Paused: true}
	m.resample = beep.ResampleRatio(resampleQuality, m.baseRatio(), m.ctrl)
	m.volume = &effects.Volume{Streamer: m.resample, Base: 2}
	m.chain = beep.Seq(m.volume, beep.Callback(m.finish))
	return m
}

func (m *Media) baseRatio() float64 {
	return float64(m.format.SampleRate) / float64(DeviceRate)
}

// finish runs on the speaker goroutine with the speaker lock held.
func (m *Media) finish() {
	m.done.Store(true)
	go m.fire()
}

func (m *Media) Duration() float64 {
	return m.format.SampleRate.D(m.stream.Len()).Seconds()
}

func (m *Media) Position() float64 {
	m.out.Lock()
	pos := m.stream.Position()
	m.out.Unlock()
	return m.format.SampleRate.D(pos).Seconds()
}

func (m *Media) Playing() bool {
	if m.done.Load() {
		return false
	}
	m.out.Lock()
	defer m.out.Unlock()
	return !m.ctrl.Paused && m.stream.Position() < m.stream.Len()
}

func (m *Media) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return playback.ErrClosed
	}
	if m.done.Swap(false) {
		// The speaker drops a finished sequence; queue the chain again.
		m.chain = beep.Seq(m.volume, beep.Callback(m.finish))
		m.out.Play(m.chain)
	}
	m.out.Lock()
	m.ctrl.Paused = false
	m.out.Unlock()
	m.startTickerLocked()
	return nil
}

func (m *Media) Pause() error {
	m.out.Lock()
	m.ctrl.Paused = true
	m.out.Unlock()
	m.mu.Lock()
	m.stopTickerLocked()
	m.mu.Unlock()
	return nil
}

func (m *Media) Seek(t float64) error {
	n := m.format.SampleRate.N(time.Duration(t * float64(time.Second)))
	if n < 0 {
		n = 0
	}
	if l := m.stream.Len(); n > l {
		n = l
	}
	m.out.Lock()
	defer m.out.Unlock()
	return m.stream.Seek(n)
}

func (m *Media) SetRate(r float64) error {
	if r <= 0 || math.IsNaN(r) {
		return playback.ErrInvalidRate
	}
	m.out.Lock()
	m.resample.SetRatio(m.baseRatio() * r)
	m.out.Unlock()
	return nil
}

// SetVolume maps a linear 0..1 level onto the base-2 volume effect.
func (m *Media) SetVolume(v float64) error {
	m.out.Lock()
	defer m.out.Unlock()
	if v <= 0 {
		m.volume.Silent = true
		return nil
	}
	m.volume.Silent = false
	m.volume.Volume = math.Log2(v)
	return nil
}

func (m *Media) OnTick(fn func()) {
	m.mu.Lock()
	m.ticks = append(m.ticks, fn)
	m.mu.Unlock()
}

func (m *Media) fire() {
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

func (m *Media) startTickerLocked() {
	if m.stop != nil {
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
				m.fire()
			}
		}
	}()
}

func (m *Media) stopTickerLocked() {
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}

func (m *Media) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.stopTickerLocked()
	m.ticks = nil
	m.mu.Unlock()

	m.out.Lock()
	m.ctrl.Paused = true
	m.ctrl.Streamer = nil
	m.out.Unlock()
	return m.stream.Close()
}
