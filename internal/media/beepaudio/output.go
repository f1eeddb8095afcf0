package beepaudio

import (
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// DeviceRate is the sample rate the speaker is opened at.
const DeviceRate = beep.SampleRate(48000)

// output is the sink streamers are mixed into.
type output interface {
	Init(sr beep.SampleRate) error
	Play(s beep.Streamer)
	Lock()
	Unlock()
}

type speakerOutput struct {
	once sync.Once
	err  error
}

func (o *speakerOutput) Init(sr beep.SampleRate) error {
	o.once.Do(func() {
		o.err = speaker.Init(sr, sr.N(100*time.Millisecond))
	})
	return o.err
}

func (o *speakerOutput) Play(s beep.Streamer) { speaker.Play(s) }
func (o *speakerOutput) Lock()                { speaker.Lock() }
func (o *speakerOutput) Unlock()              { speaker.Unlock() }

var defaultOutput = &speakerOutput{}
