package catalog

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

type WAVProber struct{}

func (WAVProber) Probe(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("%s is not a valid wav file", path)
	}
	if err := dec.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("read wav header: %w", err)
	}
	bytesPerSecond := float64(dec.SampleRate) * float64(dec.NumChans) * float64(dec.BitDepth) / 8
	if bytesPerSecond <= 0 {
		return 0, fmt.Errorf("%s has an invalid wav format", path)
	}
	return float64(dec.PCMLen()) / bytesPerSecond, nil
}
