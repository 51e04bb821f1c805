package main

import (
	"time"

	"github.com/jeongseonghan/audio-modem/internal/audio"
	"github.com/jeongseonghan/audio-modem/internal/drm"
)

// playSamples opens the output device whose name contains deviceName (or
// the default output device if empty) at the codec's native rate and
// writes the generated waveform.
func playSamples(samples []float64, deviceName string) error {
	if err := audio.Init(); err != nil {
		return err
	}
	defer audio.Terminate()

	io := audio.NewAudioIO(drm.SampleRate, drm.SymbolLen)
	if err := io.OpenOutputNamed(deviceName); err != nil {
		return err
	}
	defer io.Close()
	if err := io.StartOutput(); err != nil {
		return err
	}
	defer io.StopOutput()

	f32 := make([]float32, len(samples))
	for i, s := range samples {
		f32[i] = float32(s)
	}
	return io.WriteSamples(f32)
}

// recordSamples opens the input device whose name contains deviceName (or
// the default input device if empty) at sampleRate and captures for the
// given duration, handing the result to Decoder.DecodeSamples at exactly
// the sample boundary it expects.
func recordSamples(sampleRate int, duration time.Duration, deviceName string) ([]float64, error) {
	if err := audio.Init(); err != nil {
		return nil, err
	}
	defer audio.Terminate()

	io := audio.NewAudioIO(sampleRate, audio.DefaultFramesPerBuf)
	if err := io.OpenInputNamed(deviceName); err != nil {
		return nil, err
	}
	defer io.Close()
	if err := io.StartInput(); err != nil {
		return nil, err
	}
	defer io.StopInput()

	n := int(duration.Seconds() * float64(sampleRate))
	f32, err := io.ReadSamples(n)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(f32))
	for i, s := range f32 {
		out[i] = float64(s)
	}
	return out, nil
}
