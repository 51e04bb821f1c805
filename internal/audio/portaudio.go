package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// DefaultSampleRate and DefaultFramesPerBuf are sane defaults for a
// device stream feeding (or fed by) the DRM codec's 12 kHz internal rate
// directly; a device-native rate (44100, 48000, ...) works too, since
// the decoder resamples and the encoder's output is just a float stream.
const (
	DefaultSampleRate   = 12000
	DefaultFramesPerBuf = 320 // one OFDM symbol length at the native rate
	NumChannels         = 1
)

// AudioIO wraps PortAudio for mono audio input/output at a caller-chosen
// sample rate and buffer size.
type AudioIO struct {
	sampleRate   float64
	framesPerBuf int

	inputStream  *portaudio.Stream
	outputStream *portaudio.Stream
	inputBuf     []float32
	outputBuf    []float32
	mu           sync.Mutex
}

// Init initializes PortAudio.
func Init() error {
	return portaudio.Initialize()
}

// Terminate cleans up PortAudio.
func Terminate() error {
	return portaudio.Terminate()
}

// NewAudioIO creates a new AudioIO instance. sampleRate <= 0 defaults to
// DefaultSampleRate; framesPerBuf <= 0 defaults to DefaultFramesPerBuf.
func NewAudioIO(sampleRate, framesPerBuf int) *AudioIO {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if framesPerBuf <= 0 {
		framesPerBuf = DefaultFramesPerBuf
	}
	return &AudioIO{
		sampleRate:   float64(sampleRate),
		framesPerBuf: framesPerBuf,
		inputBuf:     make([]float32, framesPerBuf),
		outputBuf:    make([]float32, framesPerBuf),
	}
}

// SampleRate returns the rate this stream was opened at.
func (a *AudioIO) SampleRate() int {
	return int(a.sampleRate)
}

// OpenInput opens the default input stream.
func (a *AudioIO) OpenInput() error {
	return a.OpenInputNamed("")
}

// OpenInputNamed opens the input stream on the first device whose name
// contains deviceSubstr, or the default input device when deviceSubstr
// is empty.
func (a *AudioIO) OpenInputNamed(deviceSubstr string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	dev, err := FindInputDevice(deviceSubstr)
	if err != nil {
		return fmt.Errorf("find input device: %w", err)
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: NumChannels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      a.sampleRate,
		FramesPerBuffer: a.framesPerBuf,
	}
	stream, err := portaudio.OpenStream(params, a.inputBuf)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	a.inputStream = stream
	return nil
}

// OpenOutput opens the default output stream.
func (a *AudioIO) OpenOutput() error {
	return a.OpenOutputNamed("")
}

// OpenOutputNamed is OpenInputNamed's output-side counterpart.
func (a *AudioIO) OpenOutputNamed(deviceSubstr string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	dev, err := FindOutputDevice(deviceSubstr)
	if err != nil {
		return fmt.Errorf("find output device: %w", err)
	}

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: NumChannels,
			Latency:  dev.DefaultLowOutputLatency,
		},
		SampleRate:      a.sampleRate,
		FramesPerBuffer: a.framesPerBuf,
	}
	stream, err := portaudio.OpenStream(params, a.outputBuf)
	if err != nil {
		return fmt.Errorf("open output stream: %w", err)
	}
	a.outputStream = stream
	return nil
}

// StartInput starts the input stream.
func (a *AudioIO) StartInput() error {
	if a.inputStream == nil {
		return fmt.Errorf("input stream not opened")
	}
	return a.inputStream.Start()
}

// StartOutput starts the output stream.
func (a *AudioIO) StartOutput() error {
	if a.outputStream == nil {
		return fmt.Errorf("output stream not opened")
	}
	return a.outputStream.Start()
}

// Read reads one buffer's worth of samples from the input stream.
func (a *AudioIO) Read() ([]float32, error) {
	if a.inputStream == nil {
		return nil, fmt.Errorf("input stream not opened")
	}
	if err := a.inputStream.Read(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	out := make([]float32, len(a.inputBuf))
	copy(out, a.inputBuf)
	return out, nil
}

// Write writes one buffer's worth of samples to the output stream.
func (a *AudioIO) Write(samples []float32) error {
	if a.outputStream == nil {
		return fmt.Errorf("output stream not opened")
	}
	copy(a.outputBuf, samples)
	return a.outputStream.Write()
}

// WriteSamples writes a large buffer of samples in framesPerBuf chunks,
// zero-padding the final partial chunk.
func (a *AudioIO) WriteSamples(samples []float32) error {
	for i := 0; i < len(samples); i += a.framesPerBuf {
		end := i + a.framesPerBuf
		if end > len(samples) {
			chunk := make([]float32, a.framesPerBuf)
			copy(chunk, samples[i:])
			if err := a.Write(chunk); err != nil {
				return err
			}
		} else {
			if err := a.Write(samples[i:end]); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadSamples reads n samples from the input stream.
func (a *AudioIO) ReadSamples(n int) ([]float32, error) {
	result := make([]float32, 0, n)
	for len(result) < n {
		chunk, err := a.Read()
		if err != nil {
			return nil, err
		}
		result = append(result, chunk...)
	}
	return result[:n], nil
}

// StopInput stops the input stream.
func (a *AudioIO) StopInput() error {
	if a.inputStream == nil {
		return nil
	}
	return a.inputStream.Stop()
}

// StopOutput stops the output stream.
func (a *AudioIO) StopOutput() error {
	if a.outputStream == nil {
		return nil
	}
	return a.outputStream.Stop()
}

// Close closes all streams.
func (a *AudioIO) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.inputStream != nil {
		if err := a.inputStream.Close(); err != nil {
			errs = append(errs, err)
		}
		a.inputStream = nil
	}
	if a.outputStream != nil {
		if err := a.outputStream.Close(); err != nil {
			errs = append(errs, err)
		}
		a.outputStream = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
