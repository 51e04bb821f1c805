package drm

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"
)

// DefaultMIME is used when an Encoder is not given an explicit MIME type.
const DefaultMIME = "image/jpeg"

// Encoder turns an opaque payload (the caller's compressed image) into a
// 12 kHz mono PCM waveform carrying it over the DRM-profile OFDM signal
// described in the package's component files.
type Encoder struct {
	// MIME is recorded in the SDC and defaults to DefaultMIME.
	MIME string
	// Parallel bounds how many frames are modulated concurrently; 0 means
	// runtime.GOMAXPROCS(0), capped at the number of frames.
	Parallel int
}

// NewEncoder returns an Encoder with defaults applied.
func NewEncoder() *Encoder {
	return &Encoder{MIME: DefaultMIME}
}

func (e *Encoder) mime() string {
	if e.MIME == "" {
		return DefaultMIME
	}
	return e.MIME
}

func (e *Encoder) workers(n int) int {
	w := e.Parallel
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Encode renders payload to a complete WAV file.
func (e *Encoder) Encode(payload []byte) ([]byte, error) {
	samples, err := e.EncodeSamples(payload)
	if err != nil {
		return nil, err
	}
	return EncodeWAV(samples, SampleRate), nil
}

// EncodeSamples runs the §4.7 pipeline and returns the peak-normalised
// sample vector without a WAV wrapper.
func (e *Encoder) EncodeSamples(payload []byte) ([]float64, error) {
	if len(payload) > MaxPayloadLen {
		return nil, fmt.Errorf("encode: %w", ErrPayloadTooLarge)
	}

	segs := segmentMSC(payload)
	wire := serialiseSegments(segs)
	coded := convEncode(bytesToBits(wire), punctureMSC)

	if rem := len(coded) % MSCBitsPerSuperframe; rem != 0 {
		coded = append(coded, make([]byte, MSCBitsPerSuperframe-rem)...)
	}
	numFrames := len(coded) / MSCBitsPerFrame

	facBits := encodeFAC()
	sdcBytes, err := encodeSDC(len(payload), e.mime())
	if err != nil {
		return nil, err
	}
	sdcBits := bytesToBits(sdcBytes)

	facSlots := facSlotsInSymbol0()
	sdcSlots := sdcSlotsInSymbol0()

	frameSamples := make([][]float64, numFrames)
	err = parallelFor(numFrames, e.workers(numFrames), func(f int) error {
		mscBits := coded[f*MSCBitsPerFrame : (f+1)*MSCBitsPerFrame]
		cells := Bits16QAMToCells(mscBits)
		cells = freqInterleaveFrame(cells)
		cells = timeInterleave(cells)

		ofdmCells := make([]Cell, 0, MSCCellsPerFrame+len(facSlots)+len(sdcSlots))
		idx := 0
		for s := 0; s < SymbolsPerFrame; s++ {
			for _, i := range mscSlotsInSymbol(s) {
				ofdmCells = append(ofdmCells, Cell{Symbol: s, Carrier: i, Value: cells[idx]})
				idx++
			}
		}

		facChunk := wrapBits(facBits, (f*4)%len(facBits), 4)
		for i, ci := range facSlots {
			b0, b1 := int(facChunk[i*2]), int(facChunk[i*2+1])
			ofdmCells = append(ofdmCells, Cell{Symbol: 0, Carrier: ci, Value: MapQPSK(b0, b1)})
		}

		sdcChunk := wrapBits(sdcBits, (f*12)%len(sdcBits), 12)
		for i, ci := range sdcSlots {
			b0, b1 := int(sdcChunk[i*2]), int(sdcChunk[i*2+1])
			ofdmCells = append(ofdmCells, Cell{Symbol: 0, Carrier: ci, Value: MapQPSK(b0, b1)})
		}

		frameSamples[f] = ModulateFrame(ofdmCells)
		return nil
	})
	if err != nil {
		return nil, err
	}

	samples := make([]float64, 0, numFrames*FrameLen)
	for _, fs := range frameSamples {
		samples = append(samples, fs...)
	}

	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak > 1e-9 {
		scale := 0.9 / peak
		for i := range samples {
			samples[i] *= scale
		}
	}
	return samples, nil
}

// wrapBits returns n bits of bits starting at offset, wrapping around the
// end of the slice. Used for spreading the fixed FAC word and SDC record
// a few bits at a time across many frames.
func wrapBits(bits []byte, offset, n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = bits[(offset+i)%len(bits)]
	}
	return out
}

// parallelFor runs fn(i) for i in [0,n) using up to workers goroutines,
// returning the first error encountered (if any). Used for the per-frame
// OFDM modulation/demodulation loops, which share no mutable state beyond
// each call's own output slot.
func parallelFor(n, workers int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	if workers <= 1 || n == 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := fn(i); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

// Diagnostics summarises one decode call for the caller, per §6's
// diagnostics record.
type Diagnostics struct {
	SampleRateIn      int
	FileDurationS     float64
	Mode              string
	SpectrumOccupancy string
	FECRate           string
	SNRdB             float64
	FramesDecoded     int
	SegmentErrors     int
	DecodeDurationMS  int64

	HasSDC        bool
	MIME          string
	PayloadLength int
}

// Decoder recovers a payload and diagnostics from a DRM-profile waveform.
type Decoder struct {
	// Parallel bounds per-frame demodulation concurrency; 0 means
	// runtime.GOMAXPROCS(0), capped at the number of frames.
	Parallel int
}

// NewDecoder returns a Decoder with defaults applied.
func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) workers(n int) int {
	w := d.Parallel
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Decode parses a WAV file and runs the §4.8 pipeline.
func (d *Decoder) Decode(wav []byte) ([]byte, Diagnostics, error) {
	samples, rate, err := DecodeWAV(wav)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	return d.DecodeSamples(samples, rate)
}

// DecodeSamples runs the §4.8 pipeline directly on a sample vector
// (e.g. captured live from an audio device) at the given sample rate.
func (d *Decoder) DecodeSamples(samples []float64, sampleRate int) ([]byte, Diagnostics, error) {
	startedAt := time.Now()
	diag := Diagnostics{SampleRateIn: sampleRate}

	work := samples
	if sampleRate != SampleRate {
		work = Resample(samples, sampleRate)
	}
	diag.FileDurationS = float64(len(work)) / float64(SampleRate)

	p := CoarseSync(work)
	avail := len(work) - p
	numFrames := avail / FrameLen
	if numFrames < 1 {
		numFrames = 1
	}
	frames := DemodulateFrames(work, p, numFrames)

	facSlots := facSlotsInSymbol0()
	sdcSlots := sdcSlotsInSymbol0()

	mscBitsAll := make([][]byte, numFrames)
	facBitsAll := make([][]byte, numFrames)
	sdcBitsAll := make([][]byte, numFrames)

	err := parallelFor(numFrames, d.workers(numFrames), func(f int) error {
		frame := frames[f]
		h := EstimateChannel(frame)

		var eq Frame
		for s := 0; s < SymbolsPerFrame; s++ {
			for i := 0; i < NumCarriers; i++ {
				eq.Cells[s][i] = Equalize(frame.Cells[s][i], h[s][i])
			}
		}

		mscCells := make([]complex128, 0, MSCCellsPerFrame)
		for s := 0; s < SymbolsPerFrame; s++ {
			for _, i := range mscSlotsInSymbol(s) {
				mscCells = append(mscCells, eq.Cells[s][i])
			}
		}
		mscCells = timeDeinterleave(mscCells)
		mscCells = freqDeinterleaveFrame(mscCells)
		mscBitsAll[f] = Cells16QAMToBits(mscCells)

		facBits := make([]byte, 0, len(facSlots)*2)
		for _, ci := range facSlots {
			b0, b1 := DemapQPSK(eq.Cells[0][ci])
			facBits = append(facBits, byte(b0), byte(b1))
		}
		facBitsAll[f] = facBits

		sdcBits := make([]byte, 0, len(sdcSlots)*2)
		for _, ci := range sdcSlots {
			b0, b1 := DemapQPSK(eq.Cells[0][ci])
			sdcBits = append(sdcBits, byte(b0), byte(b1))
		}
		sdcBitsAll[f] = sdcBits
		return nil
	})
	if err != nil {
		return nil, Diagnostics{}, err
	}

	diag.SNRdB = EstimateSNR(frames[0])
	diag.FramesDecoded = numFrames
	diag.Mode = "B"
	diag.SpectrumOccupancy = "SO_0"
	diag.FECRate = "1/2"

	if facWord, ok := reconstructFAC(facBitsAll); ok {
		if params, err := decodeFAC(facWord); err == nil {
			diag.Mode = params.Mode
			diag.SpectrumOccupancy = params.SpectrumOccupancy
		}
	}

	var sdc SDCRecord
	if rec, ok := reconstructSDC(sdcBitsAll); ok {
		sdc = rec
		diag.HasSDC = true
		diag.MIME = rec.MIME
		diag.PayloadLength = rec.PayloadLength
	}

	var mscBits []byte
	for _, b := range mscBitsAll {
		mscBits = append(mscBits, b...)
	}
	codedLen := len(mscBits) / popcount6(punctureMSC)
	decodedBits := convDecode(mscBits, punctureMSC, codedLen)
	wire := bitsToBytes(decodedBits)

	segs, err := deserialiseSegments(wire)
	if err != nil {
		diag.DecodeDurationMS = time.Since(startedAt).Milliseconds()
		return nil, diag, err
	}
	for _, s := range segs {
		if !s.CRCOK {
			diag.SegmentErrors++
		}
	}

	expectedTotal := 0
	if diag.HasSDC {
		expectedTotal = (sdc.PayloadLength + MaxSegmentData - 1) / MaxSegmentData
		if expectedTotal == 0 {
			expectedTotal = 1
		}
	} else if len(segs) > 0 {
		expectedTotal = segs[0].Total
	}

	payload, err := reassembleMSC(segs, expectedTotal)
	diag.DecodeDurationMS = time.Since(startedAt).Milliseconds()
	if err != nil {
		return nil, diag, err
	}
	return payload, diag, nil
}

func popcount6(p [6]int) int {
	n := 0
	for _, v := range p {
		n += v
	}
	return n
}

// reconstructFAC rebuilds the fixed 72-bit FAC word by writing each
// frame's 4-bit chunk at its (f*4 mod 72) position, per the same
// wraparound the encoder used. Returns false if some bit of the word was
// never observed (fewer than 18 frames decoded).
func reconstructFAC(facBitsAll [][]byte) ([]byte, bool) {
	const totalBits = 72
	buf := make([]byte, totalBits)
	filled := make([]bool, totalBits)
	for f, chunk := range facBitsAll {
		off := (f * 4) % totalBits
		for i, b := range chunk {
			pos := (off + i) % totalBits
			buf[pos] = b
			filled[pos] = true
		}
	}
	for _, ok := range filled {
		if !ok {
			return nil, false
		}
	}
	return buf, true
}

// reconstructSDC reconstructs the SDC byte record by trying each
// byte-aligned candidate total length (the record's framing is
// self-describing only once fully reconstructed, so the length itself
// isn't known up front): for each candidate it replays the encoder's
// 12-bit-per-frame wraparound placement, and accepts the first candidate
// whose every bit was observed and whose CRC-16 verifies.
func reconstructSDC(sdcBitsAll [][]byte) (SDCRecord, bool) {
	const minBytes = 3 + 1 + 2 // length + empty mime + crc
	maxBytes := 3 + MaxMIMELen + 1 + 2
	for totalBytes := minBytes; totalBytes <= maxBytes; totalBytes++ {
		totalBits := totalBytes * 8
		buf := make([]byte, totalBits)
		filled := make([]bool, totalBits)
		for f, chunk := range sdcBitsAll {
			off := (f * 12) % totalBits
			for i, b := range chunk {
				pos := (off + i) % totalBits
				buf[pos] = b
				filled[pos] = true
			}
		}
		complete := true
		for _, ok := range filled {
			if !ok {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		rec, err := decodeSDC(bitsToBytes(buf))
		if err == nil {
			return rec, true
		}
	}
	return SDCRecord{}, false
}
