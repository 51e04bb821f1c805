package drm

import (
	"math"
	"math/cmplx"
	"sort"
)

// Cell is a single data cell to be placed into one frame's OFDM grid,
// tagged by symbol index and carrier-array index (0-based within the
// active band).
type Cell struct {
	Symbol  int
	Carrier int
	Value   complex128
}

// Frame is one demodulated transmission frame: 15 symbols x 29 active
// carriers of raw (pre-equalisation) complex cells.
type Frame struct {
	Cells [SymbolsPerFrame][NumCarriers]complex128
}

// ModulateFrame renders one frame's data cells (MSC, FAC, SDC; pilots
// are inserted automatically) into N_s*15 = 4800 real samples.
func ModulateFrame(cells []Cell) []float64 {
	var grid [SymbolsPerFrame][NumCarriers]complex128
	for _, c := range cells {
		grid[c.Symbol][c.Carrier] = c.Value
	}

	samples := make([]float64, 0, FrameLen)
	for s := 0; s < SymbolsPerFrame; s++ {
		spectrum := make([]complex128, FFTSize)
		for i := 0; i < NumCarriers; i++ {
			k := CarrierMin + i
			bin := CarrierBin(k)
			if SlotKindAt(s, i) == SlotPilot {
				spectrum[bin] = PilotValue
			} else {
				spectrum[bin] = grid[s][i]
			}
		}
		enforceHermitian(spectrum)

		td := IFFT(spectrum)
		for j := FFTSize - GuardLen; j < FFTSize; j++ {
			samples = append(samples, real(td[j]))
		}
		for j := 0; j < FFTSize; j++ {
			samples = append(samples, real(td[j]))
		}
	}
	return samples
}

// enforceHermitian mirrors every populated bin to its conjugate so the
// inverse transform yields a (numerically) real-valued signal. The
// active carriers occupy a contiguous band that never collides with
// its own mirror image, so this never overwrites an assigned bin.
func enforceHermitian(spectrum []complex128) {
	n := len(spectrum)
	for b := 1; b < n/2; b++ {
		if spectrum[b] != 0 {
			spectrum[n-b] = cmplx.Conj(spectrum[b])
		}
	}
}

// CoarseSync scans candidate start offsets and returns the one with the
// strongest guard-interval autocorrelation, exploiting that the cyclic
// prefix duplicates the symbol's last N_g useful samples.
func CoarseSync(samples []float64) int {
	n := len(samples)
	maxP := 2 * SymbolLen
	if n-SymbolLen < maxP {
		maxP = n - SymbolLen
	}
	if maxP < 0 {
		maxP = 0
	}

	bestP := 0
	bestVal := -1.0
	for p := 0; p < maxP; p++ {
		if p+FFTSize+GuardLen > n {
			break
		}
		var num, denA, denB float64
		for i := 0; i < GuardLen; i++ {
			a := samples[p+i]
			b := samples[p+FFTSize+i]
			num += a * b
			denA += a * a
			denB += b * b
		}
		denom := math.Sqrt(denA * denB)
		val := 0.0
		if denom > 1e-12 {
			val = math.Abs(num) / denom
		}
		if val > bestVal {
			bestVal = val
			bestP = p
		}
	}
	return bestP
}

// DemodulateFrames extracts `count` frames' worth of raw (pre-equalised)
// cells starting at sample offset p.
func DemodulateFrames(samples []float64, p, count int) []Frame {
	out := make([]Frame, count)
	for f := 0; f < count; f++ {
		var fr Frame
		for s := 0; s < SymbolsPerFrame; s++ {
			start := p + (f*SymbolsPerFrame+s)*SymbolLen + GuardLen
			td := make([]complex128, FFTSize)
			for i := 0; i < FFTSize; i++ {
				idx := start + i
				if idx >= 0 && idx < len(samples) {
					td[i] = complex(samples[idx], 0)
				}
			}
			spectrum := FFT(td)
			for i := 0; i < NumCarriers; i++ {
				k := CarrierMin + i
				fr.Cells[s][i] = spectrum[CarrierBin(k)]
			}
		}
		out[f] = fr
	}
	return out
}

// timePilotIndices converts the time-pilot carrier set to ascending
// carrier-array indices.
func timePilotIndices() []int {
	idx := make([]int, 0, len(timePilotCarriers))
	for _, k := range timePilotCarriers {
		idx = append(idx, k-CarrierMin)
	}
	sort.Ints(idx)
	return idx
}

var pilotIdx = timePilotIndices()

// EstimateChannel produces a per-cell channel estimate for one frame by
// interpolating between the nearest pilot observations in the same
// symbol, falling back to the previous symbol's estimate (or a unit
// response) when a symbol carries no pilots.
func EstimateChannel(frame Frame) [SymbolsPerFrame][NumCarriers]complex128 {
	var H [SymbolsPerFrame][NumCarriers]complex128
	var prev [NumCarriers]complex128
	havePrev := false

	for s := 0; s < SymbolsPerFrame; s++ {
		if len(pilotIdx) == 0 {
			if havePrev {
				H[s] = prev
			} else {
				for i := range H[s] {
					H[s][i] = 1
				}
			}
			continue
		}

		h := make(map[int]complex128, len(pilotIdx))
		for _, pi := range pilotIdx {
			h[pi] = frame.Cells[s][pi] / PilotValue
		}

		for i := 0; i < NumCarriers; i++ {
			before, after := -1, -1
			for _, pi := range pilotIdx {
				if pi <= i {
					before = pi
				}
			}
			for j := len(pilotIdx) - 1; j >= 0; j-- {
				if pilotIdx[j] >= i {
					after = pilotIdx[j]
					break
				}
			}
			switch {
			case before == -1 && after == -1:
				H[s][i] = 1
			case before == -1:
				H[s][i] = h[after]
			case after == -1:
				H[s][i] = h[before]
			case before == after:
				H[s][i] = h[before]
			default:
				t := complex(float64(i-before)/float64(after-before), 0)
				H[s][i] = h[before] + t*(h[after]-h[before])
			}
		}
		prev = H[s]
		havePrev = true
	}
	return H
}

// Equalize performs zero-forcing equalisation of a single cell: rx/h,
// returning (0,0) when h is too close to singular to invert safely.
func Equalize(rx, h complex128) complex128 {
	d := real(h)*real(h) + imag(h)*imag(h)
	if d < 1e-12 {
		return 0
	}
	re := (real(rx)*real(h) + imag(rx)*imag(h)) / d
	im := (imag(rx)*real(h) - real(rx)*imag(h)) / d
	return complex(re, im)
}

// EstimateSNR estimates the signal-to-noise ratio in dB from a frame's
// pilot cells, comparing received values against the known pilot value.
func EstimateSNR(frame Frame) float64 {
	var s, n float64
	count := 0
	pilotPower := real(PilotValue)*real(PilotValue) + imag(PilotValue)*imag(PilotValue)
	for sym := 0; sym < SymbolsPerFrame; sym++ {
		for _, pi := range pilotIdx {
			rx := frame.Cells[sym][pi]
			diff := rx - PilotValue
			s += pilotPower
			n += real(diff)*real(diff) + imag(diff)*imag(diff)
			count++
		}
	}
	if count == 0 || n < 1e-15 {
		return 40
	}
	return 10 * math.Log10(s/n)
}
