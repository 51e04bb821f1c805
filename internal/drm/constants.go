// Package drm implements the physical and data-link layers of a narrowband
// DRM (Digital Radio Mondiale) Mode B profile carrying a single data
// service, tuned for the EasyPal/HAMDRM "digital SSTV" amateur use case:
// a still-image payload modulated onto a 12 kHz mono audio waveform.
package drm

import "math"

// Fixed physical-layer parameters. All of these are constants of the
// profile; nothing in this package computes them from configuration.
const (
	SampleRate = 12000 // Hz, internal processing rate

	SymbolsPerFrame      = 15
	FramesPerSuperframe  = 3
	FFTSize              = 256 // N_u, useful symbol length
	GuardLen             = FFTSize / 4 // N_g = 64
	SymbolLen            = FFTSize + GuardLen // N_s = 320
	FrameLen             = SymbolLen * SymbolsPerFrame
	SuperframeLen        = FrameLen * FramesPerSuperframe

	centerBin = 32 // FFT bin for the k=0 subcarrier (1500 Hz)

	CarrierMin = -10
	CarrierMax = 18
	NumCarriers = CarrierMax - CarrierMin + 1 // 29

	// MSCBitsPerFrame is the number of coded (post-FEC) MSC bits carried in
	// a single transmission frame: 352 cells * 4 bits/cell (16-QAM).
	MSCCellsPerFrame = 352
	MSCBitsPerFrame  = MSCCellsPerFrame * 4

	// MSCBitsPerSuperframe is one super-frame's MSC capacity: the unit
	// the top-level encoder zero-pads the convolutionally-encoded
	// bitstream up to.
	MSCBitsPerSuperframe = MSCBitsPerFrame * FramesPerSuperframe // 4224

	// MaxSegmentData is the largest payload a single MSC segment can
	// carry (800-byte segment cap, 4-byte header).
	MaxSegmentData  = 796
	SegmentHeaderSz = 4
	SegmentCRCSz    = 2
	MaxSegmentSize  = SegmentHeaderSz + MaxSegmentData + SegmentCRCSz // 802 w/ crc, 800 w/o

	MaxMIMELen = 32

	// MaxPayloadLen is the largest payload the SDC's 24-bit length field
	// can represent.
	MaxPayloadLen = 1<<24 - 1
)

// PilotValue is the deterministic complex value every pilot cell carries.
var PilotValue = complex(math.Sqrt2, 0)

// timePilotCarriers is the set of carrier indices (k, not i) that are
// pilots in every OFDM symbol.
var timePilotCarriers = [...]int{-9, -3, 4, 8, 12}

// freqPilotSymbolCarrier tags the subset of time-pilot cells that double
// as frequency-domain anchor pilots; these cells are NOT additional slots
// (they are already counted as time-pilot cells) — the tag exists purely
// as bookkeeping matching the spec's naming, and is otherwise unused by
// the channel estimator (every symbol already observes all five pilot
// carriers, frequency pilots or not).
var freqPilotSymbolCarrier = map[[2]int]bool{
	{0, -9}: true, {0, 8}: true,
	{5, -3}: true, {5, 12}: true,
	{10, 4}: true,
	{14, -9}: true, {14, 8}: true,
}

// facCarriers and sdcCarriers are the fixed carrier positions of FAC and
// SDC cells, present only in symbol 0.
var facCarriers = [...]int{-7, 6}
var sdcCarriers = [...]int{-6, -5, -4, 7, 9, 10}

// SlotKind classifies a single (symbol, carrier) cell.
type SlotKind int

const (
	SlotMSC SlotKind = iota
	SlotPilot
	SlotFAC
	SlotSDC
)

// slotBitmap[s][i] holds the SlotKind for symbol s, carrier-array index
// i (i=0 maps to carrier k=CarrierMin). Built once by a package-level
// variable initializer (so package variables derived from it, such as
// mscGroupOffset, see the finished layout) and never mutated afterward,
// per the "no recursion, no mutable globals" design note.
var slotBitmap = buildSlotBitmap()

func buildSlotBitmap() [SymbolsPerFrame][NumCarriers]SlotKind {
	var bm [SymbolsPerFrame][NumCarriers]SlotKind
	isTimePilot := make(map[int]bool, len(timePilotCarriers))
	for _, k := range timePilotCarriers {
		isTimePilot[k] = true
	}
	isFAC := make(map[int]bool, len(facCarriers))
	for _, k := range facCarriers {
		isFAC[k] = true
	}
	isSDC := make(map[int]bool, len(sdcCarriers))
	for _, k := range sdcCarriers {
		isSDC[k] = true
	}

	for s := 0; s < SymbolsPerFrame; s++ {
		for i := 0; i < NumCarriers; i++ {
			k := CarrierMin + i
			switch {
			case isTimePilot[k]:
				bm[s][i] = SlotPilot
			case s == 0 && isFAC[k]:
				bm[s][i] = SlotFAC
			case s == 0 && isSDC[k]:
				bm[s][i] = SlotSDC
			default:
				bm[s][i] = SlotMSC
			}
		}
	}
	return bm
}

// SlotKindAt returns the classification of the cell at (symbol, carrier
// index i, 0-based within the active band).
func SlotKindAt(symbol, i int) SlotKind {
	return slotBitmap[symbol][i]
}

// CarrierBin maps an active carrier k in [CarrierMin, CarrierMax] to its
// FFT bin index.
func CarrierBin(k int) int {
	return ((centerBin+k)%FFTSize + FFTSize) % FFTSize
}

// mscSlotsInSymbol returns the carrier-array indices (i, not k) of the
// MSC cells in the given symbol, in ascending carrier order — the
// canonical slot order the top-level encoder/decoder use to place and
// extract MSC cells.
func mscSlotsInSymbol(symbol int) []int {
	var out []int
	for i := 0; i < NumCarriers; i++ {
		if slotBitmap[symbol][i] == SlotMSC {
			out = append(out, i)
		}
	}
	return out
}

// facSlotsInSymbol0 and sdcSlotsInSymbol0 return the canonical (ascending
// carrier) slot order for FAC/SDC cells, both only present in symbol 0.
func facSlotsInSymbol0() []int {
	var out []int
	for i := 0; i < NumCarriers; i++ {
		if slotBitmap[0][i] == SlotFAC {
			out = append(out, i)
		}
	}
	return out
}

func sdcSlotsInSymbol0() []int {
	var out []int
	for i := 0; i < NumCarriers; i++ {
		if slotBitmap[0][i] == SlotSDC {
			out = append(out, i)
		}
	}
	return out
}

// mscCellsPerSymbol returns how many MSC cells a given symbol index
// carries: 16 in symbol 0, 24 in symbols 1..14.
func mscCellsPerSymbol(symbol int) int {
	return len(mscSlotsInSymbol(symbol))
}
