package drm

import (
	"testing"

	"pgregory.net/rapid"
)

func TestQPSK_MapDemap(t *testing.T) {
	for b0 := 0; b0 <= 1; b0++ {
		for b1 := 0; b1 <= 1; b1++ {
			c := MapQPSK(b0, b1)
			g0, g1 := DemapQPSK(c)
			if g0 != b0 || g1 != b1 {
				t.Errorf("MapQPSK(%d,%d)=%v DemapQPSK=(%d,%d)", b0, b1, c, g0, g1)
			}
		}
	}
}

func Test16QAM_MapDemap(t *testing.T) {
	for s := 0; s < 16; s++ {
		bits := [4]int{(s >> 3) & 1, (s >> 2) & 1, (s >> 1) & 1, s & 1}
		c := Map16QAM(bits)
		got := Demap16QAM(c)
		if got != bits {
			t.Errorf("16QAM symbol %d: map/demap mismatch, got %v want %v", s, got, bits)
		}
	}
}

func TestBits16QAM_CellsRoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 100).Draw(t, "n")
		bits := make([]byte, n*4)
		for i := range bits {
			bits[i] = byte(rapid.IntRange(0, 1).Draw(t, "bit"))
		}
		cells := Bits16QAMToCells(bits)
		out := Cells16QAMToBits(cells)
		for i := range bits {
			if out[i] != bits[i] {
				t.Fatalf("bit %d: got %d want %d", i, out[i], bits[i])
			}
		}
	})
}
