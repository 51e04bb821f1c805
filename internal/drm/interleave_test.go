package drm

import (
	"testing"

	"pgregory.net/rapid"
)

func randomCells(t *rapid.T, n int, allowZero bool) []complex128 {
	cells := make([]complex128, n)
	for i := range cells {
		re := rapid.Float64Range(-5, 5).Draw(t, "re")
		im := rapid.Float64Range(-5, 5).Draw(t, "im")
		if !allowZero && re == 0 && im == 0 {
			re = 1
		}
		cells[i] = complex(re, im)
	}
	return cells
}

func TestFreqInterleave_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cells := randomCells(t, MSCCellsPerFrame, true)
		out := freqDeinterleaveFrame(freqInterleaveFrame(cells))
		for i := range cells {
			if out[i] != cells[i] {
				t.Fatalf("mismatch at %d: got %v want %v", i, out[i], cells[i])
			}
		}
	})
}

func TestFreqInterleave_Bijective(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cells := randomCells(t, MSCCellsPerFrame, false)
		out := freqInterleaveFrame(cells)
		for i, c := range out {
			if c == 0 {
				t.Fatalf("freqInterleaveFrame produced zero cell at %d", i)
			}
		}
	})
}

func TestTimeInterleave_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cells := randomCells(t, MSCCellsPerFrame, true)
		out := timeDeinterleave(timeInterleave(cells))
		for i := range cells {
			if out[i] != cells[i] {
				t.Fatalf("mismatch at %d: got %v want %v", i, out[i], cells[i])
			}
		}
	})
}

func TestInterleave_CombinedRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cells := randomCells(t, MSCCellsPerFrame, true)
		enc := timeInterleave(freqInterleaveFrame(cells))
		dec := freqDeinterleaveFrame(timeDeinterleave(enc))
		for i := range cells {
			if dec[i] != cells[i] {
				t.Fatalf("combined round trip mismatch at %d: got %v want %v", i, dec[i], cells[i])
			}
		}
	})
}

func TestFreqInterleavePerm_IsBijection(t *testing.T) {
	for _, n := range []int{16, 24} {
		perm := freqInterleavePerm(n)
		if len(perm) != n {
			t.Fatalf("n=%d: perm length = %d, want %d", n, len(perm), n)
		}
		seen := make([]bool, n)
		for _, p := range perm {
			if p < 0 || p >= n || seen[p] {
				t.Fatalf("n=%d: perm is not a bijection: %v", n, perm)
			}
			seen[p] = true
		}
	}
}
