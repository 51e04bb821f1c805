package drm

import (
	"testing"

	"pgregory.net/rapid"
)

func TestConvCode_ZeroVector(t *testing.T) {
	bits := make([]byte, 32)
	coded := convEncode(bits, punctureMSC)

	wantLen := (len(bits) + convK - 1) * popcount6(punctureMSC)
	if len(coded) != wantLen {
		t.Fatalf("encoded length = %d, want %d", len(coded), wantLen)
	}

	codedLen := len(coded) / popcount6(punctureMSC)
	decoded := convDecode(coded, punctureMSC, codedLen)
	if len(decoded) != len(bits) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(bits))
	}
	for i, b := range decoded {
		if b != 0 {
			t.Fatalf("decoded[%d] = %d, want 0", i, b)
		}
	}
}

func TestConvCode_ViterbiRoundTrip(t *testing.T) {
	patterns := map[string][6]int{
		"msc": punctureMSC,
		"fac": punctureFAC,
		"sdc": punctureSDC,
	}
	for name, pattern := range patterns {
		pattern := pattern
		t.Run(name, func(t *testing.T) {
			rapid.Check(t, func(t *rapid.T) {
				n := rapid.IntRange(0, 200).Draw(t, "n")
				bits := make([]byte, n)
				for i := range bits {
					bits[i] = byte(rapid.IntRange(0, 1).Draw(t, "bit"))
				}

				coded := convEncode(bits, pattern)
				codedLen := len(coded) / popcount6(pattern)
				decoded := convDecode(coded, pattern, codedLen)

				if len(decoded) != len(bits) {
					t.Fatalf("decoded length = %d, want %d", len(decoded), len(bits))
				}
				for i := range bits {
					if decoded[i] != bits[i] {
						t.Fatalf("bit %d: got %d want %d", i, decoded[i], bits[i])
					}
				}
			})
		})
	}
}
