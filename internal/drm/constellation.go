package drm

import "math"

// qam16Scale and qpskScale are the per-spec point scales: 16-QAM points
// sit at (+-1,+-3)/(+-3,+-1) * sqrt(1/10); 4-QAM points sit at (+-1,+-1)
// * sqrt(1/2).
var qam16Scale = math.Sqrt(1.0 / 10.0)
var qpskScale = math.Sqrt(0.5)

// grayPerm is the 2-bit Gray permutation {0,1,3,2} applied along each
// 16-QAM axis.
var grayPerm = [4]int{0, 1, 3, 2}

// axisValue maps a 2-bit row/column index (0..3) to its constellation
// coordinate value in {-3,-1,1,3}.
var axisValue = [4]float64{-3, -1, 1, 3}

// Map16QAM maps 4 bits (MSB first: b0 b1 b2 b3) to a 16-QAM symbol. Row
// is formed from the first two bits (imaginary axis), column from the
// last two (real axis), per the spec's
// symbol = (grayRow[row]<<2)|grayCol[col] construction.
func Map16QAM(bits [4]int) complex128 {
	row := (bits[0] << 1) | bits[1]
	col := (bits[2] << 1) | bits[3]
	re := axisValue[grayPerm[col]] * qam16Scale
	im := axisValue[grayPerm[row]] * qam16Scale
	return complex(re, im)
}

// Demap16QAM returns the 4 bits (MSB first) of the symbol index
// minimising Euclidean distance to c.
func Demap16QAM(c complex128) [4]int {
	bestIdx := 0
	bestDist := math.Inf(1)
	for s := 0; s < 16; s++ {
		row := (s >> 2) & 3
		col := s & 3
		re := axisValue[grayPerm[col]] * qam16Scale
		im := axisValue[grayPerm[row]] * qam16Scale
		dr := real(c) - re
		di := imag(c) - im
		d := dr*dr + di*di
		if d < bestDist {
			bestDist = d
			bestIdx = s
		}
	}
	return [4]int{(bestIdx >> 3) & 1, (bestIdx >> 2) & 1, (bestIdx >> 1) & 1, bestIdx & 1}
}

// qpskPoints is the 4-QAM constellation table, pre-scaled to sqrt(1/2).
var qpskPoints = [4]complex128{
	complex(1, 1),
	complex(-1, 1),
	complex(-1, -1),
	complex(1, -1),
}

func init() {
	for i := range qpskPoints {
		qpskPoints[i] = complex(real(qpskPoints[i])*qpskScale, imag(qpskPoints[i])*qpskScale)
	}
}

// MapQPSK maps 2 bits (b0, b1) to a 4-QAM symbol via
// constellation[(b0<<1)|b1].
func MapQPSK(b0, b1 int) complex128 {
	return qpskPoints[(b0<<1)|b1]
}

// DemapQPSK inverts MapQPSK by quadrant decision: with i = re>=0 and
// q = im>=0 it returns b0 = !q and b1 = i^q.
func DemapQPSK(c complex128) (b0, b1 int) {
	i := 0
	if real(c) >= 0 {
		i = 1
	}
	q := 0
	if imag(c) >= 0 {
		q = 1
	}
	return 1 ^ q, i ^ q
}

// Bits16QAMToCells maps a flat MSB-first bit slice (len a multiple of 4)
// to 16-QAM cells.
func Bits16QAMToCells(bits []byte) []complex128 {
	n := len(bits) / 4
	out := make([]complex128, n)
	for i := 0; i < n; i++ {
		var b [4]int
		for j := 0; j < 4; j++ {
			b[j] = int(bits[i*4+j])
		}
		out[i] = Map16QAM(b)
	}
	return out
}

// Cells16QAMToBits is the inverse of Bits16QAMToCells.
func Cells16QAMToBits(cells []complex128) []byte {
	out := make([]byte, 0, len(cells)*4)
	for _, c := range cells {
		b := Demap16QAM(c)
		for _, v := range b {
			out = append(out, byte(v))
		}
	}
	return out
}
