package drm

import (
	"math"
	"math/cmplx"
)

// FFT computes the Discrete Fourier Transform using Cooley-Tukey radix-2
// decimation-in-time. Input length must be a power of two.
func FFT(x []complex128) []complex128 {
	n := len(x)
	if n <= 1 {
		out := make([]complex128, n)
		copy(out, x)
		return out
	}
	if n&(n-1) != 0 {
		panic("drm: FFT length must be a power of two")
	}

	out := make([]complex128, n)
	copy(out, x)
	bitReverseInPlace(out)
	fftButterflies(out, false)
	return out
}

// IFFT computes the inverse DFT, scaling the result by 1/N.
func IFFT(x []complex128) []complex128 {
	n := len(x)
	if n <= 1 {
		out := make([]complex128, n)
		copy(out, x)
		return out
	}
	if n&(n-1) != 0 {
		panic("drm: IFFT length must be a power of two")
	}

	out := make([]complex128, n)
	copy(out, x)
	bitReverseInPlace(out)
	fftButterflies(out, true)

	scale := complex(1.0/float64(n), 0)
	for i := range out {
		out[i] *= scale
	}
	return out
}

func fftButterflies(x []complex128, inverse bool) {
	n := len(x)
	sign := -1.0
	if inverse {
		sign = 1.0
	}
	for size := 2; size <= n; size <<= 1 {
		half := size >> 1
		wn := cmplx.Exp(complex(0, sign*2*math.Pi/float64(size)))
		for start := 0; start < n; start += size {
			w := complex(1.0, 0)
			for j := 0; j < half; j++ {
				u := x[start+j]
				v := w * x[start+j+half]
				x[start+j] = u + v
				x[start+j+half] = u - v
				w *= wn
			}
		}
	}
}

func bitReverseInPlace(x []complex128) {
	n := len(x)
	bits := 0
	for tmp := n; tmp > 1; tmp >>= 1 {
		bits++
	}
	for i := 0; i < n; i++ {
		j := reverseBitsN(i, bits)
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}
}

// reverseBitsN reverses the low `bits` bits of x.
func reverseBitsN(x, bits int) int {
	result := 0
	for i := 0; i < bits; i++ {
		result = (result << 1) | (x & 1)
		x >>= 1
	}
	return result
}

// ceilLog2 returns the smallest k such that 2^k >= n, for n >= 1.
func ceilLog2(n int) int {
	k := 0
	for (1 << k) < n {
		k++
	}
	return k
}
