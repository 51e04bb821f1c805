package drm

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeWAV quantises samples (assumed already peak-normalised to roughly
// [-1, 1] by the modulator) into a 16-bit mono PCM WAV file at sampleRate.
func EncodeWAV(samples []float64, sampleRate int) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s * 32767.0
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(math.Round(v))))
	}

	const headerSz = 44
	buf := make([]byte, 0, headerSz+len(data))
	buf = append(buf, "RIFF"...)
	buf = appendU32(buf, uint32(36+len(data)))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = appendU32(buf, 16)
	buf = appendU16(buf, 1) // PCM
	buf = appendU16(buf, 1) // mono
	buf = appendU32(buf, uint32(sampleRate))
	byteRate := sampleRate * 2
	buf = appendU32(buf, uint32(byteRate))
	buf = appendU16(buf, 2)  // block align
	buf = appendU16(buf, 16) // bits per sample
	buf = append(buf, "data"...)
	buf = appendU32(buf, uint32(len(data)))
	buf = append(buf, data...)
	return buf
}

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}

// DecodeWAV parses a RIFF/WAVE/fmt/data PCM file, returning samples scaled
// to [-1, 1]. Only 16-bit PCM is understood; stereo input takes channel 0.
func DecodeWAV(b []byte) (samples []float64, sampleRate int, err error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("wav: %w", ErrInputMalformed)
	}

	var numChannels, bitsPerSample int
	var dataOffset, dataLen int
	pos := 12
	for pos+8 <= len(b) {
		id := string(b[pos : pos+4])
		sz := int(binary.LittleEndian.Uint32(b[pos+4 : pos+8]))
		body := pos + 8
		if body+sz > len(b) {
			sz = len(b) - body
		}
		switch id {
		case "fmt ":
			if sz < 16 {
				return nil, 0, fmt.Errorf("wav: %w", ErrInputMalformed)
			}
			numChannels = int(binary.LittleEndian.Uint16(b[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(b[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(b[body+14 : body+16]))
		case "data":
			dataOffset = body
			dataLen = sz
		}
		pos = body + sz
		if sz%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}

	if numChannels == 0 || bitsPerSample != 16 || dataOffset == 0 {
		return nil, 0, fmt.Errorf("wav: %w", ErrInputMalformed)
	}

	frameBytes := 2 * numChannels
	n := dataLen / frameBytes
	samples = make([]float64, n)
	for i := 0; i < n; i++ {
		off := dataOffset + i*frameBytes
		v := int16(binary.LittleEndian.Uint16(b[off : off+2]))
		samples[i] = float64(v) / 32768.0
	}
	return samples, sampleRate, nil
}
