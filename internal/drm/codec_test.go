package drm

import (
	"bytes"
	"testing"

	"pgregory.net/rapid"
)

func TestEncodeDecode_TenBytePayload(t *testing.T) {
	payload := make([]byte, 10)
	for i := range payload {
		payload[i] = byte(i)
	}

	enc := NewEncoder()
	wav, err := enc.Encode(payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	samples, rate, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != SampleRate {
		t.Fatalf("sample rate = %d, want %d", rate, SampleRate)
	}

	dataBytes := len(samples) * 2
	frameBytes := FrameLen * 2
	if dataBytes%frameBytes != 0 {
		t.Fatalf("data size %d is not a multiple of one frame (%d bytes)", dataBytes, frameBytes)
	}

	dec := NewDecoder()
	out, diag, err := dec.DecodeSamples(samples, rate)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("decoded payload = %v, want %v", out, payload)
	}
	if diag.SegmentErrors != 0 {
		t.Fatalf("segment errors = %d, want 0", diag.SegmentErrors)
	}
}

func TestEncodeDecode_CleanChannelRoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 4000).Draw(t, "n")
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = byte(rapid.IntRange(0, 255).Draw(t, "b"))
		}

		enc := NewEncoder()
		samples, err := enc.EncodeSamples(payload)
		if err != nil {
			t.Fatalf("EncodeSamples: %v", err)
		}

		dec := NewDecoder()
		out, _, err := dec.DecodeSamples(samples, SampleRate)
		if err != nil {
			t.Fatalf("DecodeSamples: %v", err)
		}
		if !bytes.Equal(out, payload) {
			t.Fatalf("round trip mismatch for payload of length %d", n)
		}
	})
}

func TestEncode_PayloadTooLarge(t *testing.T) {
	enc := NewEncoder()
	_, err := enc.EncodeSamples(make([]byte, MaxPayloadLen+1))
	if err == nil {
		t.Fatal("expected error for oversize payload")
	}
}

func TestEncodeDecode_MIMERecovered(t *testing.T) {
	// SDC is spread 12 bits/frame over a 120-bit record ("image/png"
	// clipped/padded to the SDC layout), so recovering it needs at least
	// 10 frames' worth of distinct wraparound offsets. A payload this
	// size spans several superframes, unlike a small payload (up to 169
	// bytes) which fits in one superframe (3 frames).
	payload := bytes.Repeat([]byte("hello world, this is a drmssb test payload. "), 80)
	enc := &Encoder{MIME: "image/png"}
	samples, err := enc.EncodeSamples(payload)
	if err != nil {
		t.Fatalf("EncodeSamples: %v", err)
	}

	dec := NewDecoder()
	out, diag, err := dec.DecodeSamples(samples, SampleRate)
	if err != nil {
		t.Fatalf("DecodeSamples: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("payload mismatch")
	}
	if !diag.HasSDC {
		t.Fatal("expected SDC to be recovered")
	}
	if diag.MIME != "image/png" {
		t.Fatalf("MIME = %q, want %q", diag.MIME, "image/png")
	}
	if diag.PayloadLength != len(payload) {
		t.Fatalf("PayloadLength = %d, want %d", diag.PayloadLength, len(payload))
	}
	if diag.Mode != "B" || diag.SpectrumOccupancy != "SO_0" {
		t.Fatalf("unexpected FAC params in diagnostics: %+v", diag)
	}
}

func TestEncode_ParallelMatchesSerial(t *testing.T) {
	payload := bytes.Repeat([]byte("DRMSSTV"), 400)

	serial := &Encoder{Parallel: 1}
	parallel := &Encoder{Parallel: 8}

	s1, err := serial.EncodeSamples(payload)
	if err != nil {
		t.Fatalf("serial EncodeSamples: %v", err)
	}
	s2, err := parallel.EncodeSamples(payload)
	if err != nil {
		t.Fatalf("parallel EncodeSamples: %v", err)
	}
	if len(s1) != len(s2) {
		t.Fatalf("length mismatch: %d vs %d", len(s1), len(s2))
	}
	for i := range s1 {
		if s1[i] != s2[i] {
			t.Fatalf("sample %d differs between serial and parallel encode: %v vs %v", i, s1[i], s2[i])
		}
	}
}
