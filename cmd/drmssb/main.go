package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/jeongseonghan/audio-modem/internal/audio"
	"github.com/jeongseonghan/audio-modem/internal/drm"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "encode":
		err = runEncode(os.Args[2:])
	case "decode":
		err = runDecode(os.Args[2:])
	case "list-devices":
		err = audio.PrintDevices()
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "drmssb: unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `drmssb - HAMDRM/EasyPal-style digital SSTV codec

Usage:
  drmssb encode --in picture.bin --out signal.wav [--mime image/jpeg] [--play] [--config drmssb.yaml]
  drmssb decode --in signal.wav --out picture.bin [--rate 44100] [--record] [--config drmssb.yaml]
  drmssb list-devices`)
}

func runEncode(args []string) error {
	fs := pflag.NewFlagSet("encode", pflag.ExitOnError)
	in := fs.StringP("in", "i", "", "input payload file (the compressed image bytes)")
	out := fs.StringP("out", "o", "", "output WAV file")
	mime := fs.String("mime", "", "MIME type recorded in the SDC (overrides config default)")
	play := fs.Bool("play", false, "play the generated signal on the config's device_name output device (default device if unset)")
	cfgPath := fs.String("config", "", "optional YAML config file")
	workers := fs.Int("parallel", 0, "per-frame modulation concurrency (0 = automatic)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("encode: -in is required")
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *mime == "" {
		*mime = cfg.MIME
	}

	log.Info("reading payload", "path", *in)
	payload, err := os.ReadFile(*in)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	enc := &drm.Encoder{MIME: *mime, Parallel: *workers}
	log.Info("encoding", "bytes", len(payload), "mime", *mime)
	samples, err := enc.EncodeSamples(payload)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	log.Info("encoded", "samples", len(samples), "duration_s", float64(len(samples))/drm.SampleRate)

	if *out != "" {
		wav := drm.EncodeWAV(samples, drm.SampleRate)
		if err := os.WriteFile(*out, wav, 0o644); err != nil {
			return fmt.Errorf("write wav: %w", err)
		}
		log.Info("wrote wav", "path", *out, "bytes", len(wav))
	}

	if *play {
		if err := playSamples(samples, cfg.DeviceName); err != nil {
			return fmt.Errorf("play: %w", err)
		}
	}
	return nil
}

func runDecode(args []string) error {
	fs := pflag.NewFlagSet("decode", pflag.ExitOnError)
	in := fs.StringP("in", "i", "", "input WAV file (omit with -record to capture live instead)")
	out := fs.StringP("out", "o", "", "output payload file")
	rate := fs.Int("rate", 0, "sample rate of a raw (non-WAV) capture; ignored for -in")
	record := fs.Bool("record", false, "capture live from the config's device_name input device (default device if unset) instead of --in")
	duration := fs.Duration("duration", 20*time.Second, "capture duration with -record")
	cfgPath := fs.String("config", "", "optional YAML config file")
	workers := fs.Int("parallel", 0, "per-frame demodulation concurrency (0 = automatic)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var samples []float64
	var sampleRate int

	switch {
	case *record:
		sampleRate = cfg.SampleRate
		if *rate != 0 {
			sampleRate = *rate
		}
		log.Info("recording", "sample_rate", sampleRate, "duration", *duration, "device", cfg.DeviceName)
		samples, err = recordSamples(sampleRate, *duration, cfg.DeviceName)
		if err != nil {
			return fmt.Errorf("record: %w", err)
		}
	case *in != "":
		data, err := os.ReadFile(*in)
		if err != nil {
			return fmt.Errorf("read wav: %w", err)
		}
		samples, sampleRate, err = drm.DecodeWAV(data)
		if err != nil {
			return fmt.Errorf("decode wav: %w", err)
		}
	default:
		return fmt.Errorf("decode: -in or -record is required")
	}

	dec := &drm.Decoder{Parallel: *workers}
	log.Info("decoding", "samples", len(samples), "sample_rate", sampleRate)
	payload, diag, err := dec.DecodeSamples(samples, sampleRate)
	if err != nil {
		log.Warn("decode finished with error", "err", err, "frames_decoded", diag.FramesDecoded)
		return err
	}

	log.Info("decoded",
		"bytes", len(payload),
		"mode", diag.Mode,
		"spectrum_occupancy", diag.SpectrumOccupancy,
		"fec_rate", diag.FECRate,
		"snr_db", diag.SNRdB,
		"frames_decoded", diag.FramesDecoded,
		"segment_errors", diag.SegmentErrors,
		"decode_duration_ms", diag.DecodeDurationMS,
		"mime", diag.MIME,
	)
	if diag.SegmentErrors > 0 {
		log.Warn("segment recovery incomplete", "segment_errors", diag.SegmentErrors)
	}

	if *out != "" {
		if err := os.WriteFile(*out, payload, 0o644); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
		log.Info("wrote payload", "path", *out)
	}
	return nil
}
