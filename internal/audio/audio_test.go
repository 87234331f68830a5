package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

// sineWave builds a mono sine waveform for tests.
func sineWave(t *testing.T, freq float64, seconds float64, rate int) Waveform {
	t.Helper()
	n := int(seconds * float64(rate))
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return Waveform{Samples: samples, SampleRate: rate, SourceChannels: 1}
}

func TestWAVRoundTrip(t *testing.T) {
	orig := sineWave(t, 440, 0.5, 22050)

	data, err := Encode(orig, FormatWAV)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := Decode(context.Background(), data, "wav")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if decoded.SampleRate != orig.SampleRate {
		t.Errorf("sample rate = %d, want %d", decoded.SampleRate, orig.SampleRate)
	}
	if len(decoded.Samples) != len(orig.Samples) {
		t.Fatalf("sample count = %d, want %d", len(decoded.Samples), len(orig.Samples))
	}

	// 16-bit quantization bounds the round-trip error.
	const tol = 1.5 / 32768.0
	for i := range orig.Samples {
		diff := math.Abs(float64(decoded.Samples[i] - orig.Samples[i]))
		if diff > tol {
			t.Fatalf("sample %d differs by %g (tol %g)", i, diff, tol)
		}
	}
}

// stereoWAV builds a 16-bit stereo WAV file byte-by-byte.
func stereoWAV(t *testing.T, left, right []int16, rate int) []byte {
	t.Helper()
	var pcm bytes.Buffer
	for i := range left {
		binary.Write(&pcm, binary.LittleEndian, left[i])
		binary.Write(&pcm, binary.LittleEndian, right[i])
	}
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+pcm.Len()))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate*4))
	binary.Write(&buf, binary.LittleEndian, uint16(4))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(pcm.Len()))
	buf.Write(pcm.Bytes())
	return buf.Bytes()
}

func TestDecodeStereoDownmix(t *testing.T) {
	left := []int16{16384, 16384, -16384, 0}
	right := []int16{0, 16384, 16384, 0}
	data := stereoWAV(t, left, right, 16000)

	w, err := Decode(context.Background(), data, "audio/wav")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if w.SourceChannels != 2 {
		t.Errorf("source channels = %d, want 2", w.SourceChannels)
	}
	if len(w.Samples) != 4 {
		t.Fatalf("mono samples = %d, want 4", len(w.Samples))
	}

	want := []float32{0.25, 0.5, 0, 0}
	for i := range want {
		if math.Abs(float64(w.Samples[i]-want[i])) > 1e-3 {
			t.Errorf("sample %d = %g, want %g", i, w.Samples[i], want[i])
		}
	}
}

func TestDecodeFailures(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		data []byte
		hint string
		want error
	}{
		{"empty input", nil, "wav", ErrCorrupt},
		{"unknown container", []byte("not audio at all, clearly"), "xyz", ErrUnsupportedFormat},
		{"truncated riff", []byte("RIFF....WAVE"), "wav", ErrUnsupportedFormat},
		{"wav without data", append([]byte("RIFF\x24\x00\x00\x00WAVE"), make([]byte, 32)...), "wav", ErrCorrupt},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(ctx, tc.data, tc.hint)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMP3DurationTolerance(t *testing.T) {
	orig := sineWave(t, 440, 1.0, 44100)

	data, err := Encode(orig, FormatMP3)
	if err != nil {
		t.Fatalf("mp3 encode failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("mp3 encode produced no bytes")
	}

	// Sniffed from magic bytes, no hint needed.
	decoded, err := Decode(context.Background(), data, "")
	if err != nil {
		t.Fatalf("mp3 decode failed: %v", err)
	}

	if diff := math.Abs(decoded.Duration() - orig.Duration()); diff > 0.1 {
		t.Errorf("duration drift %.3fs after mp3 round trip", diff)
	}
}

func TestResampleRatio(t *testing.T) {
	orig := sineWave(t, 440, 0.5, 22050)

	up, err := Resample(orig, 44100)
	if err != nil {
		t.Fatalf("resample failed: %v", err)
	}
	if up.SampleRate != 44100 {
		t.Errorf("sample rate = %d, want 44100", up.SampleRate)
	}

	want := float64(len(orig.Samples)) * 2
	got := float64(len(up.Samples))
	if math.Abs(got-want)/want > 0.05 {
		t.Errorf("resampled length = %d, want ~%d", len(up.Samples), int(want))
	}
}

func TestResampleSameRateIsIdentity(t *testing.T) {
	orig := sineWave(t, 440, 0.1, 22050)
	out, err := Resample(orig, 22050)
	if err != nil {
		t.Fatalf("resample failed: %v", err)
	}
	if len(out.Samples) != len(orig.Samples) {
		t.Errorf("identity resample changed length: %d -> %d", len(orig.Samples), len(out.Samples))
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"":           FormatWAV,
		"wav":        FormatWAV,
		"MP3":        FormatMP3,
		"audio/mpeg": FormatMP3,
	} {
		got, err := ParseFormat(in)
		if err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := ParseFormat("aiff"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ParseFormat(aiff) error = %v, want ErrUnsupportedFormat", err)
	}
}
