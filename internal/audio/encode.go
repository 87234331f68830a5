package audio

import (
	"bytes"
	"fmt"
	"strings"

	shine "github.com/braheezy/shine-mp3/pkg/mp3"
)

// Format is an encode target.
type Format string

const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
)

// ParseFormat maps user input ("wav", "audio/mpeg", "MP3") to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "wav", "audio/wav", "audio/x-wav":
		return FormatWAV, nil
	case "mp3", "audio/mpeg", "audio/mp3":
		return FormatMP3, nil
	default:
		return "", fmt.Errorf("%w: encode target %q", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type for an encoded format.
func (f Format) ContentType() string {
	if f == FormatMP3 {
		return "audio/mpeg"
	}
	return "audio/wav"
}

// Extension returns the file extension for an encoded format.
func (f Format) Extension() string {
	if f == FormatMP3 {
		return ".mp3"
	}
	return ".wav"
}

// Encode serializes a waveform into the target container. WAV is a
// lossless 16-bit PCM round trip; MP3 is lossy but preserves duration
// within the encoder's frame padding.
func Encode(w Waveform, target Format) ([]byte, error) {
	if err := w.validate(); err != nil {
		return nil, fmt.Errorf("%w: encode input", err)
	}
	switch target {
	case FormatWAV:
		return encodeWAV(w)
	case FormatMP3:
		return encodeMP3(w)
	default:
		return nil, fmt.Errorf("%w: encode target %q", ErrUnsupportedFormat, target)
	}
}

// encodeMP3 uses the pure-Go shine encoder on mono 16-bit PCM.
func encodeMP3(w Waveform) ([]byte, error) {
	pcm := make([]int16, len(w.Samples))
	for i, s := range w.Samples {
		pcm[i] = floatToInt16(s)
	}

	enc := shine.NewEncoder(w.SampleRate, 1)

	var buf bytes.Buffer
	if err := enc.Write(&buf, pcm); err != nil {
		return nil, fmt.Errorf("mp3 encode: %w", err)
	}
	return buf.Bytes(), nil
}
