package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// Decode normalizes an uploaded audio file into a canonical waveform.
// hint is a MIME type ("audio/mpeg") or a filename/extension ("clip.mp3",
// ".mp3", "mp3"); when the hint is missing or wrong the container is
// sniffed from magic bytes. Multi-channel input is downmixed to mono by
// channel averaging. Pure transform: no persistent state is touched.
func Decode(ctx context.Context, raw []byte, hint string) (Waveform, error) {
	if len(raw) == 0 {
		return Waveform{}, fmt.Errorf("%w: empty input", ErrCorrupt)
	}

	switch normalizeHint(raw, hint) {
	case "wav":
		return decodeWAV(raw)
	case "mp3":
		return decodeMP3(raw)
	case "flac":
		return decodeFLAC(raw)
	case "ogg":
		return decodeOGG(raw)
	case "m4a", "webm":
		return decodeWithFFmpeg(ctx, raw)
	default:
		return Waveform{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, hint)
	}
}

// normalizeHint maps a MIME type or filename to a container name,
// preferring content sniffing over the declared hint.
func normalizeHint(raw []byte, hint string) string {
	if s := sniff(raw); s != "" {
		return s
	}

	h := strings.ToLower(strings.TrimSpace(hint))
	if i := strings.LastIndex(h, "."); i >= 0 {
		h = h[i+1:]
	}
	if i := strings.Index(h, ";"); i >= 0 {
		h = h[:i]
	}
	switch h {
	case "wav", "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	case "mp3", "mpeg", "mpga", "audio/mpeg", "audio/mp3":
		return "mp3"
	case "flac", "audio/flac", "audio/x-flac":
		return "flac"
	case "ogg", "oga", "audio/ogg", "application/ogg":
		return "ogg"
	case "m4a", "mp4", "aac", "audio/mp4", "audio/x-m4a", "audio/aac":
		return "m4a"
	case "webm", "audio/webm", "video/webm":
		return "webm"
	}
	return ""
}

// sniff identifies a container from its magic bytes.
func sniff(raw []byte) string {
	if len(raw) < 12 {
		return ""
	}
	switch {
	case bytes.Equal(raw[:4], []byte("RIFF")) && bytes.Equal(raw[8:12], []byte("WAVE")):
		return "wav"
	case bytes.Equal(raw[:4], []byte("fLaC")):
		return "flac"
	case bytes.Equal(raw[:4], []byte("OggS")):
		return "ogg"
	case bytes.Equal(raw[4:8], []byte("ftyp")):
		return "m4a"
	case bytes.Equal(raw[:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return "webm"
	case bytes.Equal(raw[:3], []byte("ID3")):
		return "mp3"
	case len(raw) >= 2 && raw[0] == 0xFF && raw[1]&0xE0 == 0xE0:
		return "mp3"
	}
	return ""
}

// decodeMP3 uses hajimehoshi/go-mp3, which always emits 16-bit stereo PCM.
func decodeMP3(raw []byte) (Waveform, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(raw))
	if err != nil {
		return Waveform{}, fmt.Errorf("%w: mp3: %v", ErrUnsupportedFormat, err)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return Waveform{}, fmt.Errorf("%w: mp3 frames: %v", ErrCorrupt, err)
	}

	const channels = 2 // go-mp3 output is always interleaved stereo
	n := len(pcm) / 2
	interleaved := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		interleaved[i] = float32(s) / 32768.0
	}

	w := Waveform{
		Samples:        downmix(interleaved, channels),
		SampleRate:     dec.SampleRate(),
		SourceChannels: channels,
	}
	if err := w.validate(); err != nil {
		return Waveform{}, fmt.Errorf("%w: mp3 payload", err)
	}
	return w, nil
}

func decodeFLAC(raw []byte) (Waveform, error) {
	stream, err := flac.Parse(bytes.NewReader(raw))
	if err != nil {
		return Waveform{}, fmt.Errorf("%w: flac: %v", ErrUnsupportedFormat, err)
	}

	channels := int(stream.Info.NChannels)
	scale := float32(int64(1) << (stream.Info.BitsPerSample - 1))

	var interleaved []float32
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Waveform{}, fmt.Errorf("%w: flac frame: %v", ErrCorrupt, err)
		}
		if len(frame.Subframes) == 0 {
			continue
		}
		blockLen := len(frame.Subframes[0].Samples)
		for i := 0; i < blockLen; i++ {
			for c := 0; c < channels && c < len(frame.Subframes); c++ {
				interleaved = append(interleaved, float32(frame.Subframes[c].Samples[i])/scale)
			}
		}
	}

	w := Waveform{
		Samples:        downmix(interleaved, channels),
		SampleRate:     int(stream.Info.SampleRate),
		SourceChannels: channels,
	}
	if err := w.validate(); err != nil {
		return Waveform{}, fmt.Errorf("%w: flac payload", err)
	}
	return w, nil
}

func decodeOGG(raw []byte) (Waveform, error) {
	samples, format, err := oggvorbis.ReadAll(bytes.NewReader(raw))
	if err != nil {
		return Waveform{}, fmt.Errorf("%w: ogg: %v", ErrUnsupportedFormat, err)
	}

	w := Waveform{
		Samples:        downmix(samples, format.Channels),
		SampleRate:     format.SampleRate,
		SourceChannels: format.Channels,
	}
	if err := w.validate(); err != nil {
		return Waveform{}, fmt.Errorf("%w: ogg payload", err)
	}
	return w, nil
}
