package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// decodeWAV parses a RIFF/WAVE file into an interleaved float32 buffer.
// Supports PCM 8/16/24/32-bit and IEEE float32. Tolerates the streaming
// headers ffmpeg writes to pipes, where chunk sizes overrun the payload.
func decodeWAV(data []byte) (Waveform, error) {
	if len(data) < 44 || string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Waveform{}, fmt.Errorf("%w: missing RIFF/WAVE header", ErrUnsupportedFormat)
	}

	var (
		format        uint16
		channels      int
		sampleRate    int
		bitsPerSample int
		raw           []byte
		haveFmt       bool
	)

	// Walk chunks. Anything besides fmt/data is skipped.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(data) {
			// Streamed WAV: size fields lie, clamp to what we have.
			size = len(data) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return Waveform{}, fmt.Errorf("%w: short fmt chunk", ErrCorrupt)
			}
			format = binary.LittleEndian.Uint16(data[body : body+2])
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			raw = data[body : body+size]
		}
		// Chunks are word-aligned.
		off = body + size + size%2
		if id == "data" && raw != nil {
			break
		}
	}

	if !haveFmt {
		return Waveform{}, fmt.Errorf("%w: no fmt chunk", ErrCorrupt)
	}
	if channels <= 0 || sampleRate <= 0 {
		return Waveform{}, fmt.Errorf("%w: invalid fmt chunk", ErrCorrupt)
	}
	if len(raw) == 0 {
		return Waveform{}, fmt.Errorf("%w: no data chunk", ErrCorrupt)
	}

	var interleaved []float32
	switch {
	case format == wavFormatPCM && bitsPerSample == 16:
		n := len(raw) / 2
		interleaved = make([]float32, n)
		for i := 0; i < n; i++ {
			s := int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
			interleaved[i] = float32(s) / 32768.0
		}
	case format == wavFormatPCM && bitsPerSample == 8:
		interleaved = make([]float32, len(raw))
		for i, b := range raw {
			interleaved[i] = (float32(b) - 128) / 128.0
		}
	case format == wavFormatPCM && bitsPerSample == 24:
		n := len(raw) / 3
		interleaved = make([]float32, n)
		for i := 0; i < n; i++ {
			v := int32(raw[i*3]) | int32(raw[i*3+1])<<8 | int32(raw[i*3+2])<<16
			if v&0x800000 != 0 {
				v |= ^int32(0xFFFFFF)
			}
			interleaved[i] = float32(v) / 8388608.0
		}
	case format == wavFormatPCM && bitsPerSample == 32:
		n := len(raw) / 4
		interleaved = make([]float32, n)
		for i := 0; i < n; i++ {
			v := int32(binary.LittleEndian.Uint32(raw[i*4 : i*4+4]))
			interleaved[i] = float32(v) / 2147483648.0
		}
	case format == wavFormatFloat && bitsPerSample == 32:
		n := len(raw) / 4
		interleaved = make([]float32, n)
		for i := 0; i < n; i++ {
			interleaved[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4 : i*4+4]))
		}
	default:
		return Waveform{}, fmt.Errorf("%w: wav format %d with %d bits", ErrUnsupportedFormat, format, bitsPerSample)
	}

	w := Waveform{
		Samples:        downmix(interleaved, channels),
		SampleRate:     sampleRate,
		SourceChannels: channels,
	}
	if err := w.validate(); err != nil {
		return Waveform{}, fmt.Errorf("%w: wav payload", err)
	}
	return w, nil
}

// encodeWAV serializes a waveform as mono 16-bit PCM WAV.
func encodeWAV(w Waveform) ([]byte, error) {
	if w.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrCorrupt, w.SampleRate)
	}
	dataSize := uint32(len(w.Samples) * 2)

	var buf bytes.Buffer
	buf.Grow(44 + int(dataSize))

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(wavFormatPCM))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(w.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(w.SampleRate*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))              // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))             // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	for _, s := range w.Samples {
		binary.Write(&buf, binary.LittleEndian, floatToInt16(s))
	}
	return buf.Bytes(), nil
}

func floatToInt16(s float32) int16 {
	v := clampSample(s) * 32767
	return int16(math.Round(float64(v)))
}
