package audio

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts a waveform to the target sample rate using the pure-Go
// SoX-quality resampler. Returns the input unchanged when rates match.
func Resample(w Waveform, targetRate int) (Waveform, error) {
	if targetRate <= 0 {
		return Waveform{}, fmt.Errorf("%w: target rate %d", ErrUnsupportedFormat, targetRate)
	}
	if w.SampleRate == targetRate {
		return w, nil
	}
	if err := w.validate(); err != nil {
		return Waveform{}, fmt.Errorf("%w: resample input", err)
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(w.SampleRate),
		OutputRate: float64(targetRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return Waveform{}, fmt.Errorf("create resampler: %w", err)
	}

	input := make([]float64, len(w.Samples))
	for i, s := range w.Samples {
		input[i] = float64(s)
	}

	output, err := rs.Process(input)
	if err != nil {
		return Waveform{}, fmt.Errorf("resample: %w", err)
	}

	samples := make([]float32, len(output))
	for i, s := range output {
		samples[i] = clampSample(float32(s))
	}

	return Waveform{
		Samples:        samples,
		SampleRate:     targetRate,
		SourceChannels: w.SourceChannels,
	}, nil
}
