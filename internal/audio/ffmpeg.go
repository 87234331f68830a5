package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// decodeWithFFmpeg handles containers with no pure-Go decoder (M4A, WEBM)
// by shelling out to ffmpeg and re-parsing its WAV output. ffmpeg writes
// streaming chunk sizes to pipes; decodeWAV tolerates that.
func decodeWithFFmpeg(ctx context.Context, raw []byte) (Waveform, error) {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return Waveform{}, fmt.Errorf("%w: ffmpeg not installed", ErrUnsupportedFormat)
	}

	cmd := exec.CommandContext(ctx, path,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-f", "wav", "-acodec", "pcm_s16le",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(raw)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Waveform{}, ctx.Err()
		}
		return Waveform{}, fmt.Errorf("%w: ffmpeg: %s", ErrCorrupt, firstLine(stderr.String()))
	}
	return decodeWAV(out.Bytes())
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
