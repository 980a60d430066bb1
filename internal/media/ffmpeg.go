package media

import (
	"context"
	"strconv"
)

type FFmpeg struct {
	Path   string
	Runner Runner
}

func NewFFmpeg(path string, r Runner) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	if r == nil {
		r = ExecRunner{}
	}
	return &FFmpeg{Path: path, Runner: r}
}

// ExtractSegment writes [start, start+length) of in to out as mono 16 kHz WAV.
func (f *FFmpeg) ExtractSegment(ctx context.Context, in, out string, start, length float64) error {
	_, _, err := f.Runner.Run(ctx, f.Path,
		"-hide_banner", "-loglevel", "error", "-y",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(length),
		"-i", in,
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		out,
	)
	return err
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
