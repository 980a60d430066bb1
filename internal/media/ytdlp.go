package media

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"video-recipe-go/internal/types"
)

// YtDlp wraps the yt-dlp binary.
type YtDlp struct {
	Path   string
	Runner Runner
}

func NewYtDlp(path string, r Runner) *YtDlp {
	if path == "" {
		path = "yt-dlp"
	}
	if r == nil {
		r = ExecRunner{}
	}
	return &YtDlp{Path: path, Runner: r}
}

// Metadata fetches video info without downloading anything.
func (y *YtDlp) Metadata(ctx context.Context, videoURL string) (*types.VideoMetadata, error) {
	out, _, err := y.Runner.Run(ctx, y.Path, "--dump-json", "--skip-download", "--no-warnings", "--no-playlist", videoURL)
	if err != nil {
		return nil, err
	}

	var info struct {
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Duration    float64 `json:"duration"`
		Uploader    string  `json:"uploader"`
		Thumbnail   string  `json:"thumbnail"`
	}
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("yt-dlp: decode metadata: %w", err)
	}
	return &types.VideoMetadata{
		Title:       info.Title,
		Description: info.Description,
		Duration:    info.Duration,
		Uploader:    info.Uploader,
		Thumbnail:   info.Thumbnail,
	}, nil
}

// HasAudio reports whether --list-formats shows at least one audio stream.
func (y *YtDlp) HasAudio(ctx context.Context, videoURL string) (bool, error) {
	out, _, err := y.Runner.Run(ctx, y.Path, "--list-formats", "--no-warnings", "--no-playlist", videoURL)
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(string(out), "\n") {
		l := strings.ToLower(line)
		if strings.Contains(l, "video only") {
			continue
		}
		if strings.Contains(l, "audio only") || strings.Contains(l, "mp4a") || strings.Contains(l, "opus") || strings.Contains(l, "m4a") {
			return true, nil
		}
	}
	return false, nil
}

type DownloadRequest struct {
	URL string
	// OutputBase is the output path without extension; yt-dlp appends it.
	OutputBase string
	Format     string // wav, mp3, ...
	Selector   string // -f value
	MaxSeconds int
}

// DownloadAudio fetches audio only, transcoded to mono 16 kHz.
func (y *YtDlp) DownloadAudio(ctx context.Context, req DownloadRequest) (stderr string, err error) {
	args := []string{
		"-f", req.Selector,
		"-x", "--audio-format", req.Format,
		"--postprocessor-args", "ffmpeg:-ac 1 -ar 16000",
		"--no-playlist", "--no-warnings", "--no-progress",
		"-o", req.OutputBase + ".%(ext)s",
	}
	if req.MaxSeconds > 0 {
		args = append(args, "--download-sections", "*0-"+strconv.Itoa(req.MaxSeconds))
	}
	args = append(args, req.URL)

	_, errOut, err := y.Runner.Run(ctx, y.Path, args...)
	return string(errOut), err
}
