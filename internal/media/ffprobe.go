package media

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type ProbeResult struct {
	Duration   float64 `json:"duration"` // seconds
	Codec      string  `json:"codec"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
}

type FFprobe struct {
	Path   string
	Runner Runner
}

func NewFFprobe(path string, r Runner) *FFprobe {
	if path == "" {
		path = "ffprobe"
	}
	if r == nil {
		r = ExecRunner{}
	}
	return &FFprobe{Path: path, Runner: r}
}

// Probe reads duration and the first audio stream's properties.
func (p *FFprobe) Probe(ctx context.Context, file string) (ProbeResult, error) {
	type ffprobeStream struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	}
	type ffprobeFormat struct {
		Duration string `json:"duration"`
	}
	type ffprobeResult struct {
		Streams []ffprobeStream `json:"streams"`
		Format  ffprobeFormat   `json:"format"`
	}

	out, _, err := p.Runner.Run(ctx, p.Path,
		"-v", "error",
		"-show_entries", "format=duration:stream=codec_type,codec_name,sample_rate,channels",
		"-of", "json",
		file,
	)
	if err != nil {
		return ProbeResult{}, err
	}

	var parsed ffprobeResult
	if err := json.Unmarshal(out, &parsed); err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe: decode output: %w", err)
	}

	dur, err := strconv.ParseFloat(strings.TrimSpace(parsed.Format.Duration), 64)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe: no duration for %s", file)
	}
	res := ProbeResult{Duration: dur}
	for _, s := range parsed.Streams {
		if s.CodecType != "audio" {
			continue
		}
		res.Codec = s.CodecName
		res.SampleRate, _ = strconv.Atoi(s.SampleRate)
		res.Channels = s.Channels
		break
	}
	return res, nil
}
