package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"video-recipe-go/internal/logger"
	"video-recipe-go/internal/media"
	"video-recipe-go/internal/types"
)

type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// selector maps a tier to a yt-dlp -f expression. Lower tiers download less.
func (q Quality) selector() string {
	switch q {
	case QualityHigh:
		return "bestaudio/best"
	case QualityMedium:
		return "bestaudio[abr<=128]/worstaudio/worst"
	default:
		return "worstaudio/worst"
	}
}

type Options struct {
	Format      string
	Quality     Quality
	MaxDuration time.Duration
	Timeout     time.Duration
	// SourceDuration is the video length if already known from metadata.
	SourceDuration float64
}

func (o Options) withDefaults() Options {
	if o.Format == "" {
		o.Format = "wav"
	}
	if o.Quality == "" {
		o.Quality = QualityLow
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 5 * time.Minute
	}
	if o.Timeout <= 0 {
		o.Timeout = 2 * time.Minute
	}
	return o
}

type Downloader interface {
	DownloadAudio(ctx context.Context, req media.DownloadRequest) (stderr string, err error)
}

type Prober interface {
	Probe(ctx context.Context, file string) (media.ProbeResult, error)
}

type Extractor struct {
	dl    Downloader
	probe Prober
	log   *logger.Logger
}

func NewExtractor(dl Downloader, probe Prober, log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.Discard()
	}
	return &Extractor{dl: dl, probe: probe, log: log.Component("audio")}
}

// Extract downloads the audio track of videoURL into outputBase plus the
// format extension. Every failure is fatal for the run.
func (e *Extractor) Extract(ctx context.Context, videoURL, outputBase string, opts Options) (*types.AudioArtifact, error) {
	opts = opts.withDefaults()
	maxSec := int(opts.MaxDuration.Seconds())

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	log := e.log.With(logrus.Fields{"url": videoURL, "quality": opts.Quality, "max_sec": maxSec})
	log.Info("extracting audio")
	start := time.Now()

	stderr, err := e.dl.DownloadAudio(ctx, media.DownloadRequest{
		URL:        videoURL,
		OutputBase: outputBase,
		Format:     opts.Format,
		Selector:   opts.Quality.selector(),
		MaxSeconds: maxSec,
	})
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return nil, types.WrapError(types.ErrTimeout, err, fmt.Sprintf("audio extraction timed out after %s", opts.Timeout))
		}
		code := ClassifyFailure(stderr + " " + err.Error())
		log.WithError(err).WithField("code", code).Warn("audio extraction failed")
		return nil, types.WrapError(code, err, "yt-dlp exited with an error")
	}

	path := outputBase + "." + opts.Format
	fi, err := os.Stat(path)
	if err != nil || fi.Size() == 0 {
		return nil, types.NewError(types.ErrAudioExtractionFailed, "no %s output produced at %s", opts.Format, path)
	}

	art := &types.AudioArtifact{
		Path:      path,
		Format:    opts.Format,
		SizeBytes: fi.Size(),
	}

	if opts.SourceDuration > float64(maxSec) {
		art.Truncated = true
		art.Warnings = append(art.Warnings,
			fmt.Sprintf("video is %.0fs long; audio truncated to the first %ds", opts.SourceDuration, maxSec))
	}

	if e.probe != nil {
		p, perr := e.probe.Probe(ctx, path)
		if perr != nil {
			art.Warnings = append(art.Warnings, "could not probe audio duration: "+perr.Error())
		} else {
			art.Duration = p.Duration
			if p.Duration > float64(maxSec)+1 && !art.Truncated {
				art.Truncated = true
				art.Warnings = append(art.Warnings, fmt.Sprintf("audio exceeds %ds limit", maxSec))
			}
		}
	}
	if art.Duration == 0 && opts.SourceDuration > 0 {
		art.Duration = min(opts.SourceDuration, float64(maxSec))
	}

	log.WithFields(logrus.Fields{
		"bytes":       art.SizeBytes,
		"duration_s":  art.Duration,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("audio extracted")
	return art, nil
}

var downloadMarkers = []string{
	"unable to download",
	"http error",
	"video unavailable",
	"private",
	"unsupported url",
	"403",
	"404",
	"login",
	"sign in",
	"not available",
}

// ClassifyFailure guesses from tool output whether the video could not be
// fetched or the audio could not be produced. Best effort only.
func ClassifyFailure(output string) types.ErrorCode {
	l := strings.ToLower(output)
	for _, m := range downloadMarkers {
		if strings.Contains(l, m) {
			return types.ErrVideoDownloadFailed
		}
	}
	return types.ErrAudioExtractionFailed
}
