package transcription

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"video-recipe-go/internal/llm"
	"video-recipe-go/internal/logger"
	"video-recipe-go/internal/media"
	"video-recipe-go/internal/types"
)

const (
	MaxFileBytes   = 100 << 20
	MinDurationSec = 0.5
	MaxDurationSec = 1800.0

	minTranscriptChars = 2
)

type Prober interface {
	Probe(ctx context.Context, file string) (media.ProbeResult, error)
}

type Segmenter interface {
	ExtractSegment(ctx context.Context, in, out string, start, length float64) error
}

type Options struct {
	Model      string
	Language   string // "auto" lets the model decide
	ChunkSize  time.Duration
	MaxRetries int // total attempts per request
	// Timeout bounds the whole call including every retry and backoff wait.
	Timeout time.Duration

	SingleBackoff Backoff
	ChunkBackoff  Backoff

	// TempPath allocates chunk files. Defaults to files next to the input.
	TempPath func(prefix, ext string) string
	// OnChunk is called after each chunk finishes, successful or not.
	OnChunk func(done, total int)
}

func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = "whisper"
	}
	if o.Language == "" {
		o.Language = "auto"
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = 30 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.Timeout <= 0 {
		o.Timeout = 3 * time.Minute
	}
	if o.SingleBackoff.Base <= 0 {
		o.SingleBackoff = singleBackoff
	}
	if o.ChunkBackoff.Base <= 0 {
		o.ChunkBackoff = chunkBackoff
	}
	return o
}

type Transcriber struct {
	backend llm.Backend
	probe   Prober
	seg     Segmenter
	log     *logger.Logger
}

func New(backend llm.Backend, probe Prober, seg Segmenter, log *logger.Logger) *Transcriber {
	if log == nil {
		log = logger.Discard()
	}
	return &Transcriber{backend: backend, probe: probe, seg: seg, log: log.Component("transcription")}
}

// Transcribe turns the audio file at path into text. The returned result is
// never nil; on failure it carries whatever partial text was recovered.
func (t *Transcriber) Transcribe(ctx context.Context, path string, opts Options) (*types.TranscriptionResult, error) {
	opts = opts.withDefaults()
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	res := &types.TranscriptionResult{Language: opts.Language, Model: opts.Model}
	log := t.log.With(logrus.Fields{"model": opts.Model, "file": filepath.Base(path)})

	duration, err := t.validate(ctx, path, opts.Model)
	if err != nil {
		log.WithError(err).Warn("audio rejected before transcription")
		return fail(res, err), err
	}

	start := time.Now()
	if duration > opts.ChunkSize.Seconds() {
		err = t.transcribeChunked(ctx, path, duration, opts, res, log)
	} else {
		err = t.transcribeSingle(ctx, path, opts, res, log)
	}
	if err != nil {
		if ctx.Err() != nil && types.CodeOf(err) != types.ErrTimeout {
			err = types.WrapError(types.ErrTimeout, err, fmt.Sprintf("transcription exceeded %s", opts.Timeout))
		}
		log.WithError(err).WithField("retries", res.RetryCount).Warn("transcription failed")
		return fail(res, err), err
	}

	res.Success = true
	log.WithFields(logrus.Fields{
		"chars":       len(res.Text),
		"chunks":      res.ChunkCount,
		"retries":     res.RetryCount,
		"confidence":  res.Confidence,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("transcription complete")
	return res, nil
}

func fail(res *types.TranscriptionResult, err error) *types.TranscriptionResult {
	res.Success = false
	res.Error = err.Error()
	if res.PartialTranscription == "" && res.Text != "" {
		res.PartialTranscription = res.Text
	}
	res.Text = ""
	return res
}

// validate checks the file and backend before any audio is sent. Every
// error it returns is permanent.
func (t *Transcriber) validate(ctx context.Context, path, model string) (float64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, &types.PipelineError{Code: types.ErrTranscriptionFailed, Message: "invalid audio: file not readable", Permanent: true, Err: err}
	}
	if fi.Size() == 0 {
		return 0, types.NewPermanentError(types.ErrTranscriptionFailed, "invalid audio: file is empty")
	}
	if fi.Size() > MaxFileBytes {
		return 0, types.NewPermanentError(types.ErrTranscriptionFailed, "invalid audio: file is %d bytes, limit is %d", fi.Size(), MaxFileBytes)
	}

	p, err := t.probe.Probe(ctx, path)
	if err != nil {
		return 0, &types.PipelineError{Code: types.ErrTranscriptionFailed, Message: "invalid audio: probe failed", Permanent: true, Err: err}
	}
	if p.Duration < MinDurationSec {
		return 0, types.NewPermanentError(types.ErrNoSpeechDetected, "no speech: audio is only %.2fs long", p.Duration)
	}
	if p.Duration > MaxDurationSec {
		return 0, types.NewPermanentError(types.ErrTranscriptionFailed, "audio length exceeded: %.0fs is over the %.0fs limit", p.Duration, MaxDurationSec)
	}

	installed, err := t.backend.ListModels(ctx)
	if err != nil {
		return 0, &types.PipelineError{Code: types.ErrTranscriptionFailed, Message: "could not list speech models", Permanent: true, Err: err}
	}
	if !llm.HasModel(installed, model) {
		return 0, types.NewPermanentError(types.ErrTranscriptionFailed, "model not installed: %s", model)
	}
	return p.Duration, nil
}

func prompt(language string) string {
	p := "Transcribe the speech in this audio. Return only the transcript text with no commentary, timestamps, or speaker labels."
	if language != "" && language != "auto" {
		p += " The audio is in " + language + "."
	}
	return p
}

// once sends one audio file and returns cleaned text plus its confidence.
func (t *Transcriber) once(ctx context.Context, audio []byte, opts Options) (string, float64, string, error) {
	resp, err := t.backend.Generate(ctx, llm.GenerateRequest{
		Model:       opts.Model,
		Prompt:      prompt(opts.Language),
		Audio:       audio,
		Temperature: llm.Float(0),
	})
	if err != nil {
		return "", 0, "", err
	}
	text := CleanText(resp.Text)
	if len([]rune(text)) < minTranscriptChars {
		return "", 0, text, types.NewError(types.ErrTranscriptionFailed, "transcription returned no usable text")
	}
	return text, Confidence(text, resp.Text), text, nil
}

func (t *Transcriber) transcribeSingle(ctx context.Context, path string, opts Options, res *types.TranscriptionResult, log *logger.Logger) error {
	audio, err := os.ReadFile(path)
	if err != nil {
		return types.WrapError(types.ErrTranscriptionFailed, err, "read audio")
	}

	var text string
	var conf float64
	attempts, err := retry(ctx, opts.SingleBackoff, opts.MaxRetries, log.Entry, func(int) error {
		var partial string
		var aerr error
		text, conf, partial, aerr = t.once(ctx, audio, opts)
		if partial != "" {
			res.PartialTranscription = partial
		}
		return aerr
	})
	res.RetryCount = attempts - 1
	if err != nil {
		return asPipelineError(err)
	}
	res.Text = text
	res.Confidence = conf
	res.PartialTranscription = ""
	return nil
}

func (t *Transcriber) transcribeChunked(ctx context.Context, path string, duration float64, opts Options, res *types.TranscriptionResult, log *logger.Logger) error {
	size := opts.ChunkSize.Seconds()
	n := ChunkCount(duration, size)
	res.Chunked = true
	res.ChunkCount = n

	tempPath := opts.TempPath
	if tempPath == nil {
		dir := filepath.Dir(path)
		tempPath = func(prefix, ext string) string {
			return filepath.Join(dir, prefix+"-"+uuid.NewString()+ext)
		}
	}

	var texts []string
	var confSum float64
	var lastErr error
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("chunks %d-%d skipped: %v", i+1, n, ctx.Err()))
			lastErr = ctx.Err()
			break
		}
		startSec := float64(i) * size
		length := math.Min(size, duration-startSec)

		seg, retries, err := t.chunk(ctx, path, tempPath, i, startSec, length, opts, log)
		res.RetryCount += retries
		if err != nil {
			lastErr = err
			res.Warnings = append(res.Warnings, fmt.Sprintf("chunk %d/%d failed: %v", i+1, n, err))
		} else {
			res.Segments = append(res.Segments, seg)
			texts = append(texts, seg.Text)
			confSum += seg.Confidence
			res.PartialTranscription = strings.Join(texts, " ")
		}
		if opts.OnChunk != nil {
			opts.OnChunk(i+1, n)
		}
	}

	if len(texts) == 0 {
		if lastErr == nil {
			lastErr = errors.New("no chunks transcribed")
		}
		return &types.PipelineError{Code: types.ErrTranscriptionFailed, Message: fmt.Sprintf("all %d chunks failed", n), Err: lastErr}
	}
	res.Text = strings.Join(texts, " ")
	res.Confidence = confSum / float64(len(texts))
	res.PartialTranscription = ""
	return nil
}

// chunk cuts one segment to its own file, transcribes it with retries and
// removes the file before returning.
func (t *Transcriber) chunk(ctx context.Context, path string, tempPath func(string, string) string, i int, start, length float64, opts Options, log *logger.Logger) (types.TranscriptionSegment, int, error) {
	out := tempPath(fmt.Sprintf("chunk-%03d", i), ".wav")
	defer func() {
		if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
			log.WithError(err).WithField("chunk", out).Warn("failed to remove chunk file")
		}
	}()

	if err := t.seg.ExtractSegment(ctx, path, out, start, length); err != nil {
		return types.TranscriptionSegment{}, 0, types.WrapError(types.ErrAudioExtractionFailed, err, "cut chunk")
	}
	audio, err := os.ReadFile(out)
	if err != nil {
		return types.TranscriptionSegment{}, 0, types.WrapError(types.ErrAudioExtractionFailed, err, "read chunk")
	}

	var text string
	var conf float64
	attempts, err := retry(ctx, opts.ChunkBackoff, opts.MaxRetries, log.WithField("chunk", i), func(int) error {
		var aerr error
		text, conf, _, aerr = t.once(ctx, audio, opts)
		return aerr
	})
	if err != nil {
		return types.TranscriptionSegment{}, attempts - 1, asPipelineError(err)
	}
	return types.TranscriptionSegment{
		Index:      i,
		Start:      start,
		End:        start + length,
		Text:       text,
		Confidence: conf,
	}, attempts - 1, nil
}

// ChunkCount is ceil(duration/size).
func ChunkCount(duration, size float64) int {
	if duration <= 0 || size <= 0 {
		return 0
	}
	return int(math.Ceil(duration / size))
}

func asPipelineError(err error) error {
	var pe *types.PipelineError
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return types.WrapError(types.ErrTimeout, err, "transcription interrupted")
	}
	return types.WrapError(types.ErrTranscriptionFailed, err, "speech backend")
}
