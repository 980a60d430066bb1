package processor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"video-recipe-go/internal/audio"
	"video-recipe-go/internal/extractor"
	"video-recipe-go/internal/logger"
	"video-recipe-go/internal/platform"
	"video-recipe-go/internal/session"
	"video-recipe-go/internal/transcription"
	"video-recipe-go/internal/types"
)

// minPartialChars is the shortest partial transcript still worth structuring.
const minPartialChars = 20

type MetadataFetcher interface {
	Metadata(ctx context.Context, videoURL string) (*types.VideoMetadata, error)
}

type FormatChecker interface {
	HasAudio(ctx context.Context, videoURL string) (bool, error)
}

type AudioExtractor interface {
	Extract(ctx context.Context, videoURL, outputBase string, opts audio.Options) (*types.AudioArtifact, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, path string, opts transcription.Options) (*types.TranscriptionResult, error)
}

type Structurer interface {
	Structure(ctx context.Context, transcript string, meta *types.VideoMetadata, opts extractor.Options) (*types.StructuringResult, error)
}

// Deps are the collaborators a Processor sequences. Metadata and Formats may
// be nil.
type Deps struct {
	Sessions    *session.Manager
	Metadata    MetadataFetcher
	Formats     FormatChecker
	Audio       AudioExtractor
	Transcriber Transcriber
	Structurer  Structurer
	Log         *logger.Logger
}

type Options struct {
	AudioQuality audio.Quality
	MaxDuration  time.Duration

	TranscribeModel string
	Language        string
	ChunkSize       time.Duration
	MaxRetries      int

	StructureModel string
	Temperature    float64

	Timeout           time.Duration
	MetadataTimeout   time.Duration
	AudioTimeout      time.Duration
	TranscribeTimeout time.Duration
	StructureTimeout  time.Duration

	SkipMetadata bool
	CheckFormats bool

	OnProgress func(ProgressEvent)
}

func (o Options) withDefaults() Options {
	if o.AudioQuality == "" {
		o.AudioQuality = audio.QualityLow
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 5 * time.Minute
	}
	if o.Timeout <= 0 {
		o.Timeout = 7 * time.Minute
	}
	if o.MetadataTimeout <= 0 {
		o.MetadataTimeout = 30 * time.Second
	}
	if o.AudioTimeout <= 0 {
		o.AudioTimeout = 120 * time.Second
	}
	if o.TranscribeTimeout <= 0 {
		o.TranscribeTimeout = 180 * time.Second
	}
	if o.StructureTimeout <= 0 {
		o.StructureTimeout = 60 * time.Second
	}
	return o
}

type Processor struct {
	deps Deps
	log  *logger.Logger
}

func New(d Deps) *Processor {
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	if d.Sessions == nil {
		d.Sessions = session.NewManager("", d.Log)
	}
	return &Processor{deps: d, log: d.Log.Component("processor")}
}

// run carries the state of one Process call.
type run struct {
	p        *Processor
	opts     Options
	start    time.Time
	res      *types.ProcessingResult
	progress *tracker
	log      *logger.Logger

	meta       *types.VideoMetadata
	art        *types.AudioArtifact
	transcript string
}

// Process runs the whole pipeline for videoURL and always returns exactly one
// well-formed result. Temporary files are gone by the time it returns.
func (p *Processor) Process(ctx context.Context, videoURL string, opts Options) (res *types.ProcessingResult) {
	opts = opts.withDefaults()
	start := time.Now()
	runID := uuid.NewString()

	res = &types.ProcessingResult{
		RunID:     runID,
		URL:       videoURL,
		Stages:    map[string]types.StageOutcome{},
		Warnings:  []string{},
		Artifacts: &types.Artifacts{},
	}
	r := &run{
		p:        p,
		opts:     opts,
		start:    start,
		res:      res,
		progress: newTracker(runID, opts.OnProgress),
		log:      p.log.With(logrus.Fields{"run_id": runID, "url": videoURL}),
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithField("panic", rec).Error("pipeline panicked")
			r.fail(StageFinalizing, types.NewError(types.ErrUnknown, "internal error: %v", rec))
		}
		res.ProcessingTime = time.Since(start)
		res.ProcessingMs = res.ProcessingTime.Milliseconds()
		r.log.WithFields(logrus.Fields{
			"success":       res.Success,
			"failed_stage":  res.FailedStage,
			"quality_score": res.QualityScore,
			"duration_ms":   res.ProcessingMs,
		}).Info("run finished")
	}()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	r.progress.report(StageInitializing, 0, "starting", nil)
	r.log.Info("run started")

	rep, err := p.deps.Sessions.WithSession([]string{"audio"}, func(s *session.Session) error {
		return r.pipeline(ctx, s)
	})
	res.ResourceUsage.TempFilesAllocated = rep.Allocated
	res.ResourceUsage.TempFilesRemoved = rep.Removed
	for _, f := range rep.Failures {
		res.Warnings = append(res.Warnings, "temporary file cleanup failed: "+f)
	}

	if err != nil {
		if res.FailedStage == "" {
			// session could not be opened
			r.fail(StageInitializing, types.WrapError(types.ErrUnknown, err, "allocate session"))
		}
		return res
	}

	r.progress.report(StageCompleted, 100, "done", nil)
	res.FinalState = string(StageCompleted)
	return res
}

func (r *run) pipeline(ctx context.Context, s *session.Session) error {
	// url-validation
	r.progress.report(StageURLValidation, 5, "validating url", nil)
	var video types.VideoDescriptor
	if err := r.stage(ctx, StageURLValidation, 0, func(context.Context) error {
		var verr error
		video, verr = platform.Validate(r.res.URL)
		return verr
	}); err != nil {
		return r.fail(StageURLValidation, err)
	}
	r.res.Video = &video

	// metadata-extraction, soft
	if !r.opts.SkipMetadata && r.p.deps.Metadata != nil {
		r.progress.report(StageMetadata, 10, "fetching video metadata", nil)
		err := r.stage(ctx, StageMetadata, r.opts.MetadataTimeout, func(sctx context.Context) error {
			md, merr := r.p.deps.Metadata.Metadata(sctx, video.NormalizedURL)
			if merr != nil {
				return merr
			}
			r.meta = md
			return nil
		})
		if err != nil {
			r.warn("metadata unavailable: " + err.Error())
		} else if r.meta != nil {
			withMeta := video.WithMetadata(r.meta)
			r.res.Video = &withMeta
		}
		r.progress.report(StageMetadata, 15, "metadata step finished", nil)
	}

	// audio-extraction
	r.progress.report(StageAudio, 20, "extracting audio", nil)
	if err := r.stage(ctx, StageAudio, r.opts.AudioTimeout, func(sctx context.Context) error {
		if r.opts.CheckFormats && r.p.deps.Formats != nil {
			ok, ferr := r.p.deps.Formats.HasAudio(sctx, video.NormalizedURL)
			switch {
			case ferr != nil:
				r.warn("could not list formats: " + ferr.Error())
			case !ok:
				return types.NewPermanentError(types.ErrAudioExtractionFailed, "video has no audio track")
			}
		}
		var srcDur float64
		if r.meta != nil {
			srcDur = r.meta.Duration
		}
		art, aerr := r.p.deps.Audio.Extract(sctx, video.NormalizedURL, s.Path("audio"), audio.Options{
			Quality:        r.opts.AudioQuality,
			MaxDuration:    r.opts.MaxDuration,
			Timeout:        r.opts.AudioTimeout,
			SourceDuration: srcDur,
		})
		if aerr != nil {
			return aerr
		}
		r.art = art
		return nil
	}); err != nil {
		return r.fail(StageAudio, err)
	}
	r.res.Artifacts.Audio = r.art
	r.res.ResourceUsage.AudioBytes = r.art.SizeBytes
	r.res.ResourceUsage.AudioSeconds = r.art.Duration
	for _, w := range r.art.Warnings {
		r.warn(w)
	}
	r.progress.report(StageAudio, 40, "audio ready", nil)

	// transcription
	r.progress.report(StageTranscription, 45, "transcribing", nil)
	var tr *types.TranscriptionResult
	terr := r.stage(ctx, StageTranscription, r.opts.TranscribeTimeout, func(sctx context.Context) error {
		var err error
		tr, err = r.p.deps.Transcriber.Transcribe(sctx, r.art.Path, transcription.Options{
			Model:      r.opts.TranscribeModel,
			Language:   r.opts.Language,
			ChunkSize:  r.opts.ChunkSize,
			MaxRetries: r.opts.MaxRetries,
			Timeout:    r.opts.TranscribeTimeout,
			TempPath:   s.TempPath,
			OnChunk: func(done, total int) {
				r.progress.report(StageTranscription, 45+30*done/total,
					fmt.Sprintf("transcribed chunk %d of %d", done, total),
					&SubProgress{Current: done, Total: total})
			},
		})
		return err
	})
	if tr != nil {
		r.res.Artifacts.Transcription = tr
		r.res.ResourceUsage.RetryCount += tr.RetryCount
		r.res.ResourceUsage.ChunkCount = tr.ChunkCount
		for _, w := range tr.Warnings {
			r.warn(w)
		}
	}
	if terr != nil {
		if tr == nil || len(strings.TrimSpace(tr.PartialTranscription)) < minPartialChars {
			return r.fail(StageTranscription, terr)
		}
		r.warn("transcription incomplete; continuing with partial transcript: " + terr.Error())
		r.transcript = tr.PartialTranscription
	} else {
		r.transcript = tr.Text
	}
	r.res.ResourceUsage.TranscriptChars = len(r.transcript)
	r.progress.report(StageTranscription, 75, "transcript ready", nil)

	// ai-structuring
	r.progress.report(StageStructuring, 80, "structuring recipe", nil)
	var sr *types.StructuringResult
	serr := r.stage(ctx, StageStructuring, r.opts.StructureTimeout, func(sctx context.Context) error {
		var err error
		sr, err = r.p.deps.Structurer.Structure(sctx, r.transcript, r.meta, extractor.Options{
			Model:       r.opts.StructureModel,
			Temperature: r.opts.Temperature,
			Timeout:     r.opts.StructureTimeout,
		})
		return err
	})
	r.res.Artifacts.Structuring = sr
	var recipe *types.ParsedRecipe
	switch {
	case serr == nil && sr != nil:
		recipe = sr.Recipe
	case sr != nil && sr.Partial != nil:
		recipe = sr.Partial
		r.warn("recipe is incomplete: " + serr.Error())
		r.markStage(StageStructuring, true, serr)
	default:
		return r.fail(StageStructuring, serr)
	}
	r.progress.report(StageStructuring, 90, "recipe structured", nil)

	// finalizing
	r.progress.report(StageFinalizing, 95, "finalizing", nil)
	r.res.Recipe = recipe
	r.res.Success = true
	if sr != nil {
		r.res.Confidence = sr.Confidence
	}
	r.res.QualityScore = QualityScore(r.meta, r.transcriptionForScore(tr, terr), sr, recipe, time.Since(r.start))
	return nil
}

// transcriptionForScore drops the transcription bonus when only a partial
// transcript was used.
func (r *run) transcriptionForScore(tr *types.TranscriptionResult, err error) *types.TranscriptionResult {
	if err != nil {
		return nil
	}
	return tr
}

// stage runs fn under its own timeout, records its outcome and turns a panic
// into an error.
func (r *run) stage(ctx context.Context, st Stage, timeout time.Duration, fn func(context.Context) error) (err error) {
	sctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	log := r.log.WithField("stage", st)
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("stage panicked")
			err = types.NewError(types.ErrUnknown, "%s panicked: %v", st, rec)
		}
		if err != nil && ctx.Err() != nil && types.CodeOf(err) != types.ErrTimeout {
			err = types.WrapError(types.ErrTimeout, err, "run timed out")
		}
		out := types.StageOutcome{Success: err == nil, DurationMs: time.Since(start).Milliseconds()}
		if err != nil {
			out.Error = err.Error()
			out.Code = string(types.CodeOf(err))
			log.WithError(err).WithField("duration_ms", out.DurationMs).Warn("stage failed")
		} else {
			log.WithField("duration_ms", out.DurationMs).Debug("stage done")
		}
		r.res.Stages[st.key()] = out
	}()

	return fn(sctx)
}

func (r *run) markStage(st Stage, success bool, err error) {
	out := r.res.Stages[st.key()]
	out.Success = success
	if err != nil {
		out.Error = err.Error()
		out.Code = string(types.CodeOf(err))
	}
	r.res.Stages[st.key()] = out
}

func (r *run) warn(msg string) {
	r.res.Warnings = append(r.res.Warnings, msg)
	r.log.WithField("warning", msg).Warn("run warning")
}

// fail records a hard failure and returns err so the session unwinds.
func (r *run) fail(st Stage, err error) error {
	if err == nil {
		err = types.NewError(types.ErrUnknown, "%s failed", st)
	}
	r.res.Success = false
	r.res.Recipe = nil
	r.res.FailedStage = string(st)
	r.res.ErrorCode = types.CodeOf(err)
	r.res.Error = err.Error()
	r.res.FinalState = string(StageFailed)
	r.progress.report(StageFailed, r.progress.current(), r.res.Error, nil)
	return err
}
