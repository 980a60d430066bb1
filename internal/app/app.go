package app

import (
	"video-recipe-go/internal/audio"
	"video-recipe-go/internal/config"
	"video-recipe-go/internal/extractor"
	"video-recipe-go/internal/llm"
	"video-recipe-go/internal/logger"
	"video-recipe-go/internal/media"
	"video-recipe-go/internal/processor"
	"video-recipe-go/internal/session"
	"video-recipe-go/internal/transcription"
)

// App is a fully wired processor plus the session manager it allocates from.
type App struct {
	Processor *processor.Processor
	Sessions  *session.Manager
	Options   processor.Options
}

// Build wires the external tools and model backends named by cfg.
func Build(cfg config.Config, log *logger.Logger) *App {
	runner := media.ExecRunner{}
	ytdlp := media.NewYtDlp(cfg.YtDlpPath, runner)
	probe := media.NewFFprobe(cfg.FFprobePath, runner)
	ffmpeg := media.NewFFmpeg(cfg.FFmpegPath, runner)

	speech := llm.NewOllama(
		llm.WithBaseURL(cfg.OllamaHost),
		llm.WithAPIKey(cfg.OllamaAPIKey),
		llm.WithTimeout(cfg.TranscribeTimeout),
	)

	var text llm.Generator = llm.NewOllama(
		llm.WithBaseURL(cfg.OllamaHost),
		llm.WithAPIKey(cfg.OllamaAPIKey),
		llm.WithTimeout(cfg.StructureTimeout),
	)
	if cfg.LLMProvider == "openai" {
		text = llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, nil)
	}

	sessions := session.NewManager(cfg.TempDir, log)
	p := processor.New(processor.Deps{
		Sessions:    sessions,
		Metadata:    ytdlp,
		Formats:     ytdlp,
		Audio:       audio.NewExtractor(ytdlp, probe, log),
		Transcriber: transcription.New(speech, probe, ffmpeg, log),
		Structurer:  extractor.New(text, log),
		Log:         log,
	})

	log.WithField("provider", cfg.LLMProvider).
		WithField("speech_model", cfg.SpeechModel).
		WithField("text_model", cfg.TextModel).
		Info("pipeline wired")

	return &App{Processor: p, Sessions: sessions, Options: Options(cfg)}
}

// Options maps configuration onto per-run processor options.
func Options(cfg config.Config) processor.Options {
	return processor.Options{
		AudioQuality:      audio.Quality(cfg.AudioQuality),
		MaxDuration:       cfg.MaxDuration,
		TranscribeModel:   cfg.SpeechModel,
		Language:          cfg.Language,
		ChunkSize:         cfg.ChunkSize,
		MaxRetries:        cfg.MaxRetries,
		StructureModel:    cfg.TextModel,
		Temperature:       cfg.Temperature,
		Timeout:           cfg.PipelineTimeout,
		AudioTimeout:      cfg.AudioTimeout,
		TranscribeTimeout: cfg.TranscribeTimeout,
		StructureTimeout:  cfg.StructureTimeout,
		SkipMetadata:      cfg.SkipMetadata,
		CheckFormats:      cfg.CheckFormats,
	}
}
