package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	TempDir     string

	YtDlpPath   string
	FFprobePath string
	FFmpegPath  string

	// LLMProvider selects the structuring backend: "ollama" or "openai".
	// Speech always goes through the Ollama-style backend.
	LLMProvider   string
	OllamaHost    string
	OllamaAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	SpeechModel string
	TextModel   string
	Language    string
	ChunkSize   time.Duration
	MaxRetries  int

	AudioQuality string
	MaxDuration  time.Duration

	PipelineTimeout   time.Duration
	AudioTimeout      time.Duration
	TranscribeTimeout time.Duration
	StructureTimeout  time.Duration

	Temperature  float64
	SkipMetadata bool
	CheckFormats bool
}

// Load reads configuration from the environment. Call godotenv.Load first if
// a .env file should be honored.
func Load() (Config, error) {
	c := Config{
		Port:          envOr("PORT", "8080"),
		Environment:   envOr("ENVIRONMENT", "local"),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		TempDir:       envOr("TEMP_DIR", os.TempDir()),
		YtDlpPath:     envOr("YTDLP_PATH", "yt-dlp"),
		FFprobePath:   envOr("FFPROBE_PATH", "ffprobe"),
		FFmpegPath:    envOr("FFMPEG_PATH", "ffmpeg"),
		LLMProvider:   strings.ToLower(envOr("LLM_PROVIDER", "ollama")),
		OllamaHost:    envOr("OLLAMA_HOST", "http://localhost:11434"),
		OllamaAPIKey:  os.Getenv("OLLAMA_API_KEY"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		SpeechModel:   envOr("SPEECH_MODEL", "whisper"),
		TextModel:     envOr("TEXT_MODEL", "llama3.2"),
		Language:      envOr("TRANSCRIBE_LANGUAGE", "auto"),
		AudioQuality:  strings.ToLower(envOr("AUDIO_QUALITY", "low")),
	}

	var err error
	if c.ChunkSize, err = envSeconds("CHUNK_SIZE_SEC", 30); err != nil {
		return c, err
	}
	if c.MaxDuration, err = envSeconds("MAX_DURATION_SEC", 300); err != nil {
		return c, err
	}
	if c.PipelineTimeout, err = envSeconds("PIPELINE_TIMEOUT_SEC", 420); err != nil {
		return c, err
	}
	if c.AudioTimeout, err = envSeconds("AUDIO_TIMEOUT_SEC", 120); err != nil {
		return c, err
	}
	if c.TranscribeTimeout, err = envSeconds("TRANSCRIBE_TIMEOUT_SEC", 180); err != nil {
		return c, err
	}
	if c.StructureTimeout, err = envSeconds("STRUCTURE_TIMEOUT_SEC", 60); err != nil {
		return c, err
	}
	if c.MaxRetries, err = envInt("MAX_RETRIES", 3); err != nil {
		return c, err
	}
	if c.Temperature, err = envFloat("STRUCTURE_TEMPERATURE", 0.1); err != nil {
		return c, err
	}
	if c.SkipMetadata, err = envBool("SKIP_METADATA", false); err != nil {
		return c, err
	}
	if c.CheckFormats, err = envBool("CHECK_FORMATS", false); err != nil {
		return c, err
	}

	switch c.LLMProvider {
	case "ollama", "openai":
	default:
		return c, fmt.Errorf("config: unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	switch c.AudioQuality {
	case "low", "medium", "high":
	default:
		return c, fmt.Errorf("config: unknown AUDIO_QUALITY %q", c.AudioQuality)
	}
	return c, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("config: %s must be a non-negative integer, got %q", k, v)
	}
	return n, nil
}

func envSeconds(k string, def int) (time.Duration, error) {
	n, err := envInt(k, def)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("config: %s must be positive", k)
	}
	return time.Duration(n) * time.Second, nil
}

func envFloat(k string, def float64) (float64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", k, err)
	}
	return f, nil
}

func envBool(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", k, err)
	}
	return b, nil
}
