package types

import "time"

type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
)

// VideoMetadata is what the downloader's metadata probe reports about a video.
type VideoMetadata struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Duration    float64 `json:"duration,omitempty"` // seconds
	Uploader    string  `json:"uploader,omitempty"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
}

// VideoDescriptor identifies a supported short-form video. Treat as read-only
// once the detector returns it.
type VideoDescriptor struct {
	Platform      Platform       `json:"platform"`
	VideoID       string         `json:"video_id"`
	OriginalURL   string         `json:"original_url"`
	NormalizedURL string         `json:"normalized_url"`
	Metadata      *VideoMetadata `json:"metadata,omitempty"`
}

// WithMetadata returns a copy of d carrying m.
func (d VideoDescriptor) WithMetadata(m *VideoMetadata) VideoDescriptor {
	d.Metadata = m
	return d
}

type AudioArtifact struct {
	Path      string   `json:"path"`
	Duration  float64  `json:"duration"` // seconds
	Format    string   `json:"format"`
	SizeBytes int64    `json:"size_bytes"`
	Truncated bool     `json:"truncated,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

type TranscriptionSegment struct {
	Index      int     `json:"index"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type TranscriptionResult struct {
	Success              bool                   `json:"success"`
	Text                 string                 `json:"text"`
	Segments             []TranscriptionSegment `json:"segments,omitempty"`
	Confidence           float64                `json:"confidence"`
	Language             string                 `json:"language,omitempty"`
	Model                string                 `json:"model,omitempty"`
	Chunked              bool                   `json:"chunked,omitempty"`
	ChunkCount           int                    `json:"chunk_count,omitempty"`
	Warnings             []string               `json:"warnings,omitempty"`
	RetryCount           int                    `json:"retry_count"`
	PartialTranscription string                 `json:"partial_transcription,omitempty"`
	Error                string                 `json:"error,omitempty"`
}

type ParsedRecipe struct {
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	CookingTime  string   `json:"cooking_time,omitempty"`
	Servings     string   `json:"servings,omitempty"`
	Difficulty   string   `json:"difficulty,omitempty"`
	Cuisine      string   `json:"cuisine,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// Usable reports whether r has a title and at least one ingredient or step.
func (r *ParsedRecipe) Usable() bool {
	if r == nil || r.Title == "" {
		return false
	}
	return len(r.Ingredients) > 0 || len(r.Instructions) > 0
}

// Empty reports whether r carries nothing worth returning.
func (r *ParsedRecipe) Empty() bool {
	return r == nil || (r.Title == "" && len(r.Ingredients) == 0 && len(r.Instructions) == 0)
}

// StructuringResult is what the recipe structuring client hands back.
// Recipe is set on success; Partial holds whatever fields parsed otherwise.
type StructuringResult struct {
	Success    bool          `json:"success"`
	Recipe     *ParsedRecipe `json:"recipe,omitempty"`
	Partial    *ParsedRecipe `json:"partial,omitempty"`
	Confidence float64       `json:"confidence"`
	Model      string        `json:"model,omitempty"`
	Raw        string        `json:"raw,omitempty"`
	Error      string        `json:"error,omitempty"`
}

type StageOutcome struct {
	Success    bool   `json:"success"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
	Code       string `json:"code,omitempty"`
}

// ResourceUsage counts what a run consumed.
type ResourceUsage struct {
	TempFilesAllocated int     `json:"temp_files_allocated"`
	TempFilesRemoved   int     `json:"temp_files_removed"`
	AudioBytes         int64   `json:"audio_bytes"`
	AudioSeconds       float64 `json:"audio_seconds"`
	TranscriptChars    int     `json:"transcript_chars"`
	ChunkCount         int     `json:"chunk_count"`
	RetryCount         int     `json:"retry_count"`
}

// Artifacts keeps interim outputs for diagnosis.
type Artifacts struct {
	Audio         *AudioArtifact       `json:"audio,omitempty"`
	Transcription *TranscriptionResult `json:"transcription,omitempty"`
	Structuring   *StructuringResult   `json:"structuring,omitempty"`
}

type ProcessingResult struct {
	RunID          string                  `json:"run_id"`
	URL            string                  `json:"url"`
	Success        bool                    `json:"success"`
	Video          *VideoDescriptor        `json:"video,omitempty"`
	Recipe         *ParsedRecipe           `json:"recipe,omitempty"`
	ProcessingTime time.Duration           `json:"-"`
	ProcessingMs   int64                   `json:"processing_time_ms"`
	Stages         map[string]StageOutcome `json:"stages"`
	Confidence     float64                 `json:"confidence,omitempty"`
	QualityScore   float64                 `json:"quality_score,omitempty"`
	Warnings       []string                `json:"warnings"`
	ResourceUsage  ResourceUsage           `json:"resource_usage"`
	Artifacts      *Artifacts              `json:"artifacts,omitempty"`
	FailedStage    string                  `json:"failed_stage,omitempty"`
	ErrorCode      ErrorCode               `json:"error_code,omitempty"`
	Error          string                  `json:"error,omitempty"`
	FinalState     string                  `json:"final_state"`
}
