package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"video-recipe-go/internal/audio"
	"video-recipe-go/internal/logger"
	"video-recipe-go/internal/platform"
	"video-recipe-go/internal/processor"
	"video-recipe-go/internal/types"
)

type Handler struct {
	proc Processor
	base processor.Options
	log  *logger.Logger
}

type detectRequest struct {
	URL string `json:"url"`
}

// RunOptions are the per-request overrides accepted by /extract.
type RunOptions struct {
	AudioQuality   string `json:"audio_quality,omitempty"`
	Language       string `json:"language,omitempty"`
	SpeechModel    string `json:"speech_model,omitempty"`
	TextModel      string `json:"text_model,omitempty"`
	SkipMetadata   *bool  `json:"skip_metadata,omitempty"`
	TimeoutSeconds int    `json:"timeout_sec,omitempty"`
}

type extractRequest struct {
	URL     string     `json:"url"`
	Options RunOptions `json:"options"`
}

// streamEvent is one NDJSON line of a streamed extraction.
type streamEvent struct {
	Type     string                   `json:"type"` // progress|result
	Progress *processor.ProgressEvent `json:"progress,omitempty"`
	Result   *types.ProcessingResult  `json:"result,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) platforms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"platforms": platform.SupportedPlatforms()})
}

func (h *Handler) detect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, platform.Detect(req.URL))
}

func (h *Handler) extract(w http.ResponseWriter, r *http.Request) {
	reqLog := h.log.WithRequest(r).WithField("handler", "extract")

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reqLog.WithError(err).Warn("bad request body")
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}
	opts, err := h.options(req.Options)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	reqLog = reqLog.WithField("url", req.URL)
	reqLog.Info("extract request received")

	if stream, _ := strconv.ParseBool(r.URL.Query().Get("stream")); stream {
		h.stream(w, r, req.URL, opts, reqLog)
		return
	}

	start := time.Now()
	res := h.proc.Process(r.Context(), req.URL, opts)
	reqLog.WithFields(logrus.Fields{
		"duration_ms": time.Since(start).Milliseconds(),
		"success":     res.Success,
	}).Info("processor finished")
	writeJSON(w, statusFor(res), res)
}

// stream writes one NDJSON line per progress event and a final result line.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request, videoURL string, opts processor.Options, reqLog *logrus.Entry) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	var mu sync.Mutex
	enc := json.NewEncoder(w)
	send := func(ev streamEvent) {
		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(ev); err != nil {
			reqLog.WithError(err).Debug("stream write failed")
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	opts.OnProgress = func(ev processor.ProgressEvent) {
		send(streamEvent{Type: "progress", Progress: &ev})
	}
	res := h.proc.Process(r.Context(), videoURL, opts)
	send(streamEvent{Type: "result", Result: res})
	reqLog.WithField("success", res.Success).Info("stream finished")
}

func (h *Handler) options(ro RunOptions) (processor.Options, error) {
	opts := h.base
	if ro.AudioQuality != "" {
		switch q := audio.Quality(strings.ToLower(ro.AudioQuality)); q {
		case audio.QualityLow, audio.QualityMedium, audio.QualityHigh:
			opts.AudioQuality = q
		default:
			return opts, fmt.Errorf("unknown audio_quality %q", ro.AudioQuality)
		}
	}
	if ro.Language != "" {
		opts.Language = ro.Language
	}
	if ro.SpeechModel != "" {
		opts.TranscribeModel = ro.SpeechModel
	}
	if ro.TextModel != "" {
		opts.StructureModel = ro.TextModel
	}
	if ro.SkipMetadata != nil {
		opts.SkipMetadata = *ro.SkipMetadata
	}
	if ro.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(ro.TimeoutSeconds) * time.Second
	}
	return opts, nil
}

// statusFor maps a failed run onto an HTTP status. The body is always the
// full result.
func statusFor(res *types.ProcessingResult) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.ErrorCode {
	case types.ErrInvalidURL, types.ErrUnsupportedPlatform:
		return http.StatusBadRequest
	case types.ErrTimeout:
		return http.StatusGatewayTimeout
	case types.ErrNoSpeechDetected, types.ErrRecipeStructuringFailed:
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
