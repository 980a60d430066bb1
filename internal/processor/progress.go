package processor

import "sync"

type Stage string

const (
	StageInitializing  Stage = "initializing"
	StageURLValidation Stage = "url-validation"
	StageMetadata      Stage = "metadata-extraction"
	StageAudio         Stage = "audio-extraction"
	StageTranscription Stage = "transcription"
	StageStructuring   Stage = "ai-structuring"
	StageFinalizing    Stage = "finalizing"
	StageCompleted     Stage = "completed"
	StageFailed        Stage = "failed"
)

var stageOrder = map[Stage]int{
	StageInitializing:  0,
	StageURLValidation: 1,
	StageMetadata:      2,
	StageAudio:         3,
	StageTranscription: 4,
	StageStructuring:   5,
	StageFinalizing:    6,
	StageCompleted:     7,
	StageFailed:        7,
}

// stageKey is the key used in ProcessingResult.Stages.
func (s Stage) key() string {
	switch s {
	case StageURLValidation:
		return "urlValidation"
	case StageMetadata:
		return "metadataExtraction"
	case StageAudio:
		return "audioExtraction"
	case StageTranscription:
		return "transcription"
	case StageStructuring:
		return "aiStructuring"
	}
	return string(s)
}

type SubProgress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

type ProgressEvent struct {
	RunID    string       `json:"run_id"`
	Stage    Stage        `json:"stage"`
	Progress int          `json:"progress"`
	Message  string       `json:"message"`
	Sub      *SubProgress `json:"sub,omitempty"`
}

// tracker forwards progress events, clamping them so stage and percentage
// never move backwards.
type tracker struct {
	mu    sync.Mutex
	runID string
	emit  func(ProgressEvent)
	pct   int
	stage Stage
}

func newTracker(runID string, emit func(ProgressEvent)) *tracker {
	return &tracker{runID: runID, emit: emit, stage: StageInitializing}
}

func (t *tracker) report(stage Stage, pct int, msg string, sub *SubProgress) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if stageOrder[stage] < stageOrder[t.stage] {
		stage = t.stage
	}
	if pct < t.pct {
		pct = t.pct
	}
	if pct > 100 {
		pct = 100
	}
	t.stage, t.pct = stage, pct

	if t.emit != nil {
		t.emit(ProgressEvent{RunID: t.runID, Stage: stage, Progress: pct, Message: msg, Sub: sub})
	}
}

func (t *tracker) current() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pct
}
