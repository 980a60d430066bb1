package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestPipelineErrorChain(t *testing.T) {
	root := errors.New("connection refused")
	err := fmt.Errorf("stage: %w", WrapError(ErrTranscriptionFailed, root, "generate"))

	if CodeOf(err) != ErrTranscriptionFailed {
		t.Errorf("CodeOf = %s", CodeOf(err))
	}
	if !errors.Is(err, root) {
		t.Error("expected errors.Is to reach the root cause")
	}
	if IsPermanent(err) {
		t.Error("wrapped transient error reported permanent")
	}
	if got := WrapError(ErrTimeout, root, "generate").Error(); got != "TIMEOUT: generate: connection refused" {
		t.Errorf("Error() = %q", got)
	}
}

func TestPermanentAndUnknown(t *testing.T) {
	err := NewPermanentError(ErrNoSpeechDetected, "audio too short (%.1fs)", 0.2)
	if !IsPermanent(err) || CodeOf(err) != ErrNoSpeechDetected {
		t.Fatalf("unexpected %+v", err)
	}
	if err.Error() != "NO_SPEECH_DETECTED: audio too short (0.2s)" {
		t.Errorf("Error() = %q", err.Error())
	}
	if CodeOf(errors.New("plain")) != ErrUnknown {
		t.Error("plain errors should map to UNKNOWN_ERROR")
	}
}
