package render

import (
	"strings"
	"testing"

	"video-recipe-go/internal/actionable"
	"video-recipe-go/internal/aggregator"
	"video-recipe-go/internal/processor"
	"video-recipe-go/internal/types"
)

func TestResultSuccess(t *testing.T) {
	out := Result(&types.ProcessingResult{
		Success: true,
		Recipe: &types.ParsedRecipe{
			Title:        "Simple Cake",
			Ingredients:  []string{"2 cups flour"},
			Instructions: []string{"Mix", "Bake"},
			Servings:     "8",
		},
		Warnings: []string{"audio truncated"},
	})
	for _, want := range []string{"Simple Cake", "2 cups flour", "2. Bake", "serves: 8", "audio truncated"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestResultFailure(t *testing.T) {
	out := Result(&types.ProcessingResult{
		FailedStage: "audio-extraction",
		ErrorCode:   types.ErrVideoDownloadFailed,
		Error:       "yt-dlp: private video",
	})
	for _, want := range []string{"audio-extraction", string(types.ErrVideoDownloadFailed), "private video"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestProgressAndBatch(t *testing.T) {
	line := Progress(processor.ProgressEvent{Stage: processor.StageTranscription, Progress: 55, Message: "chunk", Sub: &processor.SubProgress{Current: 2, Total: 4}})
	if !strings.Contains(line, "55%") || !strings.Contains(line, "(2/4)") {
		t.Errorf("progress line = %q", line)
	}

	out := Batch(aggregator.Insight{Total: 4, Succeeded: 3, SuccessRate: 0.75}, actionable.ActionCard{Insight: "No strong failure pattern detected", Action: "Monitor"})
	if !strings.Contains(out, "3/4 succeeded") || !strings.Contains(out, "Monitor") {
		t.Errorf("batch output:\n%s", out)
	}
}
