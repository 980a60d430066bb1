package processor

import (
	"time"

	"video-recipe-go/internal/types"
)

// QualityScore rates a run in [0,1]. elapsed is the run's wall time so far.
// It is advisory and never gates success.
func QualityScore(meta *types.VideoMetadata, tr *types.TranscriptionResult, sr *types.StructuringResult, recipe *types.ParsedRecipe, elapsed time.Duration) float64 {
	s := 0.5
	if meta != nil {
		if meta.Title != "" {
			s += 0.1
		}
		if meta.Description != "" {
			s += 0.05
		}
	}
	if tr != nil {
		s += tr.Confidence * 0.2
		if len(tr.Text) > 100 {
			s += 0.1
		}
	}
	if sr != nil {
		s += sr.Confidence * 0.25
	}
	if recipe != nil {
		if len(recipe.Ingredients) >= 2 {
			s += 0.1
		}
		if len(recipe.Instructions) >= 2 {
			s += 0.1
		}
	}
	switch {
	case elapsed < time.Minute:
		s += 0.05
	case elapsed > 5*time.Minute:
		s -= 0.05
	}

	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
