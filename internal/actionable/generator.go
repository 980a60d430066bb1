package actionable

import (
	"fmt"
	"sort"

	"video-recipe-go/internal/aggregator"
)

type ActionCard struct {
	Insight string `json:"insight"`
	Action  string `json:"action"`
	Impact  string `json:"impact"`
}

var stageActions = map[string]struct{ action, impact string }{
	"url-validation": {
		"Check the input sheet for long-form or non-video links; only reels, TikToks and Shorts are accepted",
		"Fewer wasted runs",
	},
	"audio-extraction": {
		"Update yt-dlp and check whether the platform now requires login cookies",
		"Restores downloads for the affected platform",
	},
	"transcription": {
		"Confirm the speech model is pulled on the inference host and raise TRANSCRIBE_TIMEOUT_SEC if runs time out",
		"More transcripts reach structuring",
	},
	"ai-structuring": {
		"Try a larger TEXT_MODEL or lower STRUCTURE_TEMPERATURE; inspect raw replies in the report",
		"Fewer malformed recipes",
	},
}

// Generate turns batch statistics into one recommendation for an operator.
func Generate(ins aggregator.Insight) ActionCard {
	worst := ""
	highest := 0.0
	stages := make([]string, 0, len(ins.FailuresByStage))
	for s := range ins.FailuresByStage {
		stages = append(stages, s)
	}
	sort.Strings(stages)
	for _, s := range stages {
		if r := ins.FailureRate(s); r > highest {
			highest = r
			worst = s
		}
	}

	if act, ok := stageActions[worst]; ok && highest >= 0.35 {
		return ActionCard{
			Insight: fmt.Sprintf("High failure rate at %s (%.0f%%)", worst, highest*100),
			Action:  act.action,
			Impact:  act.impact,
		}
	}
	if ins.Total > 0 && ins.Succeeded > 0 && ins.AvgQuality < 0.6 {
		return ActionCard{
			Insight: fmt.Sprintf("Recipes extracted but average quality is low (%.2f)", ins.AvgQuality),
			Action:  "Enable metadata fetching and check transcript confidence in the report",
			Impact:  "Better titles and more complete recipes",
		}
	}
	return ActionCard{
		Insight: "No strong failure pattern detected",
		Action:  "Monitor and collect more data",
		Impact:  "Low immediate intervention",
	}
}
