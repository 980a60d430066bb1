package aggregator

import "video-recipe-go/internal/types"

// Insight summarizes a batch of runs.
type Insight struct {
	Total           int            `json:"total"`
	Succeeded       int            `json:"succeeded"`
	SuccessRate     float64        `json:"success_rate"`
	ByPlatform      map[string]int `json:"by_platform"`
	FailuresByStage map[string]int `json:"failures_by_stage"`
	FailuresByCode  map[string]int `json:"failures_by_code"`
	AvgQuality      float64        `json:"avg_quality"`
	AvgDurationMs   int64          `json:"avg_duration_ms"`
	Warnings        int            `json:"warnings"`
}

// FailureRate returns the share of all runs that failed at stage.
func (in Insight) FailureRate(stage string) float64 {
	if in.Total == 0 {
		return 0
	}
	return float64(in.FailuresByStage[stage]) / float64(in.Total)
}

func Aggregate(results []*types.ProcessingResult) Insight {
	in := Insight{
		ByPlatform:      map[string]int{},
		FailuresByStage: map[string]int{},
		FailuresByCode:  map[string]int{},
	}
	var qualitySum float64
	var durationSum int64
	for _, r := range results {
		if r == nil {
			continue
		}
		in.Total++
		durationSum += r.ProcessingMs
		in.Warnings += len(r.Warnings)

		platform := "unknown"
		if r.Video != nil {
			platform = string(r.Video.Platform)
		}
		in.ByPlatform[platform]++

		if r.Success {
			in.Succeeded++
			qualitySum += r.QualityScore
			continue
		}
		if r.FailedStage != "" {
			in.FailuresByStage[r.FailedStage]++
		}
		if r.ErrorCode != "" {
			in.FailuresByCode[string(r.ErrorCode)]++
		}
	}
	if in.Total > 0 {
		in.SuccessRate = float64(in.Succeeded) / float64(in.Total)
		in.AvgDurationMs = durationSum / int64(in.Total)
	}
	if in.Succeeded > 0 {
		in.AvgQuality = qualitySum / float64(in.Succeeded)
	}
	return in
}
