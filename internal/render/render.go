package render

import (
	"fmt"
	"strings"

	"video-recipe-go/internal/actionable"
	"video-recipe-go/internal/aggregator"
	"video-recipe-go/internal/processor"
	"video-recipe-go/internal/types"
)

// Progress renders one progress line.
func Progress(ev processor.ProgressEvent) string {
	line := fmt.Sprintf("[%3d%%] %-20s %s", ev.Progress, ev.Stage, ev.Message)
	if ev.Sub != nil {
		line += fmt.Sprintf(" (%d/%d)", ev.Sub.Current, ev.Sub.Total)
	}
	return dimStyle.Render(line)
}

// Result renders a single run for a terminal.
func Result(res *types.ProcessingResult) string {
	var b strings.Builder
	if !res.Success || res.Recipe == nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ failed at %s: %s", res.FailedStage, res.ErrorCode)))
		b.WriteString("\n")
		b.WriteString(res.Error)
		b.WriteString("\n")
		writeWarnings(&b, res.Warnings)
		return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
	}

	r := res.Recipe
	b.WriteString(titleStyle.Render(r.Title))
	b.WriteString("\n")
	var facts []string
	if r.CookingTime != "" {
		facts = append(facts, "time: "+r.CookingTime)
	}
	if r.Servings != "" {
		facts = append(facts, "serves: "+r.Servings)
	}
	if r.Difficulty != "" {
		facts = append(facts, "difficulty: "+r.Difficulty)
	}
	if len(facts) > 0 {
		b.WriteString(dimStyle.Render(strings.Join(facts, " · ")))
		b.WriteString("\n")
	}

	b.WriteString("\n" + headerStyle.Render("Ingredients") + "\n")
	for _, in := range r.Ingredients {
		b.WriteString("  • " + in + "\n")
	}
	b.WriteString("\n" + headerStyle.Render("Instructions") + "\n")
	for i, step := range r.Instructions {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, step))
	}

	b.WriteString("\n")
	b.WriteString(okStyle.Render(fmt.Sprintf("quality %.2f  confidence %.2f  %dms", res.QualityScore, res.Confidence, res.ProcessingMs)))
	b.WriteString("\n")
	writeWarnings(&b, res.Warnings)
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func writeWarnings(b *strings.Builder, warnings []string) {
	for _, w := range warnings {
		b.WriteString(warnStyle.Render("! "+w) + "\n")
	}
}

// Batch renders aggregate statistics and the recommended action.
func Batch(in aggregator.Insight, card actionable.ActionCard) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Batch summary") + "\n")
	rate := fmt.Sprintf("%d/%d succeeded (%.0f%%)", in.Succeeded, in.Total, in.SuccessRate*100)
	if in.SuccessRate >= 0.5 {
		b.WriteString(okStyle.Render(rate))
	} else {
		b.WriteString(errorStyle.Render(rate))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("avg quality %.2f  avg duration %dms  warnings %d\n", in.AvgQuality, in.AvgDurationMs, in.Warnings))
	for stage, n := range in.FailuresByStage {
		b.WriteString(warnStyle.Render(fmt.Sprintf("  %s: %d failed", stage, n)) + "\n")
	}
	b.WriteString("\n" + headerStyle.Render("Recommendation") + "\n")
	b.WriteString(card.Insight + "\n")
	b.WriteString("→ " + card.Action + "\n")
	b.WriteString(dimStyle.Render(card.Impact))
	return boxStyle.Render(b.String())
}
