package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"video-recipe-go/internal/actionable"
	"video-recipe-go/internal/aggregator"
	"video-recipe-go/internal/types"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

var resultsHeader = []any{
	"ID", "URL", "Platform", "Success", "Failed Stage", "Error Code", "Error",
	"Title", "Ingredients", "Instructions", "Cooking Time", "Servings",
	"Quality", "Confidence", "Duration (ms)", "Warnings",
}

// WriteReport writes one row per result plus a summary sheet with the batch
// insight and recommended action.
func WriteReport(path string, rows []Row, results []*types.ProcessingResult, in aggregator.Insight, card actionable.ActionCard) error {
	if len(rows) != len(results) {
		return fmt.Errorf("report: %d rows but %d results", len(rows), len(results))
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), resultsSheet); err != nil {
		return fmt.Errorf("report: rename sheet: %w", err)
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &resultsHeader); err != nil {
		return fmt.Errorf("report: header: %w", err)
	}

	for i, res := range results {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := resultRow(rows[i], res)
		if err := f.SetSheetRow(resultsSheet, cell, &values); err != nil {
			return fmt.Errorf("report: row %d: %w", i+1, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("report: summary sheet: %w", err)
	}
	for i, kv := range summaryRows(in, card) {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &kv); err != nil {
			return fmt.Errorf("report: summary row: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: save: %w", err)
	}
	return nil
}

func resultRow(row Row, res *types.ProcessingResult) []any {
	if res == nil {
		return []any{row.ID, row.URL}
	}
	platform := ""
	if res.Video != nil {
		platform = string(res.Video.Platform)
	}
	var title, cooking, servings string
	var ingredients, instructions string
	if r := res.Recipe; r != nil {
		title, cooking, servings = r.Title, r.CookingTime, r.Servings
		ingredients = strings.Join(r.Ingredients, "\n")
		instructions = strings.Join(r.Instructions, "\n")
	}
	return []any{
		row.ID, row.URL, platform, res.Success, res.FailedStage, string(res.ErrorCode), res.Error,
		title, ingredients, instructions, cooking, servings,
		res.QualityScore, res.Confidence, res.ProcessingMs, strings.Join(res.Warnings, "\n"),
	}
}

func summaryRows(in aggregator.Insight, card actionable.ActionCard) [][]any {
	out := [][]any{
		{"Total", in.Total},
		{"Succeeded", in.Succeeded},
		{"Success Rate", in.SuccessRate},
		{"Average Quality", in.AvgQuality},
		{"Average Duration (ms)", in.AvgDurationMs},
		{"Warnings", in.Warnings},
	}
	for _, k := range sortedKeys(in.ByPlatform) {
		out = append(out, []any{"Platform: " + k, in.ByPlatform[k]})
	}
	for _, k := range sortedKeys(in.FailuresByStage) {
		out = append(out, []any{"Failed at: " + k, in.FailuresByStage[k]})
	}
	for _, k := range sortedKeys(in.FailuresByCode) {
		out = append(out, []any{"Error: " + k, in.FailuresByCode[k]})
	}
	out = append(out,
		[]any{"Insight", card.Insight},
		[]any{"Action", card.Action},
		[]any{"Impact", card.Impact},
	)
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
