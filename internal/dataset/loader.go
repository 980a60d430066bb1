package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one video to process from an input sheet.
type Row struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Note string `json:"note,omitempty"`
}

// Load reads the first sheet of an xlsx file and auto-detects the URL column
// by header heuristics. Rows without an http(s) URL are skipped.
func Load(path string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	header := rows[0]
	urlIdx, idIdx, noteIdx := -1, -1, -1
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "url") || strings.Contains(l, "link") || strings.Contains(l, "video"):
			if urlIdx == -1 {
				urlIdx = i
			}
		case l == "id" || strings.HasSuffix(l, " id") || strings.HasSuffix(l, "_id"):
			if idIdx == -1 {
				idIdx = i
			}
		case strings.Contains(l, "note") || strings.Contains(l, "comment"):
			if noteIdx == -1 {
				noteIdx = i
			}
		}
	}
	// fallback: first column that holds a URL in the first data row
	if urlIdx == -1 {
		for i, c := range rows[1] {
			if isHTTP(c) {
				urlIdx = i
				break
			}
		}
	}
	if urlIdx == -1 {
		return nil, fmt.Errorf("no url column found")
	}

	var out []Row
	for i, r := range rows {
		if i == 0 {
			continue
		}
		row := Row{ID: strconv.Itoa(i)}
		if idIdx >= 0 && idIdx < len(r) && strings.TrimSpace(r[idIdx]) != "" {
			row.ID = strings.TrimSpace(r[idIdx])
		}
		if urlIdx < len(r) {
			row.URL = strings.TrimSpace(r[urlIdx])
		}
		if noteIdx >= 0 && noteIdx < len(r) {
			row.Note = r[noteIdx]
		}
		if !isHTTP(row.URL) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func isHTTP(s string) bool {
	l := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
