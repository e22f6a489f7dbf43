package shortlist

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dfe-digital/nomination-uploader/internal/kissflow"
)

// caseLinkColumn is the zero-based index of the case link in the working
// shortlist layout.
const caseLinkColumn = 7

// ImportResult summarises one shortlist ingestion run.
type ImportResult struct {
	Updated    int
	Progressed int
	Skipped    int
}

// Import reads rankings back from an edited shortlist workbook and applies
// them to the matching workflow cases. Rows whose case link no longer matches
// a live case are skipped. A case that gains its first ranking at either
// stage is progressed to the next step; already-ranked cases are updated in
// place.
func Import(ctx context.Context, client *kissflow.Client, path string) (ImportResult, error) {
	var result ImportResult

	f, err := excelize.OpenFile(path)
	if err != nil {
		return result, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return result, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return result, fmt.Errorf("sheet %q is empty", sheet)
	}
	if err := validateHeader(rows[0]); err != nil {
		return result, err
	}

	cases, err := client.ListCases(ctx)
	if err != nil {
		return result, fmt.Errorf("list cases: %w", err)
	}
	byID := make(map[string]kissflow.Case, len(cases))
	for _, c := range cases {
		byID[c.ID()] = c
	}

	for i, row := range rows[1:] {
		id := caseIDFromLink(cell(row, caseLinkColumn))
		c, ok := byID[id]
		if !ok {
			result.Skipped++
			continue
		}

		departmentalRank := cell(row, 0)
		directorateRank := cell(row, 1)

		rank, err := strconv.Atoi(directorateRank)
		if err != nil {
			return result, fmt.Errorf("row %d: directorate rank %q is not a number", i+2, directorateRank)
		}

		fields := url.Values{}
		fields.Set("Departmental_shortlist", departmentalRank)
		fields.Set("Directorate_shortlist", strconv.Itoa(rank))
		fields.Set("Round", cell(row, 2))
		fields.Set("Proposed_Award", cell(row, 3))
		fields.Set("Proposed_Committee", cell(row, 4))
		fields.Set("Proposed_Category", cell(row, 5))

		// A freshly assigned rank means the case is still sitting at the
		// ranking step and must be moved on rather than edited in place.
		progress := (fieldEmpty(c, "Directorate_shortlist") && directorateRank != "") ||
			(fieldEmpty(c, "Departmental_shortlist") && departmentalRank != "")

		if progress {
			if err := client.ProgressCase(ctx, id, fields); err != nil {
				return result, fmt.Errorf("progress case %s: %w", id, err)
			}
			result.Progressed++
		} else {
			if err := client.UpdateCase(ctx, id, fields); err != nil {
				return result, fmt.Errorf("update case %s: %w", id, err)
			}
			result.Updated++
		}
	}

	return result, nil
}

func validateHeader(header []string) error {
	for i, want := range shortlistHeader[:6] {
		if cell(header, i) != want {
			return fmt.Errorf("unexpected header: column %d is %q, want %q", i+1, cell(header, i), want)
		}
	}
	return nil
}

// caseIDFromLink pulls the case identifier off the end of an inbox link.
func caseIDFromLink(link string) string {
	link = strings.TrimSuffix(link, "/")
	if i := strings.LastIndex(link, "/"); i >= 0 {
		return link[i+1:]
	}
	return link
}

// cell reads a column tolerating the short rows excelize produces when
// trailing cells are blank.
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}

func fieldEmpty(c kissflow.Case, key string) bool {
	v, ok := c[key]
	return !ok || v == ""
}
