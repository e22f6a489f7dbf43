package shortlist

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dfe-digital/nomination-uploader/internal/kissflow"
)

// Column layout of the working shortlist workbook.
var shortlistHeader = []string{
	"Departmental rank",
	"Directorate rank",
	"Round",
	"Proposed award",
	"Proposed committee",
	"Proposed category",
	"Directorate",
	"Case link",
	"Forenames",
	"Surnames",
	"Short citation",
	"Region",
	"Gender",
	"Ethnic group",
}

// Fill colours carried over from the established workbook template.
const (
	headerFill      = "1981B7"
	departmentFill  = "F9CB9C"
	directorateFill = "C8E7F7"
)

// Export renders the working shortlist for one directorate and round. Empty
// filters select everything at the corresponding stage.
func Export(ctx context.Context, client *kissflow.Client, directorate, round string) (*excelize.File, error) {
	cases, err := client.ListCases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	if err := writeHeader(f, sheet, shortlistHeader); err != nil {
		return nil, err
	}

	depStyle, err := fillStyle(f, departmentFill)
	if err != nil {
		return nil, err
	}
	dirStyle, err := fillStyle(f, directorateFill)
	if err != nil {
		return nil, err
	}

	filterToDirectorate := directorate != ""
	filterToRound := round != ""

	rowNum := 1
	for _, c := range cases {
		if filterToDirectorate &&
			(directorate != c.String("Directorate") || !c.Has("Assigned To-Directorate Shortlist")) {
			continue
		}
		if filterToRound &&
			(c.Float("Directorate_shortlist") < 0.5 || round != c.String("Round") ||
				!c.Has("Assigned To-Department Shortlist")) {
			continue
		}

		rowNum++
		err := writeRow(f, sheet, rowNum, []string{
			c.String("Departmental_shortlist"),
			fmt.Sprintf("%d", int(c.Float("Directorate_shortlist"))),
			c.String("Round"),
			c.String("Proposed_Award"),
			c.String("Proposed_Committee"),
			c.String("Proposed_Category"),
			c.String("Directorate"),
			client.CaseInboxURL(kissflow.StepDirectorateShortlist, c.ID()),
			c.String("First_Name"),
			c.String("Last_Name"),
			c.String("Short_citation"),
			c.String("Region"),
			c.String("Gender"),
			c.String("Ethnic_Group"),
		})
		if err != nil {
			return nil, err
		}

		start, _ := excelize.CoordinatesToCellName(1, rowNum)
		if err := f.SetCellStyle(sheet, start, start, depStyle); err != nil {
			return nil, fmt.Errorf("style row %d: %w", rowNum, err)
		}
		from, _ := excelize.CoordinatesToCellName(2, rowNum)
		to, _ := excelize.CoordinatesToCellName(6, rowNum)
		if err := f.SetCellStyle(sheet, from, to, dirStyle); err != nil {
			return nil, fmt.Errorf("style row %d: %w", rowNum, err)
		}
	}

	return f, nil
}

// Column layout of the final submission sheet sent onward to the central
// secretariat.
var finalHeader = []string{
	"Department",
	"Hon List",
	"Year",
	"Surname",
	"Forename(s)",
	"AKA",
	"Preferred Name",
	"Title",
	"Post-Nominals",
	"Award",
	"Original Award",
	"DOB",
	"Approx DoB",
	"Leaving Current Post",
	"Total Length of Service",
	"Length of Service in Post",
	"Length of Service in Grade",
	"Nationality",
	"Foreign National?",
	"Short Citation",
	"Long Citation",
	"Edited Long Citation",
	"Address 1",
	"Address 2",
	"Address 3",
	"Town",
	"County",
	"Country",
	"Postcode",
	"SecureAddress",
	"Telephone Number",
	"Rating",
	"Public",
	"NomineesOrigin",
	"Committee",
	"Original Committee",
	"Category",
	"Original Category",
	"Gender",
	"Voluntary Work",
	"Previous Honours & Dates",
	"Previous Recommendations",
	"NominatorsOrigin",
}

var (
	roundPattern = regexp.MustCompile(`^[0-9]{4} [A-Z]{2}$`)
	yearPattern  = regexp.MustCompile(`[0-9]{4}`)
)

// ExportFinal renders the final submission sheet. The round filter only
// applies when it looks like a real round ("2026 BD").
func ExportFinal(ctx context.Context, client *kissflow.Client, round string) (*excelize.File, error) {
	cases, err := client.ListCases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	if err := writeHeader(f, sheet, finalHeader); err != nil {
		return nil, err
	}

	filterToRound := roundPattern.MatchString(round)

	rowNum := 1
	for _, c := range cases {
		if filterToRound && round != c.String("Round") &&
			(c.String("Departmental_shortlist") == "" || c.Has("Assigned To")) {
			continue
		}

		year := yearPattern.FindString(c.String("Round"))
		dobApproximate := c.String("Is_Date_of_Birth_approximate") == "Yes"
		stateNomination := c.String("Is_this_a_state_nomination") == "Yes"
		address := strings.Split(c.String("Address"), "\n")
		years := yearsValue(c)

		rowNum++
		err := writeRow(f, sheet, rowNum, []string{
			"DfE",
			c.String("Round"),
			year,
			c.String("Last_Name"),
			c.String("First_Name"),
			"",
			c.String("Preferrred_Names"),
			c.String("Title"),
			c.String("PostNominals"),
			c.String("Proposed_Award"),
			c.String("Proposed_Award"),
			pick(!dobApproximate, c.String("Date_of_Birth")),
			pick(dobApproximate, c.String("Date_of_Birth")),
			c.String("Date_Leaving_Post"),
			c.String("Total_Length_Of_Service"),
			pick(!stateNomination, years),
			pick(stateNomination, years),
			c.String("Nationality"),
			yn(!strings.Contains(c.String("Nationality"), "British")),
			c.String("Short_citation"),
			c.String("Long_citation"),
			c.String("Long_citation"),
			addressLine(address, 0, 1),
			pick(len(address) > 5, addressLine(address, 1, 0)),
			pick(len(address) > 6, addressLine(address, 2, 0)),
			pick(len(address) > 4, addressLine(address, len(address)-4, 0)),
			pick(len(address) > 3, addressLine(address, len(address)-3, 0)),
			pick(len(address) > 1, addressLine(address, len(address)-1, 0)),
			pick(len(address) > 2, addressLine(address, len(address)-2, 0)),
			yn(c.String("Secure_Address") == "Yes"),
			c.String("Telephone"),
			c.String("Departmental_shortlist"),
			pick(strings.Contains(c.String("Nomination_Type"), "Public"), c.String("Nomination_Type")),
			c.String("Ethnic_Group"),
			c.String("Proposed_Committee"),
			c.String("Proposed_Committee"),
			c.String("Proposed_Category"),
			c.String("Proposed_Category"),
			c.String("Gender"),
			yn(c.String("Voluntary_work") == "Yes"),
			c.String("Previous_HonoursRecommendations"),
			c.String("Previous_HonoursRecommendations"),
			c.String("Ethnic_Group_"),
		})
		if err != nil {
			return nil, err
		}
	}

	return f, nil
}

func writeHeader(f *excelize.File, sheet string, header []string) error {
	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	from, _ := excelize.CoordinatesToCellName(1, 1)
	to, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, from, to, style); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("row %d: %w", rowNum, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", rowNum, err)
	}
	return nil
}

func fillStyle(f *excelize.File, color string) (int, error) {
	style, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
	})
	if err != nil {
		return 0, fmt.Errorf("create fill style: %w", err)
	}
	return style, nil
}

// yearsValue renders the workflow's Years field, which the API returns as a
// number when present.
func yearsValue(c kissflow.Case) string {
	if !c.Has("Years") {
		return ""
	}
	return fmt.Sprintf("%d", int(c.Float("Years")))
}

func addressLine(lines []string, i, minLen int) string {
	if i < 0 || i >= len(lines) || len(lines) < minLen {
		return ""
	}
	return lines[i]
}

func pick(cond bool, v string) string {
	if cond {
		return v
	}
	return ""
}

func yn(v bool) string {
	if v {
		return "Y"
	}
	return "N"
}
