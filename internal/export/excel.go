// Package export renders analysis results as an Excel workbook.
package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fitscreen/fitscreen/internal/store"
)

const (
	summarySheet = "Summary"
	rankedSheet  = "Ranked Candidates"
	detailsSheet = "Detailed Analysis"
)

// Report is everything needed to render a workbook for one job.
type Report struct {
	Job        *store.JobDescription
	Candidates []store.CandidateWithAnalysis
	Generated  time.Time
}

// Write renders the report and streams the workbook to w.
func Write(w io.Writer, report Report) error {
	f, err := build(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Save renders the report to a file, appending the .xlsx extension when it
// is missing.
func Save(path string, report Report) (string, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}
	path = filepath.Clean(path)

	f, err := build(report)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}

func build(report Report) (*excelize.File, error) {
	if report.Generated.IsZero() {
		report.Generated = time.Now()
	}

	f := excelize.NewFile()

	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(rankedSheet); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(detailsSheet); err != nil {
		f.Close()
		return nil, err
	}

	if err := writeSummary(f, report); err != nil {
		f.Close()
		return nil, fmt.Errorf("summary sheet: %w", err)
	}
	if err := writeRanked(f, report.Candidates); err != nil {
		f.Close()
		return nil, fmt.Errorf("ranked sheet: %w", err)
	}
	if err := writeDetails(f, report.Candidates); err != nil {
		f.Close()
		return nil, fmt.Errorf("details sheet: %w", err)
	}

	return f, nil
}

func writeSummary(f *excelize.File, report Report) error {
	f.SetColWidth(summarySheet, "A", "A", 28)
	f.SetColWidth(summarySheet, "B", "B", 50)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	row := 1
	f.SetCellValue(summarySheet, cell("A", row), "Candidate Fit Report")
	f.SetCellStyle(summarySheet, cell("A", row), cell("B", row), headerStyle)
	f.MergeCell(summarySheet, cell("A", row), cell("B", row))
	row += 2

	setLabeled := func(label string, value any) {
		f.SetCellValue(summarySheet, cell("A", row), label)
		f.SetCellStyle(summarySheet, cell("A", row), cell("A", row), labelStyle)
		f.SetCellValue(summarySheet, cell("B", row), value)
		row++
	}

	setLabeled("Job Title:", report.Job.Title)
	setLabeled("Job Status:", report.Job.Status)
	setLabeled("Generated:", report.Generated.Format("2006-01-02 15:04:05"))
	setLabeled("Total Candidates:", len(report.Candidates))

	scored := scoredCandidates(report.Candidates)
	setLabeled("Candidates Scored:", len(scored))
	row++

	if len(scored) == 0 {
		return nil
	}

	f.SetCellValue(summarySheet, cell("A", row), "Score Statistics:")
	f.SetCellStyle(summarySheet, cell("A", row), cell("B", row), headerStyle)
	f.MergeCell(summarySheet, cell("A", row), cell("B", row))
	row++

	min, max, sum := scored[0].Analysis.Score, scored[0].Analysis.Score, 0.0
	for _, c := range scored {
		s := c.Analysis.Score
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
		sum += s
	}

	setLabeled("Average Score:", fmt.Sprintf("%.2f", sum/float64(len(scored))))
	setLabeled("Highest Score:", fmt.Sprintf("%.2f", max))
	setLabeled("Lowest Score:", fmt.Sprintf("%.2f", min))

	return nil
}

func writeRanked(f *excelize.File, candidates []store.CandidateWithAnalysis) error {
	f.SetColWidth(rankedSheet, "A", "A", 8)
	f.SetColWidth(rankedSheet, "B", "B", 25)
	f.SetColWidth(rankedSheet, "C", "C", 30)
	f.SetColWidth(rankedSheet, "D", "D", 12)

	headerStyle, err := tableHeaderStyle(f)
	if err != nil {
		return err
	}
	strongStyle, err := bandStyle(f, "C6EFCE")
	if err != nil {
		return err
	}
	midStyle, err := bandStyle(f, "FFEB9C")
	if err != nil {
		return err
	}
	weakStyle, err := bandStyle(f, "FFC7CE")
	if err != nil {
		return err
	}

	headers := []string{"Rank", "Candidate", "Email", "Score"}
	for col, header := range headers {
		c := cell(string(rune('A'+col)), 1)
		f.SetCellValue(rankedSheet, c, header)
		f.SetCellStyle(rankedSheet, c, c, headerStyle)
	}

	for i, candidate := range candidates {
		row := i + 2
		f.SetCellValue(rankedSheet, cell("A", row), i+1)
		f.SetCellValue(rankedSheet, cell("B", row), candidate.Candidate.Name)
		f.SetCellValue(rankedSheet, cell("C", row), candidate.Candidate.Email)

		if candidate.Analysis != nil {
			f.SetCellValue(rankedSheet, cell("D", row), candidate.Analysis.Score)

			style := weakStyle
			switch score := candidate.Analysis.Score; {
			case score >= 75:
				style = strongStyle
			case score >= 50:
				style = midStyle
			}
			f.SetCellStyle(rankedSheet, cell("A", row), cell("D", row), style)
		} else {
			f.SetCellValue(rankedSheet, cell("D", row), "not scored")
		}
	}

	if len(candidates) > 0 {
		f.AutoFilter(rankedSheet, fmt.Sprintf("A1:D%d", len(candidates)+1), nil)
	}

	return freezeHeader(f, rankedSheet)
}

func writeDetails(f *excelize.File, candidates []store.CandidateWithAnalysis) error {
	f.SetColWidth(detailsSheet, "A", "A", 25)
	f.SetColWidth(detailsSheet, "B", "B", 16)
	f.SetColWidth(detailsSheet, "C", "C", 70)

	headerStyle, err := tableHeaderStyle(f)
	if err != nil {
		return err
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border:    thinBorder(),
	})
	if err != nil {
		return err
	}

	headers := []string{"Candidate", "Section", "Content"}
	for col, header := range headers {
		c := cell(string(rune('A'+col)), 1)
		f.SetCellValue(detailsSheet, c, header)
		f.SetCellStyle(detailsSheet, c, c, headerStyle)
	}

	row := 2
	for _, candidate := range candidates {
		if candidate.Analysis == nil {
			continue
		}

		sections := []struct {
			name, content string
		}{
			{"Strengths", candidate.Analysis.Strengths},
			{"Weaknesses", candidate.Analysis.Weaknesses},
			{"Rationale", candidate.Analysis.Rationale},
		}
		for _, section := range sections {
			f.SetCellValue(detailsSheet, cell("A", row), candidate.Candidate.Name)
			f.SetCellValue(detailsSheet, cell("B", row), section.name)
			f.SetCellValue(detailsSheet, cell("C", row), section.content)
			f.SetCellStyle(detailsSheet, cell("A", row), cell("C", row), wrapStyle)
			f.SetRowHeight(detailsSheet, row, 60)
			row++
		}
	}

	return freezeHeader(f, detailsSheet)
}

func scoredCandidates(candidates []store.CandidateWithAnalysis) []store.CandidateWithAnalysis {
	scored := make([]store.CandidateWithAnalysis, 0, len(candidates))
	for _, c := range candidates {
		if c.Analysis != nil {
			scored = append(scored, c)
		}
	}
	return scored
}

func tableHeaderStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder(),
	})
}

func bandStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Border: thinBorder(),
	})
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}

func freezeHeader(f *excelize.File, sheet string) error {
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
