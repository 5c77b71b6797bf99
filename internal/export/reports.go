package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"kitabuddy/internal/model"
)

const ReportSheet = "Laporan"

var reportHeaders = []string{"No", "Tarikh", "Masa", "Pelajar", "Kelas", "Isu", "Status"}

var statusColors = map[model.ReportStatus]string{
	model.ReportNew:           "#EF4444",
	model.ReportInvestigating: "#F59E0B",
	model.ReportResolved:      "#10B981",
}

// WriteReports writes reports as an XLSX workbook with one row per report.
func WriteReports(w io.Writer, reports []model.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReportSheet); err != nil {
		return err
	}
	for i, h := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(ReportSheet, cell, h); err != nil {
			return err
		}
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4F46E5"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(reportHeaders), 1)
	if err := f.SetCellStyle(ReportSheet, "A1", lastHeader, headerStyle); err != nil {
		return err
	}

	styles := map[model.ReportStatus]int{}
	for status, color := range statusColors {
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Color: color}})
		if err != nil {
			return err
		}
		styles[status] = style
	}

	for i, report := range reports {
		row := i + 2
		values := []interface{}{
			i + 1,
			report.CreatedAt.Format("02-01-2006"),
			report.CreatedAt.Format("15:04"),
			report.Student,
			report.Class,
			report.Issue,
			string(report.Status),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(ReportSheet, cell, value); err != nil {
				return err
			}
		}
		if style, ok := styles[report.Status]; ok {
			cell := fmt.Sprintf("G%d", row)
			if err := f.SetCellStyle(ReportSheet, cell, cell, style); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(ReportSheet, "F", "F", 50); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}
