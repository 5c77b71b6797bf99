package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"kitabuddy/internal/model"
)

func TestWriteReports(t *testing.T) {
	created := time.Date(2025, 5, 12, 9, 30, 0, 0, time.UTC)
	reports := []model.Report{
		{ID: "r1", Student: "Ali", Class: "5 Bestari", Issue: "Diejek di kantin", Status: model.ReportNew, CreatedAt: created},
		{ID: "r2", Student: "Siti", Class: "4 Cemerlang", Issue: "Ditolak", Status: model.ReportResolved, CreatedAt: created},
	}

	var buf bytes.Buffer
	if err := WriteReports(&buf, reports); err != nil {
		t.Fatalf("write error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(ReportSheet)
	if err != nil {
		t.Fatalf("rows error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][3] != "Pelajar" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][1] != "12-05-2025" || rows[1][3] != "Ali" || rows[1][6] != "Baru" {
		t.Fatalf("unexpected first row %v", rows[1])
	}
	if rows[2][6] != "Selesai" {
		t.Fatalf("unexpected status %v", rows[2])
	}
}

func TestWriteReportsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReports(&buf, nil); err != nil {
		t.Fatalf("write error: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("expected workbook bytes")
	}
}
