package docload

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"legal-rag/internal/errs"
)

func TestExtractTextTxt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "judgment.txt")
	if err := os.WriteFile(path, []byte("The appeal is allowed."), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ExtractText(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "The appeal is allowed." {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestExtractTextUnsupported(t *testing.T) {
	_, err := ExtractText("judgment.odt")
	if !errs.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCaseRecordDefaultsTitleFromFilename(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state-vs-rahman.txt")
	if err := os.WriteFile(path, []byte("Judgment body."), 0o644); err != nil {
		t.Fatal(err)
	}
	raw, err := CaseRecord(path, "", "HCD")
	if err != nil {
		t.Fatal(err)
	}
	var rec map[string]string
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.Fatal(err)
	}
	if rec["case-title"] != "state-vs-rahman" || rec["case-details"] != "Judgment body." || rec["division"] != "HCD" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestLoadLawXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "laws.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]string{
		{"part_section", "law_text", "law_act"},
		{"Act I Section 1", "First provision.", "Act I"},
		{"", "", ""},
		{"Act I Section 2", "Second provision.", "Act I"},
	}
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	records, err := LoadLawXLSX(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	var rec map[string]string
	if err := json.Unmarshal(records[1], &rec); err != nil {
		t.Fatal(err)
	}
	if rec["part_section"] != "Act I Section 2" || rec["law_text"] != "Second provision." || rec["law_act"] != "Act I" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestLoadLawXLSXMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	if err := f.SetCellValue(sheet, "A1", "part_section"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue(sheet, "A2", "Act I Section 1"); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLawXLSX(path); !errs.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
