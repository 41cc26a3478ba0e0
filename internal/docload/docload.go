package docload

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"

	"legal-rag/internal/errs"
)

// ExtractText pulls plain text out of a judgment document so it can be
// indexed as a case record. Supported formats: .pdf, .docx, .txt.
func ExtractText(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return extractPDF(path)
	case ".docx":
		return extractDOCX(path)
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", errs.Validation("file", fmt.Sprintf("unsupported format %s", ext))
	}
}

func extractPDF(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		pageText, err := reader.Page(i).GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(pageText)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String()), nil
}

func extractDOCX(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", err
	}
	defer r.Close()
	return strings.TrimSpace(r.Editable().GetContent()), nil
}

// CaseRecord builds an indexable case record from an extracted
// document. The filename stem stands in for the case title when none
// is supplied.
func CaseRecord(path, title, division string) (json.RawMessage, error) {
	body, err := ExtractText(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, errs.Validation("file", "document contains no text")
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return json.Marshal(map[string]string{
		"case-title":   title,
		"case-details": body,
		"division":     division,
	})
}

// LoadLawXLSX reads statute records from a spreadsheet. The first
// sheet is used; the header row names the columns and must contain
// part_section and law_text. A law_act column is carried through when
// present.
func LoadLawXLSX(path string) ([]json.RawMessage, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errs.Validation("file", "spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, errs.Validation("file", "spreadsheet has no data rows")
	}

	cols := map[string]int{}
	for i, name := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	sectionCol, ok := cols["part_section"]
	if !ok {
		return nil, errs.Validation("file", "missing part_section column")
	}
	textCol, ok := cols["law_text"]
	if !ok {
		return nil, errs.Validation("file", "missing law_text column")
	}
	actCol, hasAct := cols["law_act"]

	cell := func(row []string, i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	records := make([]json.RawMessage, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := map[string]string{
			"part_section": cell(row, sectionCol),
			"law_text":     cell(row, textCol),
		}
		if hasAct {
			rec["law_act"] = cell(row, actCol)
		}
		if rec["part_section"] == "" && rec["law_text"] == "" {
			continue
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		records = append(records, raw)
	}
	return records, nil
}
