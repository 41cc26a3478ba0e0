package indexer

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"legal-rag/internal/errs"
	"legal-rag/internal/models"
)

// Source normalizes one corpus's raw records into citation units and
// frames chunk text for embedding. The indexing pipeline itself is
// shared between corpora.
type Source interface {
	Name() string
	Normalize(raw json.RawMessage) (models.CitationUnit, error)
	Frame(chunk models.Chunk) string
}

// CaseSource reads legal case records. Field names are a bit-exact
// contract with the upstream scraper.
type CaseSource struct{}

func (CaseSource) Name() string { return "case" }

func (CaseSource) Normalize(raw json.RawMessage) (models.CitationUnit, error) {
	var rec struct {
		CaseTitle   string `json:"case-title"`
		CaseDetails string `json:"case-details"`
		Division    string `json:"division"`
		LawCategory string `json:"law_category"`
		LawAct      string `json:"law_act"`
		Reference   string `json:"reference"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.CitationUnit{}, errs.Validation("record", err.Error())
	}
	if rec.CaseTitle == "" {
		return models.CitationUnit{}, errs.Validation("case-title", "missing required field")
	}
	if rec.CaseDetails == "" {
		return models.CitationUnit{}, errs.Validation("case-details", "missing required field")
	}
	return models.CitationUnit{
		ID:          hashID(rec.CaseTitle, rec.Reference),
		Title:       rec.CaseTitle,
		Body:        rec.CaseDetails,
		Division:    rec.Division,
		LawCategory: rec.LawCategory,
		LawAct:      rec.LawAct,
		Reference:   rec.Reference,
	}, nil
}

func (CaseSource) Frame(c models.Chunk) string {
	header := fmt.Sprintf("Case Title: %s\nDivision: %s\nLaw Category: %s\nLaw Act: %s\nReference: %s",
		c.ParentTitle, c.Division, c.LawCategory, c.LawAct, c.Reference)
	if c.IsChunked {
		return fmt.Sprintf("%s\nCase Details (Chunk %d/%d): %s", header, c.Index+1, c.Total, c.Text)
	}
	return fmt.Sprintf("%s\nCase Details: %s", header, c.Text)
}

// LawSource reads statute part/section records.
type LawSource struct{}

func (LawSource) Name() string { return "law" }

func (LawSource) Normalize(raw json.RawMessage) (models.CitationUnit, error) {
	var rec struct {
		PartSection string `json:"part_section"`
		LawText     string `json:"law_text"`
		LawAct      string `json:"law_act"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.CitationUnit{}, errs.Validation("record", err.Error())
	}
	if rec.PartSection == "" {
		return models.CitationUnit{}, errs.Validation("part_section", "missing required field")
	}
	if rec.LawText == "" {
		return models.CitationUnit{}, errs.Validation("law_text", "missing required field")
	}
	return models.CitationUnit{
		ID:        hashID(rec.PartSection, rec.LawAct),
		Title:     rec.PartSection,
		Body:      rec.LawText,
		LawAct:    rec.LawAct,
		Reference: rec.PartSection,
	}, nil
}

func (LawSource) Frame(c models.Chunk) string {
	if c.IsChunked {
		return fmt.Sprintf("Part Section: %s\nLaw Text (Chunk %d/%d): %s", c.Reference, c.Index+1, c.Total, c.Text)
	}
	return fmt.Sprintf("Part Section: %s\nLaw Text: %s", c.Reference, c.Text)
}

func hashID(parts ...string) string {
	h := sha1.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}
