package models

// CitationUnit is one indexable legal document: a decided case or a
// statute part/section. Immutable once ingested; a re-index replaces it.
type CitationUnit struct {
	ID          string
	Title       string
	Body        string
	Division    string
	LawCategory string
	LawAct      string
	Reference   string
}

// Chunk is a contiguous slice of a CitationUnit body. It carries a full
// copy of the parent metadata so it is independently retrievable and
// citable. A parent that fits in one chunk has Index=0, Total=1 and
// IsChunked=false.
type Chunk struct {
	ParentID    string
	ParentTitle string
	Division    string
	LawCategory string
	LawAct      string
	Reference   string
	Index       int
	Total       int
	IsChunked   bool
	Text        string
}

// Citation is the attribution label shown for this chunk's parent.
func (c Chunk) Citation() string {
	switch {
	case c.ParentTitle != "" && c.Reference != "" && c.Reference != c.ParentTitle:
		return c.ParentTitle + " (" + c.Reference + ")"
	case c.ParentTitle != "":
		return c.ParentTitle
	default:
		return c.Reference
	}
}

// SearchResult is one similarity match. Scores are only comparable
// within a single collection.
type SearchResult struct {
	ID    uint64
	Score float64
	Chunk Chunk
}

// CollectionInfo describes one vector collection.
type CollectionInfo struct {
	Name      string
	Records   int
	Dimension int
}
