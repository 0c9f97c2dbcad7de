package domain

// Match is a single vector store hit. The payload carries the passage text
// under either a "content" or "text" key plus arbitrary passthrough fields.
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// SearchFilter narrows a vector store query by payload fields.
// TextContains requests a full-text match on the passage text field and is
// what the keyword retrieval path relies on.
type SearchFilter struct {
	TextContains string
	Source       string
}

// Document is a retrieved passage reconstructed from a store match.
// Immutable once created.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	RawScore float64        `json:"raw_score"`
}

// RankedDocument carries the LLM relevance verdict for one document,
// an integer on the 0-100 scale.
type RankedDocument struct {
	Document  Document `json:"document"`
	Relevance int      `json:"relevance"`
}

// Source returns the origin file of the passage, when the index recorded one.
func (d Document) Source() string {
	for _, key := range []string{"source", "filename"} {
		if v, ok := d.Metadata[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// DocumentFromMatch rebuilds a passage from a store hit. The text lives under
// "content" or "text", first non-empty wins; the raw similarity is kept in the
// metadata for traceability.
func DocumentFromMatch(m Match) Document {
	content := ""
	for _, key := range []string{"content", "text"} {
		if v, ok := m.Metadata[key].(string); ok && v != "" {
			content = v
			break
		}
	}

	metadata := make(map[string]any, len(m.Metadata)+1)
	for k, v := range m.Metadata {
		metadata[k] = v
	}
	metadata["raw_score"] = m.Score

	return Document{
		ID:       m.ID,
		Content:  content,
		Metadata: metadata,
		RawScore: m.Score,
	}
}
