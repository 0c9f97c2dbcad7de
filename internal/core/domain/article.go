package domain

// Article is a source document from the content corpus, already stripped of
// front matter. Name is the corpus-relative file name and doubles as the
// source reference recorded on indexed passages.
type Article struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// CompletionOptions select the model and sampling behavior for one
// completion call.
type CompletionOptions struct {
	Model       string
	Temperature float32
}
