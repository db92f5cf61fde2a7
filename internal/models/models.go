package models

// Document is one raw text segment produced by a loader, together with
// where it came from. PDF pages and spreadsheet sheets each become their
// own Document. Documents are not persisted; they only live between
// loading and chunking.
type Document struct {
	Text   string
	Source string
	Page   int
}

// Chunk is the atomic retrieval unit cut from a Document. Ordinal is the
// position of the chunk within its source document, starting at 1.
type Chunk struct {
	Text    string
	Source  string
	Page    int
	Ordinal int
}
