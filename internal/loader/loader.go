package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"notes-rag/internal/models"
)

// ErrUnsupported reports a file extension no loader handles. The ingestion
// pipeline treats it as a skip signal, not a failure.
var ErrUnsupported = errors.New("unsupported file extension")

const defaultPage = 1

// Supported reports whether a loader exists for the file's extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".pdf", ".docx", ".xlsx":
		return true
	}
	return false
}

// Load reads one file into raw text segments. Paged formats (PDF) and
// sheeted formats (XLSX) produce one Document per page or sheet; flat
// formats produce a single Document. Empty segments are dropped.
func Load(path string) ([]models.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt":
		return loadText(path)
	case ".md":
		return loadMarkdown(path)
	case ".pdf":
		return loadPDF(path)
	case ".docx":
		return loadDOCX(path)
	case ".xlsx":
		return loadXLSX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
}

func loadText(path string) ([]models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	return []models.Document{{
		Text:   string(data),
		Source: filepath.Base(path),
		Page:   defaultPage,
	}}, nil
}

// loadMarkdown strips Markdown formatting by walking the goldmark AST and
// collecting text nodes, so headings and emphasis markers do not pollute
// the embeddings.
func loadMarkdown(path string) ([]models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	root := md.Parser().Parse(text.NewReader(data))

	var b strings.Builder
	err = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.(type) {
			case *ast.Paragraph, *ast.Heading, *ast.ListItem:
				b.WriteString("\n\n")
			}
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			b.Write(t.Segment.Value(data))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(b.String())
	if content == "" {
		return nil, nil
	}
	return []models.Document{{
		Text:   content,
		Source: filepath.Base(path),
		Page:   defaultPage,
	}}, nil
}

func loadPDF(path string) ([]models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var docs []models.Document
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		docs = append(docs, models.Document{
			Text:   pageText,
			Source: filepath.Base(path),
			Page:   i,
		})
	}
	return docs, nil
}

func loadDOCX(path string) ([]models.Document, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := extractDocxText(r.Editable().GetContent())
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	return []models.Document{{
		Text:   content,
		Source: filepath.Base(path),
		Page:   defaultPage, // DOCX has no page numbers
	}}, nil
}

// extractDocxText pulls the visible run text out of the document XML,
// one line per paragraph.
func extractDocxText(xmlContent string) string {
	var b strings.Builder
	for _, para := range strings.Split(xmlContent, "</w:p>") {
		wrote := false
		for i, part := range strings.Split(para, "<w:t") {
			if i == 0 {
				continue
			}
			start := strings.Index(part, ">")
			if start < 0 {
				continue
			}
			end := strings.Index(part, "</w:t>")
			if end < 0 || end < start {
				continue
			}
			b.WriteString(part[start+1 : end])
			wrote = true
		}
		if wrote {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func loadXLSX(path string) ([]models.Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []models.Document
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var b strings.Builder
		b.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		empty := true
		for _, row := range rows {
			for _, cell := range row {
				if strings.TrimSpace(cell) != "" {
					empty = false
				}
				b.WriteString(cell + "\t")
			}
			b.WriteString("\n")
		}
		if empty {
			continue
		}
		docs = append(docs, models.Document{
			Text:   b.String(),
			Source: filepath.Base(path),
			Page:   sheetNum + 1, // sheets stand in for pages
		})
	}
	return docs, nil
}
