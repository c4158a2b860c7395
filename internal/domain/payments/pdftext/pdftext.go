// Package pdftext supplies page text to the extractor. The PDF implementation reads
// the text layer only; scanned pages come back without text.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dslipak/pdf"

	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/extractor"
)

// ErrUnreadablePDF indicates the upload is not a PDF the text layer can open
var ErrUnreadablePDF = errors.New("unreadable PDF")

// pageSeparator splits plain-text fixtures into pages.
const pageSeparator = "\f"

// Source yields the pages of one document in reading order.
type Source interface {
	Pages(ctx context.Context) ([]extractor.Page, error)
}

// PDFReader reads page text from a PDF held in memory.
type PDFReader struct {
	data []byte
}

// NewPDFReader creates a reader over PDF bytes.
func NewPDFReader(data []byte) *PDFReader {
	return &PDFReader{data: data}
}

// Pages returns the text of every page, one line per baseline. A page whose text cannot be decoded is
// returned with HasText false instead of failing the document.
func (p *PDFReader) Pages(ctx context.Context) (pages []extractor.Page, err error) {
	if !IsPDF(p.data) {
		return nil, fmt.Errorf("%w: missing %%PDF header", ErrUnreadablePDF)
	}

	// the pdf package panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %v", ErrUnreadablePDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(p.data), int64(len(p.data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
	}

	total := reader.NumPage()
	pages = make([]extractor.Page, 0, total)

	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, extractor.Page{Number: i})
			continue
		}

		text, err := pageText(page)
		if err != nil || strings.TrimSpace(text) == "" {
			pages = append(pages, extractor.Page{Number: i})
			continue
		}

		pages = append(pages, extractor.Page{Number: i, Text: text, HasText: true})
	}

	return pages, nil
}

// pageText isolates panics from a single page so the rest of the document survives.
func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page text: %v", r)
		}
	}()
	return strings.Join(pageLines(page.Content().Text), "\n"), nil
}

// IsPDF checks the magic bytes at the start of data.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// TextSource serves already extracted text, one page per form-feed separated block.
// It backs fixtures and callers that run their own text layer.
type TextSource struct {
	text string
}

// NewTextSource creates a Source over plain text.
func NewTextSource(text string) *TextSource {
	return &TextSource{text: text}
}

// Pages splits the text on form feeds. Blank pages have no text.
func (s *TextSource) Pages(ctx context.Context) ([]extractor.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blocks := strings.Split(s.text, pageSeparator)
	pages := make([]extractor.Page, len(blocks))
	for i, block := range blocks {
		pages[i] = extractor.Page{
			Number:  i + 1,
			Text:    block,
			HasText: strings.TrimSpace(block) != "",
		}
	}
	return pages, nil
}

// Load reads a document through src and attaches its display name.
func Load(ctx context.Context, name string, src Source) (extractor.Document, error) {
	pages, err := src.Pages(ctx)
	if err != nil {
		return extractor.Document{}, fmt.Errorf("failed to read pages of %q: %w", name, err)
	}
	return extractor.Document{Name: name, Pages: pages}, nil
}
