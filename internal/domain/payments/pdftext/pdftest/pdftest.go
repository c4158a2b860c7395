// Package pdftest builds small text-layer PDFs for tests. Documents use a single
// WinAnsi encoded Helvetica font and one content stream per page, so text drawn with
// Text lands exactly where a statement generator would place it.
package pdftest

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

const (
	fontSize   = 10
	glyphWidth = 556
	firstChar  = 32
	lastChar   = 255
)

// Options controls the font dictionary of a generated document.
type Options struct {
	// Widths adds a glyph width table, which moves the pen after every glyph.
	// Without it every glyph of one string is reported at the string's origin.
	Widths bool
}

// Text returns a content stream fragment drawing s with its baseline origin at (x, y).
// Runes outside Latin-1 are replaced by '?'.
func Text(x, y float64, s string) string {
	return fmt.Sprintf("BT /F1 %d Tf %s %s Td (%s) Tj ET\n", fontSize, num(x), num(y), escape(s))
}

// Lines draws lines top down inside one text object, moving between them with Td only.
func Lines(x, y, leading float64, lines ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "BT /F1 %d Tf %s %s Td\n", fontSize, num(x), num(y))
	for i, line := range lines {
		if i > 0 {
			fmt.Fprintf(&b, "0 %s Td\n", num(-leading))
		}
		fmt.Fprintf(&b, "(%s) Tj\n", escape(line))
	}
	b.WriteString("ET\n")
	return b.String()
}

// Build assembles a PDF with one page per content stream.
func Build(opts Options, pages ...string) []byte {
	var objs []string

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		fontDict(opts),
	)

	for i, content := range pages {
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objs))
	for i, obj := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)

	return buf.Bytes()
}

func fontDict(opts Options) string {
	dict := "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding"
	if opts.Widths {
		widths := strings.TrimSpace(strings.Repeat(strconv.Itoa(glyphWidth)+" ", lastChar-firstChar+1))
		dict += fmt.Sprintf(" /FirstChar %d /LastChar %d /Widths [%s]", firstChar, lastChar, widths)
	}
	return dict + " >>"
}

// escape encodes s as the body of a PDF literal string in WinAnsi bytes.
func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '(' || r == ')' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r >= 0x20 && r < 0x7f:
			b.WriteRune(r)
		case r >= 0xa0 && r <= 0xff:
			fmt.Fprintf(&b, "\\%03o", r)
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
