// Package extractor turns the plain text of bank-statement pages into payment records.
// It recognises the "A partir de:" period line and the fixed-shape payment table rows;
// everything else on the page is treated as noise.
package extractor

import (
	"regexp"
	"strings"
)

// PeriodMarker prefixes the line that declares the statement's listing period.
const PeriodMarker = "A partir de:"

// space matches any Unicode whitespace. RE2's \s is ASCII only, and statement text
// layers often separate columns with no-break or thin spaces.
const space = `[\s\v\x{85}\p{Z}]`

// paymentLinePattern matches one payment table row:
// <sequence> <agency/account> <payee> <amount>, with the amount anchored at end of line.
// The payee group is non-greedy so the amount is never swallowed by the name.
var paymentLinePattern = regexp.MustCompile(
	`(\d+)` + space + `+(\d{3}-\d` + space + `*/` + space + `*\d{5}-?\d*)` +
		space + `+(.+?)` + space + `+(\d{1,3}(?:\.\d{3})*,\d{2})$`,
)

// Page is the text of a single document page as produced by the text layer.
// HasText is false for pages the text layer could not read (scanned images).
type Page struct {
	Number  int
	Text    string
	HasText bool
}

// Document is one uploaded statement with its pages in reading order.
type Document struct {
	Name  string
	Pages []Page
}

// PaymentRecord is one parsed row of the payment table.
// All fields are kept exactly as captured from the line.
type PaymentRecord struct {
	SequenceNumber   string // digits, leading zeros preserved
	AccountReference string // DDD-D/DDDDD[-D]
	PayeeName        string
	AmountRaw        string // D{1,3}(.DDD)*,DD
	Page             int    // page the row was found on
	Line             int    // 1-indexed line within the page
}

// LineStats counts what the extractor saw in a document
type LineStats struct {
	Pages        int
	EmptyPages   int
	Lines        int
	MatchedLines int
	SkippedLines int // lines that were neither the period nor a payment row
}

// Extraction is the immutable result of extracting one document.
type Extraction struct {
	Document    string
	Records     []PaymentRecord
	Period      string
	PeriodFound bool
	Stats       LineStats
}

// Empty reports whether the document produced no payment records.
func (e Extraction) Empty() bool {
	return len(e.Records) == 0
}

// Extract scans every page of doc in order and returns the payment records found
// together with the first period label. Lines that match neither shape are skipped.
func Extract(doc Document) Extraction {
	result := Extraction{
		Document: doc.Name,
		Records:  make([]PaymentRecord, 0),
	}

	for _, page := range doc.Pages {
		result.Stats.Pages++
		if !page.HasText {
			result.Stats.EmptyPages++
			continue
		}

		for i, raw := range strings.Split(page.Text, "\n") {
			line := strings.TrimSpace(raw)
			result.Stats.Lines++

			if !result.PeriodFound {
				if period, ok := ParsePeriodLine(line); ok {
					result.Period = period
					result.PeriodFound = true
					continue
				}
			}

			record, ok := ParsePaymentLine(line)
			if !ok {
				result.Stats.SkippedLines++
				continue
			}

			record.Page = page.Number
			record.Line = i + 1
			result.Records = append(result.Records, record)
			result.Stats.MatchedLines++
		}
	}

	return result
}

// ParsePeriodLine returns the period label when line starts with PeriodMarker.
// line is expected to be trimmed already.
func ParsePeriodLine(line string) (string, bool) {
	if !strings.HasPrefix(line, PeriodMarker) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, PeriodMarker)), true
}

// ParsePaymentLine attempts a structural match of line against the payment row shape.
func ParsePaymentLine(line string) (PaymentRecord, bool) {
	m := paymentLinePattern.FindStringSubmatch(line)
	if m == nil {
		return PaymentRecord{}, false
	}
	return PaymentRecord{
		SequenceNumber:   m[1],
		AccountReference: m[2],
		PayeeName:        m[3],
		AmountRaw:        m[4],
	}, true
}
