// Package consolidator merges per-document extraction results into one dataset,
// adding the listing period, payment date, source document and numeric amount.
package consolidator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/extractor"
	"github.com/FACorreiaa/statement-extractor/pkg/money"
)

// NotFound is written to the period and payment date columns when a document has
// no period line.
const NotFound = "Não encontrado"

// paymentDateWidth is the length of the date at the end of a period label,
// e.g. "01/01/2024 a 31/01/2024" ends in "31/01/2024".
const paymentDateWidth = 10

// ErrInvalidAmount means a structurally matched amount could not be parsed.
// The extractor validates the amount shape, so this indicates a bug and the whole
// run is aborted rather than emitting a row without its value.
var ErrInvalidAmount = errors.New("matched amount failed to parse")

// Row is a payment record enriched with document level fields.
type Row struct {
	SequenceNumber   string          `json:"sequence_number"`
	AccountReference string          `json:"account_reference"`
	PayeeName        string          `json:"payee_name"`
	AmountRaw        string          `json:"amount_raw"`
	AmountValue      decimal.Decimal `json:"amount_value"`
	ListingPeriod    string          `json:"listing_period"`
	PaymentDate      string          `json:"payment_date"`
	SourceDocument   string          `json:"source_document"`
}

// DocumentSummary records how many rows a document contributed.
type DocumentSummary struct {
	Name        string `json:"name"`
	Rows        int    `json:"rows"`
	PeriodFound bool   `json:"period_found"`
}

// Dataset is the ordered result of one extraction run.
type Dataset struct {
	Rows      []Row             `json:"rows"`
	Documents []DocumentSummary `json:"documents"`
	Skipped   []string          `json:"skipped_documents"`
}

// Empty reports whether no document contributed rows.
func (d *Dataset) Empty() bool {
	return d == nil || len(d.Rows) == 0
}

// Total sums every row amount in BRL.
func (d *Dataset) Total() (*money.Money, error) {
	if d == nil {
		return money.Zero(money.BRL), nil
	}
	amounts := make([]decimal.Decimal, len(d.Rows))
	for i, r := range d.Rows {
		amounts[i] = r.AmountValue
	}
	return money.Sum(money.BRL, amounts...)
}

// Consolidate builds a Dataset from extraction results supplied in upload order.
// Documents without records are skipped; every other document's rows are appended
// in their original order.
func Consolidate(results []extractor.Extraction) (*Dataset, error) {
	ds := &Dataset{
		Rows:      make([]Row, 0),
		Documents: make([]DocumentSummary, 0, len(results)),
		Skipped:   make([]string, 0),
	}

	for _, res := range results {
		if res.Empty() {
			ds.Skipped = append(ds.Skipped, res.Document)
			continue
		}

		rows, err := documentRows(res)
		if err != nil {
			return nil, err
		}

		ds.Rows = append(ds.Rows, rows...)
		ds.Documents = append(ds.Documents, DocumentSummary{
			Name:        res.Document,
			Rows:        len(rows),
			PeriodFound: res.PeriodFound,
		})
	}

	return ds, nil
}

// documentRows converts one document's records. It never touches shared state so
// documents can be converted independently.
func documentRows(res extractor.Extraction) ([]Row, error) {
	period, paymentDate := resolvePeriod(res.Period, res.PeriodFound)

	rows := make([]Row, 0, len(res.Records))
	for _, rec := range res.Records {
		value, err := money.ParseLocale(rec.AmountRaw)
		if err != nil {
			return nil, fmt.Errorf("%w: document %q page %d line %d: %v",
				ErrInvalidAmount, res.Document, rec.Page, rec.Line, err)
		}

		rows = append(rows, Row{
			SequenceNumber:   rec.SequenceNumber,
			AccountReference: rec.AccountReference,
			PayeeName:        rec.PayeeName,
			AmountRaw:        rec.AmountRaw,
			AmountValue:      value,
			ListingPeriod:    period,
			PaymentDate:      paymentDate,
			SourceDocument:   res.Document,
		})
	}
	return rows, nil
}

// resolvePeriod returns the listing period and payment date columns for a document.
// The payment date is the trailing paymentDateWidth characters of the label.
// A marker line with nothing after it counts as no period.
func resolvePeriod(label string, found bool) (string, string) {
	if !found || label == "" {
		return NotFound, NotFound
	}
	return label, PaymentDate(label)
}

// PaymentDate returns the last ten characters of a period label, or the whole label
// when it is shorter.
func PaymentDate(label string) string {
	r := []rune(label)
	if len(r) <= paymentDateWidth {
		return label
	}
	return string(r[len(r)-paymentDateWidth:])
}
