// Package export writes a consolidated dataset as a spreadsheet or CSV file.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/consolidator"
)

// Format identifies an output file type.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

const (
	// BaseName is the download name without extension.
	BaseName = "extrato_consolidado"

	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv; charset=utf-8"

	sheetName = "Sheet1"

	// builtin excelize number format "#,##0.00"
	amountNumFmt = 4
)

var (
	ErrEmptyDataset      = errors.New("dataset has no rows")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// Headers is the fixed column order of every export.
var Headers = []string{
	"Número do Pagamento",
	"Agência/Conta",
	"Favorecido",
	"Valor (R$)",
	"Período da Listagem",
	"Data do Pagamento",
	"Arquivo",
}

// ParseFormat accepts "xlsx" or "csv" in any case. Empty means xlsx.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FormatXLSX):
		return FormatXLSX, nil
	case string(FormatCSV):
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// FileName returns the download file name for the format.
func (f Format) FileName() string {
	return BaseName + "." + string(f)
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return ContentTypeCSV
	}
	return ContentTypeXLSX
}

// Write dispatches to the writer for the format.
func Write(format Format, ds *consolidator.Dataset, w io.Writer) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(ds, w)
	case FormatCSV:
		return WriteCSV(ds, w)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// WriteXLSX writes a single-sheet workbook: a header row followed by one row per payment.
// Amounts are numeric cells so the sheet can sum them.
func WriteXLSX(ds *consolidator.Dataset, w io.Writer) error {
	if ds.Empty() {
		return ErrEmptyDataset
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, h := range Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to resolve header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, row := range ds.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to resolve row cell: %w", err)
		}
		values := []interface{}{
			row.SequenceNumber,
			row.AccountReference,
			row.PayeeName,
			row.AmountValue.InexactFloat64(),
			row.ListingPeriod,
			row.PaymentDate,
			row.SourceDocument,
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	style, err := f.NewStyle(&excelize.Style{NumFmt: amountNumFmt})
	if err != nil {
		return fmt.Errorf("failed to create amount style: %w", err)
	}
	if err := f.SetColStyle(sheetName, "D", style); err != nil {
		return fmt.Errorf("failed to style amount column: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

type csvRow struct {
	SequenceNumber   string `csv:"Número do Pagamento"`
	AccountReference string `csv:"Agência/Conta"`
	PayeeName        string `csv:"Favorecido"`
	Amount           string `csv:"Valor (R$)"`
	ListingPeriod    string `csv:"Período da Listagem"`
	PaymentDate      string `csv:"Data do Pagamento"`
	SourceDocument   string `csv:"Arquivo"`
}

// WriteCSV writes the dataset with the same columns as the workbook. Amounts are
// plain decimals ("1234.56").
func WriteCSV(ds *consolidator.Dataset, w io.Writer) error {
	if ds.Empty() {
		return ErrEmptyDataset
	}

	rows := make([]*csvRow, len(ds.Rows))
	for i, r := range ds.Rows {
		rows[i] = &csvRow{
			SequenceNumber:   r.SequenceNumber,
			AccountReference: r.AccountReference,
			PayeeName:        r.PayeeName,
			Amount:           r.AmountValue.StringFixed(2),
			ListingPeriod:    r.ListingPeriod,
			PaymentDate:      r.PaymentDate,
			SourceDocument:   r.SourceDocument,
		}
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}
