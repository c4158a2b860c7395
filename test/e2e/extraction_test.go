// Package e2etest provides end-to-end tests for extraction runs over real statements.
package e2etest

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/export"
	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/pdftext/pdftest"
	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/service"
)

const testDataDir = "../../internal/data/statements"

// generatedStatements builds two statements the way bank exports lay them out: a
// header block positioned line by line and a payment table drawn column by column.
func generatedStatements() []service.Upload {
	row := func(y float64, seq, account, payee, amount string) string {
		return pdftest.Text(50, y, seq) +
			pdftest.Text(80, y, account) +
			pdftest.Text(200, y, payee) +
			pdftest.Text(450, y, amount)
	}

	january := pdftest.Build(pdftest.Options{Widths: true},
		pdftest.Lines(50, 760, 14, "BANCO EXEMPLO S.A.", "A partir de: 01/01/2024 a 31/01/2024")+
			pdftest.Text(50, 720, "Número Agência/Conta Favorecido Valor")+
			row(700, "1", "123-4/56789-0", "JOHN DOE", "1.234,56")+
			row(686, "2", "001-9/00042", "MARIA DA SILVA", "50,00"),
		row(700, "3", "321-0/12345-6", "ACME LTDA", "12.345.678,90")+
			pdftest.Lines(50, 660, 14, "A partir de: 01/02/2024 a 29/02/2024", "Total 12.346.963,46"),
	)

	february := pdftest.Build(pdftest.Options{},
		pdftest.Lines(50, 760, 14,
			"A partir de: 01/02/2024 a 29/02/2024",
			"007 555-5/55555 JOÃO CONCEIÇÃO 0,99",
		),
	)

	return []service.Upload{
		{Name: "generated-january.pdf", Data: january},
		{Name: "generated-february.pdf", Data: february},
	}
}

// loadFixtures returns the generated statements followed by any real statements
// dropped into the fixture directory.
func loadFixtures(t *testing.T) []service.Upload {
	t.Helper()

	uploads := generatedStatements()

	paths, err := filepath.Glob(filepath.Join(testDataDir, "*.pdf"))
	require.NoError(t, err)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err, "Failed to read %s", p)
		uploads = append(uploads, service.Upload{Name: filepath.Base(p), Data: data})
	}
	return uploads
}

// TestPaymentListings runs the whole pipeline over every PDF in the statements
// fixture directory.
func TestPaymentListings(t *testing.T) {
	uploads := loadFixtures(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := service.NewExtractionService(logger, 4)
	res, err := svc.Run(context.Background(), uploads)
	require.NoError(t, err)

	for _, ex := range res.Extractions {
		t.Logf("%s: pages=%d empty_pages=%d lines=%d matched=%d period_found=%v",
			ex.Document, ex.Stats.Pages, ex.Stats.EmptyPages, ex.Stats.Lines, ex.Stats.MatchedLines, ex.PeriodFound)
	}

	require.Equal(t, service.NoticeSuccess, res.Notice.Level)

	t.Run("GeneratedStatements", func(t *testing.T) {
		require.GreaterOrEqual(t, len(res.Dataset.Rows), 4)
		generated := res.Dataset.Rows[:4]

		want := []struct {
			seq, account, payee, amount, source, period string
		}{
			{"1", "123-4/56789-0", "JOHN DOE", "1.234,56", "generated-january.pdf", "01/01/2024 a 31/01/2024"},
			{"2", "001-9/00042", "MARIA DA SILVA", "50,00", "generated-january.pdf", "01/01/2024 a 31/01/2024"},
			{"3", "321-0/12345-6", "ACME LTDA", "12.345.678,90", "generated-january.pdf", "01/01/2024 a 31/01/2024"},
			{"007", "555-5/55555", "JOÃO CONCEIÇÃO", "0,99", "generated-february.pdf", "01/02/2024 a 29/02/2024"},
		}
		for i, w := range want {
			row := generated[i]
			assert.Equal(t, w.seq, row.SequenceNumber, "row %d", i)
			assert.Equal(t, w.account, row.AccountReference, "row %d", i)
			assert.Equal(t, w.payee, row.PayeeName, "row %d", i)
			assert.Equal(t, w.amount, row.AmountRaw, "row %d", i)
			assert.Equal(t, w.source, row.SourceDocument, "row %d", i)
			assert.Equal(t, w.period, row.ListingPeriod, "row %d", i)
		}
	})

	t.Run("RowsCarrySource", func(t *testing.T) {
		names := map[string]bool{}
		for _, u := range uploads {
			names[u.Name] = true
		}
		for i, row := range res.Dataset.Rows {
			assert.True(t, names[row.SourceDocument], "row %d has unknown source %q", i, row.SourceDocument)
			assert.True(t, row.AmountValue.IsPositive() || row.AmountValue.IsZero(), "row %d amount %s", i, row.AmountRaw)
		}
	})

	t.Run("WorkbookReadsBack", func(t *testing.T) {
		f, err := excelize.OpenReader(bytes.NewReader(res.Exports[export.FormatXLSX]))
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows("Sheet1")
		require.NoError(t, err)
		require.Len(t, rows, len(res.Dataset.Rows)+1)
		assert.Equal(t, export.Headers, rows[0])
	})

	t.Run("Deterministic", func(t *testing.T) {
		again, err := svc.Run(context.Background(), uploads)
		require.NoError(t, err)
		assert.Equal(t, res.Dataset, again.Dataset)
	})
}
