package consolidator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/extractor"
	"github.com/FACorreiaa/statement-extractor/pkg/money"
)

func record(seq, account, payee, amount string) extractor.PaymentRecord {
	return extractor.PaymentRecord{
		SequenceNumber:   seq,
		AccountReference: account,
		PayeeName:        payee,
		AmountRaw:        amount,
	}
}

func TestConsolidate(t *testing.T) {
	t.Run("scenario A: period and one row", func(t *testing.T) {
		ds, err := Consolidate([]extractor.Extraction{{
			Document:    "janeiro.pdf",
			Records:     []extractor.PaymentRecord{record("1", "123-4/56789-0", "JOHN DOE", "1.234,56")},
			Period:      "01/01/2024 a 31/01/2024",
			PeriodFound: true,
		}})
		require.NoError(t, err)
		require.Len(t, ds.Rows, 1)

		row := ds.Rows[0]
		assert.Equal(t, "1", row.SequenceNumber)
		assert.Equal(t, "123-4/56789-0", row.AccountReference)
		assert.Equal(t, "JOHN DOE", row.PayeeName)
		assert.True(t, decimal.RequireFromString("1234.56").Equal(row.AmountValue))
		assert.Equal(t, "01/01/2024 a 31/01/2024", row.ListingPeriod)
		assert.Equal(t, "31/01/2024", row.PaymentDate)
		assert.Equal(t, "janeiro.pdf", row.SourceDocument)
	})

	t.Run("scenario B: no period uses sentinel", func(t *testing.T) {
		ds, err := Consolidate([]extractor.Extraction{{
			Document: "sem-periodo.pdf",
			Records:  []extractor.PaymentRecord{record("1", "123-4/56789-0", "JOHN DOE", "10,00")},
		}})
		require.NoError(t, err)
		require.Len(t, ds.Rows, 1)
		assert.Equal(t, NotFound, ds.Rows[0].ListingPeriod)
		assert.Equal(t, NotFound, ds.Rows[0].PaymentDate)
		assert.Equal(t, "Não encontrado", NotFound)
	})

	t.Run("scenario C: empty document contributes nothing", func(t *testing.T) {
		ds, err := Consolidate([]extractor.Extraction{
			{
				Document: "first.pdf",
				Records: []extractor.PaymentRecord{
					record("1", "123-4/56789-0", "A", "1,00"),
					record("2", "123-4/56789-0", "B", "2,00"),
				},
			},
			{Document: "second.pdf", Records: []extractor.PaymentRecord{}},
		})
		require.NoError(t, err)
		require.Len(t, ds.Rows, 2)
		assert.Equal(t, "first.pdf", ds.Rows[0].SourceDocument)
		assert.Equal(t, "first.pdf", ds.Rows[1].SourceDocument)
		assert.Equal(t, []DocumentSummary{{Name: "first.pdf", Rows: 2}}, ds.Documents)
		assert.Equal(t, []string{"second.pdf"}, ds.Skipped)
		assert.False(t, ds.Empty())
	})

	t.Run("scenario D: no documents", func(t *testing.T) {
		ds, err := Consolidate(nil)
		require.NoError(t, err)
		assert.True(t, ds.Empty())
		assert.Empty(t, ds.Rows)
	})

	t.Run("scenario D: all documents empty", func(t *testing.T) {
		ds, err := Consolidate([]extractor.Extraction{{Document: "a.pdf"}, {Document: "b.pdf"}})
		require.NoError(t, err)
		assert.True(t, ds.Empty())
		assert.Equal(t, []string{"a.pdf", "b.pdf"}, ds.Skipped)
	})

	t.Run("documents appended in upload order", func(t *testing.T) {
		ds, err := Consolidate([]extractor.Extraction{
			{Document: "b.pdf", Records: []extractor.PaymentRecord{record("1", "123-4/56789-0", "B1", "1,00"), record("2", "123-4/56789-0", "B2", "1,00")}},
			{Document: "a.pdf", Records: []extractor.PaymentRecord{record("1", "123-4/56789-0", "A1", "1,00")}},
		})
		require.NoError(t, err)

		var payees []string
		for _, r := range ds.Rows {
			payees = append(payees, r.PayeeName)
		}
		assert.Equal(t, []string{"B1", "B2", "A1"}, payees)
	})

	t.Run("empty period label counts as missing", func(t *testing.T) {
		ds, err := Consolidate([]extractor.Extraction{{
			Document:    "a.pdf",
			Records:     []extractor.PaymentRecord{record("1", "123-4/56789-0", "A", "1,00")},
			PeriodFound: true,
		}})
		require.NoError(t, err)
		assert.Equal(t, NotFound, ds.Rows[0].ListingPeriod)
		assert.Equal(t, NotFound, ds.Rows[0].PaymentDate)
	})

	t.Run("invalid amount aborts the run", func(t *testing.T) {
		bad := record("1", "123-4/56789-0", "A", "1,2,3")
		bad.Page, bad.Line = 2, 14

		ds, err := Consolidate([]extractor.Extraction{
			{Document: "ok.pdf", Records: []extractor.PaymentRecord{record("1", "123-4/56789-0", "A", "1,00")}},
			{Document: "bad.pdf", Records: []extractor.PaymentRecord{bad}},
		})
		require.Error(t, err)
		assert.Nil(t, ds)
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.Contains(t, err.Error(), "bad.pdf")
		assert.Contains(t, err.Error(), "line 14")
	})
}

func TestConsolidate_Idempotent(t *testing.T) {
	input := []extractor.Extraction{
		{Document: "a.pdf", Period: "01/01/2024 a 31/01/2024", PeriodFound: true, Records: []extractor.PaymentRecord{
			record("1", "123-4/56789-0", "A", "1.000,00"),
			record("2", "123-4/56789", "B", "0,01"),
		}},
		{Document: "b.pdf"},
		{Document: "c.pdf", Records: []extractor.PaymentRecord{record("9", "999-9/99999-9", "C", "5,55")}},
	}

	first, err := Consolidate(input)
	require.NoError(t, err)
	second, err := Consolidate(input)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestConsolidate_GeneratedAmounts(t *testing.T) {
	gen := money.NewTestDataGeneratorWithSeed(99)
	lines := gen.PaymentLines(100)

	records := make([]extractor.PaymentRecord, len(lines))
	for i, l := range lines {
		records[i] = record(l.SequenceNumber, l.AccountReference, l.PayeeName, l.AmountRaw)
	}

	ds, err := Consolidate([]extractor.Extraction{{Document: "gen.pdf", Records: records}})
	require.NoError(t, err)
	require.Len(t, ds.Rows, len(lines))

	for i, l := range lines {
		assert.True(t, l.Amount.Equal(ds.Rows[i].AmountValue), "row %d: %s", i, l.AmountRaw)
		assert.Equal(t, l.AmountRaw, money.FormatLocale(ds.Rows[i].AmountValue))
	}
}

func TestDataset_Total(t *testing.T) {
	ds, err := Consolidate([]extractor.Extraction{{
		Document: "a.pdf",
		Records: []extractor.PaymentRecord{
			record("1", "123-4/56789-0", "A", "1.234,56"),
			record("2", "123-4/56789-0", "B", "0,44"),
		},
	}})
	require.NoError(t, err)

	total, err := ds.Total()
	require.NoError(t, err)
	assert.Equal(t, int64(123500), total.Amount())
	assert.Equal(t, money.BRL, total.Currency())

	var nilDataset *Dataset
	zero, err := nilDataset.Total()
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}

func TestDataset_TotalOverflow(t *testing.T) {
	ds, err := Consolidate([]extractor.Extraction{{
		Document: "a.pdf",
		Records: []extractor.PaymentRecord{
			record("1", "123-4/56789-0", "A", "99.999.999.999.999.999,00"),
			record("2", "123-4/56789-0", "B", "1,00"),
		},
	}})
	require.NoError(t, err)

	_, err = ds.Total()
	assert.ErrorIs(t, err, money.ErrAmountOutOfRange)
}

func TestPaymentDate(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"01/01/2024 a 31/01/2024", "31/01/2024"},
		{"31/01/2024", "31/01/2024"},
		{"jan/2024", "jan/2024"},
		{"", ""},
		{"período até 05/03/2024", "05/03/2024"},
		{"até março ção", " março ção"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, PaymentDate(tt.label))
		})
	}
}
