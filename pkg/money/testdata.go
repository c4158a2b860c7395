package money

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// TestDataGenerator generates realistic payment table data using gofakeit.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a new test data generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(0), // Random seed
	}
}

// NewTestDataGeneratorWithSeed creates a generator with a specific seed for reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(seed),
	}
}

// TestPaymentLine is a generated payment table row and its expected fields.
type TestPaymentLine struct {
	Line             string
	SequenceNumber   string
	AccountReference string
	PayeeName        string
	AmountRaw        string
	Amount           decimal.Decimal
}

// RandomAmount generates a random decimal amount within a cent range.
func (g *TestDataGenerator) RandomAmount(minCents, maxCents int64) decimal.Decimal {
	if minCents > maxCents {
		minCents, maxCents = maxCents, minCents
	}
	cents := g.faker.Int64() % (maxCents - minCents + 1)
	if cents < 0 {
		cents = -cents
	}
	return decimal.New(minCents+cents, -2)
}

// LocaleAmount generates an amount string in the statement format, e.g. "12.345,67".
func (g *TestDataGenerator) LocaleAmount(minCents, maxCents int64) (string, decimal.Decimal) {
	d := g.RandomAmount(minCents, maxCents)
	return FormatLocale(d), d
}

// AccountReference generates an agency/account string like "123-4/56789-0".
// Roughly half of the references omit the trailing check digit.
func (g *TestDataGenerator) AccountReference() string {
	ref := fmt.Sprintf("%03d-%d/%05d", g.faker.Number(0, 999), g.faker.Number(0, 9), g.faker.Number(0, 99999))
	if g.faker.Bool() {
		ref += fmt.Sprintf("-%d", g.faker.Number(0, 9))
	}
	return ref
}

// PayeeName generates an upper-case payee name as printed on statements.
func (g *TestDataGenerator) PayeeName() string {
	name := g.faker.Name()
	if g.faker.Bool() {
		name = g.faker.Company()
	}
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

// PaymentLine generates one payment table line with the given sequence number.
func (g *TestDataGenerator) PaymentLine(seq int) TestPaymentLine {
	raw, amount := g.LocaleAmount(1, 1_000_000_00)
	p := TestPaymentLine{
		SequenceNumber:   fmt.Sprintf("%d", seq),
		AccountReference: g.AccountReference(),
		PayeeName:        g.PayeeName(),
		AmountRaw:        raw,
		Amount:           amount,
	}
	p.Line = fmt.Sprintf("%s %s   %s   %s", p.SequenceNumber, p.AccountReference, p.PayeeName, p.AmountRaw)
	return p
}

// PaymentLines generates count payment lines numbered from 1.
func (g *TestDataGenerator) PaymentLines(count int) []TestPaymentLine {
	lines := make([]TestPaymentLine, count)
	for i := 0; i < count; i++ {
		lines[i] = g.PaymentLine(i + 1)
	}
	return lines
}

// NoiseLine generates a line that is not a payment row (headers, footers, prose).
func (g *TestDataGenerator) NoiseLine() string {
	switch g.faker.Number(0, 3) {
	case 0:
		return "Número Agência/Conta Favorecido Valor"
	case 1:
		return fmt.Sprintf("Página %d de %d", g.faker.Number(1, 9), g.faker.Number(10, 20))
	case 2:
		return g.faker.Sentence(8)
	default:
		return ""
	}
}
