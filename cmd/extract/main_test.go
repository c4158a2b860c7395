package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(strings.Join(lines, "\n")), 0644))
	return p
}

func TestRun_WritesCSV(t *testing.T) {
	dir := t.TempDir()
	a := writeFixture(t, dir, "janeiro.txt",
		"A partir de: 01/01/2024 a 31/01/2024",
		"1 123-4/56789-0   JOHN DOE   1.234,56",
	)
	b := writeFixture(t, dir, "vazio.txt", "sem pagamentos")
	out := filepath.Join(dir, "saida.csv")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-q", "-text", "-format", "csv", "-out", out, a, b}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	assert.Contains(t, stdout.String(), "Dados extraídos e consolidados com sucesso!")
	assert.Contains(t, stdout.String(), "no payment rows: vazio.txt")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "JOHN DOE")
	assert.Contains(t, string(data), "31/01/2024")
	assert.Contains(t, string(data), "janeiro.txt")
}

func TestRun_WarningWritesNothing(t *testing.T) {
	dir := t.TempDir()
	a := writeFixture(t, dir, "vazio.txt", "nada")
	out := filepath.Join(dir, "extrato_consolidado.xlsx")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-q", "-text", "-out", out, a}, &stdout, &stderr)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "Nenhum dado foi extraído dos PDFs enviados.")
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	notPDF := writeFixture(t, dir, "a.pdf", "plain text")

	tests := []struct {
		name string
		args []string
	}{
		{"no inputs", []string{"-q"}},
		{"bad format", []string{"-format", "ods", notPDF}},
		{"missing file", []string{"-q", filepath.Join(dir, "missing.pdf")}},
		{"unreadable pdf", []string{"-q", notPDF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Error(t, run(context.Background(), tt.args, &stdout, &stderr))
		})
	}
}
