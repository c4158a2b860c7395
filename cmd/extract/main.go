// Command extract consolidates the payment tables of PDF bank statements into a
// single spreadsheet.
//
//	extract [-out extrato_consolidado.xlsx] [-format xlsx|csv] [-workers N] file.pdf...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"

	"github.com/schollz/progressbar/v3"

	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/export"
	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/extractor"
	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/pdftext"
	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)

	out := fs.String("out", "", "output file (default extrato_consolidado.<format>)")
	formatName := fs.String("format", "xlsx", "output format: xlsx or csv")
	workers := fs.Int("workers", runtime.NumCPU(), "documents processed in parallel")
	textInput := fs.Bool("text", false, "inputs are plain text, pages separated by form feeds")
	verbose := fs.Bool("v", false, "log per-document statistics")
	quiet := fs.Bool("q", false, "hide the progress bar")

	if err := fs.Parse(args); err != nil {
		return err
	}

	format, err := export.ParseFormat(*formatName)
	if err != nil {
		return err
	}
	if *out == "" {
		*out = format.FileName()
	}

	paths := fs.Args()
	if len(paths) == 0 {
		fs.Usage()
		return errors.New("no input files")
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	uploads, err := readUploads(paths)
	if err != nil {
		return err
	}

	svc := service.NewExtractionService(logger, *workers).WithFormats(format)
	if *textInput {
		svc.WithSourceFunc(func(u service.Upload) pdftext.Source {
			return pdftext.NewTextSource(string(u.Data))
		})
	}

	if !*quiet {
		bar := progressbar.NewOptions(len(uploads),
			progressbar.OptionSetWriter(stderr),
			progressbar.OptionSetDescription("Extracting statements"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionClearOnFinish(),
		)
		svc.WithDocumentHook(func(string, extractor.Extraction) { _ = bar.Add(1) })
		defer bar.Finish()
	}

	result, err := svc.Run(ctx, uploads)
	if err != nil {
		return err
	}

	if result.Notice.Level == service.NoticeWarning {
		fmt.Fprintln(stdout, result.Notice.Message)
		return nil
	}

	if err := os.WriteFile(*out, result.Exports[format], 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", *out, err)
	}

	fmt.Fprintln(stdout, result.Notice.Message)
	fmt.Fprintf(stdout, "%d rows from %d of %d files, total %s -> %s\n",
		len(result.Dataset.Rows), len(result.Dataset.Documents), len(uploads), result.Total.Display(), *out)
	for _, name := range result.Dataset.Skipped {
		fmt.Fprintf(stdout, "  no payment rows: %s\n", name)
	}
	return nil
}

// readUploads loads every input. The Arquivo column shows the base name.
func readUploads(paths []string) ([]service.Upload, error) {
	uploads := make([]service.Upload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		uploads = append(uploads, service.Upload{Name: filepath.Base(p), Data: data})
	}
	return uploads, nil
}
