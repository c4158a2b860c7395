// Package service runs an extraction over a batch of uploaded statements: it reads
// each document, extracts payment lines, consolidates them and renders the exports.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/consolidator"
	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/export"
	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/extractor"
	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/pdftext"
	"github.com/FACorreiaa/statement-extractor/pkg/money"
	"github.com/FACorreiaa/statement-extractor/pkg/observability"
	"github.com/FACorreiaa/statement-extractor/pkg/storage"
)

const (
	SuccessMessage = "Dados extraídos e consolidados com sucesso!"
	WarningMessage = "Nenhum dado foi extraído dos PDFs enviados."

	tracerName = "github.com/FACorreiaa/statement-extractor/service"
)

var (
	ErrRunNotFound       = errors.New("extraction run not found")
	ErrStorageDisabled   = errors.New("run storage is not configured")
	ErrInvalidUploadName = errors.New("upload has no name")
)

// NoticeLevel is the severity of the message shown after a run.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
)

// Notice is the user facing outcome of a run.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Upload is one document submitted for extraction. Name is shown in the Arquivo column.
type Upload struct {
	Name string
	Data []byte
}

// RunResult is the outcome of a run. Exports is empty when the dataset is empty.
type RunResult struct {
	RunID       uuid.UUID
	Dataset     *consolidator.Dataset
	Extractions []extractor.Extraction
	Notice      Notice
	Total       *money.Money
	Exports     map[export.Format][]byte
	Stored      bool
	Duration    time.Duration
}

// SourceFunc opens an upload for page reading.
type SourceFunc func(u Upload) pdftext.Source

// DocumentHook is called once per finished document. It may be called concurrently.
type DocumentHook func(name string, res extractor.Extraction)

// PDFSource reads uploads as PDF files.
func PDFSource(u Upload) pdftext.Source {
	return pdftext.NewPDFReader(u.Data)
}

// ExtractionService coordinates extraction runs.
type ExtractionService struct {
	logger    *slog.Logger
	workers   int
	storage   storage.Storage
	metrics   *observability.Metrics
	tracer    trace.Tracer
	newSource SourceFunc
	onDoc     DocumentHook
	formats   []export.Format
}

// NewExtractionService creates a service reading PDFs with at most workers documents
// in flight. Non-positive workers means one.
func NewExtractionService(logger *slog.Logger, workers int) *ExtractionService {
	if workers < 1 {
		workers = 1
	}
	return &ExtractionService{
		logger:    logger,
		workers:   workers,
		tracer:    otel.Tracer(tracerName),
		newSource: PDFSource,
		formats:   []export.Format{export.FormatXLSX, export.FormatCSV},
	}
}

// WithStorage persists run exports so they can be downloaded later.
func (s *ExtractionService) WithStorage(st storage.Storage) *ExtractionService {
	s.storage = st
	return s
}

// WithMetrics records run metrics.
func (s *ExtractionService) WithMetrics(m *observability.Metrics) *ExtractionService {
	s.metrics = m
	return s
}

// WithSourceFunc replaces how uploads are read.
func (s *ExtractionService) WithSourceFunc(f SourceFunc) *ExtractionService {
	s.newSource = f
	return s
}

// WithDocumentHook registers a callback for finished documents.
func (s *ExtractionService) WithDocumentHook(h DocumentHook) *ExtractionService {
	s.onDoc = h
	return s
}

// WithFormats restricts which exports are rendered.
func (s *ExtractionService) WithFormats(formats ...export.Format) *ExtractionService {
	s.formats = formats
	return s
}

// Run extracts every upload and consolidates the rows in upload order.
// An unreadable document fails the whole run; documents without matches do not.
func (s *ExtractionService) Run(ctx context.Context, uploads []Upload) (*RunResult, error) {
	start := time.Now()
	defer s.metrics.ObserveRun(start)

	runID := uuid.New()
	ctx, span := s.tracer.Start(ctx, "extraction.run", trace.WithAttributes(
		attribute.String("run.id", runID.String()),
		attribute.Int("run.uploads", len(uploads)),
	))
	defer span.End()

	logger := s.logger.With(slog.String("run_id", runID.String()))

	extractions, err := s.extractAll(ctx, uploads)
	if err != nil {
		s.fail(span, logger, "read", err)
		return nil, err
	}

	ds, err := consolidator.Consolidate(extractions)
	if err != nil {
		s.fail(span, logger, "invalid_amount", err)
		return nil, fmt.Errorf("failed to consolidate run: %w", err)
	}

	total, err := ds.Total()
	if err != nil {
		s.fail(span, logger, "total", err)
		return nil, fmt.Errorf("failed to total run: %w", err)
	}

	result := &RunResult{
		RunID:       runID,
		Dataset:     ds,
		Extractions: extractions,
		Total:       total,
		Exports:     map[export.Format][]byte{},
	}

	if ds.Empty() {
		result.Notice = Notice{Level: NoticeWarning, Message: WarningMessage}
		result.Duration = time.Since(start)
		logger.Warn("no payment rows extracted",
			slog.Int("documents", len(uploads)),
			slog.Int("skipped", len(ds.Skipped)),
		)
		return result, nil
	}

	for _, format := range s.formats {
		var buf bytes.Buffer
		if err := export.Write(format, ds, &buf); err != nil {
			s.fail(span, logger, "export", err)
			return nil, fmt.Errorf("failed to render %s: %w", format, err)
		}
		result.Exports[format] = buf.Bytes()
	}

	if s.storage != nil {
		if err := s.persist(ctx, runID, result.Exports); err != nil {
			s.fail(span, logger, "storage", err)
			return nil, err
		}
		result.Stored = true
	}

	result.Notice = Notice{Level: NoticeSuccess, Message: SuccessMessage}
	result.Duration = time.Since(start)
	span.SetAttributes(attribute.Int("run.rows", len(ds.Rows)))

	logger.Info("extraction run completed",
		slog.Int("documents", len(uploads)),
		slog.Int("rows", len(ds.Rows)),
		slog.Int("skipped", len(ds.Skipped)),
		slog.String("total", total.Display()),
		slog.Duration("duration", result.Duration),
	)

	return result, nil
}

// extractAll reads uploads concurrently and returns results indexed by upload order.
func (s *ExtractionService) extractAll(ctx context.Context, uploads []Upload) ([]extractor.Extraction, error) {
	results := make([]extractor.Extraction, len(uploads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, u := range uploads {
		g.Go(func() error {
			res, err := s.extractOne(gctx, u)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *ExtractionService) extractOne(ctx context.Context, u Upload) (extractor.Extraction, error) {
	ctx, span := s.tracer.Start(ctx, "extraction.document", trace.WithAttributes(
		attribute.String("document.name", u.Name),
		attribute.Int("document.bytes", len(u.Data)),
	))
	defer span.End()

	if u.Name == "" {
		span.SetStatus(codes.Error, ErrInvalidUploadName.Error())
		return extractor.Extraction{}, ErrInvalidUploadName
	}

	doc, err := pdftext.Load(ctx, u.Name, s.newSource(u))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unreadable document")
		s.metrics.Document("unreadable", 0)
		return extractor.Extraction{}, err
	}

	res := extractor.Extract(doc)

	span.SetAttributes(
		attribute.Int("document.pages", res.Stats.Pages),
		attribute.Int("document.rows", len(res.Records)),
		attribute.Bool("document.period_found", res.PeriodFound),
	)
	s.metrics.Document("ok", len(res.Records))

	s.logger.Debug("document extracted",
		slog.String("document", u.Name),
		slog.Int("pages", res.Stats.Pages),
		slog.Int("empty_pages", res.Stats.EmptyPages),
		slog.Int("lines", res.Stats.Lines),
		slog.Int("matched", res.Stats.MatchedLines),
		slog.Int("skipped", res.Stats.SkippedLines),
		slog.Bool("period_found", res.PeriodFound),
	)

	if s.onDoc != nil {
		s.onDoc(u.Name, res)
	}
	return res, nil
}

func (s *ExtractionService) persist(ctx context.Context, runID uuid.UUID, exports map[export.Format][]byte) error {
	for format, data := range exports {
		if _, err := s.storage.Save(ctx, runID, format.FileName(), format.ContentType(), bytes.NewReader(data)); err != nil {
			return fmt.Errorf("failed to store %s export: %w", format, err)
		}
	}
	return nil
}

// Download opens a stored export of a previous run.
func (s *ExtractionService) Download(ctx context.Context, runID uuid.UUID, format export.Format) (io.ReadCloser, *storage.FileInfo, error) {
	if s.storage == nil {
		return nil, nil, ErrStorageDisabled
	}

	rc, info, err := s.storage.Open(ctx, runID, format.FileName())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, nil, fmt.Errorf("failed to open export: %w", err)
	}
	return rc, info, nil
}

func (s *ExtractionService) fail(span trace.Span, logger *slog.Logger, reason string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	s.metrics.Failure(reason)
	logger.Error("extraction run failed",
		slog.String("reason", reason),
		slog.Any("error", err),
	)
}
