// Package handler exposes extraction runs over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/consolidator"
	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/export"
	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/pdftext"
	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/service"
	"github.com/FACorreiaa/statement-extractor/pkg/storage"
)

const (
	uploadField = "files"

	// multipart parts above this are spooled to disk
	multipartMemory = 32 << 20
)

// Runner is the part of the extraction service the handler needs.
type Runner interface {
	Run(ctx context.Context, uploads []service.Upload) (*service.RunResult, error)
	Download(ctx context.Context, runID uuid.UUID, format export.Format) (io.ReadCloser, *storage.FileInfo, error)
}

// ExtractionHandler serves the extraction endpoints.
type ExtractionHandler struct {
	runner         Runner
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewExtractionHandler creates a handler. maxUploadBytes caps the whole request body.
func NewExtractionHandler(runner Runner, logger *slog.Logger, maxUploadBytes int64) *ExtractionHandler {
	return &ExtractionHandler{
		runner:         runner,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

type runResponse struct {
	RunID      string                         `json:"run_id"`
	Notice     service.Notice                 `json:"notice"`
	Rows       []consolidator.Row             `json:"rows"`
	Total      string                         `json:"total"`
	TotalValue decimal.Decimal                `json:"total_value"`
	Documents  []consolidator.DocumentSummary `json:"documents"`
	Skipped    []string                       `json:"skipped_documents"`
	Downloads  map[string]string              `json:"downloads,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleCreate runs an extraction over the PDFs in the multipart "files" field.
func (h *ExtractionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.logger.Warn("failed to parse multipart form", slog.Any("error", err), slog.Int64("limit", h.maxUploadBytes))
		sendJSONError(w, h.logger, fmt.Sprintf("failed to parse form or request too large (max %d MB)", h.maxUploadBytes/(1<<20)), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		sendJSONError(w, h.logger, fmt.Sprintf("no files uploaded, use the %q field", uploadField), http.StatusBadRequest)
		return
	}

	uploads := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		u, err := readUpload(fh)
		if err != nil {
			h.logger.Warn("rejected upload", slog.String("filename", fh.Filename), slog.Any("error", err))
			sendJSONError(w, h.logger, err.Error(), http.StatusBadRequest)
			return
		}
		uploads = append(uploads, u)
	}

	result, err := h.runner.Run(r.Context(), uploads)
	if err != nil {
		switch {
		case errors.Is(err, pdftext.ErrUnreadablePDF), errors.Is(err, service.ErrInvalidUploadName):
			sendJSONError(w, h.logger, err.Error(), http.StatusBadRequest)
		case errors.Is(err, consolidator.ErrInvalidAmount):
			h.logger.Error("amount parse failed after match", slog.Any("error", err))
			sendJSONError(w, h.logger, "an internal error occurred while consolidating amounts", http.StatusInternalServerError)
		default:
			h.logger.Error("extraction run failed", slog.Any("error", err))
			sendJSONError(w, h.logger, "an internal error occurred while processing the files", http.StatusInternalServerError)
		}
		return
	}

	sendJSON(w, h.logger, http.StatusOK, newRunResponse(result))
}

// HandleDownload streams a stored export of a run.
func (h *ExtractionHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		sendJSONError(w, h.logger, "invalid run id", http.StatusBadRequest)
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		sendJSONError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	rc, info, err := h.runner.Download(r.Context(), runID, format)
	if err != nil {
		if errors.Is(err, service.ErrRunNotFound) || errors.Is(err, service.ErrStorageDisabled) {
			sendJSONError(w, h.logger, "export not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to open export", slog.String("run_id", runID.String()), slog.Any("error", err))
		sendJSONError(w, h.logger, "failed to open export", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", format.FileName()))
	if info.Size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("download interrupted", slog.String("run_id", runID.String()), slog.Any("error", err))
	}
}

// HandleHealth reports liveness.
func (h *ExtractionHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

func readUpload(fh *multipart.FileHeader) (service.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return service.Upload{}, fmt.Errorf("failed to open %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return service.Upload{}, fmt.Errorf("failed to read %q: %w", fh.Filename, err)
	}

	if !pdftext.IsPDF(data) {
		return service.Upload{}, fmt.Errorf("%q is not a PDF file", fh.Filename)
	}

	return service.Upload{Name: fh.Filename, Data: data}, nil
}

func newRunResponse(res *service.RunResult) runResponse {
	resp := runResponse{
		RunID:     res.RunID.String(),
		Notice:    res.Notice,
		Rows:      res.Dataset.Rows,
		Documents: res.Dataset.Documents,
		Skipped:   res.Dataset.Skipped,
	}
	if res.Total != nil {
		resp.Total = res.Total.Display()
		resp.TotalValue = res.Total.ToDecimal()
	}
	if res.Stored {
		resp.Downloads = make(map[string]string, len(res.Exports))
		for format := range res.Exports {
			resp.Downloads[string(format)] = fmt.Sprintf("/api/v1/extractions/%s/download?format=%s", res.RunID, format)
		}
	}
	return resp
}

// sendJSON writes v as the response body. The status line is already sent when
// encoding fails, so the failure can only be logged.
func sendJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Warn("failed to encode response", slog.Int("status", status), slog.Any("error", err))
	}
}

func sendJSONError(w http.ResponseWriter, logger *slog.Logger, message string, status int) {
	sendJSON(w, logger, status, errorResponse{Error: message})
}
