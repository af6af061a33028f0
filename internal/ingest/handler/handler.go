package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"claimcheck/internal/batch"
	dErrors "claimcheck/pkg/domain-errors"
	"claimcheck/pkg/platform/httputil"
	"claimcheck/pkg/requestcontext"
)

// maxUploadBytes caps multipart uploads at 32 MiB.
const maxUploadBytes = 32 << 20

// allowedExtensions is the upload allowlist.
var allowedExtensions = map[string]bool{
	".csv":  true,
	".txt":  true,
	".json": true,
}

// Service defines the ingestion operations the handler needs.
type Service interface {
	SubmitBatch(ctx context.Context, sourceFileRef string) (*batch.Record, error)
	QueryStatus(ctx context.Context, id uuid.UUID) (*batch.Record, error)
}

// Handler wires ingestion endpoints to the coordinator.
type Handler struct {
	service   Service
	uploadDir string
	logger    *slog.Logger
}

// New constructs an ingestion handler with its dependencies.
func New(service Service, uploadDir string, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// Register mounts ingestion endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/upload", h.HandleUpload)
	r.Get("/batch_status/{batchId}", h.HandleBatchStatus)
}

// HandleUpload handles POST /upload requests.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "a file is required"))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("file type %q is not allowed", ext)))
		return
	}

	savedPath, err := h.saveUpload(file, header.Filename)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to store upload",
			"request_id", requestID,
			"filename", header.Filename,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store upload"))
		return
	}

	rec, err := h.service.SubmitBatch(ctx, savedPath)
	if err != nil {
		h.logger.ErrorContext(ctx, "batch submission failed",
			"request_id", requestID,
			"filename", header.Filename,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "batch accepted",
		"request_id", requestID,
		"client_ip", requestcontext.ClientIP(ctx),
		"user_agent", requestcontext.UserAgent(ctx),
		"batch_id", rec.ID,
		"filename", header.Filename,
	)

	httputil.WriteJSON(w, http.StatusAccepted, UploadResponse{
		BatchID:   rec.ID.String(),
		Filename:  header.Filename,
		Status:    "processing",
		Timestamp: requestcontext.Now(ctx),
	})
}

// saveUpload writes the upload under the configured directory with a
// timestamped name so repeated uploads of the same file never collide.
func (h *Handler) saveUpload(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102T150405"), filepath.Base(filename))
	path := filepath.Join(h.uploadDir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return path, nil
}

// HandleBatchStatus handles GET /batch_status/{batchId} requests.
func (h *Handler) HandleBatchStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "batchId"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid batch id"))
		return
	}

	rec, err := h.service.QueryStatus(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec, requestcontext.Now(ctx)))
}
