package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"arty-web/internal/platform/storage"
	"arty-web/internal/screens"
	"arty-web/internal/screens/search"
)

const (
	defaultMaxUploadSize = 10 << 20 // 10MB per request
	maxMemoryPerUpload   = 1 << 20  // 1MB in-memory buffer, the rest spills to disk
	uploadField          = "file"
)

// uploadPreviewHandler takes the file chosen on the search page and shows it as a local preview.
// The file never reaches the image backend.
func (h *Handler) uploadPreviewHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UploadPreview", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	maxUploadSize := h.config.Storage.MaxUploadSize
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxMemoryPerUpload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse multipart form")

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn(ctx).Int64("limit", tooLarge.Limit).Msg("Preview upload too large")
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.logger.Error(ctx).Err(err).Msg("Failed to parse multipart form")
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll() //nolint:errcheck // Cleanup operation
	}()

	sc := h.searchScreen(ctx, sessionID(ctx))
	alerts := &screens.Alerts{}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		// Same as picking nothing in the file dialog
		alerts.Alert(search.InvalidFileMessage)
		h.renderSearch(w, r.WithContext(ctx), sc, alerts)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		span.RecordError(err)
		h.logger.Error(ctx).Err(err).Str("filename", header.Filename).Msg("Failed to read uploaded file")
		http.Error(w, "Failed to read file", http.StatusBadRequest)
		return
	}

	span.SetAttributes(
		attribute.String("upload.filename", header.Filename),
		attribute.String("upload.content_type", header.Header.Get("Content-Type")),
		attribute.Int("upload.size", len(data)),
	)

	err = sc.HandleFileChange(ctx, search.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, alerts)
	if err != nil && !errors.Is(err, search.ErrInvalidFileType) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to store preview")
	}

	h.renderSearch(w, r.WithContext(ctx), sc, alerts)
}

// previewHandler serves a stored preview image
func (h *Handler) previewHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	preview, err := h.previews.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrPreviewNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error(ctx).Err(err).Str("preview_id", id).Msg("Failed to load preview")
		http.Error(w, "Failed to load preview", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", preview.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(preview.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(preview.Data) //nolint:errcheck // Client went away
}
