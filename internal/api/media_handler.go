package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/digicapsule/capsule-api/internal/api/shared"
	"github.com/digicapsule/capsule-api/internal/platform/logger"
)

// maxMediaUploadBytes caps the size of one media upload (32 MiB).
const maxMediaUploadBytes = 32 << 20

// MediaStorage stores capsule media blobs and hands out time-limited
// download URLs. Implemented by the S3-backed store.
type MediaStorage interface {
	Upload(ctx context.Context, ownerID uuid.UUID, body io.Reader) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// MediaHandler handles media upload requests for image and video capsules.
type MediaHandler struct {
	storage MediaStorage
	logger  *slog.Logger
}

// NewMediaHandler creates a new MediaHandler
func NewMediaHandler(storage MediaStorage, logger *slog.Logger) *MediaHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for MediaHandler")
	}

	return &MediaHandler{
		storage: storage,
		logger:  logger.With(slog.String("component", "media_handler")),
	}
}

// UploadMedia handles POST /media requests. The body is a multipart form
// with a single "file" part; the response carries the stored object's
// reference for use as a capsule's media_ref.
func (h *MediaHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	if h.storage == nil {
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, "Media uploads are not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxMediaUploadBytes)
	if err := r.ParseMultipartForm(maxMediaUploadBytes); err != nil {
		log.Warn("invalid multipart form",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid or oversized multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing file part")
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Warn("failed to close uploaded file", slog.String("error", err.Error()))
		}
	}()

	mediaRef, err := h.storage.Upload(r.Context(), userID, file)
	if err != nil {
		log.Error("media upload failed",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to store media")
		return
	}

	url, err := h.storage.PresignGet(r.Context(), mediaRef)
	if err != nil {
		// The upload succeeded; the client can still reference the object.
		log.Warn("failed to presign media URL",
			slog.String("error", err.Error()),
			slog.String("media_ref", mediaRef))
		url = ""
	}

	log.Debug("media uploaded",
		slog.String("user_id", userID.String()),
		slog.String("media_ref", mediaRef))
	shared.RespondWithJSON(w, r, http.StatusCreated, MediaUploadResponse{
		MediaRef: mediaRef,
		URL:      url,
	})
}
