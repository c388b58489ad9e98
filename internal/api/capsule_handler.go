package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/digicapsule/capsule-api/internal/api/shared"
	"github.com/digicapsule/capsule-api/internal/domain"
	"github.com/digicapsule/capsule-api/internal/platform/logger"
	"github.com/digicapsule/capsule-api/internal/service"
)

// CapsuleHandler handles capsule-related HTTP requests
type CapsuleHandler struct {
	capsuleService service.CapsuleService
	logger         *slog.Logger
	now            func() time.Time
}

// NewCapsuleHandler creates a new CapsuleHandler
func NewCapsuleHandler(
	capsuleService service.CapsuleService,
	logger *slog.Logger,
) *CapsuleHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for CapsuleHandler")
	}

	return &CapsuleHandler{
		capsuleService: capsuleService,
		logger:         logger.With(slog.String("component", "capsule_handler")),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// ListCapsules handles GET /capsules requests.
// It returns every capsule the authenticated user can reach, tagged with
// the user's relation to each.
func (h *CapsuleHandler) ListCapsules(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	capsules, err := h.capsuleService.List(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list capsules")
		return
	}

	now := h.now()
	response := CapsuleListResponse{Capsules: make([]CapsuleResponse, 0, len(capsules))}
	for i := range capsules {
		response.Capsules = append(response.Capsules, taggedToResponse(&capsules[i], now))
	}

	log.Debug("listed capsules",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(response.Capsules)))
	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// CreateCapsule handles POST /capsules requests.
func (h *CapsuleHandler) CreateCapsule(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateCapsuleRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.Validate.Struct(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	capsule, err := h.capsuleService.Create(r.Context(), userID, service.CreateCapsuleInput{
		Title:          req.Title,
		Description:    req.Description,
		Content:        req.Content,
		ContentType:    domain.ContentType(req.ContentType),
		MediaRef:       req.MediaRef,
		Category:       domain.Category(req.Category),
		Relation:       domain.Relation(req.Relation),
		RecipientEmail: req.RecipientEmail,
		OpenDate:       req.OpenDate,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create capsule")
		return
	}

	log.Debug("capsule created",
		slog.String("user_id", userID.String()),
		slog.String("capsule_id", capsule.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, capsuleToResponse(capsule, capsule.Relation, h.now()))
}

// GetCapsule handles GET /capsules/{id} requests.
func (h *CapsuleHandler) GetCapsule(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, capsuleID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	capsule, err := h.capsuleService.Get(r.Context(), userID, capsuleID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get capsule")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taggedToResponse(capsule, h.now()))
}

// UpdateCapsule handles PUT /capsules/{id} requests.
func (h *CapsuleHandler) UpdateCapsule(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, capsuleID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req UpdateCapsuleRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("capsule_id", capsuleID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.Validate.Struct(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	capsule, err := h.capsuleService.Update(r.Context(), userID, capsuleID, service.UpdateCapsuleInput{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		ContentType: domain.ContentType(req.ContentType),
		MediaRef:    req.MediaRef,
		Category:    domain.Category(req.Category),
		OpenDate:    req.OpenDate,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update capsule")
		return
	}

	log.Debug("capsule updated",
		slog.String("user_id", userID.String()),
		slog.String("capsule_id", capsuleID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, capsuleToResponse(capsule, capsule.Relation, h.now()))
}

// OpenCapsule handles POST /capsules/{id}/open requests.
// Opening succeeds only after the capsule's open date and only for viewers
// holding a received entry; the sender of a sent capsule is always refused.
func (h *CapsuleHandler) OpenCapsule(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, capsuleID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	capsule, err := h.capsuleService.Open(r.Context(), userID, capsuleID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to open capsule")
		return
	}

	log.Debug("capsule opened",
		slog.String("user_id", userID.String()),
		slog.String("capsule_id", capsuleID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, taggedToResponse(capsule, h.now()))
}

// DeleteCapsule handles DELETE /capsules/{id} requests.
func (h *CapsuleHandler) DeleteCapsule(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, capsuleID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.capsuleService.Delete(r.Context(), userID, capsuleID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete capsule")
		return
	}

	log.Debug("capsule deleted",
		slog.String("user_id", userID.String()),
		slog.String("capsule_id", capsuleID.String()))
	w.WriteHeader(http.StatusNoContent)
}

// CheckRecipient handles GET /recipients/check?email= requests.
// It lets the client validate a recipient before submitting a sent capsule.
func (h *CapsuleHandler) CheckRecipient(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if _, ok := getUserIDFromContext(r); !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	email := r.URL.Query().Get("email")
	if email == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Email query parameter is required")
		return
	}

	exists, err := h.capsuleService.CheckRecipientExists(r.Context(), email)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to check recipient")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, RecipientCheckResponse{
		Email:  email,
		Exists: exists,
	})
}

// taggedToResponse converts a service.TaggedCapsule to a CapsuleResponse,
// reporting the viewer's relation rather than the stored one.
func taggedToResponse(tagged *service.TaggedCapsule, now time.Time) CapsuleResponse {
	return capsuleToResponse(&tagged.Capsule, tagged.ViewerRelation, now)
}

// capsuleToResponse converts a domain.Capsule to a CapsuleResponse.
// The message payload stays hidden while the capsule is locked.
func capsuleToResponse(capsule *domain.Capsule, relation domain.Relation, now time.Time) CapsuleResponse {
	response := CapsuleResponse{
		ID:             capsule.ID.String(),
		OwnerID:        capsule.OwnerID.String(),
		Title:          capsule.Title,
		Description:    capsule.Description,
		ContentType:    string(capsule.ContentType),
		Category:       string(capsule.Category),
		Relation:       string(relation),
		RecipientEmail: capsule.RecipientEmail,
		OpenDate:       capsule.OpenDate,
		IsLocked:       capsule.IsLocked,
		IsOpenable:     capsule.IsLocked && capsule.Openable(now),
		CreatedAt:      capsule.CreatedAt,
		UpdatedAt:      capsule.UpdatedAt,
	}

	if !capsule.IsLocked {
		response.Content = capsule.Content
		response.MediaRef = capsule.MediaRef
	}

	return response
}
