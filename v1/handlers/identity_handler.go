package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/v1/models"
	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/v1/services"
	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/v1/utils"
)

// IdentityHandler handles the registration and verification endpoints
type IdentityHandler struct {
	service      *services.IdentityService
	maxBodyBytes int64
}

// NewIdentityHandler creates a new identity handler. maxImageBytes bounds the
// decoded face image; request bodies may carry its base64 form plus the
// other fields.
func NewIdentityHandler(service *services.IdentityService, maxImageBytes int) *IdentityHandler {
	var maxBody int64
	if maxImageBytes > 0 {
		maxBody = int64(maxImageBytes)*4/3 + 64<<10
	}
	return &IdentityHandler{service: service, maxBodyBytes: maxBody}
}

// RegisterUser handles POST /register-user
func (h *IdentityHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.service.RegisterUser(r.Context(), &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// VerifyPassword handles POST /verify-password
func (h *IdentityHandler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.service.VerifyPassword(r.Context(), &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// VerifyFace handles POST /verify-face
func (h *IdentityHandler) VerifyFace(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyFaceRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.service.VerifyFace(r.Context(), &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// CheckUser handles POST /check-user
func (h *IdentityHandler) CheckUser(w http.ResponseWriter, r *http.Request) {
	var req models.CheckUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.service.CheckUser(r.Context(), &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// Session handles GET /session with an "Authorization: Bearer <token>" header
func (h *IdentityHandler) Session(w http.ResponseWriter, r *http.Request) {
	if !h.service.TokensEnabled() {
		utils.RespondWithError(w, http.StatusNotFound, services.ErrTokensDisabled.Error())
		return
	}

	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		w.Header().Set("WWW-Authenticate", `Bearer realm="lysa-identity"`)
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing bearer token")
		return
	}

	resp, err := h.service.Session(r.Context(), strings.TrimSpace(token))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// decode reads the JSON body into dst; it writes the error response and
// returns false on failure
func (h *IdentityHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			utils.RespondWithError(w, http.StatusRequestEntityTooLarge, services.ErrImageTooLarge.Error())
		case errors.Is(err, io.EOF):
			utils.RespondWithError(w, http.StatusUnprocessableEntity, "Request body is required")
		default:
			utils.RespondWithError(w, http.StatusUnprocessableEntity, "Invalid request body: "+err.Error())
		}
		return false
	}
	return true
}

// respondWithServiceError maps service errors to status codes
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrUserExists):
		utils.RespondWithError(w, http.StatusConflict, services.ErrUserExists.Error())
	case errors.Is(err, services.ErrUserNotFound):
		utils.RespondWithError(w, http.StatusNotFound, services.ErrUserNotFound.Error())
	case errors.Is(err, services.ErrFaceNotEnrolled):
		utils.RespondWithError(w, http.StatusNotFound, services.ErrFaceNotEnrolled.Error())
	case errors.Is(err, services.ErrFaceNotDetected):
		utils.RespondWithError(w, http.StatusBadRequest, services.ErrFaceNotDetected.Error())
	case errors.Is(err, services.ErrImageTooLarge):
		utils.RespondWithError(w, http.StatusRequestEntityTooLarge, services.ErrImageTooLarge.Error())
	case errors.Is(err, services.ErrInvalidInput):
		utils.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrInvalidToken):
		w.Header().Set("WWW-Authenticate", `Bearer realm="lysa-identity", error="invalid_token"`)
		utils.RespondWithError(w, http.StatusUnauthorized, services.ErrInvalidToken.Error())
	case errors.Is(err, services.ErrTokensDisabled):
		utils.RespondWithError(w, http.StatusNotFound, services.ErrTokensDisabled.Error())
	case errors.Is(err, services.ErrEncoderUnavailable):
		utils.RespondWithError(w, http.StatusServiceUnavailable, services.ErrEncoderUnavailable.Error())
	default:
		slog.Error("Unhandled service error", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
