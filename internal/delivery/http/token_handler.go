package http

import (
	"encoding/json"
	"net/http"
	"time"

	"archon-backend/internal/domain"
)

type TokenHandler struct {
	tokenRepo domain.DeviceTokenRepository
}

func NewTokenHandler(tokenRepo domain.DeviceTokenRepository) *TokenHandler {
	return &TokenHandler{
		tokenRepo: tokenRepo,
	}
}

// RegisterTokenRequest registers a push device or, with platform
// "telegram", a Telegram chat id.
type RegisterTokenRequest struct {
	UserID   string `json:"userId"`
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type TokenResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

func (h *TokenHandler) HandleRegisterToken(w http.ResponseWriter, r *http.Request) {
	var req RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	if req.Token == "" {
		badRequest(w, "Token is required")
		return
	}
	if req.UserID == "" {
		badRequest(w, "userId is required")
		return
	}

	switch req.Platform {
	case "":
		req.Platform = domain.PlatformAndroid
	case domain.PlatformAndroid, domain.PlatformIOS, domain.PlatformTelegram:
	default:
		badRequest(w, "platform must be android, ios or telegram")
		return
	}

	h.tokenRepo.RegisterToken(req.UserID, req.Token, req.Platform, time.Now().Unix())

	writeJSON(w, http.StatusOK, TokenResponse{
		Success: true,
		Message: "Token registered successfully",
		Count:   h.tokenRepo.GetTokenCount(req.UserID),
	})
}

func (h *TokenHandler) HandleUnregisterToken(w http.ResponseWriter, r *http.Request) {
	var req RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	if req.Token == "" {
		badRequest(w, "Token is required")
		return
	}

	h.tokenRepo.UnregisterToken(req.Token)

	writeJSON(w, http.StatusOK, TokenResponse{
		Success: true,
		Message: "Token unregistered successfully",
		Count:   h.tokenRepo.GetTokenCount(req.UserID),
	})
}

func (h *TokenHandler) HandleGetTokenCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TokenResponse{
		Success: true,
		Message: "Token count retrieved",
		Count:   h.tokenRepo.GetTokenCount(r.URL.Query().Get("userId")),
	})
}
