package http

import (
	"net/http"

	"archon-backend/internal/domain"
	"archon-backend/internal/usecase"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	api *usecase.TradingAPI
	log *zap.Logger
}

func NewProfileHandler(api *usecase.TradingAPI, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{api: api, log: log}
}

// Get handles GET /api/profiles/{id}
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.api.GetProfile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Create handles POST /api/profiles
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p domain.Profile
	if err := decodeJSON(r, &p); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	created, err := h.api.CreateProfile(r.Context(), p)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Update handles PATCH /api/profiles/{id}
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var u domain.ProfileUpdate
	if err := decodeJSON(r, &u); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	p, err := h.api.UpdateProfile(r.Context(), mux.Vars(r)["id"], u)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
