package http

import (
	"net/http"

	"archon-backend/internal/domain"
	"archon-backend/internal/usecase"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// BotHandler serves the trading bot endpoints.
type BotHandler struct {
	api *usecase.TradingAPI
	log *zap.Logger
}

func NewBotHandler(api *usecase.TradingAPI, log *zap.Logger) *BotHandler {
	return &BotHandler{api: api, log: log}
}

// List handles GET /api/bots?userId=
func (h *BotHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	bots, err := h.api.GetBots(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bots)
}

// Get handles GET /api/bots/{id}
func (h *BotHandler) Get(w http.ResponseWriter, r *http.Request) {
	bot, err := h.api.GetBot(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

// Create handles POST /api/bots
func (h *BotHandler) Create(w http.ResponseWriter, r *http.Request) {
	var b domain.TradingBot
	if err := decodeJSON(r, &b); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	created, err := h.api.CreateBot(r.Context(), b)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	h.log.Info("bot created",
		zap.String("bot_id", created.ID),
		zap.String("user_id", created.UserID),
		zap.String("strategy", string(created.Strategy)))
	writeJSON(w, http.StatusCreated, created)
}

// Update handles PATCH /api/bots/{id}
func (h *BotHandler) Update(w http.ResponseWriter, r *http.Request) {
	var u domain.BotUpdate
	if err := decodeJSON(r, &u); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	bot, err := h.api.UpdateBot(r.Context(), mux.Vars(r)["id"], u)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

// Delete handles DELETE /api/bots/{id}
func (h *BotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.api.DeleteBot(r.Context(), id); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	h.log.Info("bot deleted", zap.String("bot_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// Trades handles GET /api/bots/{id}/trades?limit=
func (h *BotHandler) Trades(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	trades, err := h.api.GetBotTrades(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}
