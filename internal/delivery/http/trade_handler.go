package http

import (
	"net/http"

	"archon-backend/internal/domain"
	"archon-backend/internal/usecase"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TradeHandler handles trade endpoints
type TradeHandler struct {
	api *usecase.TradingAPI
	log *zap.Logger
}

// NewTradeHandler creates a new trade handler
func NewTradeHandler(api *usecase.TradingAPI, log *zap.Logger) *TradeHandler {
	return &TradeHandler{api: api, log: log}
}

// List handles GET /api/trades?userId=&limit=
func (h *TradeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	trades, err := h.api.GetTrades(r.Context(), userID, limit)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

// Open handles GET /api/trades/open?userId=
func (h *TradeHandler) Open(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	trades, err := h.api.GetOpenTrades(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

// Close handles POST /api/trades/{id}/close
func (h *TradeHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req domain.TradeClose
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	id := mux.Vars(r)["id"]
	trade, err := h.api.CloseTrade(r.Context(), id, req)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	h.log.Info("trade closed manually",
		zap.String("trade_id", id),
		zap.Float64("exit_price", req.ExitPrice))
	writeJSON(w, http.StatusOK, trade)
}
