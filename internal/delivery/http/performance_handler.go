package http

import (
	"encoding/json"
	"net/http"
	"time"

	"archon-backend/internal/domain"
	"archon-backend/internal/usecase"

	"go.uber.org/zap"
)

type PerformanceHandler struct {
	api *usecase.TradingAPI
	log *zap.Logger
}

func NewPerformanceHandler(api *usecase.TradingAPI, log *zap.Logger) *PerformanceHandler {
	return &PerformanceHandler{api: api, log: log}
}

// List handles GET /api/performance?userId=&days=
func (h *PerformanceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	days, err := queryInt(r, "days", 0)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	rows, err := h.api.GetDailyPerformance(r.Context(), userID, days)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// performanceRequest accepts the date as YYYY-MM-DD.
type performanceRequest struct {
	domain.DailyPerformance
	Date string `json:"date"`
}

// Record handles POST /api/performance
func (h *PerformanceHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req performanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		badRequest(w, "date must be YYYY-MM-DD")
		return
	}

	p := req.DailyPerformance
	p.Date = date
	row, err := h.api.RecordDailyPerformance(r.Context(), p)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}
