package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"archon-backend/internal/usecase"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type stat struct {
	Value string
	Label string
	Class string
}

type feature struct {
	Title       string
	Description string
}

type pricingTier struct {
	Name     string
	Price    string
	Period   string
	Features []string
	CTA      string
	Featured bool
}

type landingPage struct {
	Stats    []stat
	Features []feature
	Tiers    []pricingTier
}

var landing = landingPage{
	Stats: []stat{
		{Value: "$24.8K+", Label: "Avg. Monthly Profit", Class: "profit"},
		{Value: "71.3%", Label: "Win Rate", Class: "profit"},
		{Value: "24/7", Label: "Automated Trading", Class: "primary"},
	},
	Features: []feature{
		{"8 AI Strategies", "Liquidity Sweep, Pairs Trading, Multi-Timeframe Confluence, and more advanced algorithms"},
		{"Kelly Criterion", "Optimal position sizing based on historical win rate and risk/reward ratio"},
		{"Smart Pyramiding", "Intelligent trade layering to maximize profits while managing risk"},
		{"S/R Automation", "Auto-detect support and resistance levels for precise entry and exit"},
		{"Real-time Analytics", "Track performance, trades, and risk metrics with live dashboards"},
		{"MT5 Integration", "Direct connection to MetaTrader 5 for instant trade execution"},
	},
	Tiers: []pricingTier{
		{
			Name: "Free", Price: "$0", Period: "forever", CTA: "Start Free",
			Features: []string{"1 trading bot", "Basic strategies", "7-day history", "Email support", "Basic analytics"},
		},
		{
			Name: "Pro", Price: "$29", Period: "per month", CTA: "Start Trial", Featured: true,
			Features: []string{"3 trading bots", "All 8 AI strategies", "90-day history", "Telegram alerts",
				"Advanced analytics", "Multi-timeframe analysis", "Priority support"},
		},
		{
			Name: "Enterprise", Price: "$99", Period: "per month", CTA: "Contact Sales",
			Features: []string{"Unlimited bots", "Custom strategies", "Unlimited history", "API access",
				"Dedicated support", "White-label option", "Custom indicators"},
		},
	},
}

type errorPage struct {
	Status  int
	Title   string
	Message string
}

// PageHandler renders the landing page and the dashboard.
type PageHandler struct {
	dashboard *usecase.DashboardService
	log       *zap.Logger
}

func NewPageHandler(dashboard *usecase.DashboardService, log *zap.Logger) *PageHandler {
	return &PageHandler{dashboard: dashboard, log: log}
}

// Landing handles GET /
func (h *PageHandler) Landing(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "landing.html", landing)
}

// Dashboard handles GET /dashboard?userId=
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		h.renderError(w, http.StatusBadRequest, "Missing account", "Open the dashboard with a userId.")
		return
	}

	view, err := h.dashboard.Build(r.Context(), userID)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.log.Error("dashboard load failed", zap.String("user_id", userID), zap.Error(err))
			h.renderError(w, status, "Dashboard unavailable", "We could not load your trading data. Please try again shortly.")
			return
		}
		h.renderError(w, status, "Dashboard unavailable", err.Error())
		return
	}
	h.render(w, http.StatusOK, "dashboard.html", view)
}

// DashboardJSON handles GET /api/dashboard?userId=
func (h *PageHandler) DashboardJSON(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	view, err := h.dashboard.Build(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *PageHandler) renderError(w http.ResponseWriter, status int, title, message string) {
	h.render(w, status, "error.html", errorPage{Status: status, Title: title, Message: message})
}

// render executes into a buffer first so a template error never leaves a
// half-written page behind.
func (h *PageHandler) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		h.log.Error("template render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
