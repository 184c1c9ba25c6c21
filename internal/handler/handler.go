package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/savvydealshub/SavvyDealsHub/internal/models"
	"github.com/savvydealshub/SavvyDealsHub/internal/service"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 10 << 20, // 10MB default
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
	}
}

// UpsertOffer handles POST /offers
func (h *Handler) UpsertOffer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.Offer
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	offer, err := h.service.UpsertOffer(r.Context(), req)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, offer)
}

// ListOffers handles GET /offers
func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	offers, err := h.service.ListOffers(r.Context(), service.OfferQuery{
		Category: q.Get("category"),
		Search:   q.Get("q"),
		Limit:    queryInt(q.Get("limit"), 0),
	})
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if offers == nil {
		offers = []models.Offer{}
	}
	h.respondJSON(w, http.StatusOK, offers)
}

// Compare handles GET /compare
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	response, err := h.service.Compare(r.Context(), service.CompareQuery{
		Search:   q.Get("q"),
		Category: q.Get("category"),
		Postcode: q.Get("postcode"),
		Prime:    queryBool(q.Get("prime")),
		Nectar:   queryBool(q.Get("nectar")),
		Clubcard: queryBool(q.Get("clubcard")),
		Limit:    queryInt(q.Get("limit"), 0),
	})
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// TopDeals handles GET /deals/top
func (h *Handler) TopDeals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	response, err := h.service.TopDeals(r.Context(), q.Get("category"), queryInt(q.Get("limit"), 0))
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// Categories handles GET /categories
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if categories == nil {
		categories = []models.CategoryCount{}
	}
	h.respondJSON(w, http.StatusOK, categories)
}

// RecordClick handles POST /clicks
func (h *Handler) RecordClick(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.ClickEvent
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	click, err := h.service.RecordClick(r.Context(), req)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, click)
}

// ClickAnalytics handles GET /analytics/clicks
func (h *Handler) ClickAnalytics(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r.URL.Query().Get("days"), 30)

	analytics, err := h.service.ClickAnalytics(r.Context(), days)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, analytics)
}

// FeedStatus handles GET /feeds/status
func (h *Handler) FeedStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.FeedStatus(r.Context()))
}

// RefreshFeeds handles POST /feeds/refresh
func (h *Handler) RefreshFeeds(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RefreshFeeds(r.Context()); err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.service.Health(r.Context())

	code := http.StatusOK
	if !status.OK || !status.Ready {
		code = http.StatusServiceUnavailable
	}
	h.respondJSON(w, code, status)
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func queryBool(raw string) bool {
	return raw == "1" || raw == "true"
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
