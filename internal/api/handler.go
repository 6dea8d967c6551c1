package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rajasatyajit/EcoScan/internal/analytics"
	apperrors "github.com/rajasatyajit/EcoScan/internal/errors"
	"github.com/rajasatyajit/EcoScan/internal/logger"
	"github.com/rajasatyajit/EcoScan/internal/models"
	"github.com/rajasatyajit/EcoScan/internal/service"
	"github.com/rajasatyajit/EcoScan/pkg/utils"
)

const maxBodyBytes = 1 << 20

// Service is the application surface the API exposes
type Service interface {
	Product(ctx context.Context, id string) (*service.ProductView, error)
	Scan(ctx context.Context, id string) (*service.ScanResult, error)
	Record(ctx context.Context, id string, product *models.Product) (*service.Mutation, error)
	History(q models.HistoryQuery) []models.ScanEvent
	Clear(ctx context.Context) (*service.Mutation, error)
	Stats() analytics.Summary
	Alternatives(id string) ([]models.Product, error)
}

// HealthChecker reports whether the ledger store is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler handles HTTP requests for the API
type Handler struct {
	svc       Service
	health    HealthChecker
	version   string
	buildTime string
	gitCommit string
	startTime time.Time
}

// NewHandler creates a new API handler
func NewHandler(svc Service, health HealthChecker, version, buildTime, gitCommit string) *Handler {
	return &Handler{
		svc:       svc,
		health:    health,
		version:   version,
		buildTime: buildTime,
		gitCommit: gitCommit,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		// Health check endpoints
		r.Get("/health", h.healthHandler)
		r.Get("/health/ready", h.readinessHandler)
		r.Get("/health/live", h.livenessHandler)

		r.Get("/products/{id}", h.getProductHandler)
		r.Get("/products/{id}/alternatives", h.getAlternativesHandler)

		r.Post("/scans", h.createScanHandler)

		r.Get("/history", h.getHistoryHandler)
		r.Post("/history", h.appendHistoryHandler)
		r.Delete("/history", h.clearHistoryHandler)

		r.Get("/stats", h.statsHandler)

		// System info
		r.Get("/version", h.versionHandler)
	})

	// Root health check
	r.Get("/health", h.healthHandler)
}

// healthHandler provides basic health check
func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   h.version,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// readinessHandler checks if the application is ready to serve traffic
func (h *Handler) readinessHandler(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"store": "ok",
	}
	statusCode := http.StatusOK

	if h.health != nil {
		if err := h.health.Health(r.Context()); err != nil {
			checks["store"] = "error: " + err.Error()
			statusCode = http.StatusServiceUnavailable
		}
	}

	status := "ready"
	if statusCode != http.StatusOK {
		status = "not_ready"
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	}

	h.writeJSONResponse(w, statusCode, response)
}

// livenessHandler checks if the application is alive
func (h *Handler) livenessHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// versionHandler returns version information
func (h *Handler) versionHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"version":    h.version,
		"build_time": h.buildTime,
		"git_commit": h.gitCommit,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// getProductHandler handles GET /products/{id}. Resolution never records a scan.
func (h *Handler) getProductHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := h.svc.Product(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	body, err := json.Marshal(view)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	etag := utils.ETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=300")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// getAlternativesHandler handles GET /products/{id}/alternatives
func (h *Handler) getAlternativesHandler(w http.ResponseWriter, r *http.Request) {
	alts, err := h.svc.Alternatives(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	response := map[string]interface{}{
		"data":  alts,
		"count": len(alts),
	}
	h.writeJSONResponse(w, http.StatusOK, response)
}

type scanRequest struct {
	ProductID string `json:"product_id"`
}

// createScanHandler handles POST /scans: resolve, then record
func (h *Handler) createScanHandler(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.Scan(r.Context(), req.ProductID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, result)
}

type historyRequest struct {
	ProductID string          `json:"product_id"`
	Product   *models.Product `json:"product,omitempty"`
}

// appendHistoryHandler handles POST /history: a raw ledger append
func (h *Handler) appendHistoryHandler(w http.ResponseWriter, r *http.Request) {
	var req historyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.svc.Record(r.Context(), req.ProductID, req.Product)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, m)
}

// getHistoryHandler handles GET /history
func (h *Handler) getHistoryHandler(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseHistoryQuery(r)
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	events := h.svc.History(q)

	response := map[string]interface{}{
		"data":      events,
		"count":     len(events),
		"timestamp": time.Now().UTC(),
	}
	h.writeJSONResponse(w, http.StatusOK, response)
}

// clearHistoryHandler handles DELETE /history
func (h *Handler) clearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Clear(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, m)
}

// statsHandler handles GET /stats
func (h *Handler) statsHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, h.svc.Stats())
}

// parseHistoryQuery parses query parameters into HistoryQuery
func (h *Handler) parseHistoryQuery(r *http.Request) (models.HistoryQuery, error) {
	q := models.HistoryQuery{}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return q, fmt.Errorf("invalid limit: %s", limitStr)
		}
		if limit < 0 || limit > 1000 {
			return q, fmt.Errorf("limit must be between 0 and 1000")
		}
		q.Limit = limit
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return q, fmt.Errorf("invalid offset: %s", offsetStr)
		}
		if offset < 0 {
			return q, fmt.Errorf("offset must be non-negative")
		}
		q.Offset = offset
	}

	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return q, fmt.Errorf("invalid since format: %s", sinceStr)
		}
		q.Since = since
	}

	if untilStr := r.URL.Query().Get("until"); untilStr != "" {
		until, err := time.Parse(time.RFC3339, untilStr)
		if err != nil {
			return q, fmt.Errorf("invalid until format: %s", untilStr)
		}
		q.Until = until
	}

	for _, id := range r.URL.Query()["product"] {
		if id = utils.NormalizeIdentifier(id); id != "" {
			q.ProductIDs = append(q.ProductIDs, id)
		}
	}

	return q, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}

// writeServiceError maps service errors onto status codes
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		h.writeErrorResponse(w, r, http.StatusNotFound, "Product not found")
	case errors.Is(err, context.DeadlineExceeded):
		h.writeErrorResponse(w, r, http.StatusGatewayTimeout, "Request timed out")
	case errors.Is(err, context.Canceled):
		logger.WithContext(r.Context()).Debug("Request cancelled", "error", err)
		h.writeErrorResponse(w, r, http.StatusServiceUnavailable, "Request cancelled")
	default:
		logger.WithContext(r.Context()).Error("Request failed", "error", err, "path", r.URL.Path)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

// writeJSONResponse writes a JSON response
func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse writes a standardized error response
func (h *Handler) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	requestID := middleware.GetReqID(r.Context())
	if requestID == "" {
		requestID = r.Header.Get("X-Request-ID")
	}

	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}

	h.writeJSONResponse(w, statusCode, response)
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}
