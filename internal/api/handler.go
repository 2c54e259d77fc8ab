package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/mtlprog/rebalance/internal/domain"
	"github.com/mtlprog/rebalance/internal/plan"
)

const maxBodyBytes = 1 << 20

// Handler provides HTTP endpoints for order plans.
type Handler struct {
	plans *plan.Service
}

// NewHandler creates a new API handler.
func NewHandler(plans *plan.Service) *Handler {
	return &Handler{plans: plans}
}

// CreatePlan handles POST /api/v1/plans.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req plan.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Tokens) == 0 {
		writeError(w, http.StatusBadRequest, "tokens must not be empty")
		return
	}

	rec, err := h.plans.Generate(r.Context(), req)
	if err != nil {
		writePlanError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// GeneratePlan handles POST /api/v1/plans/generate.
func (h *Handler) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	rec, err := h.plans.GenerateFromSource(r.Context())
	if err != nil {
		writePlanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetLatestPlan handles GET /api/v1/plans/latest.
func (h *Handler) GetLatestPlan(w http.ResponseWriter, r *http.Request) {
	rec, err := h.plans.GetLatest(r.Context())
	if err != nil {
		if errors.Is(err, plan.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no plans found")
			return
		}
		slog.Error("failed to get latest plan", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetPlanByID handles GET /api/v1/plans/{id}.
func (h *Handler) GetPlanByID(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid plan id, expected UUID")
		return
	}

	rec, err := h.plans.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, plan.ErrNotFound) {
			writeError(w, http.StatusNotFound, "plan not found")
			return
		}
		slog.Error("failed to get plan by id", "id", idStr, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListPlans handles GET /api/v1/plans.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	const maxLimit = 365
	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxLimit)
		}
	}

	records, err := h.plans.List(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list plans", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if records == nil {
		records = []plan.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// writePlanError maps planning failures to 422 and everything else to 500.
func writePlanError(w http.ResponseWriter, err error) {
	if domain.IsPlanningError(err) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	slog.Error("failed to generate plan", "error", err)
	writeError(w, http.StatusInternalServerError, "failed to generate plan")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
