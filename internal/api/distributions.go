package api

import (
	"net/http"

	"github.com/mtlprog/rebalance/internal/distribution"
	"github.com/mtlprog/rebalance/internal/domain"
	"github.com/mtlprog/rebalance/internal/plan"
)

// DistributionHandler provides HTTP endpoints for target distributions.
type DistributionHandler struct{}

// NewDistributionHandler creates a new distribution handler.
func NewDistributionHandler() *DistributionHandler {
	return &DistributionHandler{}
}

type distributionsRequest struct {
	Tokens []domain.Token `json:"tokens"`
}

type distributionsResponse struct {
	Presets []domain.Distribution `json:"presets"`
	Current domain.Distribution   `json:"current"`
}

// GetDistributions handles POST /api/v1/distributions: presets and the
// current distribution for the posted holdings.
func (h *DistributionHandler) GetDistributions(w http.ResponseWriter, r *http.Request) {
	var req distributionsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tokens, err := plan.Prepare(req.Tokens)
	if err != nil {
		writePlanError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, distributionsResponse{
		Presets: distribution.Presets(tokens),
		Current: distribution.Current(tokens),
	})
}

type compareRequest struct {
	Current  map[string]float64 `json:"current"`
	Original map[string]float64 `json:"original"`
}

// CompareDistributions handles POST /api/v1/distributions/compare.
func (h *DistributionHandler) CompareDistributions(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := distribution.Validate(domain.Distribution{Name: "current", Map: req.Current}); err != nil {
		writePlanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, distribution.CompareChange(req.Current, req.Original))
}
