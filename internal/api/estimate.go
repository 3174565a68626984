package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tutu-network/gpusizer/internal/domain"
	"github.com/tutu-network/gpusizer/internal/infra/observability"
	"github.com/tutu-network/gpusizer/internal/report"
)

// ─── JSON API ───────────────────────────────────────────────────────────────
// GET  /api/models         catalog models (?provider= filters)
// GET  /api/models/{name}  one model; names may contain "/"
// GET  /api/gpus           catalog GPUs, ascending memory
// POST /api/estimate       evaluate a model × GPU grid

// EstimateRequest is the POST /api/estimate body. Omitted fields take the
// calculator defaults.
type EstimateRequest struct {
	NumGPU         int      `json:"num_gpu"`
	PromptTokens   int      `json:"prompt_tokens"`
	ResponseTokens int      `json:"response_tokens"`
	Concurrency    int      `json:"concurrency"`
	WeightBytes    float64  `json:"weight_bytes"`
	KVBytes        float64  `json:"kv_bytes"`
	Models         []string `json:"models"`
	GPUs           []string `json:"gpus"`
	IncludeOOM     bool     `json:"include_oom"`
}

func defaultEstimateRequest() EstimateRequest {
	w := domain.DefaultWorkload()
	p := domain.DefaultPrecision()
	return EstimateRequest{
		NumGPU:         1,
		PromptTokens:   w.PromptTokens,
		ResponseTokens: w.ResponseTokens,
		Concurrency:    w.Concurrency,
		WeightBytes:    p.WeightBytes,
		KVBytes:        p.KVBytes,
	}
}

// EstimateResponse is the POST /api/estimate result.
type EstimateResponse struct {
	ID        string                  `json:"id"`
	NumGPU    int                     `json:"num_gpu"`
	Precision domain.PrecisionSpec    `json:"precision"`
	Workload  domain.Workload         `json:"workload"`
	Memory    []domain.MemoryEstimate `json:"memory"`
	Estimates []domain.Estimate       `json:"estimates"`
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	models := make([]domain.ModelSpec, 0, len(s.catalog.Models))
	for _, m := range s.catalog.Models {
		if provider != "" && !strings.EqualFold(m.Provider, provider) {
			continue
		}
		models = append(models, m)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models": models,
		"count":  len(models),
	})
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	m, err := s.catalog.Model(chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"model":       m,
		"head_dim":    m.HeadDim(),
		"gqa":         m.GQA(),
		"provider":    m.Provider,
		"max_context": m.MaxContextWindow,
	})
}

func (s *Server) handleListGPUs(w http.ResponseWriter, r *http.Request) {
	gpus := s.catalog.GPUsByMemory()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"gpus":  gpus,
		"count": len(gpus),
	})
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	req := defaultEstimateRequest()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	modelNames := req.Models
	if len(modelNames) == 0 {
		modelNames = s.defaultModels
	}
	gpuNames := req.GPUs
	if len(gpuNames) == 0 {
		gpuNames = s.defaultGPUs
	}

	models := make([]domain.ModelSpec, 0, len(modelNames))
	for _, name := range modelNames {
		m, err := s.catalog.Model(name)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		models = append(models, m)
	}
	gpus := make([]domain.GPUSpec, 0, len(gpuNames))
	for _, name := range gpuNames {
		g, err := s.catalog.GPU(name)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		gpus = append(gpus, g)
	}

	workload := domain.Workload{
		PromptTokens:   req.PromptTokens,
		ResponseTokens: req.ResponseTokens,
		Concurrency:    req.Concurrency,
	}
	precision := domain.PrecisionSpec{WeightBytes: req.WeightBytes, KVBytes: req.KVBytes}

	rep, err := s.runSweep(r.Context(), observability.SourceAPI, req.NumGPU, precision, models, gpus, workload)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	filter := report.WebFilter(req.IncludeOOM)
	kept := make([]domain.Estimate, 0, len(rep.Estimates))
	for _, e := range rep.Estimates {
		if filter.Keep(e) {
			kept = append(kept, e)
		}
	}

	writeJSON(w, http.StatusOK, EstimateResponse{
		ID:        uuid.New().String(),
		NumGPU:    req.NumGPU,
		Precision: precision,
		Workload:  workload,
		Memory:    rep.Memory,
		Estimates: kept,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrModelNotFound), errors.Is(err, domain.ErrGPUNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
