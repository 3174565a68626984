package api

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tutu-network/gpusizer/internal/app/sizing"
	"github.com/tutu-network/gpusizer/internal/app/sweep"
	"github.com/tutu-network/gpusizer/internal/domain"
	"github.com/tutu-network/gpusizer/internal/infra/observability"
	"github.com/tutu-network/gpusizer/internal/report"
)

// ─── Calculator Page ────────────────────────────────────────────────────────
// GET /                       form only
// GET /?run=1&...             form plus memory and performance tables
// GET /?format=csv&type=mem   memory rows as an attachment
// GET /?format=csv&type=perf  performance rows as an attachment

// CSVFilename is the attachment name for calculator downloads.
const CSVFilename = "llm_sizing.csv"

// Params are the calculator query parameters after coercion.
type Params struct {
	NumGPU     int
	Workload   domain.Workload
	WeightBits int
	KVBytes    float64
	IncludeOOM bool
	ModelNames []string
	GPUNames   []string
	Format     string
	Type       string
	Run        bool
}

// Precision converts the weight bits and KV bytes into a PrecisionSpec.
func (p Params) Precision() domain.PrecisionSpec {
	return domain.PrecisionFromBits(p.WeightBits, p.KVBytes)
}

// parseParams reads the calculator query. Values that fail to parse fall
// back to their defaults; nothing else is validated.
func (s *Server) parseParams(q url.Values) Params {
	w := domain.DefaultWorkload()
	p := Params{
		NumGPU:     queryInt(q, "g", 1),
		WeightBits: queryInt(q, "weight_bits", 16),
		KVBytes:    queryFloat(q, "kv", domain.DefaultPrecision().KVBytes),
		IncludeOOM: q.Get("oom") == "1",
		ModelNames: q["model"],
		GPUNames:   q["gpu"],
		Format:     queryString(q, "format", "html"),
		Type:       queryString(q, "type", "all"),
		Run:        q.Get("run") == "1",
	}
	p.Workload = domain.Workload{
		PromptTokens:   queryInt(q, "p", w.PromptTokens),
		ResponseTokens: queryInt(q, "r", w.ResponseTokens),
		Concurrency:    queryInt(q, "c", w.Concurrency),
	}
	if len(p.ModelNames) == 0 {
		p.ModelNames = s.defaultModels
	}
	if len(p.GPUNames) == 0 {
		p.GPUNames = s.defaultGPUs
	}
	return p
}

func queryInt(q url.Values, key string, def int) int {
	v, err := strconv.Atoi(q.Get(key))
	if err != nil {
		return def
	}
	return v
}

func queryFloat(q url.Values, key string, def float64) float64 {
	v, err := strconv.ParseFloat(q.Get(key), 64)
	if err != nil {
		return def
	}
	return v
}

func queryString(q url.Values, key, def string) string {
	if v := q.Get(key); v != "" {
		return v
	}
	return def
}

// runSweep evaluates the selected grid and records metrics.
func (s *Server) runSweep(ctx context.Context, source string, numGPU int, precision domain.PrecisionSpec,
	models []domain.ModelSpec, gpus []domain.GPUSpec, w domain.Workload) (*sweep.Report, error) {
	calc := sizing.New(numGPU, precision)
	runner := sweep.New(s.sweep, calc, s.log)

	start := time.Now()
	rep, err := runner.Run(ctx, models, gpus, w)
	if err != nil {
		return nil, err
	}
	observability.RecordSweep(source, rep.Estimates, time.Since(start))

	s.log.WithFields(logrus.Fields{
		"source":    source,
		"num_gpu":   numGPU,
		"models":    len(models),
		"gpus":      len(gpus),
		"estimates": len(rep.Estimates),
	}).Debug("estimate computed")
	return rep, nil
}

// handleCalculator serves the calculator page or a CSV download.
func (s *Server) handleCalculator(w http.ResponseWriter, r *http.Request) {
	p := s.parseParams(r.URL.Query())
	csvRequested := p.Format == "csv"

	var memTable, perfTable report.Table
	if p.Run || csvRequested {
		models := s.catalog.FilterModels(p.ModelNames)
		gpus := s.catalog.FilterGPUs(p.GPUNames)
		rep, err := s.runSweep(r.Context(), observability.SourceWeb, p.NumGPU, p.Precision(), models, gpus, p.Workload)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		memTable = report.MemoryTable(rep.Memory, p.Workload)
		perfTable = report.PerformanceTable(rep.Estimates, p.Workload, report.WebFilter(p.IncludeOOM))
	}

	if csvRequested {
		t := perfTable
		if p.Type == "mem" {
			t = memTable
		}
		s.writeCSV(w, t)
		return
	}

	page := report.Page{
		Form: report.Form{
			NumGPU:     p.NumGPU,
			Workload:   p.Workload,
			WeightBits: p.WeightBits,
			KVBytes:    p.KVBytes,
			IncludeOOM: p.IncludeOOM,
			ModelNames: p.ModelNames,
			GPUNames:   p.GPUNames,
		},
		Providers:   s.providerOptions(p.ModelNames),
		GPUs:        s.gpuOptions(p.GPUNames),
		Memory:      memTable,
		Performance: perfTable,
	}

	var buf bytes.Buffer
	if err := report.RenderHTML(&buf, page); err != nil {
		s.log.WithError(err).Error("render calculator page")
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) writeCSV(w http.ResponseWriter, t report.Table) {
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, t); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Content-Disposition", "attachment; filename="+CSVFilename)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ─── Form Options ───────────────────────────────────────────────────────────

func (s *Server) providerOptions(selected []string) []report.ProviderOptions {
	checked := make(map[string]bool, len(selected))
	for _, n := range selected {
		checked[n] = true
	}

	groups := s.catalog.ModelsByProvider()
	out := make([]report.ProviderOptions, 0, len(groups))
	for _, g := range groups {
		po := report.ProviderOptions{Name: g.Provider, ID: report.ElementID("", g.Provider)}
		for _, m := range g.Models {
			po.Models = append(po.Models, report.Option{
				ID:      report.ElementID("model_", m.Name),
				Value:   m.Name,
				Label:   m.Name,
				Checked: checked[m.Name],
			})
		}
		out = append(out, po)
	}
	return out
}

func (s *Server) gpuOptions(selected []string) []report.Option {
	checked := make(map[string]bool, len(selected))
	for _, n := range selected {
		checked[n] = true
	}

	gpus := s.catalog.GPUsByMemory()
	out := make([]report.Option, 0, len(gpus))
	for _, g := range gpus {
		out = append(out, report.Option{
			ID:      report.ElementID("gpu_", g.Name),
			Value:   g.Name,
			Label:   g.Label(),
			Checked: checked[g.Name],
		})
	}
	return out
}
