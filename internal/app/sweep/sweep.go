// Package sweep evaluates a model × GPU grid with bounded concurrency.
//
// The estimation engine is pure, so every cell is independent. Results are
// written into their grid slot, which keeps output in catalog order no
// matter how goroutines are scheduled.
package sweep

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tutu-network/gpusizer/internal/domain"
)

// Config controls sweep behavior.
type Config struct {
	MaxConcurrent int // Maximum cells evaluated at once (default: 4)
}

// DefaultConfig returns sweep defaults.
func DefaultConfig() Config {
	return Config{MaxConcurrent: 4}
}

// Report is the outcome of one sweep.
type Report struct {
	Workload  domain.Workload         `json:"workload"`
	Memory    []domain.MemoryEstimate `json:"memory"`
	Estimates []domain.Estimate       `json:"estimates"`
}

// Stats summarizes sweep activity.
type Stats struct {
	Evaluated     int64 `json:"evaluated"`
	Fitting       int64 `json:"fitting"`
	OverCapacity  int64 `json:"over_capacity"`
	NotComputable int64 `json:"not_computable"`
}

// Runner evaluates grids against one estimator.
type Runner struct {
	mu     sync.Mutex
	config Config
	est    domain.Estimator
	log    logrus.FieldLogger
	stats  Stats
}

// New creates a Runner. A nil logger discards output.
func New(cfg Config, est domain.Estimator, log logrus.FieldLogger) *Runner {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Runner{config: cfg, est: est, log: log}
}

// Run computes per-model memory and every model × GPU estimate. It stops
// early and returns ctx.Err() if the context is cancelled.
func (r *Runner) Run(ctx context.Context, models []domain.ModelSpec, gpus []domain.GPUSpec, w domain.Workload) (*Report, error) {
	rep := &Report{
		Workload:  w,
		Memory:    make([]domain.MemoryEstimate, len(models)),
		Estimates: make([]domain.Estimate, len(models)*len(gpus)),
	}

	window := w.ContextWindow()
	for i, m := range models {
		rep.Memory[i] = domain.MemoryEstimate{
			Model:         m,
			KVPerTokenGiB: r.est.KVCacheSizePerToken(m),
			WeightsGB:     r.est.WeightsMemory(m),
			FootprintGB:   r.est.TotalMemoryFootprint(m, w.Concurrency, window),
		}
	}

	sem := make(chan struct{}, r.config.MaxConcurrent)
	var wg sync.WaitGroup

	for i, m := range models {
		for j, g := range gpus {
			if err := ctx.Err(); err != nil {
				wg.Wait()
				return nil, fmt.Errorf("sweep cancelled: %w", err)
			}
			select {
			case <-ctx.Done():
				wg.Wait()
				return nil, fmt.Errorf("sweep cancelled: %w", ctx.Err())
			case sem <- struct{}{}:
			}

			wg.Add(1)
			go func(slot int, m domain.ModelSpec, g domain.GPUSpec) {
				defer func() { <-sem }()
				defer wg.Done()
				rep.Estimates[slot] = r.evaluate(m, g, w)
			}(i*len(gpus)+j, m, g)
		}
	}
	wg.Wait()

	r.log.WithFields(logrus.Fields{
		"models": len(models),
		"gpus":   len(gpus),
	}).Debug("sweep completed")
	return rep, nil
}

// evaluate computes a single cell.
func (r *Runner) evaluate(m domain.ModelSpec, g domain.GPUSpec, w domain.Workload) domain.Estimate {
	window := w.ContextWindow()
	est := domain.Estimate{
		Model:       m,
		GPU:         g,
		Fits:        r.est.FitsMemory(g, m, w.Concurrency, window),
		FootprintGB: r.est.TotalMemoryFootprint(m, w.Concurrency, window),
		AvailableGB: r.est.AvailableMemory(g),
		Metrics:     r.est.ComputeMetrics(m, g, w.PromptTokens, w.ResponseTokens),
	}

	r.mu.Lock()
	r.stats.Evaluated++
	if est.Fits {
		r.stats.Fitting++
	} else {
		r.stats.OverCapacity++
	}
	if !est.Metrics.Computable() {
		r.stats.NotComputable++
	}
	r.mu.Unlock()

	if !est.Fits {
		r.log.WithFields(logrus.Fields{
			"model":        m.Name,
			"gpu":          g.Name,
			"footprint_gb": est.FootprintGB,
		}).Debug("configuration exceeds device memory")
	}
	return est
}

// Stats returns cumulative statistics across all runs.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
