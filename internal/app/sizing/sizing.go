// Package sizing is the estimation engine: closed-form formulas that turn
// model, GPU and precision descriptors into memory footprint, KV cache
// capacity and latency/throughput estimates.
//
// Every method is a pure function of its arguments and the Calculator's
// fixed (device count, precision) configuration. A Calculator is safe for
// concurrent use and may coexist with others configured differently.
//
// Units are deliberately loose: weights are params_billion × bytes (GB),
// KV cache size is computed in GiB and then added to GB figures 1:1.
package sizing

import (
	"math"

	"github.com/tutu-network/gpusizer/internal/domain"
)

// BytesInGiB is 2^30.
const BytesInGiB = 1 << 30

// minBandwidthGBps floors the bandwidth divisor in TPOT.
const minBandwidthGBps = 1e-9

// Calculator estimates sizing figures for a fixed device count and precision.
type Calculator struct {
	numGPU    int
	precision domain.PrecisionSpec
}

// New creates a Calculator. numGPU is not validated; the timing formulas
// treat values below 1 as 1, the memory formulas use it as given.
func New(numGPU int, precision domain.PrecisionSpec) *Calculator {
	return &Calculator{numGPU: numGPU, precision: precision}
}

// NumGPU returns the configured device count.
func (c *Calculator) NumGPU() int { return c.numGPU }

// Precision returns the configured precision.
func (c *Calculator) Precision() domain.PrecisionSpec { return c.precision }

// ─── Memory / Capacity ──────────────────────────────────────────────────────

// KVCacheSizePerToken returns GiB of KV cache per token: K and V for every
// layer and every KV head.
func (c *Calculator) KVCacheSizePerToken(model domain.ModelSpec) float64 {
	return 2 * float64(model.NLayers) * float64(model.NKVHeads) * model.HeadDim() * c.precision.KVBytes / BytesInGiB
}

// WeightsMemory returns weight memory in GB.
func (c *Calculator) WeightsMemory(model domain.ModelSpec) float64 {
	return model.ParamsBillion * c.precision.WeightBytes
}

// TotalMemoryFootprint returns KV cache for nConcurrent requests of
// contextWindow tokens plus weights, in GB.
func (c *Calculator) TotalMemoryFootprint(model domain.ModelSpec, nConcurrent, contextWindow int) float64 {
	kv := c.KVCacheSizePerToken(model) * float64(contextWindow) * float64(nConcurrent)
	return kv + c.WeightsMemory(model)
}

// AvailableMemory returns num_gpu × gpu memory in GB.
func (c *Calculator) AvailableMemory(gpu domain.GPUSpec) float64 {
	return float64(c.numGPU) * gpu.MemoryGB
}

// MaxKVTokens returns how many tokens of KV cache fit beside the weights.
// A non-positive per-token size or a NaN capacity yields 0; counts beyond
// the int range saturate at math.MaxInt.
func (c *Calculator) MaxKVTokens(gpu domain.GPUSpec, model domain.ModelSpec) int {
	perToken := c.KVCacheSizePerToken(model)
	if !(perToken > 0) {
		return 0
	}
	usable := math.Max(0, c.AvailableMemory(gpu)-c.WeightsMemory(model))
	n := math.Floor(usable / perToken)
	switch {
	case math.IsNaN(n):
		return 0
	case n >= math.MaxInt:
		return math.MaxInt
	}
	return int(n)
}

// FitsMemory reports whether the total footprint fits in the available
// memory. Equality fits; no headroom is reserved.
func (c *Calculator) FitsMemory(gpu domain.GPUSpec, model domain.ModelSpec, nConcurrent, contextWindow int) bool {
	return c.TotalMemoryFootprint(model, nConcurrent, contextWindow) <= c.AvailableMemory(gpu)
}

// ─── Time / Performance ─────────────────────────────────────────────────────

// shardedFLOPs returns 2 × params_billion split across at least one device.
func (c *Calculator) shardedFLOPs(model domain.ModelSpec) float64 {
	return 2 * model.ParamsBillion / float64(max(1, c.numGPU))
}

// PrefillTimePerTokenMs models prefill as compute bound.
func (c *Calculator) PrefillTimePerTokenMs(model domain.ModelSpec, gpu domain.GPUSpec) float64 {
	return c.shardedFLOPs(model) / gpu.FP16TFLOPS
}

// TPOTMs models decode as memory-bandwidth bound: the sharded weights are
// streamed once per generated token.
func (c *Calculator) TPOTMs(model domain.ModelSpec, gpu domain.GPUSpec) float64 {
	return c.shardedFLOPs(model) / math.Max(minBandwidthGBps, gpu.MemoryBandwidthGBps) * 1000
}

// TTFTSeconds is prefill of the whole prompt plus one decode step.
func TTFTSeconds(prefillMs, tpotMs float64, promptTokens int) float64 {
	return (float64(promptTokens)*prefillMs + tpotMs) / 1000.0
}

// E2ELatencySeconds is prefill of the whole prompt plus one decode step per
// response token.
func E2ELatencySeconds(prefillMs, tpotMs float64, promptTokens, responseTokens int) float64 {
	return (float64(promptTokens)*prefillMs + float64(responseTokens)*tpotMs) / 1000.0
}

// ComputeMetrics computes KV capacity and all timing figures. If prefill or
// TPOT come out negative every timing field is NotComputable. Capacity is
// not checked here; see FitsMemory.
func (c *Calculator) ComputeMetrics(model domain.ModelSpec, gpu domain.GPUSpec, promptTokens, responseTokens int) domain.PerformanceMetrics {
	out := domain.PerformanceMetrics{KVCacheTokens: c.MaxKVTokens(gpu, model)}

	prefill := c.PrefillTimePerTokenMs(model, gpu)
	tpot := c.TPOTMs(model, gpu)
	if prefill < 0 || tpot < 0 {
		out.PrefillTimePerTokenMs = domain.NotComputable()
		out.TPOTMs = domain.NotComputable()
		out.TTFTSeconds = domain.NotComputable()
		out.E2ELatencySeconds = domain.NotComputable()
		out.ThroughputTokensPerSec = domain.NotComputable()
		return out
	}

	e2e := E2ELatencySeconds(prefill, tpot, promptTokens, responseTokens)
	out.PrefillTimePerTokenMs = domain.Value(prefill)
	out.TPOTMs = domain.Value(tpot)
	out.TTFTSeconds = domain.Value(TTFTSeconds(prefill, tpot, promptTokens))
	out.E2ELatencySeconds = domain.Value(e2e)
	if e2e > 0 {
		out.ThroughputTokensPerSec = domain.Value(float64(responseTokens) / e2e)
	} else {
		out.ThroughputTokensPerSec = domain.NotComputable()
	}
	return out
}

// ─── Planning ───────────────────────────────────────────────────────────────

// MinGPUs returns the smallest device count in [1, limit] at which the
// workload fits, keeping this Calculator's precision. It returns
// domain.ErrNoFit when no count up to limit fits.
func (c *Calculator) MinGPUs(gpu domain.GPUSpec, model domain.ModelSpec, w domain.Workload, limit int) (int, error) {
	for n := 1; n <= limit; n++ {
		if New(n, c.precision).FitsMemory(gpu, model, w.Concurrency, w.ContextWindow()) {
			return n, nil
		}
	}
	return 0, domain.ErrNoFit
}

var _ domain.Estimator = (*Calculator)(nil)
