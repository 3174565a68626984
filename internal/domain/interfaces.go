package domain

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// The sizing engine implements Estimator; sweeps and the API depend on it.

// Estimator computes memory and latency figures for one configuration.
type Estimator interface {
	KVCacheSizePerToken(model ModelSpec) float64
	WeightsMemory(model ModelSpec) float64
	TotalMemoryFootprint(model ModelSpec, nConcurrent, contextWindow int) float64
	AvailableMemory(gpu GPUSpec) float64
	MaxKVTokens(gpu GPUSpec, model ModelSpec) int
	FitsMemory(gpu GPUSpec, model ModelSpec, nConcurrent, contextWindow int) bool
	ComputeMetrics(model ModelSpec, gpu GPUSpec, promptTokens, responseTokens int) PerformanceMetrics
}
