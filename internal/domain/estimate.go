package domain

// ─── Estimation Results ─────────────────────────────────────────────────────

// MemoryEstimate is the per-model memory figure for one workload.
type MemoryEstimate struct {
	Model         ModelSpec `json:"model"`
	KVPerTokenGiB float64   `json:"kv_cache_gib_per_token"`
	WeightsGB     float64   `json:"weights_gb"`
	FootprintGB   float64   `json:"memory_footprint_gb"`
}

// Estimate is the result for one model on one GPU type.
type Estimate struct {
	Model       ModelSpec          `json:"model"`
	GPU         GPUSpec            `json:"gpu"`
	Fits        bool               `json:"fits"`
	FootprintGB float64            `json:"memory_footprint_gb"`
	AvailableGB float64            `json:"available_gb"`
	Metrics     PerformanceMetrics `json:"metrics"`
}
