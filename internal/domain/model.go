// Package domain contains pure sizing types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture: it depends on nothing.
package domain

import "fmt"

// ─── Descriptor Types ───────────────────────────────────────────────────────

// ModelSpec describes a transformer architecture.
// The per-head dimension is derived as DModel / NHeads and is not required
// to be integral.
type ModelSpec struct {
	Name             string  `json:"name" toml:"name" yaml:"name"`
	ParamsBillion    float64 `json:"params_billion" toml:"params_billion" yaml:"params_billion"`
	DModel           int     `json:"d_model" toml:"d_model" yaml:"d_model"`
	NHeads           int     `json:"n_heads" toml:"n_heads" yaml:"n_heads"`
	NKVHeads         int     `json:"n_kv_heads" toml:"n_kv_heads" yaml:"n_kv_heads"`
	NLayers          int     `json:"n_layers" toml:"n_layers" yaml:"n_layers"`
	MaxContextWindow int     `json:"max_context_window" toml:"max_context_window" yaml:"max_context_window"`

	// Catalog metadata, not used by the estimation formulas.
	Hub       string  `json:"hub,omitempty" toml:"hub" yaml:"hub,omitempty"`
	Provider  string  `json:"provider,omitempty" toml:"provider" yaml:"provider,omitempty"`
	ModelType string  `json:"model_type,omitempty" toml:"model_type" yaml:"model_type,omitempty"`
	SizeGB    float64 `json:"size_gb,omitempty" toml:"size_gb" yaml:"size_gb,omitempty"`
}

// HeadDim returns d_model / n_heads. Zero heads yields +Inf or NaN, the
// same as the underlying float division.
func (m ModelSpec) HeadDim() float64 {
	return float64(m.DModel) / float64(m.NHeads)
}

// GQA reports whether the model shares KV heads across query heads.
func (m ModelSpec) GQA() bool {
	return m.NKVHeads > 0 && m.NKVHeads < m.NHeads
}

// GPUSpec describes one accelerator.
type GPUSpec struct {
	Name                string  `json:"name" toml:"name" yaml:"name"`
	FP16TFLOPS          float64 `json:"fp16_tflops" toml:"fp16_tflops" yaml:"fp16_tflops"`
	MemoryGB            float64 `json:"memory_gb" toml:"memory_gb" yaml:"memory_gb"`
	MemoryBandwidthGBps float64 `json:"memory_bandwidth_gbps" toml:"memory_bandwidth_gbps" yaml:"memory_bandwidth_gbps"`
}

// Label formats the GPU for selection lists, e.g. "L4 (24GB)".
func (g GPUSpec) Label() string {
	return fmt.Sprintf("%s (%gGB)", g.Name, g.MemoryGB)
}

// PrecisionSpec holds bytes per weight parameter and per KV cache element.
// Both may be fractional (0.5 = INT4).
type PrecisionSpec struct {
	WeightBytes float64 `json:"weight_bytes" toml:"weight_bytes" yaml:"weight_bytes"`
	KVBytes     float64 `json:"kv_bytes" toml:"kv_bytes" yaml:"kv_bytes"`
}

// DefaultPrecision returns FP16 weights and FP16 KV cache.
func DefaultPrecision() PrecisionSpec {
	return PrecisionSpec{WeightBytes: 2.0, KVBytes: 2.0}
}

// PrecisionFromBits converts a weight bit width (16, 8, 4) to a PrecisionSpec.
func PrecisionFromBits(weightBits int, kvBytes float64) PrecisionSpec {
	return PrecisionSpec{WeightBytes: float64(weightBits) / 8.0, KVBytes: kvBytes}
}

// ─── Workload ───────────────────────────────────────────────────────────────

// Workload is the request shape supplied per estimation.
type Workload struct {
	PromptTokens   int `json:"prompt_tokens"`
	ResponseTokens int `json:"response_tokens"`
	Concurrency    int `json:"concurrency"`
}

// DefaultWorkload returns 4096 prompt tokens, 256 response tokens, 10 requests.
func DefaultWorkload() Workload {
	return Workload{PromptTokens: 4096, ResponseTokens: 256, Concurrency: 10}
}

// ContextWindow returns prompt + response tokens.
func (w Workload) ContextWindow() int {
	return w.PromptTokens + w.ResponseTokens
}
