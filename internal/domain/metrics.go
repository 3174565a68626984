package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// OOMText is how a non-computable metric is rendered.
const OOMText = "OOM"

// ─── Metric ─────────────────────────────────────────────────────────────────

// Metric is either a finite number or the "not computable" marker, never
// both. The zero value is not computable.
type Metric struct {
	v  float64
	ok bool
}

// Value wraps a computed number.
func Value(v float64) Metric { return Metric{v: v, ok: true} }

// NotComputable returns the OOM marker.
func NotComputable() Metric { return Metric{} }

// Float64 returns the number and true, or 0 and false for the OOM marker.
func (m Metric) Float64() (float64, bool) { return m.v, m.ok }

// IsOOM reports whether the metric carries the OOM marker.
func (m Metric) IsOOM() bool { return !m.ok }

// Format renders the value with format, or returns OOMText.
func (m Metric) Format(format func(float64) string) string {
	if !m.ok {
		return OOMText
	}
	return format(m.v)
}

// String implements fmt.Stringer.
func (m Metric) String() string {
	return m.Format(func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) })
}

// MarshalJSON encodes a number, or the string "OOM". JSON has no infinity,
// so non-finite values are encoded as "OOM" too.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.ok || math.IsInf(m.v, 0) || math.IsNaN(m.v) {
		return json.Marshal(OOMText)
	}
	return json.Marshal(m.v)
}

// UnmarshalJSON accepts a number or the string "OOM".
func (m *Metric) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != OOMText {
			return fmt.Errorf("metric: unexpected string %q", s)
		}
		*m = NotComputable()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Value(v)
	return nil
}

// ─── Performance Metrics ────────────────────────────────────────────────────

// PerformanceMetrics is the result of one estimation.
type PerformanceMetrics struct {
	KVCacheTokens          int    `json:"kv_cache_tokens"`
	PrefillTimePerTokenMs  Metric `json:"prefill_time_per_token_ms"`
	TPOTMs                 Metric `json:"tpot_ms"`
	TTFTSeconds            Metric `json:"ttft_s"`
	E2ELatencySeconds      Metric `json:"e2e_latency_s"`
	ThroughputTokensPerSec Metric `json:"throughput_tokens_per_s"`
}

// Computable reports whether prefill and decode timings were computed.
func (p PerformanceMetrics) Computable() bool {
	return !p.PrefillTimePerTokenMs.IsOOM() && !p.TPOTMs.IsOOM()
}
