package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"testing"
)

// ─── Descriptor Tests ───────────────────────────────────────────────────────

func TestModelSpec_HeadDim(t *testing.T) {
	tests := []struct {
		name  string
		model ModelSpec
		want  float64
	}{
		{"llama 7b", ModelSpec{DModel: 4096, NHeads: 32}, 128},
		{"gemma 2b", ModelSpec{DModel: 2304, NHeads: 8}, 288},
		{"fractional head dim", ModelSpec{DModel: 100, NHeads: 3}, 100.0 / 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.model.HeadDim(); got != tt.want {
				t.Errorf("HeadDim() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModelSpec_HeadDim_ZeroHeads(t *testing.T) {
	m := ModelSpec{DModel: 4096}
	if got := m.HeadDim(); !math.IsInf(got, 1) {
		t.Errorf("HeadDim() with zero heads = %v, want +Inf", got)
	}
}

func TestModelSpec_GQA(t *testing.T) {
	if !(ModelSpec{NHeads: 64, NKVHeads: 8}).GQA() {
		t.Error("64/8 heads should be GQA")
	}
	if (ModelSpec{NHeads: 32, NKVHeads: 32}).GQA() {
		t.Error("32/32 heads should not be GQA")
	}
}

func TestPrecisionFromBits(t *testing.T) {
	tests := []struct {
		bits int
		want float64
	}{
		{16, 2.0},
		{8, 1.0},
		{4, 0.5},
	}
	for _, tt := range tests {
		p := PrecisionFromBits(tt.bits, 1.0)
		if p.WeightBytes != tt.want {
			t.Errorf("PrecisionFromBits(%d).WeightBytes = %v, want %v", tt.bits, p.WeightBytes, tt.want)
		}
		if p.KVBytes != 1.0 {
			t.Errorf("PrecisionFromBits(%d).KVBytes = %v, want 1.0", tt.bits, p.KVBytes)
		}
	}
}

func TestDefaults(t *testing.T) {
	p := DefaultPrecision()
	if p.WeightBytes != 2.0 || p.KVBytes != 2.0 {
		t.Errorf("DefaultPrecision() = %+v, want 2/2", p)
	}

	w := DefaultWorkload()
	if w.ContextWindow() != 4352 {
		t.Errorf("ContextWindow() = %d, want 4352", w.ContextWindow())
	}
	if w.Concurrency != 10 {
		t.Errorf("Concurrency = %d, want 10", w.Concurrency)
	}
}

func TestGPUSpec_Label(t *testing.T) {
	g := GPUSpec{Name: "L40s", MemoryGB: 48}
	if got := g.Label(); got != "L40s (48GB)" {
		t.Errorf("Label() = %q, want %q", got, "L40s (48GB)")
	}
}

// ─── Metric Tests ───────────────────────────────────────────────────────────

func TestMetric_Value(t *testing.T) {
	m := Value(46.5)
	v, ok := m.Float64()
	if !ok || v != 46.5 {
		t.Errorf("Float64() = (%v, %v), want (46.5, true)", v, ok)
	}
	if m.IsOOM() {
		t.Error("Value should not be OOM")
	}
	if m.String() != "46.5" {
		t.Errorf("String() = %q, want %q", m.String(), "46.5")
	}
}

func TestMetric_NotComputable(t *testing.T) {
	m := NotComputable()
	if _, ok := m.Float64(); ok {
		t.Error("NotComputable().Float64() ok = true, want false")
	}
	if !m.IsOOM() {
		t.Error("NotComputable() should be OOM")
	}
	if m.String() != OOMText {
		t.Errorf("String() = %q, want %q", m.String(), OOMText)
	}

	var zero Metric
	if !zero.IsOOM() {
		t.Error("zero Metric should be OOM")
	}
}

func TestMetric_ValueZeroIsNotOOM(t *testing.T) {
	if Value(0).IsOOM() {
		t.Error("Value(0) should be computable")
	}
}

func TestMetric_JSON(t *testing.T) {
	in := PerformanceMetrics{
		KVCacheTokens:          1024,
		PrefillTimePerTokenMs:  Value(0.25),
		TPOTMs:                 Value(40),
		TTFTSeconds:            Value(1.5),
		E2ELatencySeconds:      Value(11.5),
		ThroughputTokensPerSec: NotComputable(),
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal raw: %v", err)
	}
	if raw["throughput_tokens_per_s"] != "OOM" {
		t.Errorf("throughput_tokens_per_s = %v, want \"OOM\"", raw["throughput_tokens_per_s"])
	}
	if raw["tpot_ms"] != float64(40) {
		t.Errorf("tpot_ms = %v, want 40", raw["tpot_ms"])
	}

	var out PerformanceMetrics
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if out != in {
		t.Errorf("decoded = %+v, want %+v", out, in)
	}
}

func TestMetric_Format(t *testing.T) {
	ms := func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) + " ms" }
	if got := Value(46.6667).Format(ms); got != "46.667 ms" {
		t.Errorf("Format() = %q, want %q", got, "46.667 ms")
	}
	if got := NotComputable().Format(ms); got != OOMText {
		t.Errorf("Format() = %q, want %q", got, OOMText)
	}
}

func TestMetric_MarshalInfinity(t *testing.T) {
	data, err := json.Marshal(Value(math.Inf(1)))
	if err != nil {
		t.Fatalf("Marshal(+Inf) error: %v", err)
	}
	if string(data) != `"OOM"` {
		t.Errorf("Marshal(+Inf) = %s, want \"OOM\"", data)
	}
}

func TestMetric_UnmarshalRejectsOtherStrings(t *testing.T) {
	var m Metric
	if err := json.Unmarshal([]byte(`"fast"`), &m); err == nil {
		t.Error("expected error for non-OOM string")
	}
}

func TestPerformanceMetrics_Computable(t *testing.T) {
	p := PerformanceMetrics{PrefillTimePerTokenMs: Value(1), TPOTMs: Value(2)}
	if !p.Computable() {
		t.Error("Computable() = false, want true")
	}
	p.TPOTMs = NotComputable()
	if p.Computable() {
		t.Error("Computable() = true, want false")
	}
}
