package catalog

import (
	"errors"
	"testing"

	"github.com/tutu-network/gpusizer/internal/domain"
)

func TestDefaultCatalogNotEmpty(t *testing.T) {
	c := Default()
	if len(c.Models) != 50 {
		t.Errorf("len(Models) = %d, want 50", len(c.Models))
	}
	if len(c.GPUs) != 6 {
		t.Errorf("len(GPUs) = %d, want 6", len(c.GPUs))
	}
}

func TestDefaultReturnsCopy(t *testing.T) {
	a := Default()
	a.Models[0].Name = "mutated"
	a.GPUs = a.GPUs[:1]

	b := Default()
	if b.Models[0].Name == "mutated" {
		t.Error("Default() shares model storage between calls")
	}
	if len(b.GPUs) != 6 {
		t.Errorf("len(GPUs) = %d after caller truncated a copy, want 6", len(b.GPUs))
	}
}

func TestAllModelsHaveArchitecture(t *testing.T) {
	for _, m := range Default().Models {
		if m.ParamsBillion <= 0 {
			t.Errorf("model %q has params_billion %v", m.Name, m.ParamsBillion)
		}
		if m.DModel <= 0 || m.NHeads <= 0 || m.NLayers <= 0 {
			t.Errorf("model %q has empty architecture: %+v", m.Name, m)
		}
		if m.NKVHeads <= 0 || m.NKVHeads > m.NHeads {
			t.Errorf("model %q n_kv_heads = %d, n_heads = %d", m.Name, m.NKVHeads, m.NHeads)
		}
		if m.MaxContextWindow <= 0 {
			t.Errorf("model %q has zero max_context_window", m.Name)
		}
		if m.Provider == "" {
			t.Errorf("model %q has empty provider", m.Name)
		}
	}
}

func TestAllGPUsHaveSpecs(t *testing.T) {
	for _, g := range Default().GPUs {
		if g.FP16TFLOPS <= 0 || g.MemoryGB <= 0 || g.MemoryBandwidthGBps <= 0 {
			t.Errorf("gpu %q has empty specs: %+v", g.Name, g)
		}
	}
}

func TestLookupModel(t *testing.T) {
	tests := []struct {
		name       string
		wantParams float64
		wantKV     int
	}{
		{"meta-llama/Llama-3.3-70B-Instruct", 70, 8},
		{"google/gemma-2-9b-it", 9.24, 8},
		{"gpt-oss-20b", 20, 48},
		{"meta-llama/CodeLlama-7b-Instruct-hf", 7, 32},
	}

	c := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := c.Model(tt.name)
			if err != nil {
				t.Fatalf("Model(%q) error: %v", tt.name, err)
			}
			if m.ParamsBillion != tt.wantParams {
				t.Errorf("ParamsBillion = %v, want %v", m.ParamsBillion, tt.wantParams)
			}
			if m.NKVHeads != tt.wantKV {
				t.Errorf("NKVHeads = %d, want %d", m.NKVHeads, tt.wantKV)
			}
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	c := Default()
	if _, err := c.Model("nonexistent-model"); !errors.Is(err, domain.ErrModelNotFound) {
		t.Errorf("Model(nonexistent) error = %v, want ErrModelNotFound", err)
	}
	if _, err := c.GPU("TPU v9"); !errors.Is(err, domain.ErrGPUNotFound) {
		t.Errorf("GPU(nonexistent) error = %v, want ErrGPUNotFound", err)
	}
}

func TestLookupGPU(t *testing.T) {
	g, err := Default().GPU("L4")
	if err != nil {
		t.Fatalf("GPU(L4) error: %v", err)
	}
	want := domain.GPUSpec{Name: "L4", FP16TFLOPS: 121, MemoryGB: 24, MemoryBandwidthGBps: 300}
	if g != want {
		t.Errorf("GPU(L4) = %+v, want %+v", g, want)
	}
}

func TestFilterGPUs_PreservesCatalogOrder(t *testing.T) {
	got := Default().FilterGPUs([]string{"MI300X", "L4", "not-a-gpu"})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != "L4" || got[1].Name != "MI300X" {
		t.Errorf("order = [%s %s], want [L4 MI300X]", got[0].Name, got[1].Name)
	}
}

func TestFilterModels_EmptyMeansAll(t *testing.T) {
	c := Default()
	if got := c.FilterModels(nil); len(got) != len(c.Models) {
		t.Errorf("FilterModels(nil) len = %d, want %d", len(got), len(c.Models))
	}
	if got := c.FilterModels([]string{"gpt-oss-20b"}); len(got) != 1 || got[0].Name != "gpt-oss-20b" {
		t.Errorf("FilterModels(gpt-oss-20b) = %v", got)
	}
}

func TestGPUsByMemory(t *testing.T) {
	c := &Catalog{GPUs: []domain.GPUSpec{
		{Name: "big", MemoryGB: 192},
		{Name: "small", MemoryGB: 24},
		{Name: "mid", MemoryGB: 96},
	}}
	got := c.GPUsByMemory()
	for i, want := range []string{"small", "mid", "big"} {
		if got[i].Name != want {
			t.Errorf("GPUsByMemory()[%d] = %q, want %q", i, got[i].Name, want)
		}
	}
	if c.GPUs[0].Name != "big" {
		t.Error("GPUsByMemory() reordered the catalog in place")
	}
}

func TestModelsByProvider(t *testing.T) {
	c := &Catalog{Models: []domain.ModelSpec{
		{Name: "zeta", Provider: "Meta"},
		{Name: "alpha", Provider: "Meta"},
		{Name: "gpt-x"},
		{Name: "gemma", Provider: "Google"},
	}}
	groups := c.ModelsByProvider()
	if len(groups) != 3 {
		t.Fatalf("len(groups) = %d, want 3", len(groups))
	}

	wantProviders := []string{"Google", "Meta", "OpenAI"}
	for i, want := range wantProviders {
		if groups[i].Provider != want {
			t.Errorf("groups[%d].Provider = %q, want %q", i, groups[i].Provider, want)
		}
	}
	if groups[1].Models[0].Name != "alpha" || groups[1].Models[1].Name != "zeta" {
		t.Errorf("Meta models not sorted by name: %v", groups[1].Models)
	}
}
