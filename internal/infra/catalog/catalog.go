// Package catalog provides the built-in model and GPU descriptors and loads
// replacement sets from JSON, TOML or YAML files.
//
// The built-in tables are plain data embedded from data/*.toml; the
// estimation engine never depends on which catalog supplied a descriptor.
package catalog

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/tutu-network/gpusizer/internal/domain"
)

//go:embed data/models.toml data/gpus.toml
var builtin embed.FS

// Catalog is an ordered set of models and GPUs.
type Catalog struct {
	Models []domain.ModelSpec `toml:"models"`
	GPUs   []domain.GPUSpec   `toml:"gpus"`
}

var loadDefault = sync.OnceValue(func() *Catalog {
	c := &Catalog{}
	for _, name := range []string{"data/models.toml", "data/gpus.toml"} {
		data, err := builtin.ReadFile(name)
		if err != nil {
			panic(fmt.Sprintf("catalog: read embedded %s: %v", name, err))
		}
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(c); err != nil {
			panic(fmt.Sprintf("catalog: decode embedded %s: %v", name, err))
		}
	}
	return c
})

// Default returns a copy of the built-in catalog.
func Default() *Catalog {
	c := loadDefault()
	return &Catalog{
		Models: append([]domain.ModelSpec(nil), c.Models...),
		GPUs:   append([]domain.GPUSpec(nil), c.GPUs...),
	}
}

// Load returns the built-in catalog with its models and/or GPUs replaced by
// the contents of the given files. Empty paths keep the built-in entries.
func Load(modelsPath, gpusPath string) (*Catalog, error) {
	c := Default()
	if modelsPath != "" {
		models, err := LoadModels(modelsPath)
		if err != nil {
			return nil, err
		}
		c.Models = models
	}
	if gpusPath != "" {
		gpus, err := LoadGPUs(gpusPath)
		if err != nil {
			return nil, err
		}
		c.GPUs = gpus
	}
	return c, nil
}

// ─── Lookup ─────────────────────────────────────────────────────────────────

// Model finds a model by exact name.
func (c *Catalog) Model(name string) (domain.ModelSpec, error) {
	for _, m := range c.Models {
		if m.Name == name {
			return m, nil
		}
	}
	return domain.ModelSpec{}, fmt.Errorf("%w: %q", domain.ErrModelNotFound, name)
}

// GPU finds a GPU by exact name.
func (c *Catalog) GPU(name string) (domain.GPUSpec, error) {
	for _, g := range c.GPUs {
		if g.Name == name {
			return g, nil
		}
	}
	return domain.GPUSpec{}, fmt.Errorf("%w: %q", domain.ErrGPUNotFound, name)
}

// FilterModels returns the models whose names are listed, in catalog order.
// Unknown names are ignored. An empty list returns every model.
func (c *Catalog) FilterModels(names []string) []domain.ModelSpec {
	if len(names) == 0 {
		return append([]domain.ModelSpec(nil), c.Models...)
	}
	want := nameSet(names)
	var out []domain.ModelSpec
	for _, m := range c.Models {
		if want[m.Name] {
			out = append(out, m)
		}
	}
	return out
}

// FilterGPUs returns the GPUs whose names are listed, in catalog order.
// Unknown names are ignored. An empty list returns every GPU.
func (c *Catalog) FilterGPUs(names []string) []domain.GPUSpec {
	if len(names) == 0 {
		return append([]domain.GPUSpec(nil), c.GPUs...)
	}
	want := nameSet(names)
	var out []domain.GPUSpec
	for _, g := range c.GPUs {
		if want[g.Name] {
			out = append(out, g)
		}
	}
	return out
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// ─── Grouping ───────────────────────────────────────────────────────────────

// defaultProvider is used for models without provider metadata.
const defaultProvider = "OpenAI"

// ProviderGroup is the set of models published by one provider.
type ProviderGroup struct {
	Provider string
	Models   []domain.ModelSpec
}

// ModelsByProvider groups models by provider. Groups are sorted by provider
// name and models within a group by model name.
func (c *Catalog) ModelsByProvider() []ProviderGroup {
	byProvider := make(map[string][]domain.ModelSpec)
	for _, m := range c.Models {
		p := m.Provider
		if p == "" {
			p = defaultProvider
		}
		byProvider[p] = append(byProvider[p], m)
	}

	groups := make([]ProviderGroup, 0, len(byProvider))
	for p, models := range byProvider {
		sort.SliceStable(models, func(i, j int) bool { return models[i].Name < models[j].Name })
		groups = append(groups, ProviderGroup{Provider: p, Models: models})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Provider < groups[j].Provider })
	return groups
}

// GPUsByMemory returns the GPUs sorted by ascending memory.
func (c *Catalog) GPUsByMemory() []domain.GPUSpec {
	out := append([]domain.GPUSpec(nil), c.GPUs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MemoryGB < out[j].MemoryGB })
	return out
}
