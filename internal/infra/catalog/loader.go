package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/tutu-network/gpusizer/internal/domain"
)

// DefaultMaxContextWindow is used when a model record omits max_context_window.
const DefaultMaxContextWindow = 8192

// ─── File Loading ───────────────────────────────────────────────────────────
// Files hold either a top-level list of records or a table keyed by
// "models" / "gpus" (TOML always needs the key). Numeric fields may be
// numbers or numeric strings; nothing beyond type coercion is validated.

// LoadModels reads model descriptors from a .json, .toml, .yaml or .yml file.
func LoadModels(path string) ([]domain.ModelSpec, error) {
	records, err := readRecords(path, "models")
	if err != nil {
		return nil, err
	}
	models := make([]domain.ModelSpec, 0, len(records))
	for i, r := range records {
		m, err := modelFromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("%s: model %d: %w", path, i, err)
		}
		models = append(models, m)
	}
	return models, nil
}

// LoadGPUs reads GPU descriptors from a .json, .toml, .yaml or .yml file.
func LoadGPUs(path string) ([]domain.GPUSpec, error) {
	records, err := readRecords(path, "gpus")
	if err != nil {
		return nil, err
	}
	gpus := make([]domain.GPUSpec, 0, len(records))
	for i, r := range records {
		g, err := gpuFromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("%s: gpu %d: %w", path, i, err)
		}
		gpus = append(gpus, g)
	}
	return gpus, nil
}

type record = map[string]any

func readRecords(path, key string) ([]record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var doc any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &doc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	case ".toml":
		var table map[string]any
		err = toml.Unmarshal(data, &table)
		doc = table
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if table, ok := doc.(map[string]any); ok {
		doc = table[key]
	}
	return toRecords(doc, key)
}

func toRecords(doc any, key string) ([]record, error) {
	switch list := doc.(type) {
	case []any:
		out := make([]record, 0, len(list))
		for i, item := range list {
			r, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s entry %d is %T, want a table", key, i, item)
			}
			out = append(out, r)
		}
		return out, nil
	case []map[string]any:
		return list, nil
	case nil:
		return nil, fmt.Errorf("no %q entries: %w", key, domain.ErrEmptyCatalog)
	default:
		return nil, fmt.Errorf("%q is %T, want a list", key, doc)
	}
}

func modelFromRecord(r record) (domain.ModelSpec, error) {
	var (
		m   domain.ModelSpec
		err error
	)
	if m.Name, err = stringField(r, "name"); err != nil {
		return m, err
	}
	if m.ParamsBillion, err = floatField(r, "params_billion"); err != nil {
		return m, err
	}
	if m.DModel, err = intField(r, "d_model"); err != nil {
		return m, err
	}
	if m.NHeads, err = intField(r, "n_heads"); err != nil {
		return m, err
	}
	if m.NKVHeads, err = intField(r, "n_kv_heads"); err != nil {
		return m, err
	}
	if m.NLayers, err = intField(r, "n_layers"); err != nil {
		return m, err
	}
	m.MaxContextWindow = DefaultMaxContextWindow
	if _, ok := r["max_context_window"]; ok {
		if m.MaxContextWindow, err = intField(r, "max_context_window"); err != nil {
			return m, err
		}
	}

	m.Hub, _ = optionalString(r, "hub")
	m.Provider, _ = optionalString(r, "provider")
	m.ModelType, _ = optionalString(r, "model_type")
	if _, ok := r["size_gb"]; ok {
		if m.SizeGB, err = floatField(r, "size_gb"); err != nil {
			return m, err
		}
	}
	return m, nil
}

func gpuFromRecord(r record) (domain.GPUSpec, error) {
	var (
		g   domain.GPUSpec
		err error
	)
	if g.Name, err = stringField(r, "name"); err != nil {
		return g, err
	}
	if g.FP16TFLOPS, err = floatField(r, "fp16_tflops"); err != nil {
		return g, err
	}
	if g.MemoryGB, err = floatField(r, "memory_gb"); err != nil {
		return g, err
	}
	if g.MemoryBandwidthGBps, err = floatField(r, "memory_bandwidth_gbps"); err != nil {
		return g, err
	}
	return g, nil
}

// ─── Coercion ───────────────────────────────────────────────────────────────

func stringField(r record, key string) (string, error) {
	v, ok := r[key]
	if !ok {
		return "", fmt.Errorf("missing field %q", key)
	}
	switch s := v.(type) {
	case string:
		return s, nil
	default:
		return fmt.Sprint(s), nil
	}
}

func optionalString(r record, key string) (string, bool) {
	if _, ok := r[key]; !ok {
		return "", false
	}
	s, _ := stringField(r, key)
	return s, true
}

func floatField(r record, key string) (float64, error) {
	v, ok := r[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return f, nil
}

func intField(r record, key string) (int, error) {
	v, ok := r[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	n, err := toInt(v)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return n, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to a number", v)
	}
}

// toInt truncates floats toward zero and parses integer strings.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		return int(math.Trunc(n)), nil
	case float32:
		return int(math.Trunc(float64(n))), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("cannot convert %T to an integer", v)
	}
}
