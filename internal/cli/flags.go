package cli

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tutu-network/gpusizer/internal/daemon"
	"github.com/tutu-network/gpusizer/internal/domain"
	"github.com/tutu-network/gpusizer/internal/infra/catalog"
)

// sizingFlags are shared by every command that evaluates a grid.
type sizingFlags struct {
	numGPU      int
	prompt      int
	response    int
	concurrency int
	weightBytes float64
	kvBytes     float64
	modelsFile  string
	gpusFile    string
	models      string
	gpus        string
	workers     int
}

func (f *sizingFlags) register(cmd *cobra.Command) {
	d := daemon.DefaultConfig()
	fs := cmd.Flags()
	fs.IntVarP(&f.numGPU, "num-gpu", "g", d.Defaults.NumGPU, "Number of GPUs the model is sharded across")
	fs.IntVarP(&f.prompt, "prompt", "p", d.Defaults.Prompt, "Prompt size in tokens")
	fs.IntVarP(&f.response, "response", "r", d.Defaults.Response, "Response size in tokens")
	fs.IntVarP(&f.concurrency, "concurrency", "c", d.Defaults.Concurrency, "Concurrent requests")
	fs.Float64Var(&f.weightBytes, "weight-bytes", d.Defaults.WeightBytes, "Bytes per model parameter (2=FP16, 1=FP8, 0.5=INT4)")
	fs.Float64Var(&f.kvBytes, "kv-bytes", d.Defaults.KVBytes, "Bytes per KV cache element (2=FP16, 1=FP8)")
	fs.StringVar(&f.modelsFile, "models-json", "", "Replace the model catalog with a JSON, YAML or TOML file")
	fs.StringVar(&f.gpusFile, "gpus-json", "", "Replace the GPU catalog with a JSON, YAML or TOML file")
	fs.StringVar(&f.models, "models", "", "Comma-separated model names to include (exact match)")
	fs.StringVar(&f.gpus, "gpus", "", "Comma-separated GPU names to include (exact match)")
	fs.IntVar(&f.workers, "workers", d.Sweep.Workers, "Grid cells evaluated concurrently")
}

// applyConfig fills every flag the user did not set from the config file.
func (f *sizingFlags) applyConfig(cmd *cobra.Command, cfg daemon.Config) {
	fs := cmd.Flags()
	if !fs.Changed("num-gpu") {
		f.numGPU = cfg.Defaults.NumGPU
	}
	if !fs.Changed("prompt") {
		f.prompt = cfg.Defaults.Prompt
	}
	if !fs.Changed("response") {
		f.response = cfg.Defaults.Response
	}
	if !fs.Changed("concurrency") {
		f.concurrency = cfg.Defaults.Concurrency
	}
	if !fs.Changed("weight-bytes") {
		f.weightBytes = cfg.Defaults.WeightBytes
	}
	if !fs.Changed("kv-bytes") {
		f.kvBytes = cfg.Defaults.KVBytes
	}
	if !fs.Changed("models-json") {
		f.modelsFile = cfg.Catalog.ModelsFile
	}
	if !fs.Changed("gpus-json") {
		f.gpusFile = cfg.Catalog.GPUsFile
	}
	if !fs.Changed("models") && len(cfg.Defaults.Models) > 0 {
		f.models = strings.Join(cfg.Defaults.Models, ",")
	}
	if !fs.Changed("gpus") && len(cfg.Defaults.GPUs) > 0 {
		f.gpus = strings.Join(cfg.Defaults.GPUs, ",")
	}
	if !fs.Changed("workers") {
		f.workers = cfg.Sweep.Workers
	}
}

func (f *sizingFlags) workload() domain.Workload {
	return domain.Workload{PromptTokens: f.prompt, ResponseTokens: f.response, Concurrency: f.concurrency}
}

func (f *sizingFlags) precision() domain.PrecisionSpec {
	return domain.PrecisionSpec{WeightBytes: f.weightBytes, KVBytes: f.kvBytes}
}

// selection loads the catalog and applies the --models/--gpus filters.
// Unknown names are skipped with a warning.
func (f *sizingFlags) selection(log logrus.FieldLogger) ([]domain.ModelSpec, []domain.GPUSpec, error) {
	cat, err := catalog.Load(f.modelsFile, f.gpusFile)
	if err != nil {
		return nil, nil, err
	}

	modelNames := splitNames(f.models)
	for _, n := range modelNames {
		if _, err := cat.Model(n); err != nil {
			log.Warnf("skipping %v", err)
		}
	}
	gpuNames := splitNames(f.gpus)
	for _, n := range gpuNames {
		if _, err := cat.GPU(n); err != nil {
			log.Warnf("skipping %v", err)
		}
	}
	return cat.FilterModels(modelNames), cat.FilterGPUs(gpuNames), nil
}

// splitNames parses a comma-separated list, dropping blanks and duplicates.
func splitNames(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// sortedKeys returns map keys in lexical order.
func sortedKeys(m logrus.Fields) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
