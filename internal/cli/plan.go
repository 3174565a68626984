package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tutu-network/gpusizer/internal/app/sizing"
	"github.com/tutu-network/gpusizer/internal/domain"
)

type planOptions struct {
	sizing  sizingFlags
	maxGPUs int
}

func newPlanCmd(root *rootOptions) *cobra.Command {
	o := &planOptions{}
	cmd := &cobra.Command{
		Use:   "plan MODEL",
		Short: "Find the fewest GPUs of each type that fit a model",
		Long: `For every selected GPU type, find the smallest device count at which the
model's weights plus KV cache for the workload fit in memory, and report
the metrics at that count.`,
		Example: `  gpusizer plan meta-llama/Llama-3.3-70B-Instruct -c 32
  gpusizer plan gpt-oss-120b --gpus L40s --max-gpus 16`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, root, args[0])
		},
	}
	o.sizing.register(cmd)
	cmd.Flags().IntVar(&o.maxGPUs, "max-gpus", 8, "Largest device count to try")
	return cmd
}

// planRow is the outcome for one GPU type.
type planRow struct {
	GPU     domain.GPUSpec
	NumGPU  int
	Fits    bool
	Metrics domain.PerformanceMetrics
}

func planModel(model domain.ModelSpec, gpus []domain.GPUSpec, precision domain.PrecisionSpec, w domain.Workload, limit int) ([]planRow, error) {
	probe := sizing.New(1, precision)
	rows := make([]planRow, 0, len(gpus))
	for _, g := range gpus {
		n, err := probe.MinGPUs(g, model, w, limit)
		switch {
		case errors.Is(err, domain.ErrNoFit):
			rows = append(rows, planRow{GPU: g})
		case err != nil:
			return nil, err
		default:
			calc := sizing.New(n, precision)
			rows = append(rows, planRow{
				GPU:     g,
				NumGPU:  n,
				Fits:    true,
				Metrics: calc.ComputeMetrics(model, g, w.PromptTokens, w.ResponseTokens),
			})
		}
	}
	return rows, nil
}

func (o *planOptions) run(cmd *cobra.Command, root *rootOptions, modelName string) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	log := root.logger(cmd.ErrOrStderr())
	o.sizing.applyConfig(cmd, cfg)
	// The positional model replaces any configured model filter.
	o.sizing.models = modelName

	models, gpus, err := o.sizing.selection(log)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		return fmt.Errorf("%w: %q", domain.ErrModelNotFound, modelName)
	}

	w := o.sizing.workload()
	rows, err := planModel(models[0], gpus, o.sizing.precision(), w, o.maxGPUs)
	if err != nil {
		return err
	}
	return printPlan(cmd.OutOrStdout(), models[0], w, o.maxGPUs, rows)
}

func printPlan(w io.Writer, model domain.ModelSpec, wl domain.Workload, limit int, rows []planRow) error {
	fmt.Fprintln(w, color.CyanString("%s: %d concurrent x %d tokens", model.Name, wl.Concurrency, wl.ContextWindow()))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GPU\tMIN GPUS\tMAX KV TOKENS\tTTFT\tTHROUGHPUT")
	for _, r := range rows {
		if !r.Fits {
			fmt.Fprintf(tw, "%s\t> %d\t-\t-\t-\n", r.GPU.Label(), limit)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n",
			r.GPU.Label(), r.NumGPU, r.Metrics.KVCacheTokens,
			r.Metrics.TTFTSeconds.Format(func(v float64) string { return fmt.Sprintf("%.3f s", v) }),
			r.Metrics.ThroughputTokensPerSec.Format(func(v float64) string { return fmt.Sprintf("%.2f tokens/sec", v) }))
	}
	return tw.Flush()
}
