package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tutu-network/gpusizer/internal/app/sizing"
	"github.com/tutu-network/gpusizer/internal/app/sweep"
	"github.com/tutu-network/gpusizer/internal/domain"
	"github.com/tutu-network/gpusizer/internal/infra/dsa"
)

// Ranking criteria for --by.
const (
	rankByThroughput = "throughput"
	rankByLatency    = "latency"
	rankByTTFT       = "ttft"
)

type rankOptions struct {
	sizing sizingFlags
	top    int
	by     string
}

func newRankCmd(root *rootOptions) *cobra.Command {
	o := &rankOptions{}
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank fitting model x GPU configurations",
		Long: `Evaluate the selected grid and list the best configurations that fit in
GPU memory. Configurations whose timings are not computable are skipped.`,
		Example: `  gpusizer rank --top 5
  gpusizer rank --by ttft --models gpt-oss-20b,gpt-oss-120b -g 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, root)
		},
	}
	o.sizing.register(cmd)
	cmd.Flags().IntVar(&o.top, "top", 10, "Number of configurations to list")
	cmd.Flags().StringVar(&o.by, "by", rankByThroughput, "Ranking criterion: throughput, latency or ttft")
	return cmd
}

// score returns the ranking key (higher is better) and whether the
// estimate can be ranked at all.
func score(e domain.Estimate, by string) (float64, bool, error) {
	if !e.Fits || !e.Metrics.Computable() {
		return 0, false, nil
	}
	switch by {
	case rankByThroughput:
		v, ok := e.Metrics.ThroughputTokensPerSec.Float64()
		return v, ok, nil
	case rankByLatency:
		v, ok := e.Metrics.E2ELatencySeconds.Float64()
		return -v, ok, nil
	case rankByTTFT:
		v, ok := e.Metrics.TTFTSeconds.Float64()
		return -v, ok, nil
	default:
		return 0, false, fmt.Errorf("unknown ranking %q (want throughput, latency or ttft)", by)
	}
}

// rankEstimates returns the best n estimates by the given criterion.
func rankEstimates(estimates []domain.Estimate, by string, n int) ([]domain.Estimate, error) {
	top := dsa.NewTopK(n)
	for _, e := range estimates {
		s, ok, err := score(e, by)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		top.Offer(dsa.RankItem{Key: e.Model.Name + " @ " + e.GPU.Name, Score: s, Value: e})
	}

	items := top.Sorted()
	out := make([]domain.Estimate, len(items))
	for i, it := range items {
		out[i] = it.Value.(domain.Estimate)
	}
	return out, nil
}

func (o *rankOptions) run(cmd *cobra.Command, root *rootOptions) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	log := root.logger(cmd.ErrOrStderr())
	o.sizing.applyConfig(cmd, cfg)

	models, gpus, err := o.sizing.selection(log)
	if err != nil {
		return err
	}

	calc := sizing.New(o.sizing.numGPU, o.sizing.precision())
	rep, err := sweep.New(sweep.Config{MaxConcurrent: o.sizing.workers}, calc, log).
		Run(cmd.Context(), models, gpus, o.sizing.workload())
	if err != nil {
		return err
	}

	ranked, err := rankEstimates(rep.Estimates, o.by, o.top)
	if err != nil {
		return err
	}
	return printRanking(cmd.OutOrStdout(), ranked, o.by)
}

func printRanking(w io.Writer, ranked []domain.Estimate, by string) error {
	fmt.Fprintln(w, color.CyanString("Top %d configurations by %s", len(ranked), by))
	if len(ranked) == 0 {
		_, err := fmt.Fprintln(w, "(no configuration fits)")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tMODEL\tGPU\tTHROUGHPUT\tTTFT\tE2E\tFOOTPRINT")
	for i, e := range ranked {
		m := e.Metrics
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%.2f / %g GB\n",
			i+1, e.Model.Name, e.GPU.Name,
			m.ThroughputTokensPerSec.Format(func(v float64) string { return fmt.Sprintf("%.2f tokens/sec", v) }),
			m.TTFTSeconds.Format(func(v float64) string { return fmt.Sprintf("%.3f s", v) }),
			m.E2ELatencySeconds.Format(func(v float64) string { return fmt.Sprintf("%.1f s", v) }),
			e.FootprintGB, e.AvailableGB)
	}
	return tw.Flush()
}
