package cli

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tutu-network/gpusizer/internal/app/sizing"
	"github.com/tutu-network/gpusizer/internal/app/sweep"
	"github.com/tutu-network/gpusizer/internal/infra/observability"
	"github.com/tutu-network/gpusizer/internal/infra/sqlite"
	"github.com/tutu-network/gpusizer/internal/report"
)

// CSV file prefixes written by estimate.
const (
	memoryCSVPrefix      = "llm_memory"
	performanceCSVPrefix = "llm_performance"
)

type estimateOptions struct {
	sizing     sizingFlags
	includeOOM bool
	outDir     string
	noCSV      bool
	sqliteDir  string
}

func newEstimateCmd(root *rootOptions) *cobra.Command {
	o := &estimateOptions{}
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Print memory and performance tables for a model x GPU grid",
		Long: `Estimate the memory footprint of every selected model and the latency
and throughput of every model on every selected GPU.

Configurations that do not fit in GPU memory are left out of the
performance table unless --include-oom is given. Both tables are also
written as timestamped CSV files under --out.`,
		Example: `  gpusizer estimate -g 2 -p 8192 -r 512 -c 32 --gpus "L40s,H100 NVL"
  gpusizer estimate --weight-bytes 0.5 --kv-bytes 1 --include-oom
  gpusizer estimate --models-json my_models.json --no-csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, root)
		},
	}
	o.sizing.register(cmd)
	fs := cmd.Flags()
	fs.BoolVar(&o.includeOOM, "include-oom", false, "Include configurations that exceed memory in the performance table")
	fs.StringVar(&o.outDir, "out", "out", "Directory for CSV exports")
	fs.BoolVar(&o.noCSV, "no-csv", false, "Do not write CSV files")
	fs.StringVar(&o.sqliteDir, "sqlite", "", "Also export the run into DIR/"+sqlite.FileName)
	return cmd
}

func (o *estimateOptions) run(cmd *cobra.Command, root *rootOptions) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	log := root.logger(cmd.ErrOrStderr())
	o.sizing.applyConfig(cmd, cfg)
	if !cmd.Flags().Changed("out") {
		o.outDir = cfg.Output.Dir
	}

	models, gpus, err := o.sizing.selection(log)
	if err != nil {
		return err
	}

	w := o.sizing.workload()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, " num_gpu = %d, prompt_size = %d tokens, response_size = %d tokens\n",
		o.sizing.numGPU, w.PromptTokens, w.ResponseTokens)
	fmt.Fprintf(out, " n_concurrent_request = %d\n", w.Concurrency)

	calc := sizing.New(o.sizing.numGPU, o.sizing.precision())
	runner := sweep.New(sweep.Config{MaxConcurrent: o.sizing.workers}, calc, log)

	start := time.Now()
	rep, err := runner.Run(cmd.Context(), models, gpus, w)
	if err != nil {
		return err
	}
	observability.RecordSweep(observability.SourceCLI, rep.Estimates, time.Since(start))

	stats := runner.Stats()
	log.WithFields(logrus.Fields{
		"evaluated":      stats.Evaluated,
		"fitting":        stats.Fitting,
		"over_capacity":  stats.OverCapacity,
		"not_computable": stats.NotComputable,
	}).Debug("sweep stats")

	memTable := report.MemoryTable(rep.Memory, w)
	perfTable := report.PerformanceTable(rep.Estimates, w, report.CLIFilter(o.includeOOM))
	if err := report.PrintTable(out, memTable); err != nil {
		return err
	}
	if err := report.PrintTable(out, perfTable); err != nil {
		return err
	}

	if cfg.Output.CSV && !o.noCSV {
		now := time.Now()
		memPath, err := report.SaveCSV(o.outDir, memoryCSVPrefix, memTable, now)
		if err != nil {
			return err
		}
		perfPath, err := report.SaveCSV(o.outDir, performanceCSVPrefix, perfTable, now)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nResults saved to:\n - %s\n - %s\n", memPath, perfPath)
	}

	if o.sqliteDir != "" {
		db, err := sqlite.Open(o.sqliteDir)
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := db.ExportRun(sqlite.RunData{
			NumGPU:    o.sizing.numGPU,
			Precision: o.sizing.precision(),
			Workload:  w,
			Memory:    rep.Memory,
			Estimates: rep.Estimates,
		}, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Run %s exported to %s\n", id, db.Path())
	}
	return nil
}
