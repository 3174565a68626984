// Package cli implements the gpusizer command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tutu-network/gpusizer/internal/daemon"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	cfgFile string
	verbose bool
}

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "gpusizer",
		Short: "Estimate GPU memory and inference latency for LLM serving",
		Long: `gpusizer is an offline capacity-planning calculator. Given a model
architecture, a GPU, a numeric precision and a workload shape it estimates
the memory footprint, KV cache capacity, time to first token, end-to-end
latency and output throughput of serving the model.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "Config file (default $GPUSIZER_HOME/config.toml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newEstimateCmd(opts),
		newServeCmd(opts),
		newModelsCmd(opts),
		newGPUsCmd(opts),
		newRankCmd(opts),
		newPlanCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError writes a red "Error: ..." line to w.
func printError(w io.Writer, err error) {
	color.New(color.FgRed).Fprintf(w, "Error: %v\n", err)
}

// ─── Logging ────────────────────────────────────────────────────────────────

// levelFormatter prints "[INF] message key=value".
type levelFormatter struct{}

func (f *levelFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var levelText string
	switch entry.Level {
	case logrus.InfoLevel:
		levelText = "[INF]"
	case logrus.WarnLevel:
		levelText = "[WRN]"
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		levelText = "[ERR]"
	case logrus.DebugLevel, logrus.TraceLevel:
		levelText = "[DBG]"
	default:
		levelText = "[???]"
	}

	line := fmt.Sprintf("%s %s", levelText, entry.Message)
	for _, k := range sortedKeys(entry.Data) {
		line += fmt.Sprintf(" %s=%v", k, entry.Data[k])
	}
	return []byte(line + "\n"), nil
}

// logger writes to w at info level, or debug with --verbose.
func (o *rootOptions) logger(w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&levelFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	if o.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// loadConfig reads --config, or the default config path.
func (o *rootOptions) loadConfig() (daemon.Config, error) {
	path := o.cfgFile
	if path == "" {
		path = daemon.ConfigPath()
	}
	return daemon.LoadConfig(path)
}
