package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tutu-network/gpusizer/internal/daemon"
	"github.com/tutu-network/gpusizer/internal/infra/catalog"
)

// PortEnv sets the serve port when --port is not given.
const PortEnv = "PORT"

type serveOptions struct {
	host       string
	port       int
	metrics    bool
	modelsFile string
	gpusFile   string
}

func newServeCmd(root *rootOptions) *cobra.Command {
	o := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web calculator",
		Long: `Serve the calculator form at / together with CSV downloads and a JSON
API under /api. The port is taken from --port, then $PORT, then the
config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, root)
		},
	}
	o.register(cmd)
	return cmd
}

func (o *serveOptions) register(cmd *cobra.Command) {
	d := daemon.DefaultConfig()
	fs := cmd.Flags()
	fs.StringVar(&o.host, "host", d.Server.Host, "Address to bind")
	fs.IntVar(&o.port, "port", d.Server.Port, "Port to listen on")
	fs.BoolVar(&o.metrics, "metrics", false, "Expose Prometheus metrics at /metrics")
	fs.StringVar(&o.modelsFile, "models-json", "", "Replace the model catalog with a JSON, YAML or TOML file")
	fs.StringVar(&o.gpusFile, "gpus-json", "", "Replace the GPU catalog with a JSON, YAML or TOML file")
}

// resolve merges flags, $PORT and the config file into cfg.
func (o *serveOptions) resolve(cmd *cobra.Command, cfg daemon.Config) (daemon.Config, error) {
	fs := cmd.Flags()
	if fs.Changed("host") {
		cfg.Server.Host = o.host
	}
	switch {
	case fs.Changed("port"):
		cfg.Server.Port = o.port
	case os.Getenv(PortEnv) != "":
		p, err := strconv.Atoi(os.Getenv(PortEnv))
		if err != nil {
			return cfg, fmt.Errorf("invalid $%s: %w", PortEnv, err)
		}
		cfg.Server.Port = p
	}
	if fs.Changed("metrics") {
		cfg.Server.Metrics = o.metrics
	}
	if fs.Changed("models-json") {
		cfg.Catalog.ModelsFile = o.modelsFile
	}
	if fs.Changed("gpus-json") {
		cfg.Catalog.GPUsFile = o.gpusFile
	}
	return cfg, nil
}

func (o *serveOptions) run(cmd *cobra.Command, root *rootOptions) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if cfg, err = o.resolve(cmd, cfg); err != nil {
		return err
	}

	cat, err := catalog.Load(cfg.Catalog.ModelsFile, cfg.Catalog.GPUsFile)
	if err != nil {
		return err
	}

	log := root.logger(cmd.ErrOrStderr())
	log.Infof("catalog: %d models, %d GPUs", len(cat.Models), len(cat.GPUs))
	return daemon.Serve(cmd.Context(), cfg, cat, log)
}
