package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tutu-network/gpusizer/internal/domain"
	"github.com/tutu-network/gpusizer/internal/infra/catalog"
)

// Listing formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

type listOptions struct {
	format     string
	provider   string
	modelsFile string
	gpusFile   string
}

func (o *listOptions) register(cmd *cobra.Command, file *string, fileFlag string) {
	cmd.Flags().StringVarP(&o.format, "format", "o", formatTable, "Output format: table, json or yaml")
	cmd.Flags().StringVar(file, fileFlag, "", "Read the catalog from a JSON, YAML or TOML file")
}

func (o *listOptions) load(root *rootOptions, cmd *cobra.Command) (*catalog.Catalog, error) {
	cfg, err := root.loadConfig()
	if err != nil {
		return nil, err
	}
	models, gpus := cfg.Catalog.ModelsFile, cfg.Catalog.GPUsFile
	if cmd.Flags().Changed("models-json") {
		models = o.modelsFile
	}
	if cmd.Flags().Changed("gpus-json") {
		gpus = o.gpusFile
	}
	return catalog.Load(models, gpus)
}

// encode writes v as JSON or YAML.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
	}
}

// ─── models ─────────────────────────────────────────────────────────────────

func newModelsCmd(root *rootOptions) *cobra.Command {
	o := &listOptions{}
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List catalog models grouped by provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := o.load(root, cmd)
			if err != nil {
				return err
			}
			return printModels(cmd.OutOrStdout(), cat, o.provider, o.format)
		},
	}
	o.register(cmd, &o.modelsFile, "models-json")
	cmd.Flags().StringVar(&o.provider, "provider", "", "Only list models from this provider")
	return cmd
}

func printModels(w io.Writer, cat *catalog.Catalog, provider, format string) error {
	groups := cat.ModelsByProvider()
	if provider != "" {
		kept := groups[:0]
		for _, g := range groups {
			if strings.EqualFold(g.Provider, provider) {
				kept = append(kept, g)
			}
		}
		groups = kept
	}

	if format != formatTable {
		var models []domain.ModelSpec
		for _, g := range groups {
			models = append(models, g.Models...)
		}
		return encode(w, format, map[string]any{"models": models})
	}

	for _, g := range groups {
		fmt.Fprintln(w, color.CyanString("%s (%d)", g.Provider, len(g.Models)))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  NAME\tPARAMS (B)\tLAYERS\tHEADS\tKV HEADS\tD_MODEL\tMAX CONTEXT")
		for _, m := range g.Models {
			fmt.Fprintf(tw, "  %s\t%g\t%d\t%d\t%d\t%d\t%d\n",
				m.Name, m.ParamsBillion, m.NLayers, m.NHeads, m.NKVHeads, m.DModel, m.MaxContextWindow)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

// ─── gpus ───────────────────────────────────────────────────────────────────

func newGPUsCmd(root *rootOptions) *cobra.Command {
	o := &listOptions{}
	cmd := &cobra.Command{
		Use:   "gpus",
		Short: "List catalog GPUs by ascending memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := o.load(root, cmd)
			if err != nil {
				return err
			}
			return printGPUs(cmd.OutOrStdout(), cat.GPUsByMemory(), o.format)
		},
	}
	o.register(cmd, &o.gpusFile, "gpus-json")
	return cmd
}

func printGPUs(w io.Writer, gpus []domain.GPUSpec, format string) error {
	if format != formatTable {
		return encode(w, format, map[string]any{"gpus": gpus})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMEMORY (GB)\tFP16 TFLOPS\tBANDWIDTH (GB/s)")
	for _, g := range gpus {
		fmt.Fprintf(tw, "%s\t%g\t%g\t%g\n", g.Name, g.MemoryGB, g.FP16TFLOPS, g.MemoryBandwidthGBps)
	}
	return tw.Flush()
}
