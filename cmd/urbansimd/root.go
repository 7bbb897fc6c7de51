package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/GoSim-25-26J-441/urban-simulation-core/internal/controller"
	"github.com/GoSim-25-26J-441/urban-simulation-core/internal/improvement"
	"github.com/GoSim-25-26J-441/urban-simulation-core/internal/simd"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/config"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/logger"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/models"
)

// app carries state shared by every subcommand
type app struct {
	configPath string
	cfg        *config.Config
	presets    []config.Preset
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "urbansimd",
		Short:        "Urban scenario scoring, optimization and comparison",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (json, text)")
	root.PersistentFlags().String("presets", "", "path to a YAML presets file")

	root.AddCommand(
		newServeCmd(a),
		newScoreCmd(a),
		newOptimizeCmd(a),
		newCompareCmd(a),
	)
	return root
}

// load reads configuration and installs the logger before any subcommand runs
func (a *app) load(cmd *cobra.Command) error {
	flagKeys := map[string]string{
		"log_level":    "log-level",
		"log_format":   "log-format",
		"presets_file": "presets",
		"http_addr":    "http-addr",
		"grpc_addr":    "grpc-addr",
	}
	var opts []config.Option
	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			opts = append(opts, config.WithFlag(key, f))
		}
	}

	cfg, err := config.Load(a.configPath, opts...)
	if err != nil {
		return err
	}
	a.cfg = cfg

	// one-shot commands print results on stdout, so logs go to stderr
	log, err := logger.NewWithFormat(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}
	logger.SetDefault(log)

	if cfg.PresetsFile != "" {
		presets, err := config.LoadPresets(cfg.PresetsFile)
		if err != nil {
			return err
		}
		a.presets = presets
	}
	return nil
}

func (a *app) optimizer() *improvement.Optimizer {
	return improvement.NewOptimizer(improvement.Settings{
		Rounds:      a.cfg.Optimizer.Rounds,
		InitialStep: a.cfg.Optimizer.InitialStep,
		MinStep:     a.cfg.Optimizer.MinStep,
	})
}

func (a *app) controller() *controller.Controller {
	return controller.New(controller.Options{
		StageDelay: a.cfg.Controller.StageDelay,
		Optimizer:  a.optimizer(),
	})
}

// dial connects to a remote ScenarioService
func dial(target string) (*simd.ScenarioClient, func() error, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return simd.NewScenarioClient(conn), conn.Close, nil
}

// parameterFlags are the four planning sliders, optionally replaced by a preset
type parameterFlags struct {
	params models.Parameters
	preset string
}

func (p *parameterFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&p.params.Roads, "roads", 50, "road infrastructure investment [0-100]")
	cmd.Flags().Float64Var(&p.params.Population, "population", 50, "population density [0-100]")
	cmd.Flags().Float64Var(&p.params.Housing, "housing", 50, "housing development [0-100]")
	cmd.Flags().Float64Var(&p.params.PublicTransport, "public-transport", 50, "public transport investment [0-100]")
	cmd.Flags().StringVar(&p.preset, "preset", "", "use a named preset instead of the slider flags")
}

func (p *parameterFlags) resolve(presets []config.Preset) (models.Parameters, error) {
	if p.preset == "" {
		return p.params, p.params.Validate()
	}
	preset, ok := config.FindPreset(presets, p.preset)
	if !ok {
		return models.Parameters{}, fmt.Errorf("%w: %s", simd.ErrPresetNotFound, p.preset)
	}
	return preset.Parameters, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
