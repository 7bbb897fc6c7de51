package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/urban-simulation-core/internal/repository"
	"github.com/GoSim-25-26J-441/urban-simulation-core/internal/scoring"
	"github.com/GoSim-25-26J-441/urban-simulation-core/internal/simd"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/models"
)

func newScoreCmd(a *app) *cobra.Command {
	var (
		pf     parameterFlags
		server string
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Predict outcome metrics for one parameter set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := pf.resolve(a.presets)
			if err != nil {
				return err
			}

			var results models.Results
			if server != "" {
				client, closeConn, err := dial(server)
				if err != nil {
					return err
				}
				defer closeConn()
				results, err = client.Score(cmd.Context(), params)
				if err != nil {
					return err
				}
			} else if results, err = scoring.Score(params); err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), map[string]any{
				"parameters": params,
				"results":    results,
			})
		},
	}
	pf.register(cmd)
	cmd.Flags().StringVar(&server, "server", "", "gRPC address of a running urbansimd (local when empty)")
	return cmd
}

func newOptimizeCmd(a *app) *cobra.Command {
	var (
		pf     parameterFlags
		target string
		server string
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Search for parameters that improve a target metric",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := pf.resolve(a.presets)
			if err != nil {
				return err
			}
			results, err := scoring.Score(params)
			if err != nil {
				return err
			}
			baseline := models.NewSimulationRun(params, results, nil)

			var out []models.OptimizationResult
			switch {
			case server != "":
				client, closeConn, err := dial(server)
				if err != nil {
					return err
				}
				defer closeConn()
				out, err = client.Optimize(cmd.Context(), simd.OptimizeRequest{BaselineRun: &baseline, Target: target})
				if err != nil {
					return err
				}
			case target == simd.TargetAll:
				out, err = a.optimizer().OptimizeAll(cmd.Context(), baseline)
				if err != nil {
					return err
				}
			default:
				t, err := models.ParseOptimizationType(target)
				if err != nil {
					return err
				}
				res, err := a.optimizer().Optimize(cmd.Context(), baseline, t)
				if err != nil {
					return err
				}
				out = []models.OptimizationResult{res}
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"optimizations": out})
		},
	}
	pf.register(cmd)
	cmd.Flags().StringVar(&target, "target", string(models.OptimizeBalanced), "congestion, satisfaction, emissions, transit_usage, balanced or all")
	cmd.Flags().StringVar(&server, "server", "", "gRPC address of a running urbansimd (local when empty)")
	return cmd
}

func newCompareCmd(a *app) *cobra.Command {
	var (
		baselineID string
		runIDs     []string
		server     string
	)
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare stored runs against a baseline run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := simd.CompareRequest{BaselineRunID: baselineID, ComparedRunIDs: runIDs}

			if server != "" {
				client, closeConn, err := dial(server)
				if err != nil {
					return err
				}
				defer closeConn()
				cm, err := client.Compare(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"comparison": cm})
			}

			store, err := repository.Open(cmd.Context(), a.cfg.Repository)
			if err != nil {
				return err
			}
			defer store.Close()

			cm, err := simd.NewService(a.controller(), store).Compare(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("compare: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"comparison": cm})
		},
	}
	cmd.Flags().StringVar(&baselineID, "baseline", "", "baseline run id")
	cmd.Flags().StringSliceVar(&runIDs, "runs", nil, "comma-separated run ids to compare")
	cmd.Flags().StringVar(&server, "server", "", "gRPC address of a running urbansimd (local when empty)")
	_ = cmd.MarkFlagRequired("baseline")
	return cmd
}
