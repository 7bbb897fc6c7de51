package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/GoSim-25-26J-441/urban-simulation-core/internal/repository"
	"github.com/GoSim-25-26J-441/urban-simulation-core/internal/simd"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/logger"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and gRPC APIs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("http-addr", "", "HTTP listen address")
	cmd.Flags().String("grpc-addr", "", "gRPC listen address")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(ctx, a.cfg.Repository)
	if err != nil {
		return err
	}
	defer store.Close()

	notifier, err := simd.NewNotifier(a.cfg.Notifier)
	if err != nil {
		return err
	}
	defer notifier.Close()

	service := simd.NewService(a.controller(), store,
		simd.WithNotifier(notifier),
		simd.WithPresets(a.presets))

	// TODO: Configure gRPC server security (TLS, authentication) before
	// exposing this service outside a trusted network.
	grpcServer := grpc.NewServer()
	simd.RegisterScenarioServiceServer(grpcServer, simd.NewScenarioGRPCServer(service))

	grpcLis, err := net.Listen("tcp", a.cfg.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen for gRPC", "addr", a.cfg.GRPCAddr, "error", err)
		return err
	}

	httpSrv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           simd.NewHTTPServer(service).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		// simulations and optimizations answer synchronously
		WriteTimeout:   2 * time.Minute,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info("gRPC server listening", "addr", a.cfg.GRPCAddr)
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.Error("gRPC server error", "error", err)
			stop()
		}
	}()

	go func() {
		logger.Info("HTTP server listening", "addr", a.cfg.HTTPAddr,
			"repository", a.cfg.Repository.Driver, "presets", len(a.presets))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.GracefulStop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
		return err
	}
	return nil
}
