package simd

import (
	"context"
	"errors"
	"fmt"

	"github.com/GoSim-25-26J-441/urban-simulation-core/internal/controller"
	"github.com/GoSim-25-26J-441/urban-simulation-core/internal/repository"
	"github.com/GoSim-25-26J-441/urban-simulation-core/internal/scoring"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/config"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/logger"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/models"
)

// TargetAll requests one optimization per target
const TargetAll = "all"

var (
	ErrBadRequest     = errors.New("invalid request")
	ErrPresetNotFound = errors.New("preset not found")
)

// Service ties the simulation session to persistence and callbacks.
// HTTP and gRPC handlers are thin adapters over it.
type Service struct {
	ctrl     *controller.Controller
	repo     repository.RunRepository
	notifier *Notifier
	presets  []config.Preset
}

// ServiceOption customizes a Service
type ServiceOption func(*Service)

// WithNotifier sends completion callbacks for persisted runs
func WithNotifier(n *Notifier) ServiceOption {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithPresets makes named parameter sets available to clients
func WithPresets(presets []config.Preset) ServiceOption {
	return func(s *Service) {
		s.presets = presets
	}
}

func NewService(ctrl *controller.Controller, repo repository.RunRepository, opts ...ServiceOption) *Service {
	s := &Service{
		ctrl: ctrl,
		repo: repo,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SimulateRequest starts a simulation from explicit parameters or a preset
type SimulateRequest struct {
	Parameters *models.Parameters `json:"parameters,omitempty"`
	Preset     string             `json:"preset,omitempty"`
	Metadata   map[string]any     `json:"metadata,omitempty"`
	Persist    bool               `json:"persist"`
}

// OptimizeRequest names a stored baseline or carries one inline
type OptimizeRequest struct {
	BaselineRunID string                `json:"baseline_run_id,omitempty"`
	BaselineRun   *models.SimulationRun `json:"baseline_run,omitempty"`
	Target        string                `json:"target"`
}

// CompareRequest names stored runs to compare
type CompareRequest struct {
	BaselineRunID  string   `json:"baseline_run_id"`
	ComparedRunIDs []string `json:"compared_run_ids"`
}

// Score evaluates the scoring model without touching the session
func (s *Service) Score(params models.Parameters) (models.Results, error) {
	return scoring.Score(params)
}

// Simulate runs one staged simulation to completion and optionally persists it
func (s *Service) Simulate(ctx context.Context, req SimulateRequest) (models.SimulationRun, error) {
	params, metadata, err := s.resolveParameters(req)
	if err != nil {
		return models.SimulationRun{}, err
	}

	h, err := s.ctrl.Start(ctx, params, controller.WithMetadata(metadata))
	if err != nil {
		return models.SimulationRun{}, err
	}
	run, err := h.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// the session ctx is derived from ctx, so the run is already stopping
			<-h.Done()
		}
		return models.SimulationRun{}, err
	}

	if !req.Persist {
		return run, nil
	}

	id, err := s.repo.Save(ctx, run)
	if err != nil {
		return models.SimulationRun{}, fmt.Errorf("persist run: %w", err)
	}
	run = run.WithID(id)
	logger.Info("simulation persisted", "run_id", id)

	if s.notifier != nil {
		s.notifier.Notify(run)
	}
	return run, nil
}

func (s *Service) resolveParameters(req SimulateRequest) (models.Parameters, map[string]any, error) {
	switch {
	case req.Parameters != nil && req.Preset != "":
		return models.Parameters{}, nil, fmt.Errorf("%w: give either parameters or preset", ErrBadRequest)
	case req.Parameters != nil:
		return *req.Parameters, req.Metadata, nil
	case req.Preset != "":
		preset, ok := config.FindPreset(s.presets, req.Preset)
		if !ok {
			return models.Parameters{}, nil, fmt.Errorf("%w: %s", ErrPresetNotFound, req.Preset)
		}
		metadata := make(map[string]any, len(req.Metadata)+1)
		for k, v := range req.Metadata {
			metadata[k] = v
		}
		metadata["preset"] = preset.Name
		return preset.Parameters, metadata, nil
	default:
		return models.Parameters{}, nil, fmt.Errorf("%w: parameters are required", ErrBadRequest)
	}
}

// Run loads one persisted run
func (s *Service) Run(ctx context.Context, id string) (models.SimulationRun, error) {
	return s.repo.Get(ctx, id)
}

// Runs lists persisted runs, newest first
func (s *Service) Runs(ctx context.Context, filter repository.Filter) ([]models.SimulationRun, error) {
	return s.repo.List(ctx, filter)
}

// Presets returns the configured presets
func (s *Service) Presets() []config.Preset {
	return s.presets
}

// Optimize resolves the baseline and runs one target, or every target for TargetAll
func (s *Service) Optimize(ctx context.Context, req OptimizeRequest) ([]models.OptimizationResult, error) {
	baseline, err := s.resolveBaseline(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.Target == TargetAll {
		return s.ctrl.RequestOptimizeAll(ctx, baseline)
	}

	target, err := models.ParseOptimizationType(req.Target)
	if err != nil {
		return nil, err
	}
	res, err := s.ctrl.RequestOptimization(ctx, baseline, target)
	if err != nil {
		return nil, err
	}
	return []models.OptimizationResult{res}, nil
}

func (s *Service) resolveBaseline(ctx context.Context, req OptimizeRequest) (models.SimulationRun, error) {
	switch {
	case req.BaselineRunID != "" && req.BaselineRun != nil:
		return models.SimulationRun{}, fmt.Errorf("%w: give either baseline_run_id or baseline_run", ErrBadRequest)
	case req.BaselineRunID != "":
		return s.repo.Get(ctx, req.BaselineRunID)
	case req.BaselineRun != nil:
		if err := req.BaselineRun.Parameters.Validate(); err != nil {
			return models.SimulationRun{}, err
		}
		return *req.BaselineRun, nil
	default:
		return models.SimulationRun{}, fmt.Errorf("%w: a baseline run is required", ErrBadRequest)
	}
}

// Compare loads the named runs and compares them against the baseline
func (s *Service) Compare(ctx context.Context, req CompareRequest) (models.ComparisonMetric, error) {
	if req.BaselineRunID == "" {
		return models.ComparisonMetric{}, fmt.Errorf("%w: baseline_run_id is required", ErrBadRequest)
	}

	baseline, err := s.repo.Get(ctx, req.BaselineRunID)
	if err != nil {
		return models.ComparisonMetric{}, err
	}
	others := make([]models.SimulationRun, 0, len(req.ComparedRunIDs))
	for _, id := range req.ComparedRunIDs {
		run, err := s.repo.Get(ctx, id)
		if err != nil {
			return models.ComparisonMetric{}, err
		}
		others = append(others, run)
	}
	return s.ctrl.RequestComparison(baseline, others)
}
