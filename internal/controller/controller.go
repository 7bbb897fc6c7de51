// Package controller orchestrates a single simulation session: one staged
// simulation at a time plus on-demand optimization and comparison.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/urban-simulation-core/internal/improvement"
	"github.com/GoSim-25-26J-441/urban-simulation-core/internal/scoring"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/logger"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/models"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/utils"
)

// State is the lifecycle state of the controller's current simulation
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

var (
	ErrNotRunning = errors.New("simulation is not running")
	ErrCancelled  = errors.New("simulation cancelled")
)

// progressStages are the UI-visible checkpoints of a simulation, in percent
var progressStages = []float64{0, 25, 50, 75, 100}

// ProgressObserver receives staged progress for a running simulation
type ProgressObserver func(runID string, progress float64)

// Options configures a Controller
type Options struct {
	// StageDelay is the pause between progress stages. Zero runs stages back to back.
	StageDelay time.Duration
	Optimizer  *improvement.Optimizer
	Score      scoring.Func
}

// Controller runs at most one simulation at a time
type Controller struct {
	score      scoring.Func
	optimizer  *improvement.Optimizer
	stageDelay time.Duration

	mu        sync.Mutex
	state     State
	active    *RunHandle
	observers []ProgressObserver

	// requestMu serializes optimization and comparison requests
	requestMu sync.Mutex
}

// RunHandle tracks one simulation started on a Controller
type RunHandle struct {
	id       string
	params   models.Parameters
	metadata map[string]any
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}

	run models.SimulationRun
	err error
}

// StartOption customizes a simulation start
type StartOption func(*RunHandle)

// WithMetadata attaches opaque metadata to the produced run
func WithMetadata(metadata map[string]any) StartOption {
	return func(h *RunHandle) {
		h.metadata = metadata
	}
}

// New creates an idle controller
func New(opts Options) *Controller {
	if opts.Score == nil {
		opts.Score = scoring.Score
	}
	if opts.Optimizer == nil {
		opts.Optimizer = improvement.NewOptimizer(improvement.DefaultSettings())
	}
	return &Controller{
		score:      opts.Score,
		optimizer:  opts.Optimizer,
		stageDelay: opts.StageDelay,
		state:      StateIdle,
	}
}

// Subscribe registers an observer for progress of every subsequent simulation
func (c *Controller) Subscribe(obs ProgressObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, obs)
}

// State returns the current lifecycle state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start validates params and begins a staged simulation on a worker goroutine.
// It fails with models.ErrAlreadyRunning while another simulation is running.
func (c *Controller) Start(ctx context.Context, params models.Parameters, opts ...StartOption) (*RunHandle, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.state == StateRunning {
		active := c.active.id
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", models.ErrAlreadyRunning, active)
	}

	runCtx, cancel := context.WithCancel(ctx)
	h := &RunHandle{
		id:     utils.GenerateSessionRunID(),
		params: params,
		ctx:    runCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	c.state = StateRunning
	c.active = h
	observers := append([]ProgressObserver(nil), c.observers...)
	c.mu.Unlock()

	logger.Info("simulation started", "run_id", h.id)
	go c.runSimulation(h, observers)
	return h, nil
}

// Cancel stops a running simulation and discards its run
func (c *Controller) Cancel(h *RunHandle) error {
	if h == nil {
		return ErrNotRunning
	}

	c.mu.Lock()
	if c.state != StateRunning || c.active != h {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotRunning, h.id)
	}
	c.state = StateCancelled
	h.cancel()
	c.mu.Unlock()

	logger.Info("simulation cancelled", "run_id", h.id)
	return nil
}

func (c *Controller) runSimulation(h *RunHandle, observers []ProgressObserver) {
	defer close(h.done)
	defer h.cancel()

	var results models.Results
	for i, progress := range progressStages {
		if i > 0 && !c.pause(h.ctx) {
			c.finish(h, models.SimulationRun{}, h.ctx.Err())
			return
		}
		if i == 2 {
			var err error
			results, err = c.score(h.params)
			if err != nil {
				c.finish(h, models.SimulationRun{}, err)
				return
			}
		}
		if h.ctx.Err() != nil {
			c.finish(h, models.SimulationRun{}, h.ctx.Err())
			return
		}
		for _, obs := range observers {
			obs(h.id, progress)
		}
	}

	c.finish(h, models.NewSimulationRun(h.params, results, h.metadata), nil)
}

// pause waits one stage delay; false means the run was cancelled meanwhile
func (c *Controller) pause(ctx context.Context) bool {
	if c.stageDelay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(c.stageDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// finish records the outcome on h. Only the active run moves the controller
// state; a cancelled run that finishes after a newer Start leaves it alone.
func (c *Controller) finish(h *RunHandle, run models.SimulationRun, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.active == h
	switch {
	case h.ctx.Err() != nil:
		h.err = ErrCancelled
		if current {
			c.state = StateCancelled
		}
	case err != nil:
		h.err = err
		if current {
			c.state = StateIdle
		}
		logger.Error("simulation failed", "run_id", h.id, "error", err)
	default:
		h.run = run
		if current {
			c.state = StateCompleted
		}
		logger.Info("simulation completed", "run_id", h.id,
			"congestion", run.Results.Congestion,
			"satisfaction", run.Results.Satisfaction)
	}
	if current {
		c.active = nil
	}
}

// RequestOptimization runs one optimization to completion
func (c *Controller) RequestOptimization(ctx context.Context, baseline models.SimulationRun, target models.OptimizationType) (models.OptimizationResult, error) {
	c.requestMu.Lock()
	defer c.requestMu.Unlock()
	return c.optimizer.Optimize(ctx, baseline, target)
}

// RequestOptimizeAll runs every optimization target to completion
func (c *Controller) RequestOptimizeAll(ctx context.Context, baseline models.SimulationRun) ([]models.OptimizationResult, error) {
	c.requestMu.Lock()
	defer c.requestMu.Unlock()
	return c.optimizer.OptimizeAll(ctx, baseline)
}

// RequestComparison compares baseline against others
func (c *Controller) RequestComparison(baseline models.SimulationRun, others []models.SimulationRun) (models.ComparisonMetric, error) {
	c.requestMu.Lock()
	defer c.requestMu.Unlock()
	return improvement.Compare(baseline, others)
}

// OptimizationOutcome is delivered by OptimizeAsync
type OptimizationOutcome struct {
	Result models.OptimizationResult
	Err    error
}

// ComparisonOutcome is delivered by CompareAsync
type ComparisonOutcome struct {
	Result models.ComparisonMetric
	Err    error
}

// OptimizeAsync runs RequestOptimization on a worker goroutine.
// The returned channel receives exactly one outcome.
func (c *Controller) OptimizeAsync(ctx context.Context, baseline models.SimulationRun, target models.OptimizationType) <-chan OptimizationOutcome {
	out := make(chan OptimizationOutcome, 1)
	go func() {
		res, err := c.RequestOptimization(ctx, baseline, target)
		out <- OptimizationOutcome{Result: res, Err: err}
	}()
	return out
}

// CompareAsync runs RequestComparison on a worker goroutine.
// The returned channel receives exactly one outcome.
func (c *Controller) CompareAsync(baseline models.SimulationRun, others []models.SimulationRun) <-chan ComparisonOutcome {
	out := make(chan ComparisonOutcome, 1)
	go func() {
		res, err := c.RequestComparison(baseline, others)
		out <- ComparisonOutcome{Result: res, Err: err}
	}()
	return out
}

// ID returns the session handle id (not the repository id)
func (h *RunHandle) ID() string {
	return h.id
}

// Done is closed once the simulation has completed or been cancelled
func (h *RunHandle) Done() <-chan struct{} {
	return h.done
}

// Result blocks until the simulation finishes and returns the run.
// A cancelled simulation yields ErrCancelled.
func (h *RunHandle) Result() (models.SimulationRun, error) {
	<-h.done
	return h.run, h.err
}

// Wait is Result bounded by ctx
func (h *RunHandle) Wait(ctx context.Context) (models.SimulationRun, error) {
	select {
	case <-h.done:
		return h.run, h.err
	case <-ctx.Done():
		return models.SimulationRun{}, ctx.Err()
	}
}
