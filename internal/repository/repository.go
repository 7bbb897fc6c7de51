// Package repository persists simulation runs. The optimization and
// comparison engines never depend on it; the service layer loads runs here
// and hands plain values to them.
package repository

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/models"
)

// DefaultListLimit is applied when a Filter carries no limit
const DefaultListLimit = 50

var (
	ErrNotFound         = errors.New("run not found")
	ErrAlreadyPersisted = errors.New("run already persisted")
)

// Filter narrows List results. Runs are returned newest first.
type Filter struct {
	Limit  int
	Offset int
	// Since keeps runs created at or after this instant; zero disables it
	Since time.Time
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

func (f Filter) offset() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}

// RunRepository stores immutable simulation runs
type RunRepository interface {
	// Save persists a run that has no id yet and returns the assigned id
	Save(ctx context.Context, run models.SimulationRun) (string, error)
	Get(ctx context.Context, id string) (models.SimulationRun, error)
	List(ctx context.Context, filter Filter) ([]models.SimulationRun, error)
}

// Store is a RunRepository that owns resources
type Store interface {
	RunRepository
	io.Closer
}

func newRunID() string {
	return uuid.NewString()
}
