package simd

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/GoSim-25-26J-441/urban-simulation-core/internal/controller"
	"github.com/GoSim-25-26J-441/urban-simulation-core/internal/repository"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/models"
)

// httpStatus maps domain errors onto HTTP status codes
func httpStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidParameters),
		errors.Is(err, models.ErrUnknownTarget),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientRuns):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrAlreadyRunning),
		errors.Is(err, repository.ErrAlreadyPersisted):
		return http.StatusConflict
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, ErrPresetNotFound):
		return http.StatusNotFound
	case errors.Is(err, controller.ErrCancelled),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// grpcCode maps domain errors onto gRPC status codes
func grpcCode(err error) codes.Code {
	switch {
	case errors.Is(err, models.ErrInvalidParameters),
		errors.Is(err, models.ErrUnknownTarget),
		errors.Is(err, ErrBadRequest):
		return codes.InvalidArgument
	case errors.Is(err, models.ErrInsufficientRuns):
		return codes.FailedPrecondition
	case errors.Is(err, models.ErrAlreadyRunning):
		return codes.Aborted
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, ErrPresetNotFound):
		return codes.NotFound
	case errors.Is(err, controller.ErrCancelled),
		errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}
