package models

import "errors"

var (
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrInsufficientRuns  = errors.New("insufficient runs")
	ErrAlreadyRunning    = errors.New("simulation already running")
	ErrUnknownTarget     = errors.New("unknown optimization target")
)
