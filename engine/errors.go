package engine

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input to engine")
	ErrBusy              = errors.New("engine is busy")
	ErrNotEvaluating     = errors.New("engine is not evaluating")
	ErrEngineUnavailable = errors.New("engine is unavailable")
	ErrTimeout           = errors.New("timed out waiting for engine")

	ErrEngineExited = errors.New("engine output closed")
	ErrBridgeClosed = errors.New("bridge closed")
)
