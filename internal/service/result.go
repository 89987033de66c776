package service

import (
	"errors"

	"github.com/sakif/paperplane/internal/apperror"
	"github.com/sakif/paperplane/internal/metrics"
)

// resultOf turns an operation error into a metrics result label. Client
// mistakes (not found, validation) are still "error"; refused access gets
// its own label.
func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, apperror.ErrForbidden):
		return metrics.ResultDenied
	default:
		return metrics.ResultError
	}
}
