package api

import (
	"context"
	"errors"

	"PriceSignal/internal/domain/models"
	"PriceSignal/internal/service/pricefeed"
	"PriceSignal/internal/usecase"
	xhttp "PriceSignal/pkg/http"
)

// toAppError maps domain errors onto HTTP statuses.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	var statusErr *xhttp.StatusError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrMalformedInput):
		return xhttp.NewAppError("ERR_MALFORMED_INPUT", "", err.Error(), 400).WithError(err)
	case errors.Is(err, models.ErrShapeMismatch):
		return xhttp.NewAppError("ERR_SHAPE_MISMATCH", "", err.Error(), 400).WithError(err)
	case errors.Is(err, models.ErrInsufficientData):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrNotFitted):
		return xhttp.UnavailableError("model not loaded").WithError(err)
	case errors.Is(err, pricefeed.ErrTokenNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrPathOutsideDataDir), errors.Is(err, usecase.ErrCSVSourceDisabled):
		return xhttp.NewAppError("ERR_INVALID_PATH", "csv_path", err.Error(), 400).WithError(err)
	case errors.Is(err, usecase.ErrRetrainRunning):
		return xhttp.NewAppError("ERR_CONFLICT", "", err.Error(), 409).WithError(err)
	case errors.As(err, &statusErr), errors.Is(err, context.DeadlineExceeded):
		return xhttp.BadGatewayError("price provider unavailable").WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
