package application

import (
	"context"
	"errors"

	"github.com/MOhammedRiaad/EMS-sub006/internal/domain"
	sharedErrors "github.com/MOhammedRiaad/EMS-sub006/pkg/errors"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/resilience"
)

var (
	errMissingTenant      = errors.New("tenantId is required")
	errMissingDescription = errors.New("description is required")
	errInvalidTimeRange   = errors.New("from must be before to")
)

var badRequestErrors = []error{
	errMissingTenant,
	errMissingDescription,
	errInvalidTimeRange,
	domain.ErrEmptyBasket,
	domain.ErrMissingStudio,
	domain.ErrMissingProduct,
	domain.ErrInvalidQuantity,
	domain.ErrInvalidPaymentMethod,
	domain.ErrClientRequired,
	domain.ErrZeroAdjustment,
	domain.ErrInvalidAmount,
}

func isBadRequest(err error) bool {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// toAppError maps domain and infrastructure failures onto the HTTP-facing error catalogue
func toAppError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := sharedErrors.AsAppError(err); ok {
		return appErr
	}

	var stockErr *domain.InsufficientStockError
	var notFound *domain.NotFoundError

	switch {
	case errors.As(err, &stockErr):
		return sharedErrors.ErrInsufficientStock(stockErr.ProductID, stockErr.StudioID).Wrap(err)
	case errors.As(err, &notFound):
		return sharedErrors.ErrNotFoundWithID(notFound.Resource, notFound.ID).Wrap(err)
	case isBadRequest(err):
		return sharedErrors.ErrBadRequest(err.Error()).Wrap(err)
	case errors.Is(err, resilience.ErrRetriesExhausted), errors.Is(err, domain.ErrConflict):
		return sharedErrors.ErrTransient(operation).Wrap(err)
	case errors.Is(err, context.DeadlineExceeded):
		return sharedErrors.ErrTimeout(operation).Wrap(err)
	default:
		return sharedErrors.ErrInternal("").Wrap(err)
	}
}

// failureReason labels a failed operation for metrics
func failureReason(err error) string {
	var stockErr *domain.InsufficientStockError
	var notFound *domain.NotFoundError

	switch {
	case errors.As(err, &stockErr):
		return "insufficient_stock"
	case errors.As(err, &notFound):
		return "not_found"
	case isBadRequest(err):
		return "bad_request"
	case errors.Is(err, resilience.ErrRetriesExhausted), errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}
