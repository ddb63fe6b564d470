package services

import (
	"context"

	"github.com/pkg/errors"
	apiError "github.com/techagentng/clubhub/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// storeError maps a repository error onto the API taxonomy: missing rows
// become NotFound, anything else from the store is Transient.
func storeError(logger *zap.Logger, err error, what string) error {
	if err == nil {
		return nil
	}
	var apiErr *apiError.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apiError.NotFound("%s not found", what)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apiError.Transient("%s: request cancelled", what)
	}
	logger.Error("store failure", zap.String("op", what), zap.Error(err))
	return apiError.Transient("%s: store unavailable", what)
}
