package handlers

import (
	"net/http"

	"github.com/upb/voiceme/services"
	"github.com/upb/voiceme/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	switch {
	case services.IsValidationError(err):
		if err := utils.WriteBadRequest(w, services.GetErrorMessage(err), services.GetErrorDetails(err)); err != nil {
			logger.Error("failed to write bad request response", zap.Error(err))
		}

	case services.IsUnavailableError(err):
		// provider detail stays in the logs
		if err := utils.WriteServiceUnavailable(w, services.UnavailableMessage, nil); err != nil {
			logger.Error("failed to write unavailable response", zap.Error(err))
		}

	case services.IsTimeoutError(err):
		if err := utils.WriteGatewayTimeout(w, services.GetErrorMessage(err)); err != nil {
			logger.Error("failed to write timeout response", zap.Error(err))
		}

	case services.IsInternalError(err):
		logger.Error("internal server error", zap.Error(err))
		if err := utils.WriteInternalServerError(w, "An internal error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		if err := utils.WriteInternalServerError(w, "An unexpected error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
