package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/insight-rag/services"
	"github.com/upb/insight-rag/utils"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)
	if len(details) == 0 {
		details = nil
	}

	var writeErr error
	switch {
	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, publicMessage(err), details)

	case services.IsNotInitializedError(err), services.IsRetrievalError(err):
		logger.Warn("vector store unavailable", zap.Error(err))
		writeErr = utils.WriteServiceUnavailable(w, publicMessage(err))

	case services.IsExternalError(err), services.IsSynthesisError(err), services.IsEmbeddingError(err):
		logger.Warn("upstream dependency failed", zap.Error(err))
		writeErr = utils.WriteError(w, http.StatusBadGateway, publicMessage(err), details)

	case services.IsInternalError(err):
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "An internal error occurred")

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w, "An unexpected error occurred")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		if err := utils.WriteBadRequest(w, "Validation failed", utils.FieldDetails(err)); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	HandleServiceError(w, services.WrapError(services.ErrorTypeValidation, err.Error(), err), logger)
}

// publicMessage returns the domain message without the wrapped cause
func publicMessage(err error) string {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		return domainErr.Message
	}
	return err.Error()
}
