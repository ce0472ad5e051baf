package http

import (
	"errors"
	"net/http"

	"cargotrust/internal/pkg/errs"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	codeValidation       = "validation_failed"
	codeNotFound         = "not_found"
	codeLedger           = "ledger_unavailable"
	codeStorageFull      = "storage_full"
	codeStorageWrite     = "storage_write_failed"
	codeStorageRead      = "storage_read_failed"
	codeStorageCorrupt   = "storage_corrupt"
	codeNotInitialized   = "not_initialized"
	codeMethodNotAllowed = "method_not_allowed"
	codeInternal         = "internal"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify maps the error taxonomy onto HTTP. The order matters: an
// infrastructure error may wrap a cause from another family.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrLedger):
		return http.StatusBadGateway, codeLedger
	case errors.Is(err, errs.ErrCapacityExceeded):
		return http.StatusInsufficientStorage, codeStorageFull
	case errors.Is(err, errs.ErrPersistenceWrite):
		return http.StatusInternalServerError, codeStorageWrite
	case errors.Is(err, errs.ErrPersistenceRead):
		return http.StatusInternalServerError, codeStorageRead
	case errors.Is(err, errs.ErrInitialization):
		return http.StatusInternalServerError, codeStorageCorrupt
	case errors.Is(err, errs.ErrNotInitialized):
		return http.StatusServiceUnavailable, codeNotInitialized
	case errors.Is(err, errs.ErrObjectNotFound):
		return http.StatusNotFound, codeNotFound
	case errs.IsValidation(err):
		return http.StatusBadRequest, codeValidation
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func (s *Server) fail(c echo.Context, err error) error {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err))
	}
	return c.JSON(status, ErrorResponse{Code: code, Message: err.Error()})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Code: codeValidation, Message: message})
}
