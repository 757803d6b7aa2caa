package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	CloudopsErrorBadInput        = "CLOUDOPS_BAD_INPUT"
	CloudopsErrorAccountNotFound = "CLOUDOPS_ACCOUNT_NOT_FOUND"
	CloudopsErrorStoreIO         = "CLOUDOPS_STORE_IO"
	CloudopsErrorStoreCorrupt    = "CLOUDOPS_STORE_CORRUPT"
	CloudopsErrorStoreBusy       = "CLOUDOPS_STORE_BUSY"
	CloudopsErrorUnknownVariant  = "CLOUDOPS_UNKNOWN_VARIANT"
	CloudopsErrorCorruptPayload  = "CLOUDOPS_CORRUPT_PAYLOAD"
	CloudopsErrorTransport       = "CLOUDOPS_TRANSPORT_FAILED"
	CloudopsErrorOperationFailed = "CLOUDOPS_OPERATION_FAILED"
	CloudopsErrorTimeout         = "CLOUDOPS_OPERATION_TIMEOUT"
	CloudopsErrorCancelled       = "CLOUDOPS_OPERATION_CANCELLED"
	CloudopsErrorInternal        = "CLOUDOPS_INTERNAL_ERROR"
)

func cloudopsErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureCloudopsErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrAccountNotFound):
		return newCloudopsError(err.Error(), goerrors.CategoryNotFound, CloudopsErrorAccountNotFound)
	case errors.Is(err, ErrInvalidAccountID),
		errors.Is(err, ErrUnknownProjection):
		return newCloudopsError(err.Error(), goerrors.CategoryBadInput, CloudopsErrorBadInput)
	case errors.Is(err, ErrUnknownVariant),
		errors.Is(err, ErrUnsupportedVariant):
		return newCloudopsError(err.Error(), goerrors.CategoryOperation, CloudopsErrorUnknownVariant)
	case errors.Is(err, ErrCorruptCredential):
		return newCloudopsError(err.Error(), goerrors.CategoryOperation, CloudopsErrorCorruptPayload)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "lock held"),
		strings.Contains(msg, "busy"):
		return newCloudopsError(err.Error(), goerrors.CategoryConflict, CloudopsErrorStoreBusy)
	case strings.Contains(msg, "malformed"), strings.Contains(msg, "corrupt"):
		return newCloudopsError(err.Error(), goerrors.CategoryOperation, CloudopsErrorStoreCorrupt)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newCloudopsError(err.Error(), goerrors.CategoryBadInput, CloudopsErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureCloudopsErrorEnvelope(mapped)
}

func newCloudopsError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureCloudopsErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureCloudopsErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = cloudopsHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultCloudopsTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultCloudopsTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return CloudopsErrorBadInput
	case goerrors.CategoryNotFound:
		return CloudopsErrorAccountNotFound
	case goerrors.CategoryConflict:
		return CloudopsErrorStoreBusy
	case goerrors.CategoryOperation:
		return CloudopsErrorOperationFailed
	default:
		return CloudopsErrorInternal
	}
}

func cloudopsHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
