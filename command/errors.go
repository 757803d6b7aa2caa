package command

import (
	"fmt"
	"net/http"

	"github.com/goliatone/go-cloudops/core"
	goerrors "github.com/goliatone/go-errors"
)

func commandDependencyError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.CloudopsErrorInternal)
}

func commandWrapValidation(err error, message string) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, message).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.CloudopsErrorBadInput)
}

func formatBatchSlotField(index int) string {
	return fmt.Sprintf("command: invalid descriptor in batch slot %d", index)
}
