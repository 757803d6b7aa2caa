package query

import (
	"context"
	"testing"

	"github.com/goliatone/go-cloudops/core"
	goerrors "github.com/goliatone/go-errors"
)

func TestGetCredentialMessage_ValidateReturnsRichError(t *testing.T) {
	err := (GetCredentialMessage{}).Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.TextCode != core.CloudopsErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.CloudopsErrorBadInput, rich.TextCode)
	}
}

func TestGetCredentialQuery_NilReaderReturnsRichError(t *testing.T) {
	var qry *GetCredentialQuery
	_, err := qry.Query(context.Background(), GetCredentialMessage{})
	if err == nil {
		t.Fatalf("expected query dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
}
