package core

import (
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestCloudopsErrorMapper_Sentinels(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		category goerrors.Category
		textCode string
		code     int
	}{
		{
			name:     "account not found",
			err:      fmt.Errorf("lookup: %w", ErrAccountNotFound),
			category: goerrors.CategoryNotFound,
			textCode: CloudopsErrorAccountNotFound,
			code:     http.StatusNotFound,
		},
		{
			name:     "invalid account id",
			err:      fmt.Errorf("%w: empty", ErrInvalidAccountID),
			category: goerrors.CategoryBadInput,
			textCode: CloudopsErrorBadInput,
			code:     http.StatusBadRequest,
		},
		{
			name:     "unsupported variant",
			err:      fmt.Errorf("%w: legacy -> modern", ErrUnsupportedVariant),
			category: goerrors.CategoryOperation,
			textCode: CloudopsErrorUnknownVariant,
			code:     http.StatusInternalServerError,
		},
		{
			name:     "corrupt payload",
			err:      fmt.Errorf("%w: truncated", ErrCorruptCredential),
			category: goerrors.CategoryOperation,
			textCode: CloudopsErrorCorruptPayload,
			code:     http.StatusInternalServerError,
		},
		{
			name:     "busy store",
			err:      fmt.Errorf("write failed: database is locked"),
			category: goerrors.CategoryConflict,
			textCode: CloudopsErrorStoreBusy,
			code:     http.StatusConflict,
		},
	}

	for _, tc := range cases {
		mapped := cloudopsErrorMapper(tc.err)
		if mapped == nil {
			t.Fatalf("%s: expected mapped error", tc.name)
		}
		if mapped.Category != tc.category {
			t.Fatalf("%s: category %s != %s", tc.name, mapped.Category, tc.category)
		}
		if mapped.TextCode != tc.textCode {
			t.Fatalf("%s: text code %s != %s", tc.name, mapped.TextCode, tc.textCode)
		}
		if mapped.Code != tc.code {
			t.Fatalf("%s: http code %d != %d", tc.name, mapped.Code, tc.code)
		}
	}
}

func TestCloudopsErrorMapper_PreservesRichErrors(t *testing.T) {
	original := goerrors.New("operation polling timed out", goerrors.CategoryOperation).
		WithTextCode(CloudopsErrorTimeout)

	mapped := cloudopsErrorMapper(original)
	if mapped.TextCode != CloudopsErrorTimeout {
		t.Fatalf("expected text code preserved, got %s", mapped.TextCode)
	}
	if mapped.Code != http.StatusInternalServerError {
		t.Fatalf("expected status backfilled, got %d", mapped.Code)
	}
}

func TestCloudopsErrorMapper_NilAndUnknown(t *testing.T) {
	if cloudopsErrorMapper(nil) != nil {
		t.Fatalf("expected nil mapping for nil error")
	}

	mapped := cloudopsErrorMapper(fmt.Errorf("disk went away"))
	if mapped == nil {
		t.Fatalf("expected fallback mapping")
	}
	if mapped.TextCode == "" {
		t.Fatalf("expected text code backfilled")
	}
	if mapped.Code == 0 {
		t.Fatalf("expected http status backfilled")
	}
}
