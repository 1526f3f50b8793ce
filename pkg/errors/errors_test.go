package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeRateLimited, status: http.StatusTooManyRequests, publicMsg: "too many requests", retryable: true},
		{code: CodeEmptyCart, status: http.StatusBadRequest, publicMsg: "your cart is empty"},
		{code: CodeInvalidAmount, status: http.StatusBadRequest, publicMsg: "the total amount must be greater than zero", detailsOK: true},
		{code: CodeInsufficientStock, status: http.StatusBadRequest, publicMsg: "insufficient stock for some items", detailsOK: true},
		{code: CodeSignatureMismatch, status: http.StatusBadRequest, publicMsg: "transaction is not legitimate"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "foo"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsAndHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeEmptyCart, "cart is empty"))
	if got := As(err); got == nil || got.Code() != CodeEmptyCart {
		t.Fatalf("As failed to return typed error")
	}
	if !HasCode(err, CodeEmptyCart) {
		t.Fatal("expected HasCode to match")
	}
	if HasCode(err, CodeInvalidAmount) {
		t.Fatal("expected HasCode mismatch")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	root := stdErrors.New("connection reset")
	err := Wrap(CodeInternal, root, "commit purchase")

	dump := Dump(err)
	if dump.Code != CodeInternal {
		t.Fatalf("unexpected code %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %v", dump.Chain)
	}
	if dump.PG != nil {
		t.Fatalf("expected no postgres details, got %+v", dump.PG)
	}
	if _, ok := dump.Fields()["pg_code"]; ok {
		t.Fatal("pg_code should be omitted without a postgres error")
	}
	if Dump(nil).TopMessage != "" {
		t.Fatal("expected empty dump for nil")
	}
}

func TestDumpReadsPostgresErrors(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23514", ConstraintName: "items_available_count_check", TableName: "items"}
	err := Wrap(CodeDependency, fmt.Errorf("decrement stock: %w", pgErr), "db: commit")

	dump := Dump(err)
	if dump.PG == nil || dump.PG.Code != "23514" {
		t.Fatalf("expected postgres code, got %+v", dump.PG)
	}
	fields := dump.Fields()
	if fields["pg_constraint"] != "items_available_count_check" || fields["pg_table"] != "items" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if _, ok := fields["pg_column"]; ok {
		t.Fatal("empty pg_column should be omitted")
	}
}
