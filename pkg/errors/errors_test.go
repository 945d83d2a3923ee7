package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	statuses := map[Code]int{
		CodeValidation:    http.StatusBadRequest,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeForbidden:     http.StatusForbidden,
		CodeNotFound:      http.StatusNotFound,
		CodeConflict:      http.StatusConflict,
		CodeStateConflict: http.StatusUnprocessableEntity,
		CodeIdempotency:   http.StatusConflict,
		CodeRateLimit:     http.StatusTooManyRequests,
		CodeInternal:      http.StatusInternalServerError,
		CodeDependency:    http.StatusServiceUnavailable,
	}
	withDetails := map[Code]bool{CodeValidation: true, CodeStateConflict: true, CodeIdempotency: true, CodeDependency: true}

	require.Len(t, catalog, len(statuses))
	for code, status := range statuses {
		m := MetadataFor(code)
		assert.Equal(t, status, m.HTTPStatus, code)
		assert.Equal(t, status >= 500, m.Retryable, code)
		assert.Equal(t, withDetails[code], m.DetailsAllowed, code)
		assert.NotEmpty(t, m.PublicMessage, code)
	}
	assert.Equal(t, catalog[CodeInternal], MetadataFor("SOMETHING_UNKNOWN"))
}

func TestConstructors(t *testing.T) {
	e := New(CodeValidation, "missing foo")
	assert.Equal(t, CodeValidation, e.Code())
	assert.Equal(t, "missing foo", e.Message())
	assert.Nil(t, e.Details())
	assert.Equal(t, []string{"a"}, e.WithDetails([]string{"a"}).Details())

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "CONFLICT: ctx: boom", wrapped.Error())
	assert.Equal(t, "NOT_FOUND: event 7", Newf(CodeNotFound, "event %d", 7).Error())

	field := FieldError("reason", "is required")
	assert.Equal(t, CodeValidation, field.Code())
	assert.Equal(t, map[string]string{"reason": "is required"}, field.Details())
}

func TestNilError(t *testing.T) {
	var e *Error
	assert.Equal(t, CodeInternal, e.Code())
	assert.Empty(t, e.Message())
	assert.Empty(t, e.Error())
	assert.Nil(t, e.Unwrap())
	assert.Nil(t, e.WithDetails("x"))
}

func TestAsAndIsCode(t *testing.T) {
	inner := New(CodeNotFound, "user not found")
	outer := fmt.Errorf("load queue: %w", inner)

	assert.Same(t, inner, As(outer))
	assert.Nil(t, As(nil))
	assert.Nil(t, As(stdErrors.New("plain")))

	assert.True(t, IsCode(outer, CodeNotFound))
	assert.False(t, IsCode(outer, CodeConflict))
	assert.False(t, IsCode(stdErrors.New("plain"), CodeInternal))

	// outermost typed error wins
	rewrapped := Wrap(CodeInternal, outer, "dashboard")
	assert.True(t, IsCode(rewrapped, CodeInternal))
}

func TestDump(t *testing.T) {
	d := Dump(Wrap(CodeDependency, stdErrors.New("connection refused"), "load queue"))
	assert.Equal(t, CodeDependency, d.Code)
	assert.Len(t, d.Chain, 2)
	assert.Empty(t, d.PG.Code)
	assert.NotContains(t, d.LogFields(), "pg_code")
}

func TestDumpPostgresDrivers(t *testing.T) {
	pgx := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key", TableName: "users", Message: "duplicate key value"}
	d := Dump(Wrap(CodeConflict, fmt.Errorf("insert user: %w", pgx), "email already registered"))
	assert.Equal(t, "23505", d.PG.Code)
	assert.Equal(t, "users_email_key", d.PG.Constraint)
	assert.Equal(t, "users", d.PG.Table)
	assert.Equal(t, "users_email_key", d.LogFields()["pg_constraint"])

	pqErr := &pq.Error{Code: "23503", Table: "inquiries", Constraint: "inquiries_event_id_fkey"}
	d = Dump(fmt.Errorf("migrate: %w", pqErr))
	assert.Equal(t, "23503", d.PG.Code)
	assert.Equal(t, "inquiries", d.PG.Table)
}
