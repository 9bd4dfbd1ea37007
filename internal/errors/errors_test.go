package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("load invoice: %w", NotFound("Invoice"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(NotFound("Invoice"), NotFound("Client")))
	assert.True(t, errors.Is(Validation("bad", "amount"), ErrValidation))

	cause := errors.New("connection reset")
	dep := Dependency("list invoices", cause)
	assert.True(t, errors.Is(dep, ErrDependencyFailure))
	assert.True(t, errors.Is(dep, cause))
	assert.Equal(t, "list invoices: connection reset", dep.Error())
}

func TestKindOfAndStatusCode(t *testing.T) {
	tests := []struct {
		err    error
		kind   Kind
		status int
	}{
		{Unauthenticated(""), KindUnauthenticated, http.StatusUnauthorized},
		{Forbidden(""), KindForbidden, http.StatusForbidden},
		{MissingFields("due_date"), KindValidation, http.StatusBadRequest},
		{NotFound(""), KindNotFound, http.StatusNotFound},
		{Conflict(""), KindConflict, http.StatusConflict},
		{errors.New("plain"), KindDependencyFailure, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.status, StatusCode(KindOf(tt.err)))
		})
	}
}

func TestMissingFields(t *testing.T) {
	err := MissingFields("client_id", "amount")
	assert.Equal(t, "Missing required fields: client_id, amount", err.Message)
	assert.Equal(t, []string{"client_id", "amount"}, err.Fields)
}

func respond(err error, log *zap.Logger) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	Respond(c, log, err)
	return w
}

func TestRespond_ValidationCarriesFields(t *testing.T) {
	w := respond(Validation("Cannot move invoice from sent to draft", "status"), zap.NewNop())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, APIError{
		Success: false,
		Error:   "Cannot move invoice from sent to draft",
		Code:    KindValidation,
		Fields:  []string{"status"},
	}, body)
}

func TestRespond_HidesDependencyCause(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	w := respond(Dependency("list invoices", errors.New("dial tcp 10.0.0.5:5432: refused")), zap.New(core))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
	assert.Contains(t, w.Body.String(), "Internal server error, please retry")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "list invoices", entries[0].ContextMap()["operation"])
}

func TestRespond_UnknownErrorIsInternal(t *testing.T) {
	w := respond(errors.New("boom"), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}
