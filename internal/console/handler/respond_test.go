package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/gad-tramites/internal/domain"
)

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.NewValidationError("note", "is required"), http.StatusUnprocessableEntity, "validation_failed"},
		{&domain.ValidationError{Field: "code", Err: domain.ErrPaymentNotRequired}, http.StatusUnprocessableEntity, "payment_not_required"},
		{fmt.Errorf("instance x: %w", domain.ErrNotFound), http.StatusNotFound, "not_found"},
		{&domain.TransitionError{From: domain.StateRejected, Action: domain.ActionApprove}, http.StatusConflict, "invalid_transition"},
		{fmt.Errorf("closed: %w", domain.ErrStateConflict), http.StatusConflict, "state_conflict"},
		{domain.ErrConcurrencyConflict, http.StatusConflict, "concurrent_modification"},
		{&domain.RenderError{Cause: errors.New("timeout")}, http.StatusBadGateway, "render_failed"},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, zap.NewNop(), tc.err)

		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.code, body.Error)
		if tc.code == "internal" {
			assert.NotContains(t, body.Message, "pq:")
		}
	}
}
