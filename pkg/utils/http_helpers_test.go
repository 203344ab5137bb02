package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "sundey-crm/pkg/errors"
)

func respond(t *testing.T, err error) (int, ErrorBody) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, ErrorResponse(e.NewContext(req, rec), err, zap.NewNop()))

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestErrorResponse_Kinds(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		kind apperrors.Kind
	}{
		{"not found", fmt.Errorf("reservation x: %w", apperrors.ErrNotFound), http.StatusNotFound, apperrors.KindNotFound},
		{"transition", &apperrors.InvalidTransitionError{From: "DONE", To: "WORKING"}, http.StatusBadRequest, apperrors.KindInvalidTransition},
		{"capacity", &apperrors.CapacityExceededError{Type: "BEFORE", Limit: 5}, http.StatusBadRequest, apperrors.KindCapacityExceeded},
		{"input", apperrors.NewInvalidInputError("amount", "must be positive"), http.StatusBadRequest, apperrors.KindValidation},
		{"conflict", apperrors.ErrConflict, http.StatusConflict, apperrors.KindConflict},
		{"unauthorized", apperrors.ErrTokenExpired, http.StatusUnauthorized, apperrors.KindUnauthorized},
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden, apperrors.KindForbidden},
		{"http error", apperrors.NewHttpError(http.StatusBadRequest, "invalid request body", errors.New("eof"), nil), http.StatusBadRequest, apperrors.KindValidation},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, apperrors.KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := respond(t, tc.err)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, tc.kind, body.Kind)
			assert.False(t, body.Status)
		})
	}
}

func TestErrorResponse_HidesInternalDetails(t *testing.T) {
	_, body := respond(t, errors.New("password=hunter2"))
	assert.Equal(t, internalErrorMessage, body.Message)
}

func TestErrorResponse_TransitionBody(t *testing.T) {
	_, body := respond(t, &apperrors.InvalidTransitionError{From: "CONFIRMED", To: "DONE"})
	assert.Equal(t, map[string]interface{}{"from": "CONFIRMED", "to": "DONE"}, body.Body)
}

func TestQueryInt(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?take=15&skip=-3&bad=x", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	assert.Equal(t, 15, QueryInt(c, "take", 20))
	assert.Equal(t, 0, QueryInt(c, "skip", 0))
	assert.Equal(t, 7, QueryInt(c, "bad", 7))
	assert.Equal(t, 20, QueryInt(c, "missing", 20))
}
