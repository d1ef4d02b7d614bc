package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/crm-backend/internal/apperr"
)

func TestRenderError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		dev    bool
		status int
		body   any
	}{
		{"not found", apperr.NotFound("Lead not found"), false, http.StatusNotFound, errorBody{Error: "Lead not found"}},
		{"forbidden", apperr.ErrAccessDenied, false, http.StatusForbidden, errorBody{Error: "Access denied"}},
		{"duplicate", apperr.Duplicate("User already exists", nil), false, http.StatusBadRequest, errorBody{Error: "User already exists"}},
		{"fields", apperr.Validation(apperr.FieldError{Field: "email", Message: "email must be a valid email"}), false, http.StatusBadRequest,
			fieldsBody{Errors: []apperr.FieldError{{Field: "email", Message: "email must be a valid email"}}}},
		{"hidden", errors.New("dial tcp: refused"), false, http.StatusInternalServerError, errorBody{Error: internalError}},
		{"development", errors.New("dial tcp: refused"), true, http.StatusInternalServerError, errorBody{Error: "dial tcp: refused"}},
		{"echo", echo.ErrNotFound, false, http.StatusNotFound, errorBody{Error: "Not Found"}},
		{"too large", echo.ErrStatusRequestEntityTooLarge, false, http.StatusRequestEntityTooLarge, errorBody{Error: "Request Entity Too Large"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := renderError(tc.err, tc.dev)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.body, body)
		})
	}
}

func TestUnknownRouteIsJSON(t *testing.T) {
	e := newTestEcho()
	rec := doJSON(t, e, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())
}
