package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crm-backend/internal/apperr"
)

const internalError = "Internal server error"

type errorBody struct {
	Error string `json:"error"`
}

type fieldsBody struct {
	Errors []apperr.FieldError `json:"errors"`
}

// ErrorHandler renders errors as {error} or, for field validation
// failures, {errors:[{field,message}]}. Unexpected failures only show
// their message in development.
func ErrorHandler(development bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := renderError(err, development)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func renderError(err error, development bool) (int, any) {
	var be *echo.BindingError
	if errors.As(err, &be) {
		return http.StatusBadRequest, fieldsBody{Errors: []apperr.FieldError{{Field: be.Field, Message: be.Field + " is invalid"}}}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorBody{Error: fmt.Sprint(he.Message)}
	}

	status := apperr.Status(err)
	if fields := apperr.FieldsOf(err); len(fields) > 0 {
		return status, fieldsBody{Errors: fields}
	}
	if apperr.KindOf(err) == apperr.KindUnexpected {
		if development {
			return status, errorBody{Error: err.Error()}
		}
		return status, errorBody{Error: internalError}
	}
	return status, errorBody{Error: apperr.Message(err)}
}
