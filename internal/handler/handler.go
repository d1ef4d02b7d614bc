// Package handler binds HTTP requests to the service layer and renders the
// results. Mutating endpoints return an Outcome; Audited sends it and then
// writes the activity log entry.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crm-backend/internal/apperr"
	"github.com/iliyamo/crm-backend/internal/middleware"
	"github.com/iliyamo/crm-backend/internal/model"
	"github.com/iliyamo/crm-backend/internal/service"
)

// Recorder writes activity log entries.
type Recorder interface {
	Record(ctx context.Context, user *model.User, e service.AuditEntry)
}

// Outcome is what a mutating handler produces: the response, plus the
// request payload snapshot stored with the activity entry.
type Outcome struct {
	Status  int
	Body    any
	Details any
}

// MutationFunc is a handler of a mutating endpoint.
type MutationFunc func(c echo.Context) (*Outcome, error)

// Audited turns fn into an echo handler. After a successful response it
// records one activity entry for the caller: action is the HTTP method,
// entity the resource name and entityId the :id parameter.
func Audited(rec Recorder, entity string, fn MutationFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		out, err := fn(c)
		if err != nil {
			return err
		}
		if err := c.JSON(out.Status, out.Body); err != nil {
			return err
		}
		if out.Status >= http.StatusBadRequest {
			return nil
		}
		req := c.Request()
		rec.Record(req.Context(), middleware.CurrentUser(c), service.AuditEntry{
			Action:    req.Method,
			Entity:    entity,
			EntityID:  c.Param("id"),
			Details:   out.Details,
			IPAddress: c.RealIP(),
			UserAgent: req.UserAgent(),
		})
		return nil
	}
}

// message is the body of responses that only carry a confirmation.
type message struct {
	Message string `json:"message"`
}

// bindJSON decodes the request body into v and returns the raw body for
// the activity log.
func bindJSON(c echo.Context, v any) (json.RawMessage, error) {
	req := c.Request()
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return nil, he
		}
		return nil, apperr.Invalid("Invalid request body")
	}
	req.Body = io.NopCloser(bytes.NewReader(raw))
	if err := (&echo.DefaultBinder{}).BindBody(c, v); err != nil {
		return nil, apperr.Invalid("Invalid request body")
	}
	if len(bytes.TrimSpace(raw)) == 0 || !json.Valid(raw) {
		return nil, nil
	}
	return raw, nil
}

// paramID parses a numeric path parameter. Values that cannot name a row
// are reported as the missing resource.
func paramID(c echo.Context, name, resource string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.NotFound(resource + " not found")
	}
	return id, nil
}

// pathParam returns a path parameter exactly as the client encoded it.
// echo matches on the raw path only when it differs from the decoded one,
// and only then is the value still escaped.
func pathParam(c echo.Context, name string) (string, error) {
	v := c.Param(name)
	if c.Request().URL.RawPath == "" {
		return v, nil
	}
	s, err := url.PathUnescape(v)
	if err != nil {
		return "", apperr.Invalid(name + " is invalid")
	}
	return s, nil
}

// pageParams reads page and limit. Malformed values fall back to the
// defaults.
func pageParams(c echo.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	return page, limit
}

// listParam splits a comma separated query parameter, dropping blanks.
func listParam(c echo.Context, name string) []string {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// dateParam parses an RFC 3339 timestamp or a YYYY-MM-DD date.
func dateParam(c echo.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Validation(apperr.FieldError{Field: name, Message: name + " must be a valid date"})
}
