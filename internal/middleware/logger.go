package middleware

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crm-backend/internal/metrics"
)

// RequestID tags each request with the incoming X-Request-ID or a new
// uuid and echoes it on the response.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}

// Logging logs every request once it has been handled. Errors are passed
// to the error handler first so the logged status is the one sent.
func Logging(log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			fields := logrus.Fields{
				"method":      req.Method,
				"path":        req.URL.Path,
				"status":      c.Response().Status,
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_addr": c.RealIP(),
				"request_id":  c.Response().Header().Get(echo.HeaderXRequestID),
			}
			if u := CurrentUser(c); u != nil {
				fields["user_id"] = u.ID
			}
			entry := log.WithFields(fields)
			switch {
			case c.Response().Status >= 500:
				entry.WithError(err).Error("handled request")
			case err != nil:
				entry.WithError(err).Info("handled request")
			default:
				entry.Info("handled request")
			}
			return nil
		}
	}
}

// Metrics records the count and latency of each request by route pattern.
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			m.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
