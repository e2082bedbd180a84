package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/token"
)

// Logger emits one structured event per request. The level follows the
// response status, and when an authenticated principal is on the context
// the event carries its organization and role so per-tenant traffic can be
// filtered in log queries.
func Logger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			var evt *zerolog.Event
			switch {
			case status >= http.StatusInternalServerError:
				evt = log.Error()
			case status >= http.StatusBadRequest:
				evt = log.Warn()
			default:
				evt = log.Info()
			}
			if err != nil {
				evt = evt.Err(err)
			}

			req := c.Request()
			evt = evt.
				Str("request_id", RequestIDFrom(req.Context())).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Int64("bytes_out", c.Response().Size).
				Str("remote_ip", c.RealIP())

			// The principal is attached by the auth middleware deeper in the
			// chain; by the time next returns it is visible here.
			if p := token.PrincipalFromContext(req.Context()); p != nil {
				if p.OrganizationID != nil {
					evt = evt.Str("org_id", p.OrganizationID.String())
				}
				evt = evt.Str("role", p.Role)
			}

			evt.Msg("request")
			return err
		}
	}
}
