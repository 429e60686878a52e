package middleware

import (
	"campusBooks/business/reco"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// TraceID reuses X-Request-ID or generates one, echoes it back and puts it on the request context.
func TraceID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			tid := req.Header.Get(echo.HeaderXRequestID)
			if tid == "" || len(tid) > 64 {
				tid = uuid.NewString()
			}

			c.Response().Header().Set(echo.HeaderXRequestID, tid)
			c.SetRequest(req.WithContext(reco.WithTraceID(req.Context(), tid)))

			return next(c)
		}
	}
}
