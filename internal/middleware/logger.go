package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// RequestLogger writes one structured entry per request.  Responses at or
// above errorStatus are logged at error level.
func RequestLogger(logger *logrus.Logger, errorStatus int) echo.MiddlewareFunc {
	if errorStatus == 0 {
		errorStatus = http.StatusInternalServerError
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req, res := c.Request(), c.Response()
			entry := logger.WithContext(req.Context()).WithFields(logrus.Fields{
				"method":     req.Method,
				"path":       c.Path(),
				"uri":        req.RequestURI,
				"status":     res.Status,
				"latency_ms": time.Since(start).Milliseconds(),
				"request_id": res.Header().Get(echo.HeaderXRequestID),
				"user_id":    UserID(c),
			})
			if err != nil {
				entry = entry.WithError(err)
			}
			if res.Status >= errorStatus {
				entry.Error("request")
			} else {
				entry.Info("request")
			}
			return nil
		}
	}
}
