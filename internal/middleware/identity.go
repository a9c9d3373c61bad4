package middleware

import "github.com/labstack/echo/v4"

// UserID returns the authenticated username, or "" for anonymous requests.
// Handlers pass it explicitly to every ledger and committer call.
func UserID(c echo.Context) string {
	if s, ok := c.Get(CtxUserID).(string); ok {
		return s
	}
	return ""
}

// rateSubject is the identity used in rate-limit keys.
func rateSubject(c echo.Context) string {
	if s := UserID(c); s != "" {
		return s
	}
	return "anon"
}
