package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// Context keys set by the middleware in this package.
const (
	KeyUserID    = "user_id"
	KeyRole      = "role"
	KeyRequestID = "request_id"
)

// UserID returns the authenticated user id, if any.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(KeyUserID).(uint64)
	return id, ok && id != 0
}

func Role(c echo.Context) string {
	r, _ := c.Get(KeyRole).(string)
	return r
}

func IsAdmin(c echo.Context) bool { return Role(c) == model.RoleAdmin }

func RequestID(c echo.Context) string {
	id, _ := c.Get(KeyRequestID).(string)
	return id
}

// userKey is the rate-limit identity: the user id or "anon".
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
