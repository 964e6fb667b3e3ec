package middleware

// identity.go holds the helpers shared by the middleware that need to know
// who is calling: Protect stores the authenticated user in the Echo
// context and everything downstream reads it back through CurrentUser.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking-api/internal/model"
)

const userKey = "user"

// SetUser attaches the authenticated user to c.
func SetUser(c echo.Context, u *model.User) {
	c.Set(userKey, u)
}

// CurrentUser returns the user stored by Protect, or nil on public routes.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(userKey).(*model.User)
	return u
}

// userID returns the caller's id for rate-limit keys, "anon" when the
// request is not authenticated.
func userID(c echo.Context) string {
	if u := CurrentUser(c); u != nil {
		return strconv.FormatUint(u.ID, 10)
	}
	return "anon"
}
