package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking-api/internal/apperr"
)

// MsgForbidden is returned when the caller's role is not allowed.
const MsgForbidden = "You do not have permission to perform this action"

// RestrictTo returns a middleware that only lets users holding one of
// roles through. It must run after Protect.
func RestrictTo(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil {
				return apperr.Unauthorized(MsgNotLoggedIn)
			}
			if !allowed[u.Role] {
				return apperr.Forbidden(MsgForbidden)
			}
			return next(c)
		}
	}
}
