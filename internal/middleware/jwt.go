package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking-api/internal/apperr"
	"github.com/iliyamo/tour-booking-api/internal/model"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "jwt"

// MsgNotLoggedIn is returned when a protected route is called without a token.
const MsgNotLoggedIn = "You are not logged in! Please log in to get access."

// Authenticator resolves a raw session token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*model.User, error)
}

// Protect returns an Echo middleware that accepts a session token from the
// Authorization header ("Bearer <token>") or the jwt cookie, resolves it
// to a live user and stores that user in the context. Failures are
// returned as errors so the HTTP error handler renders them.
func Protect(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFromRequest(c)
			if raw == "" {
				return apperr.Unauthorized(MsgNotLoggedIn)
			}
			u, err := auth.Authenticate(c.Request().Context(), raw)
			if err != nil {
				return err
			}
			SetUser(c, u)
			return next(c)
		}
	}
}

func tokenFromRequest(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if ck, err := c.Cookie(SessionCookie); err == nil && ck.Value != "" && ck.Value != LoggedOutValue {
		return ck.Value
	}
	return ""
}

// LoggedOutValue is the placeholder written to the cookie on logout.
const LoggedOutValue = "loggedout"
