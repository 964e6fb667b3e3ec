package handler

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking-api/internal/apperr"
	"github.com/iliyamo/tour-booking-api/internal/logging"
	"github.com/iliyamo/tour-booking-api/internal/query"
	"github.com/iliyamo/tour-booking-api/internal/repository"
	"github.com/iliyamo/tour-booking-api/internal/service"
	"github.com/iliyamo/tour-booking-api/internal/utils"
	"github.com/iliyamo/tour-booking-api/internal/validation"
)

// ErrorHandler is the single place where errors become responses. In
// development the raw error and a stack trace are added to the body.
func ErrorHandler(development bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		ae := Normalize(err, c.Request().URL.Path)
		if !ae.Operational {
			ev := logging.Ctx(c.Request().Context()).Error().Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path)
			if st := ae.Stack(); st != nil {
				ev = ev.Str("stack", string(st))
			}
			ev.Msg("unhandled error")
		}
		body := envelope{Status: ae.Status(), Message: ae.Message}
		if development {
			body.Error = err.Error()
			body.Stack, body.StackSource = devStack(ae)
		}
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(ae.Code)
		} else {
			werr = c.JSON(ae.Code, body)
		}
		if werr != nil {
			logging.Ctx(c.Request().Context()).Warn().Err(werr).Msg("writing error response failed")
		}
	}
}

// devStack returns the stack recorded where ae was raised. Errors that
// carry none get the error handler's own stack, labelled as such.
func devStack(ae *apperr.Error) (string, string) {
	if st := ae.Stack(); st != nil {
		return string(st), "origin"
	}
	return string(debug.Stack()), "errorHandler"
}

// RecoverPanic turns a panic caught by echo's Recover middleware into an
// internal error that keeps the panicking goroutine's stack.
func RecoverPanic(_ echo.Context, err error, stack []byte) error {
	return apperr.Panic(err, stack)
}

// Normalize maps any error onto an *apperr.Error. Known categories become
// operational 4xx errors; everything else is an internal 500.
func Normalize(err error, path string) *apperr.Error {
	if ae, ok := apperr.As(err); ok {
		return ae
	}
	var (
		cast *query.CastError
		ve   *validation.Error
		dup  *repository.DuplicateError
		he   *echo.HTTPError
	)
	switch {
	case errors.As(err, &cast):
		return apperr.Wrap(err, http.StatusBadRequest, cast.Error())
	case errors.As(err, &ve):
		return apperr.Wrap(err, http.StatusBadRequest, ve.Error())
	case errors.As(err, &dup):
		return apperr.Wrap(err, http.StatusBadRequest,
			fmt.Sprintf("Duplicate field value: %q. Please use another value!", dup.Value))
	case errors.Is(err, repository.ErrBadReference):
		return apperr.Wrap(err, http.StatusBadRequest, "Referenced document does not exist")
	case errors.Is(err, repository.ErrNotFound):
		return apperr.Wrap(err, http.StatusNotFound, "No document found with that ID")
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperr.Wrap(err, http.StatusUnauthorized, service.MsgExpiredToken)
	case isTokenError(err):
		return apperr.Wrap(err, http.StatusUnauthorized, service.MsgInvalidToken)
	case errors.As(err, &he):
		return fromHTTPError(he, path)
	}
	return apperr.Unexpected(err)
}

func isTokenError(err error) bool {
	for _, target := range []error{
		jwt.ErrTokenMalformed,
		jwt.ErrTokenSignatureInvalid,
		jwt.ErrTokenUnverifiable,
		jwt.ErrTokenInvalidClaims,
		jwt.ErrTokenNotValidYet,
		jwt.ErrTokenRequiredClaimMissing,
		utils.ErrInvalidSubject,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func fromHTTPError(he *echo.HTTPError, path string) *apperr.Error {
	switch he.Code {
	case http.StatusNotFound:
		return apperr.Newf(http.StatusNotFound, "Can't find %s on this server!", path)
	case http.StatusRequestEntityTooLarge:
		return apperr.New(http.StatusRequestEntityTooLarge, "Request body is too large")
	}
	msg, ok := he.Message.(string)
	if !ok {
		msg = http.StatusText(he.Code)
	}
	if he.Code >= http.StatusInternalServerError {
		return apperr.Unexpected(he)
	}
	return apperr.Wrap(he, he.Code, msg)
}
