package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking-api/internal/middleware"
	"github.com/iliyamo/tour-booking-api/internal/model"
	"github.com/iliyamo/tour-booking-api/internal/service"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth       *service.AuthService
	CookieDays int
	Production bool
}

func NewAuthHandler(auth *service.AuthService, cookieDays int, production bool) *AuthHandler {
	return &AuthHandler{Auth: auth, CookieDays: cookieDays, Production: production}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotReq struct {
	Email string `json:"email"`
}

// updatePasswordReq accepts both the current field names and the older
// passwordOld/passwordNew pair.
type updatePasswordReq struct {
	PasswordCurrent string `json:"passwordCurrent"`
	PasswordOld     string `json:"passwordOld"`
	Password        string `json:"password"`
	PasswordNew     string `json:"passwordNew"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (r updatePasswordReq) current() string {
	if r.PasswordCurrent != "" {
		return r.PasswordCurrent
	}
	return r.PasswordOld
}

func (r updatePasswordReq) credentials() model.Credentials {
	pw := r.Password
	if pw == "" {
		pw = r.PasswordNew
	}
	return model.Credentials{Password: pw, PasswordConfirm: r.PasswordConfirm}
}

// sendSession sets the session cookie and writes the token with its user.
func (h *AuthHandler) sendSession(c echo.Context, code int, s *service.Session) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    s.Token,
		Path:     "/",
		Expires:  time.Now().AddDate(0, 0, h.CookieDays),
		HttpOnly: true,
		Secure:   h.Production || c.IsTLS(),
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(code, envelope{Status: "success", Token: s.Token, Data: echo.Map{"user": s.User}})
}

// Signup: create user and log them in immediately.
func (h *AuthHandler) Signup(c echo.Context) error {
	var in model.UserInput
	if err := bindBody(c, &in); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	s, err := h.Auth.Signup(ctx, in)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusCreated, s)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindBody(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	s, err := h.Auth.Login(ctx, model.NormalizeEmail(req.Email), req.Password)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, s)
}

// Logout overwrites the session cookie with a placeholder that expires
// in a few seconds.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    middleware.LoggedOutValue,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
		Secure:   h.Production || c.IsTLS(),
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, envelope{Status: "success"})
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := bindBody(c, &req); err != nil {
		return err
	}
	base := c.Scheme() + "://" + c.Request().Host + "/api/v1/users/resetPassword/"
	ctx, cancel := withTimeout(c)
	defer cancel()
	err := h.Auth.ForgotPassword(ctx, model.NormalizeEmail(req.Email), func(token string) string {
		return base + token
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, envelope{Status: "success", Message: "Token sent to email!"})
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var creds model.Credentials
	if err := bindBody(c, &creds); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	s, err := h.Auth.ResetPassword(ctx, c.Param("token"), creds)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, s)
}

func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	var req updatePasswordReq
	if err := bindBody(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	s, err := h.Auth.UpdatePassword(ctx, middleware.CurrentUser(c).ID, req.current(), req.credentials())
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, s)
}
