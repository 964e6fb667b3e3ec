package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking-api/internal/apperr"
	"github.com/iliyamo/tour-booking-api/internal/middleware"
	"github.com/iliyamo/tour-booking-api/internal/model"
	"github.com/iliyamo/tour-booking-api/internal/repository"
	"github.com/iliyamo/tour-booking-api/internal/service"
)

var UserResource = Resource{Singular: "user", Plural: "users", Schema: repository.UserSchema}

// MsgNoPasswordHere is returned when updateMe receives password fields.
const MsgNoPasswordHere = "This route is not for password updates. Please use /updateMyPassword."

// UserHandler serves the self-service profile routes.
type UserHandler struct {
	Users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{Users: users}
}

// Me returns the authenticated user.
func (h *UserHandler) Me(c echo.Context) error {
	return ok(c, http.StatusOK, UserResource.Singular, middleware.CurrentUser(c))
}

// updateMeBody is the allow-list of updateMe plus the password fields it
// must refuse.
type updateMeBody struct {
	model.UserPatch
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"passwordConfirm"`
}

// UpdateMe changes name, email or photo of the authenticated user.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	var body updateMeBody
	if err := bindBody(c, &body); err != nil {
		return err
	}
	if body.Password != nil || body.PasswordConfirm != nil {
		return apperr.BadRequest(MsgNoPasswordHere)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	u, err := h.Users.UpdateMe(ctx, middleware.CurrentUser(c).ID, body.UserPatch)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, UserResource.Singular, u)
}

// DeleteMe deactivates the authenticated user.
func (h *UserHandler) DeleteMe(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Users.DeleteMe(ctx, middleware.CurrentUser(c).ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
