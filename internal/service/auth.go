package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/tour-booking-api/internal/apperr"
	"github.com/iliyamo/tour-booking-api/internal/email"
	"github.com/iliyamo/tour-booking-api/internal/logging"
	"github.com/iliyamo/tour-booking-api/internal/metrics"
	"github.com/iliyamo/tour-booking-api/internal/model"
	"github.com/iliyamo/tour-booking-api/internal/repository"
	"github.com/iliyamo/tour-booking-api/internal/utils"
	"github.com/iliyamo/tour-booking-api/internal/validation"
)

// Client-facing auth messages.
const (
	MsgMissingCredentials = "Please provide email and password!"
	MsgBadCredentials     = "Incorrect email or password"
	MsgNotLoggedIn        = "You are not logged in! Please log in to get access."
	MsgInvalidToken       = "Invalid token. Please log in again!"
	MsgExpiredToken       = "Your token has expired! Please log in again."
	MsgUserGone           = "The user belonging to this token does no longer exist."
	MsgPasswordChanged    = "User recently changed password! Please log in again."
	MsgNoSuchEmail        = "There is no user with that email address."
	MsgResetSendFailed    = "There was an error sending the email. Try again later!"
	MsgResetInvalid       = "Token is invalid or has expired"
	MsgWrongPassword      = "Your current password is wrong"
)

// AuthConfig carries the token and hashing parameters.
type AuthConfig struct {
	Secret     string
	TokenTTL   time.Duration
	ResetTTL   time.Duration
	BcryptCost int
}

// Session is an issued session token and the user it belongs to.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

type AuthService struct {
	users  UserStore
	resets ResetStore
	mailer email.Sender
	cfg    AuthConfig
	now    func() time.Time
}

func NewAuthService(users UserStore, resets ResetStore, mailer email.Sender, cfg AuthConfig) *AuthService {
	return &AuthService{users: users, resets: resets, mailer: mailer, cfg: cfg, now: time.Now}
}

// Signup creates a user with role "user" regardless of the input and
// starts a session for it.
func (s *AuthService) Signup(ctx context.Context, in model.UserInput) (*Session, error) {
	u := in.User()
	u.Role = model.RoleUser
	creds := in.Credentials()
	if err := validation.Merge(model.ValidateUser(u), model.ValidateCredentials(creds)); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(creds.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().Uint64("user_id", u.ID).Msg("user signed up")
	return s.issue(u)
}

// Login checks credentials. Unknown email and wrong password produce the
// same error.
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (*Session, error) {
	if emailAddr == "" || password == "" {
		return nil, apperr.BadRequest(MsgMissingCredentials)
	}
	u, err := s.users.GetByEmail(ctx, emailAddr)
	if errors.Is(err, repository.ErrNotFound) {
		utils.BurnPasswordCheck(password)
		metrics.RecordAuthFailure("bad_credentials")
		return nil, apperr.Unauthorized(MsgBadCredentials)
	}
	if err != nil {
		return nil, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		metrics.RecordAuthFailure("bad_credentials")
		return nil, apperr.Unauthorized(MsgBadCredentials)
	}
	return s.issue(u)
}

// Authenticate resolves a raw session token to its user. Token parse
// errors are returned unchanged (they match jwt.ErrTokenExpired and
// friends) and are turned into responses by the error handler.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*model.User, error) {
	if raw == "" {
		metrics.RecordAuthFailure("missing_token")
		return nil, apperr.Unauthorized(MsgNotLoggedIn)
	}
	claims, err := utils.ParseSessionToken(s.cfg.Secret, raw)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			metrics.RecordAuthFailure("expired_token")
		} else {
			metrics.RecordAuthFailure("invalid_token")
		}
		return nil, err
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordAuthFailure("user_gone")
		return nil, apperr.Unauthorized(MsgUserGone)
	}
	if err != nil {
		return nil, err
	}
	if u.ChangedPasswordAfter(claims.IssuedAt) {
		metrics.RecordAuthFailure("password_changed")
		return nil, apperr.Unauthorized(MsgPasswordChanged)
	}
	return u, nil
}

// ForgotPassword stores a reset token for the user and mails its
// plaintext through resetURL. A failed dispatch clears the stored token.
func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr string, resetURL func(token string) string) error {
	u, err := s.users.GetByEmail(ctx, emailAddr)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(MsgNoSuchEmail)
	}
	if err != nil {
		return err
	}
	tok, err := utils.NewResetToken(s.cfg.ResetTTL, s.now())
	if err != nil {
		return err
	}
	if err := s.resets.StoreReset(ctx, u.ID, tok.Hash, tok.Exp); err != nil {
		return err
	}
	msg := email.PasswordReset(u.Email, u.Name, resetURL(tok.Raw))
	msg.UserID = u.ID
	if err := s.mailer.Send(ctx, msg); err != nil {
		if cerr := s.resets.ClearReset(ctx, u.ID); cerr != nil {
			logging.Ctx(ctx).Error().Err(cerr).Uint64("user_id", u.ID).Msg("clear reset token failed")
		}
		return apperr.Wrap(err, http.StatusInternalServerError, MsgResetSendFailed)
	}
	return nil
}

// ResetPassword sets a new password for the holder of a valid reset token.
func (s *AuthService) ResetPassword(ctx context.Context, raw string, c model.Credentials) (*Session, error) {
	u, err := s.resets.FindByReset(ctx, utils.HashToken(raw), s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.BadRequest(MsgResetInvalid)
	}
	if err != nil {
		return nil, err
	}
	if err := s.setPassword(ctx, u, c); err != nil {
		return nil, err
	}
	return s.issue(u)
}

// UpdatePassword changes the password of a logged-in user after checking
// the current one.
func (s *AuthService) UpdatePassword(ctx context.Context, userID uint64, current string, c model.Credentials) (*Session, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		metrics.RecordAuthFailure("wrong_current_password")
		return nil, apperr.Unauthorized(MsgWrongPassword)
	}
	if err := s.setPassword(ctx, u, c); err != nil {
		return nil, err
	}
	return s.issue(u)
}

// setPassword validates, hashes and stores c. The change time is backdated
// by one second so a token issued right after still verifies.
func (s *AuthService) setPassword(ctx context.Context, u *model.User, c model.Credentials) error {
	if err := model.ValidateCredentials(c); err != nil {
		return err
	}
	hash, err := utils.HashPassword(c.Password, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	changed := s.now().Add(-time.Second)
	if err := s.users.SetPassword(ctx, u.ID, hash, changed); err != nil {
		return err
	}
	u.PasswordHash = hash
	u.PasswordChangedAt = &changed
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
	return nil
}

func (s *AuthService) issue(u *model.User) (*Session, error) {
	tok, err := utils.NewSessionToken(s.cfg.Secret, u.ID, s.cfg.TokenTTL, s.now())
	if err != nil {
		return nil, err
	}
	return &Session{Token: tok.Token, ExpiresAt: tok.Exp, User: u}, nil
}
