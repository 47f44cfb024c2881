package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"wedding-site/internal/models"
)

// Mode tells which path a sign-in took
type Mode string

const (
	ModeRegister Mode = "register"
	ModeLogin    Mode = "login"
)

// Result is a successful guest sign-in
type Result struct {
	Mode    Mode
	Profile models.GuestProfile
	Token   string
}

// API is the part of the remote API the handler needs
type API interface {
	Register(ctx context.Context, name, email, password string) (models.AuthResponse, error)
	Login(ctx context.Context, email, password string) (models.AuthResponse, error)
	AdminLogin(ctx context.Context, code string) (string, error)
}

// Handler implements guest sign-in and the admin code exchange
type Handler struct {
	api API
	log zerolog.Logger
}

// NewHandler creates a new auth handler
func NewHandler(api API, logger zerolog.Logger) *Handler {
	return &Handler{
		api: api,
		log: logger.With().Str("component", "Auth").Logger(),
	}
}

// Normalize trims the credentials, lower-cases the email and fills in the
// default name. Email and password are required.
func Normalize(creds models.Credentials) (models.Credentials, error) {
	out := models.Credentials{
		Name:     strings.TrimSpace(creds.Name),
		Email:    strings.ToLower(strings.TrimSpace(creds.Email)),
		Password: creds.Password,
	}
	if out.Name == "" {
		out.Name = models.DefaultGuestName
	}
	if out.Email == "" || out.Password == "" {
		field := "email"
		if out.Email != "" {
			field = "password"
		}
		return out, &models.ValidationError{Field: field, Message: "email and password are required"}
	}
	return out, nil
}

// RegisterOrLogin signs a guest in with a single form. It tries to create the
// account first; if the server answers that the account already exists it
// verifies the password against that account instead.
func (h *Handler) RegisterOrLogin(ctx context.Context, creds models.Credentials) (Result, error) {
	creds, err := Normalize(creds)
	if err != nil {
		return Result{}, err
	}

	resp, err := h.api.Register(ctx, creds.Name, creds.Email, creds.Password)
	if err == nil {
		h.log.Info().Str("email", creds.Email).Msg("Registered new guest")
		return sessionResult(ModeRegister, resp)
	}

	var rejection *models.ServerRejection
	if !errors.As(err, &rejection) || rejection.Status != http.StatusConflict {
		h.log.Error().Err(err).Msg("Register failed")
		return Result{}, &models.AuthError{Message: models.UserMessage(err, "error creating account"), Err: err}
	}

	// Account exists: verify the password instead
	resp, err = h.api.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		if errors.As(err, &rejection) {
			return Result{}, &models.InvalidCredentialsError{Message: rejection.Message, Err: err}
		}
		h.log.Error().Err(err).Msg("Login failed")
		return Result{}, &models.AuthError{Message: models.UserMessage(err, "error signing in"), Err: err}
	}

	h.log.Info().Str("email", creds.Email).Msg("Guest signed in")
	return sessionResult(ModeLogin, resp)
}

func sessionResult(mode Mode, resp models.AuthResponse) (Result, error) {
	if resp.Token == "" {
		return Result{}, &models.AuthError{Message: "server returned no session token"}
	}
	return Result{Mode: mode, Profile: resp.User, Token: resp.Token}, nil
}

// ExchangeCode trades the couple's admin code for an admin token
func (h *Handler) ExchangeCode(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", &models.ValidationError{Field: "code", Message: "admin code is required"}
	}

	token, err := h.api.AdminLogin(ctx, code)
	if err != nil {
		return "", &models.AuthError{Message: models.UserMessage(err, "invalid admin code"), Err: err}
	}
	if token == "" {
		return "", &models.AuthError{Message: "server returned no admin token"}
	}
	return token, nil
}
