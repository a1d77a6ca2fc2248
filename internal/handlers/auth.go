package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/example/registry/internal/config"
	"github.com/example/registry/internal/middleware"
	"github.com/example/registry/internal/models"
	"github.com/example/registry/internal/services"
	"github.com/example/registry/internal/utils"
)

// PendingCookie carries the signed marker of a login awaiting its OTP.
const PendingCookie = "otpToken"

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	cfg      *config.Config
	verifier *services.CredentialVerifier
	sessions *services.SessionStore
	users    *services.UserService
	log      zerolog.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(cfg *config.Config, verifier *services.CredentialVerifier, sessions *services.SessionStore, users *services.UserService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		cfg:      cfg,
		verifier: verifier,
		sessions: sessions,
		users:    users,
		log:      log.With().Str("component", "auth").Logger(),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks credentials and either opens a session or starts the OTP step.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Email and password are required.")
	}

	email := services.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Email and password are required.")
	}
	if !utils.IsEmail(email) {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid email format.")
	}
	if len(strings.TrimSpace(req.Password)) < 6 {
		return fiber.NewError(fiber.StatusBadRequest, "Password must be at least 6 characters.")
	}

	ctx := c.UserContext()
	user, err := h.verifier.Verify(ctx, email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.log.Info().Str("ip", c.IP()).Msg("login rejected")
		}
		return err
	}

	roleIDs, err := h.users.RoleIDs(ctx, user.ID)
	if err != nil {
		return err
	}

	if h.cfg.TwoFactorEnabled {
		if err := h.verifier.IssueOTP(ctx, user); err != nil {
			return err
		}
		pending, err := utils.GeneratePendingToken(h.cfg.JWTSecret, user.ID, services.OTPLifetime)
		if err != nil {
			return err
		}
		c.Cookie(h.cookie(PendingCookie, pending, services.OTPLifetime))

		return c.JSON(fiber.Map{
			"message": "A verification code has been sent.",
			"user": fiber.Map{
				"name":    user.Name,
				"email":   user.Email,
				"phone":   user.Phone,
				"role_id": roleIDs,
			},
		})
	}

	if err := h.startSession(c, user); err != nil {
		return err
	}

	h.log.Info().Uint("user_id", user.ID).Msg("login succeeded")
	return c.JSON(fiber.Map{
		"expires_in": int(services.SessionLifetime.Seconds()),
		"user": fiber.Map{
			"id":      user.ID,
			"name":    user.Name,
			"email":   user.Email,
			"phone":   user.Phone,
			"role_id": roleIDs,
		},
	})
}

type verifyOTPRequest struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}

// VerifyOTP completes a two-factor login.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	pending := c.Cookies(PendingCookie)
	if pending == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "Verification session expired. Please login again.")
	}
	userID, err := utils.ParsePendingToken(h.cfg.JWTSecret, pending)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Verification session expired. Please login again.")
	}

	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.Validate(&req); err != nil {
		return services.ErrInvalidOTP
	}

	user, err := h.verifier.VerifyOTP(c.UserContext(), userID, req.OTP)
	if err != nil {
		return err
	}

	c.Cookie(h.expiredCookie(PendingCookie))
	if err := h.startSession(c, user); err != nil {
		return err
	}

	h.log.Info().Uint("user_id", user.ID).Msg("otp verified")
	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"phone": user.Phone,
		},
	})
}

// Logout drops the session and clears the cookie. It always succeeds.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if token := middleware.SessionToken(c); token != "" {
		if err := h.sessions.Invalidate(c.UserContext(), token); err != nil {
			h.log.Error().Err(err).Msg("failed to invalidate session")
		}
	}

	c.Cookie(h.expiredCookie(middleware.SessionCookie))
	c.Cookie(h.expiredCookie(PendingCookie))
	return c.JSON(fiber.Map{"message": "Logged out successfully."})
}

// UserInfo returns the current user with the permissions granted by its roles.
func (h *AuthHandler) UserInfo(c *fiber.Ctx) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}

	permissions, err := h.users.Permissions(c.UserContext(), id.ID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":          id.ID,
			"name":        id.Name,
			"email":       id.Email,
			"phone":       id.Phone,
			"role_id":     id.RoleIDs,
			"permissions": permissions,
		},
	})
}

func (h *AuthHandler) startSession(c *fiber.Ctx, user *models.User) error {
	ctx := c.UserContext()
	token, _, err := h.sessions.Create(ctx, user.ID)
	if err != nil {
		return err
	}
	c.Cookie(h.cookie(middleware.SessionCookie, token, services.SessionLifetime))

	if purged, err := h.sessions.PurgeExpired(ctx); err != nil {
		h.log.Warn().Err(err).Msg("failed to purge expired sessions")
	} else if purged > 0 {
		h.log.Debug().Int64("purged", purged).Msg("expired sessions removed")
	}
	return nil
}

func (h *AuthHandler) cookie(name, value string, ttl time.Duration) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		Secure:   h.cfg.IsProduction(),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	}
}

func (h *AuthHandler) expiredCookie(name string) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		Secure:   h.cfg.IsProduction(),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	}
}
