package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/example/registry/internal/models"
	"github.com/example/registry/internal/services"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "authToken"

const (
	identityKey     = "identity"
	sessionTokenKey = "sessionToken"
)

// Identity is the authenticated operator attached to every gated request.
type Identity struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	RoleIDs []uint `json:"role_id"`
}

// Gate resolves the session behind every request except the public paths.
type Gate struct {
	db       *gorm.DB
	sessions *services.SessionStore
	public   map[string]struct{}
	log      zerolog.Logger
}

// NewGate constructs a Gate. publicPaths are full request paths, e.g. "/api/login".
func NewGate(db *gorm.DB, sessions *services.SessionStore, log zerolog.Logger, publicPaths ...string) *Gate {
	public := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		public[normalizePath(p)] = struct{}{}
	}
	return &Gate{
		db:       db,
		sessions: sessions,
		public:   public,
		log:      log.With().Str("component", "gate").Logger(),
	}
}

// Handler returns the fiber middleware.
func (g *Gate) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := g.public[normalizePath(c.Path())]; ok {
			return c.Next()
		}

		token := extractToken(c)
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Not Authenticated.")
		}

		ctx := c.UserContext()
		session, err := g.sessions.Resolve(ctx, token)
		if err != nil {
			if errors.Is(err, services.ErrSessionInvalid) {
				return fiber.NewError(fiber.StatusUnauthorized, "Session expired or invalid.")
			}
			g.log.Error().Err(err).Str("path", c.Path()).Msg("session lookup failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to authenticate request.")
		}

		var user models.User
		if err := g.db.WithContext(ctx).First(&user, session.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				g.log.Warn().Uint("user_id", session.UserID).Msg("session owner no longer exists")
				return fiber.NewError(fiber.StatusUnauthorized, "User not found.")
			}
			g.log.Error().Err(err).Str("path", c.Path()).Msg("user lookup failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to authenticate request.")
		}

		roleIDs := []uint{}
		if err := g.db.WithContext(ctx).Model(&models.UserRole{}).
			Where("user_id = ?", user.ID).Order("role_id").
			Pluck("role_id", &roleIDs).Error; err != nil {
			g.log.Error().Err(err).Uint("user_id", user.ID).Msg("role lookup failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to authenticate request.")
		}

		c.Locals(identityKey, &Identity{
			ID:      user.ID,
			Name:    user.Name,
			Email:   user.Email,
			Phone:   user.Phone,
			RoleIDs: roleIDs,
		})
		c.Locals(sessionTokenKey, token)
		return c.Next()
	}
}

// CurrentIdentity returns the identity attached by the Gate.
func CurrentIdentity(c *fiber.Ctx) (*Identity, bool) {
	id, ok := c.Locals(identityKey).(*Identity)
	return id, ok && id != nil
}

// SessionToken returns the raw token the current request authenticated with.
func SessionToken(c *fiber.Ctx) string {
	if token, ok := c.Locals(sessionTokenKey).(string); ok {
		return token
	}
	return extractToken(c)
}

// extractToken prefers the session cookie and falls back to a bearer header.
func extractToken(c *fiber.Ctx) string {
	if token := strings.TrimSpace(c.Cookies(SessionCookie)); token != "" {
		return token
	}

	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func normalizePath(p string) string {
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return strings.ToLower(p)
}
