package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
)

// TokenValidator resolves a bearer token to its claims. The auth service
// implements it.
type TokenValidator interface {
	ValidateToken(token string) (*model.TokenClaims, error)
}

type AuthMiddleware struct {
	validator TokenValidator
	cache     *gocache.Cache
}

// NewAuthMiddleware builds the authentication gate. Validated tokens are
// cached for cacheTTL so hot clients skip signature verification; the TTL
// must stay well below token expiry.
func NewAuthMiddleware(validator TokenValidator, cacheTTL time.Duration) *AuthMiddleware {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &AuthMiddleware{
		validator: validator,
		cache:     gocache.New(cacheTTL, 10*time.Minute),
	}
}

// Authenticate verifies the bearer token and stores the caller identity
// in the request context. Failures are uniform: the client only learns
// that no identity could be resolved.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}
		token := parts[1]

		if cached, ok := m.cache.Get(token); ok {
			c.Set(handler.IdentityKey, cached.(model.Identity))
			c.Next()
			return
		}

		claims, err := m.validator.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		identity := model.Identity{UserID: claims.UserID, Role: claims.Role}
		m.cache.Set(token, identity, gocache.DefaultExpiration)

		c.Set(handler.IdentityKey, identity)
		c.Next()
	}
}

// RequireRole allows only callers holding one of the given roles.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := handler.IdentityFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
			c.Abort()
			return
		}
		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("insufficient permissions"))
		c.Abort()
	}
}
