package middleware

import (
	"strings"

	"pairwave/internal/core/ports"
	pwerrors "pairwave/pkg/errors"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the bearer token against an IdentityStore and
// stashes the resolved user_id/tier/token on the gin context for the ws
// upgrade handler to pick up when it registers the session. Failures are
// raised through c.Error so ErrorHandlerMiddleware, installed ahead of this
// middleware in the chain, renders the actual JSON response.
func AuthMiddleware(identity ports.IdentityStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Error(pwerrors.NewUnauthorizedError("authorization header required"))
			c.Abort()
			return
		}

		userID, tier, err := identity.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.Error(pwerrors.WrapError(err, pwerrors.ErrCodeUnauthorized, "authentication failed", 401))
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Set("tier", tier)
		c.Set("token", token)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	// WebSocket clients that cannot set headers fall back to a query param.
	return c.Query("token")
}
