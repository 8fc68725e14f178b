package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// IdentityKey is the gin context key the auth middleware stores the
// resolved caller under.
const IdentityKey = "identity"

// IdentityFrom returns the authenticated caller from the request
// context. The second return is false on unauthenticated routes.
func IdentityFrom(c *gin.Context) (model.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return model.Identity{}, false
	}
	identity, ok := v.(model.Identity)
	return identity, ok
}
