package server

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	apikeydomain "github.com/pullpaylabs/pullpay/internal/apikey/domain"
)

// Identity is the authenticated caller derived from the api_keys table. The
// Account field is the on-ledger owner the key acts as; admin keys carry the
// platform admin account.
type Identity struct {
	KeyID   snowflake.ID
	Role    apikeydomain.Role
	Account string
}

type contextKey string

const identityContextKey contextKey = "identity"

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext returns the caller identity set by APIKeyRequired.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}

// callerIdentity aborts with 401 when the middleware did not run; routes
// behind APIKeyRequired always have an identity.
func callerIdentity(c *gin.Context) (Identity, bool) {
	id, ok := IdentityFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return Identity{}, false
	}
	return id, true
}
