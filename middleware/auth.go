package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quillhub/quillhub/utils"
)

const (
	// ContextUserIDKey is the key used to store the authenticated user ID in
	// the Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside the Gin context.
	ContextUsernameKey = "username"
	// ContextTokenKey stores the raw bearer token for logout revocation.
	ContextTokenKey = "token"
)

// AuthRequired ensures the request is authenticated via JWT. Unauthenticated
// requests are sent to the login page with the requested path preserved as
// the return target.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, claims, ok := bearerClaims(ctx)
		if !ok {
			utils.LoginRedirect(ctx, 40101)
			ctx.Abort()
			return
		}
		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Set(ContextTokenKey, token)
		ctx.Next()
	}
}

// OptionalAuth resolves the actor when a valid bearer token is present but
// lets anonymous requests through. Used on the public listing, where the
// own-posts filter needs the identity if there is one.
func OptionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if token, claims, ok := bearerClaims(ctx); ok {
			ctx.Set(ContextUserIDKey, claims.UserID)
			ctx.Set(ContextUsernameKey, claims.Username)
			ctx.Set(ContextTokenKey, token)
		}
		ctx.Next()
	}
}

func bearerClaims(ctx *gin.Context) (string, *utils.Claims, bool) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return "", nil, false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", nil, false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" || utils.IsTokenBlacklisted(token) {
		return "", nil, false
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		return "", nil, false
	}
	return token, claims, true
}
