package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/skyposts/skyposts/utils"
)

// ContextUserIDKey is the key used to store the authenticated user ID in
// the Gin context.
const ContextUserIDKey = "user_id"

// AuthRequired ensures the request carries a valid bearer token before any
// handler logic or store access runs. All failure modes collapse into one
// 401; the client never learns why a token was rejected.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.AbortError(ctx, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.AbortError(ctx, http.StatusUnauthorized, "invalid token")
			return
		}

		claims, err := utils.ParseToken(secret, strings.TrimSpace(parts[1]))
		if err != nil {
			utils.AbortError(ctx, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Next()
	}
}
