package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/BookHut/BookHut-Backend/src/auth"
	"github.com/BookHut/BookHut-Backend/src/session"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const (
	// TokenCookie is the cookie carrying the session token.
	TokenCookie = "token"

	identityKey = "identity"
	claimsKey   = "claims"
)

// AuthMiddleware requires a valid, unrevoked session token and stores the
// verified identity in the context.
func AuthMiddleware(verifier *auth.TokenVerifier, revoker session.Revoker) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := TokenFromRequest(ctx)
		if token == "" {
			abortUnauthorized(ctx)
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			abortUnauthorized(ctx)
			return
		}

		revoked, err := revoker.IsRevoked(ctx.Request.Context(), claims.ID)
		if err != nil {
			if errors.Is(err, session.ErrStoreUnavailable) {
				log.Printf("Rejecting token, revocation lookup failed: %v\n", err)
			}
			abortUnauthorized(ctx)
			return
		}
		if revoked {
			abortUnauthorized(ctx)
			return
		}

		ctx.Set(identityKey, claims.Email)
		ctx.Set(claimsKey, claims)
		ctx.Next()
	}
}

// RequireIdentityMatch must run after AuthMiddleware. It lets the request
// through only when the claimed identity names the session identity. The
// claim is the "email" query parameter or, without one, the "email" field of
// a JSON body. Handlers behind it must read the body with ShouldBindBodyWith.
func RequireIdentityMatch() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !auth.IdentityMatches(Identity(ctx), ClaimedIdentity(ctx)) {
			ctx.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// ClaimedIdentity returns the identity a request says it acts for.
func ClaimedIdentity(ctx *gin.Context) string {
	if email := ctx.Query("email"); email != "" {
		return email
	}
	if ctx.Request.Body == nil || ctx.ContentType() != binding.MIMEJSON {
		return ""
	}

	var body struct {
		Email string `json:"email"`
	}
	if err := ctx.ShouldBindBodyWith(&body, binding.JSON); err != nil {
		return ""
	}
	return body.Email
}

// TokenFromRequest reads the session cookie, falling back to a Bearer header.
func TokenFromRequest(ctx *gin.Context) string {
	if cookie, err := ctx.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie
	}

	authHeader := strings.TrimSpace(ctx.GetHeader("Authorization"))
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// Identity returns the verified identity, or "" outside AuthMiddleware.
func Identity(ctx *gin.Context) string {
	return ctx.GetString(identityKey)
}

// Claims returns the verified token claims, or nil outside AuthMiddleware.
func Claims(ctx *gin.Context) *auth.Claims {
	if v, ok := ctx.Get(claimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

func abortUnauthorized(ctx *gin.Context) {
	ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	ctx.Abort()
}
