package controllers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/BookHut/BookHut-Backend/src/auth"
	"github.com/BookHut/BookHut-Backend/src/middleware"
	"github.com/BookHut/BookHut-Backend/src/session"
	"github.com/gin-gonic/gin"
)

type AuthController struct {
	verifier   *auth.TokenVerifier
	revoker    session.Revoker
	production bool
}

func NewAuthController(verifier *auth.TokenVerifier, revoker session.Revoker, production bool) *AuthController {
	return &AuthController{verifier: verifier, revoker: revoker, production: production}
}

// IssueToken handles POST /jwt. The body becomes the token claims and the
// token is returned in an HttpOnly cookie.
func (c *AuthController) IssueToken(ctx *gin.Context) {
	var claims map[string]any
	if err := ctx.ShouldBindJSON(&claims); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := c.verifier.Issue(claims)
	if err != nil {
		if errors.Is(err, auth.ErrMissingIdentity) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		respondError(ctx, err)
		return
	}

	c.setCookie(ctx, token, int(auth.SessionTTL.Seconds()))
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

// Logout handles POST /logout. A valid token is revoked for the rest of its
// lifetime; the cookie is cleared in every case.
func (c *AuthController) Logout(ctx *gin.Context) {
	if token := middleware.TokenFromRequest(ctx); token != "" {
		if claims, err := c.verifier.Verify(token); err == nil {
			ttl := time.Until(claims.ExpiresAt)
			if err := c.revoker.Revoke(ctx.Request.Context(), claims.ID, ttl); err != nil {
				log.Printf("Could not revoke token %s: %v\n", claims.ID, err)
			}
		}
	}

	c.setCookie(ctx, "", -1)
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (c *AuthController) setCookie(ctx *gin.Context, value string, maxAge int) {
	if c.production {
		ctx.SetSameSite(http.SameSiteNoneMode)
	} else {
		ctx.SetSameSite(http.SameSiteStrictMode)
	}
	ctx.SetCookie(middleware.TokenCookie, value, maxAge, "/", "", c.production, true)
}
