package routes

import (
	"github.com/BookHut/BookHut-Backend/src/auth"
	"github.com/BookHut/BookHut-Backend/src/controllers"
	"github.com/BookHut/BookHut-Backend/src/session"
	"github.com/gin-gonic/gin"
)

func SetupAuthRoutes(router *gin.Engine, verifier *auth.TokenVerifier, revoker session.Revoker, production bool) {
	authController := controllers.NewAuthController(verifier, revoker, production)

	// Public routes
	router.POST("/jwt", authController.IssueToken)
	router.POST("/logout", authController.Logout)
}
