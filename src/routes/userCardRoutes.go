package routes

import (
	"github.com/BookHut/BookHut-Backend/src/controllers"
	"github.com/BookHut/BookHut-Backend/src/services"
	"github.com/gin-gonic/gin"
)

func SetupUserCardRoutes(router *gin.Engine, service *services.UserCardService) {
	userCardController := controllers.NewUserCardController(service)

	// Public routes
	router.GET("/users-card", userCardController.GetAllUserCards)
}
