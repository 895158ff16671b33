package controllers

import (
	"net/http"

	"github.com/BookHut/BookHut-Backend/src/services"
	"github.com/gin-gonic/gin"
)

type UserCardController struct {
	service *services.UserCardService
}

func NewUserCardController(service *services.UserCardService) *UserCardController {
	return &UserCardController{service: service}
}

// GetAllUserCards handles GET /users-card
func (c *UserCardController) GetAllUserCards(ctx *gin.Context) {
	cards, err := c.service.GetAllUserCards(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, cards)
}
