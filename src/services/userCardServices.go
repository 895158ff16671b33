package services

import (
	"context"

	"github.com/BookHut/BookHut-Backend/src/models"
	"gorm.io/gorm"
)

type UserCardService struct {
	db *gorm.DB
}

// NewUserCardService creates a new instance of UserCardService
func NewUserCardService(db *gorm.DB) *UserCardService {
	return &UserCardService{db: db}
}

// GetAllUserCards retrieves every testimonial
func (s *UserCardService) GetAllUserCards(ctx context.Context) ([]models.UserCardModel, error) {
	cards := []models.UserCardModel{}
	result := s.db.WithContext(ctx).Order("id").Find(&cards)
	if result.Error != nil {
		return nil, result.Error
	}
	return cards, nil
}

// CreateUserCard creates a new testimonial
func (s *UserCardService) CreateUserCard(ctx context.Context, card *models.UserCardModel) (*models.UserCardModel, error) {
	result := s.db.WithContext(ctx).Create(card)
	if result.Error != nil {
		return nil, result.Error
	}
	return card, nil
}
