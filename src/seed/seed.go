package seed

import (
	"context"
	"errors"
	"log"

	"github.com/BookHut/BookHut-Backend/src/models"
	"github.com/BookHut/BookHut-Backend/src/services"
	"gorm.io/gorm"
)

var sampleBooks = []models.BookModel{
	{Name: "Dune", Author: "Frank Herbert", Category: "Science Fiction", Quantity: 4, Rating: 4.7,
		ShortDescription: "A desert planet, a noble family and the spice that rules the galaxy."},
	{Name: "Foundation", Author: "Isaac Asimov", Category: "Science Fiction", Quantity: 3, Rating: 4.4,
		ShortDescription: "A mathematician plans to shorten a galactic dark age."},
	{Name: "Gone Girl", Author: "Gillian Flynn", Category: "Thriller", Quantity: 2, Rating: 4.1,
		ShortDescription: "A marriage unravels after a disappearance."},
	{Name: "The Silent Patient", Author: "Alex Michaelides", Category: "Thriller", Quantity: 1, Rating: 4.0,
		ShortDescription: "A painter stops speaking after a crime."},
	{Name: "Sapiens", Author: "Yuval Noah Harari", Category: "History", Quantity: 5, Rating: 4.5,
		ShortDescription: "A brief history of humankind."},
	{Name: "Pride and Prejudice", Author: "Jane Austen", Category: "Novel", Quantity: 2, Rating: 4.6,
		ShortDescription: "Manners, marriage and first impressions."},
}

var sampleCards = []models.UserCardModel{
	{Name: "Maya", Review: "Borrowing takes two clicks and the return reminders are great.", Rating: 5},
	{Name: "Daniel", Review: "Found every thriller I was looking for.", Rating: 4.5},
	{Name: "Priya", Review: "The category pages make browsing easy.", Rating: 4},
}

// Seed inserts the sample catalog and testimonials. Existing rows are kept.
func Seed(ctx context.Context, db *gorm.DB, books *services.BookService, cards *services.UserCardService) error {
	// Books
	createdBooks := 0
	for _, sample := range sampleBooks {
		var existing models.BookModel
		err := db.WithContext(ctx).Where("name = ?", sample.Name).First(&existing).Error
		if err == nil {
			log.Printf("Book '%s' already exists, skipping\n", sample.Name)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		book := sample
		if err := books.CreateBook(ctx, &book); err != nil {
			log.Printf("Failed to create book '%s': %v\n", sample.Name, err)
			continue
		}
		createdBooks++
	}
	log.Printf("Books seeding completed: %d created\n", createdBooks)

	// Testimonials
	var count int64
	if err := db.WithContext(ctx).Model(&models.UserCardModel{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("Testimonials already exist, skipping")
		return nil
	}
	for _, sample := range sampleCards {
		card := sample
		if _, err := cards.CreateUserCard(ctx, &card); err != nil {
			log.Printf("Failed to create testimonial from %s: %v\n", sample.Name, err)
		}
	}
	log.Printf("Testimonials seeding completed: %d created\n", len(sampleCards))
	return nil
}
