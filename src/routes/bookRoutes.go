package routes

import (
	"github.com/BookHut/BookHut-Backend/src/controllers"
	"github.com/BookHut/BookHut-Backend/src/services"
	"github.com/gin-gonic/gin"
)

// SetupBookRoutes registers the catalog routes. gate guards the routes that
// need a session matching the "email" query parameter.
func SetupBookRoutes(router *gin.Engine, service *services.BookService, gate ...gin.HandlerFunc) {
	bookController := controllers.NewBookController(service)

	// Public routes
	router.GET("/books", bookController.GetBooks)
	router.GET("/book-details/:id", bookController.GetBookDetails)
	router.GET("/book-category/:category", bookController.GetBooksInCategory)
	router.GET("/book-count", bookController.CountBooks)
	router.PATCH("/update-book/:id", bookController.UpdateBook)

	// Protected routes
	books := router.Group("/", gate...)
	{
		books.GET("/allBooks", bookController.GetAllBooks)
		books.POST("/add-book", bookController.AddBook)
		books.POST("/import-books", bookController.ImportBooks)
	}
}
