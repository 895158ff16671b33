package controllers

import (
	"fmt"
	"net/http"

	"github.com/BookHut/BookHut-Backend/src/dtos"
	"github.com/BookHut/BookHut-Backend/src/services"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type BookController struct {
	service *services.BookService
}

func NewBookController(service *services.BookService) *BookController {
	return &BookController{service: service}
}

// GetBooks handles GET /books?category=, a case-insensitive substring search
func (c *BookController) GetBooks(ctx *gin.Context) {
	books, err := c.service.GetBooksByCategory(ctx.Request.Context(), ctx.Query("category"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, books)
}

// GetBookDetails handles GET /book-details/:id
func (c *BookController) GetBookDetails(ctx *gin.Context) {
	book, err := c.service.GetBookByID(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, book)
}

// GetBooksInCategory handles GET /book-category/:category
func (c *BookController) GetBooksInCategory(ctx *gin.Context) {
	books, err := c.service.GetBooksInCategory(ctx.Request.Context(), ctx.Param("category"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, books)
}

// CountBooks handles GET /book-count
func (c *BookController) CountBooks(ctx *gin.Context) {
	counts, err := c.service.CountByCategory(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, counts)
}

// GetAllBooks handles GET /allBooks. showAvailable=true hides books with no
// copies left.
func (c *BookController) GetAllBooks(ctx *gin.Context) {
	onlyAvailable := ctx.Query("showAvailable") == "true"

	books, err := c.service.GetAllBooks(ctx.Request.Context(), onlyAvailable)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, books)
}

// AddBook handles POST /add-book. The body may carry the caller's "email",
// which the identity gate reads; it is not stored on the book.
func (c *BookController) AddBook(ctx *gin.Context) {
	var fields map[string]any
	if err := ctx.ShouldBindBodyWith(&fields, binding.JSON); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	delete(fields, "email")

	book, err := c.service.CreateBookFromFields(ctx.Request.Context(), fields)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dtos.InsertResultDTO{Acknowledged: true, InsertedID: book.ID})
}

// ImportBooks handles POST /import-books with an .xlsx file in the "file"
// form field.
func (c *BookController) ImportBooks(ctx *gin.Context) {
	header, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(ctx, fmt.Errorf("opening upload: %w", err))
		return
	}
	defer file.Close()

	result, err := c.service.ImportBooksFromExcel(ctx.Request.Context(), file)
	if err != nil {
		if result != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "errors": result.Errors})
			return
		}
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// UpdateBook handles PATCH /update-book/:id
func (c *BookController) UpdateBook(ctx *gin.Context) {
	var fields map[string]any
	if err := ctx.ShouldBindJSON(&fields); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := c.service.UpdateBook(ctx.Request.Context(), ctx.Param("id"), fields); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dtos.UpdateResultDTO{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1})
}
