package routes

import (
	"github.com/BookHut/BookHut-Backend/src/controllers"
	"github.com/BookHut/BookHut-Backend/src/services"
	"github.com/gin-gonic/gin"
)

// SetupLoanRoutes registers the borrowing and stock routes. authOnly is used
// for returns when the service checks ownership; gate guards the loan list.
func SetupLoanRoutes(router *gin.Engine, service *services.LoanService, atomicStock bool, authOnly gin.HandlerFunc, gate ...gin.HandlerFunc) {
	loanController := controllers.NewLoanController(service, atomicStock)

	// Public routes
	router.POST("/borrow-books", loanController.BorrowBook)
	router.PATCH("/update-quantity/:id", loanController.DecreaseQuantity)
	router.PATCH("/update-quantity-increase/:id", loanController.IncreaseQuantity)

	if service.ReturnRequiresOwner() {
		router.DELETE("/delete-borrowedBook/:id", authOnly, loanController.ReturnBook)
	} else {
		router.DELETE("/delete-borrowedBook/:id", loanController.ReturnBook)
	}

	// Protected routes
	loans := router.Group("/", gate...)
	{
		loans.GET("/borrow-books", loanController.GetBorrowedBooks)
		loans.GET("/borrow-status", loanController.GetBorrowStatus)
	}
}
