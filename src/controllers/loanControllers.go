package controllers

import (
	"net/http"

	"github.com/BookHut/BookHut-Backend/src/dtos"
	"github.com/BookHut/BookHut-Backend/src/middleware"
	"github.com/BookHut/BookHut-Backend/src/models"
	"github.com/BookHut/BookHut-Backend/src/services"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type LoanController struct {
	service     *services.LoanService
	atomicStock bool
}

// NewLoanController creates the loan handlers. With atomicStock the borrow and
// return handlers also move the book's quantity.
func NewLoanController(service *services.LoanService, atomicStock bool) *LoanController {
	return &LoanController{service: service, atomicStock: atomicStock}
}

// BorrowBook handles POST /borrow-books
func (c *LoanController) BorrowBook(ctx *gin.Context) {
	var req dtos.BorrowRequestDTO
	if err := ctx.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var raw map[string]any
	if err := ctx.ShouldBindBodyWith(&raw, binding.JSON); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	delete(raw, "borrower")

	loan := &models.LoanModel{
		BookID:        req.Borrower.BorrowingBookID,
		BorrowerEmail: req.Borrower.BorrowerEmail,
		BorrowerName:  req.Borrower.BorrowerName,
		ReturnDate:    req.Borrower.ReturnDate,
	}
	if len(raw) > 0 {
		loan.Details = raw
	}

	if !c.atomicStock {
		id, err := c.service.BorrowBook(ctx.Request.Context(), loan)
		if err != nil {
			respondError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, dtos.InsertResultDTO{Acknowledged: true, InsertedID: id})
		return
	}

	id, quantity, err := c.service.CheckoutBook(ctx.Request.Context(), loan)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dtos.InsertResultDTO{Acknowledged: true, InsertedID: id, Quantity: &quantity})
}

// GetBorrowedBooks handles GET /borrow-books?email=
func (c *LoanController) GetBorrowedBooks(ctx *gin.Context) {
	loans, err := c.service.ListActiveLoans(ctx.Request.Context(), middleware.Identity(ctx), ctx.Query("email"))
	if err != nil {
		respondError(ctx, err)
		return
	}

	out := make([]dtos.LoanDTO, 0, len(loans))
	for _, loan := range loans {
		out = append(out, toLoanDTO(loan))
	}
	ctx.JSON(http.StatusOK, out)
}

// GetBorrowStatus handles GET /borrow-status?email=
func (c *LoanController) GetBorrowStatus(ctx *gin.Context) {
	identity := middleware.Identity(ctx)

	active, err := c.service.CountActiveLoans(ctx.Request.Context(), identity)
	if err != nil {
		respondError(ctx, err)
		return
	}

	status := dtos.BorrowStatusDTO{
		Email:       identity,
		ActiveLoans: int(active),
		MaxLoans:    services.MaxActiveLoans,
		Remaining:   max(0, services.MaxActiveLoans-int(active)),
	}
	if claims := middleware.Claims(ctx); claims != nil {
		status.SessionExpiresAt = claims.ExpiresAt
	}
	ctx.JSON(http.StatusOK, status)
}

// ReturnBook handles DELETE /delete-borrowedBook/:id
func (c *LoanController) ReturnBook(ctx *gin.Context) {
	var (
		status services.ReturnStatus
		err    error
	)
	requester := middleware.Identity(ctx)
	if c.atomicStock {
		status, err = c.service.CheckinBook(ctx.Request.Context(), ctx.Param("id"), requester)
	} else {
		status, err = c.service.ReturnBook(ctx.Request.Context(), ctx.Param("id"), requester)
	}
	if err != nil {
		respondError(ctx, err)
		return
	}

	if status == services.ReturnNotFound {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "loan not found"})
		return
	}
	ctx.JSON(http.StatusOK, dtos.DeleteResultDTO{Acknowledged: true, DeletedCount: 1})
}

// DecreaseQuantity handles PATCH /update-quantity/:id
func (c *LoanController) DecreaseQuantity(ctx *gin.Context) {
	c.adjustQuantity(ctx, -1)
}

// IncreaseQuantity handles PATCH /update-quantity-increase/:id
func (c *LoanController) IncreaseQuantity(ctx *gin.Context) {
	c.adjustQuantity(ctx, 1)
}

func (c *LoanController) adjustQuantity(ctx *gin.Context, delta int) {
	quantity, err := c.service.AdjustQuantity(ctx.Request.Context(), ctx.Param("id"), delta)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dtos.UpdateResultDTO{
		Acknowledged:  true,
		MatchedCount:  1,
		ModifiedCount: 1,
		Quantity:      &quantity,
	})
}

func toLoanDTO(loan models.LoanModel) dtos.LoanDTO {
	return dtos.LoanDTO{
		ID: loan.ID,
		Borrower: dtos.BorrowerDTO{
			BorrowingBookID: loan.BookID,
			BorrowerEmail:   loan.BorrowerEmail,
			BorrowerName:    loan.BorrowerName,
			ReturnDate:      loan.ReturnDate,
		},
		BorrowedAt: loan.CreatedAt,
		Details:    loan.Details,
	}
}
