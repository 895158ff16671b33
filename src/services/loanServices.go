package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BookHut/BookHut-Backend/src/auth"
	"github.com/BookHut/BookHut-Backend/src/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxActiveLoans is the number of books one reader may hold at the same time.
const MaxActiveLoans = 3

// ReturnStatus tells whether a return removed a loan.
type ReturnStatus int

const (
	ReturnNotFound ReturnStatus = iota
	ReturnDeleted
)

func (s ReturnStatus) String() string {
	if s == ReturnDeleted {
		return "deleted"
	}
	return "not_found"
}

type LoanService struct {
	db                  *gorm.DB
	bookService         *BookService // optional, only used to invalidate its cache
	returnRequiresOwner bool
}

// LoanOption configures a LoanService.
type LoanOption func(*LoanService)

// WithOwnerCheckOnReturn restricts ReturnBook and CheckinBook to the borrower.
func WithOwnerCheckOnReturn(enabled bool) LoanOption {
	return func(s *LoanService) {
		s.returnRequiresOwner = enabled
	}
}

// NewLoanService creates a new instance of LoanService.
// bookService may be nil when no catalog cache needs invalidating.
func NewLoanService(db *gorm.DB, bookService *BookService, opts ...LoanOption) *LoanService {
	service := &LoanService{
		db:          db,
		bookService: bookService,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// ReturnRequiresOwner reports whether returns are restricted to the borrower.
func (s *LoanService) ReturnRequiresOwner() bool {
	return s.returnRequiresOwner
}

// BorrowBook records a loan without touching the book's quantity.
//
// The borrow limit is checked first, then the duplicate guard. Both run in
// one transaction: the limit check is a conditional update of the borrower
// row, which also serializes concurrent borrows of the same reader, and the
// (book, borrower) unique index backs the duplicate check.
func (s *LoanService) BorrowBook(ctx context.Context, loan *models.LoanModel) (string, error) {
	if err := validateLoan(loan); err != nil {
		return "", err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.borrow(tx, loan)
	})
	if err != nil {
		return "", err
	}
	return loan.ID, nil
}

// CheckoutBook records a loan and takes one copy out of stock in the same
// transaction. Checks run in the order limit, duplicate, stock; any failure
// leaves loans, counters and stock untouched.
func (s *LoanService) CheckoutBook(ctx context.Context, loan *models.LoanModel) (string, int, error) {
	if err := validateLoan(loan); err != nil {
		return "", 0, err
	}

	var quantity int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.borrow(tx, loan); err != nil {
			return err
		}
		q, err := adjustQuantity(tx, loan.BookID, -1)
		if err != nil {
			return err
		}
		quantity = q
		return nil
	})
	if err != nil {
		return "", 0, err
	}

	s.invalidateBook(loan.BookID)
	return loan.ID, quantity, nil
}

// ListActiveLoans returns the loans of claimedIdentity, provided it is the
// identity of the current session.
func (s *LoanService) ListActiveLoans(ctx context.Context, sessionIdentity, claimedIdentity string) ([]models.LoanModel, error) {
	if !auth.IdentityMatches(sessionIdentity, claimedIdentity) {
		return nil, ErrForbidden
	}

	loans := []models.LoanModel{}
	err := s.db.WithContext(ctx).
		Where("borrower_email = ?", claimedIdentity).
		Order("created_at DESC").
		Find(&loans).Error
	return loans, err
}

// CountActiveLoans returns how many loans identity currently holds.
func (s *LoanService) CountActiveLoans(ctx context.Context, identity string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.LoanModel{}).
		Where("borrower_email = ?", identity).
		Count(&n).Error
	return n, err
}

// ReturnBook deletes a loan. A missing loan is reported as ReturnNotFound
// rather than an error so retries stay harmless. requester is only checked
// when the service was built WithOwnerCheckOnReturn(true).
func (s *LoanService) ReturnBook(ctx context.Context, loanID, requester string) (ReturnStatus, error) {
	var status ReturnStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, st, err := s.returnLoan(tx, loanID, requester)
		status = st
		return err
	})
	if err != nil {
		return ReturnNotFound, err
	}
	return status, nil
}

// CheckinBook deletes a loan and puts the copy back in stock atomically.
func (s *LoanService) CheckinBook(ctx context.Context, loanID, requester string) (ReturnStatus, error) {
	var (
		status ReturnStatus
		bookID string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loan, st, err := s.returnLoan(tx, loanID, requester)
		if err != nil || st == ReturnNotFound {
			status = st
			return err
		}
		if _, err := adjustQuantity(tx, loan.BookID, 1); err != nil {
			return err
		}
		status, bookID = st, loan.BookID
		return nil
	})
	if err != nil {
		return ReturnNotFound, err
	}

	if bookID != "" {
		s.invalidateBook(bookID)
	}
	return status, nil
}

// AdjustQuantity adds delta to the book's quantity and returns the new value.
// A decrement that would take the quantity below zero fails with
// ErrInsufficientStock; increments always apply.
func (s *LoanService) AdjustQuantity(ctx context.Context, bookID string, delta int) (int, error) {
	var quantity int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, err := adjustQuantity(tx, bookID, delta)
		quantity = q
		return err
	})
	if err != nil {
		return 0, err
	}

	s.invalidateBook(bookID)
	return quantity, nil
}

func (s *LoanService) borrow(tx *gorm.DB, loan *models.LoanModel) error {
	borrower := models.BorrowerModel{Email: loan.BorrowerEmail}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&borrower).Error; err != nil {
		return fmt.Errorf("registering borrower: %w", err)
	}

	// 1) Reserve a slot below the limit; this locks the borrower row.
	reserved := tx.Model(&models.BorrowerModel{}).
		Where("email = ? AND active_loans < ?", loan.BorrowerEmail, MaxActiveLoans).
		Update("active_loans", gorm.Expr("active_loans + 1"))
	if reserved.Error != nil {
		return reserved.Error
	}
	if reserved.RowsAffected == 0 {
		return ErrLimitExceeded
	}

	// 2) One active loan per book and reader
	var existing int64
	if err := tx.Model(&models.LoanModel{}).
		Where("book_id = ? AND borrower_email = ?", loan.BookID, loan.BorrowerEmail).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return ErrDuplicateLoan
	}

	// 3) The book must exist in the catalog
	var books int64
	if err := tx.Model(&models.BookModel{}).Where("id = ?", loan.BookID).Count(&books).Error; err != nil {
		return err
	}
	if books == 0 {
		return fmt.Errorf("book %s: %w", loan.BookID, ErrNotFound)
	}

	if err := tx.Create(loan).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateLoan
		}
		return err
	}
	return nil
}

func (s *LoanService) returnLoan(tx *gorm.DB, loanID, requester string) (*models.LoanModel, ReturnStatus, error) {
	var loan models.LoanModel
	if err := tx.First(&loan, "id = ?", loanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ReturnNotFound, nil
		}
		return nil, ReturnNotFound, err
	}

	if s.returnRequiresOwner && !auth.IdentityMatches(requester, loan.BorrowerEmail) {
		return nil, ReturnNotFound, ErrForbidden
	}

	deleted := tx.Delete(&models.LoanModel{}, "id = ?", loanID)
	if deleted.Error != nil {
		return nil, ReturnNotFound, deleted.Error
	}
	if deleted.RowsAffected == 0 {
		// Removed by a concurrent return between the read and the delete.
		return nil, ReturnNotFound, nil
	}

	released := tx.Model(&models.BorrowerModel{}).
		Where("email = ? AND active_loans > 0", loan.BorrowerEmail).
		Update("active_loans", gorm.Expr("active_loans - 1"))
	if released.Error != nil {
		return nil, ReturnNotFound, released.Error
	}

	return &loan, ReturnDeleted, nil
}

// adjustQuantity applies delta with a single conditional update so the
// floor check and the write cannot interleave with another request.
func adjustQuantity(tx *gorm.DB, bookID string, delta int) (int, error) {
	query := tx.Model(&models.BookModel{}).Where("id = ?", bookID)
	if delta < 0 {
		query = query.Where("quantity >= ?", -delta)
	}

	result := query.Update("quantity", gorm.Expr("quantity + ?", delta))
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected == 0 {
		var books int64
		if err := tx.Model(&models.BookModel{}).Where("id = ?", bookID).Count(&books).Error; err != nil {
			return 0, err
		}
		if books == 0 {
			return 0, fmt.Errorf("book %s: %w", bookID, ErrNotFound)
		}
		return 0, ErrInsufficientStock
	}

	var book models.BookModel
	if err := tx.Select("quantity").First(&book, "id = ?", bookID).Error; err != nil {
		return 0, err
	}
	return book.Quantity, nil
}

func (s *LoanService) invalidateBook(bookID string) {
	if s.bookService != nil {
		s.bookService.InvalidateBook(bookID)
	}
}

func validateLoan(loan *models.LoanModel) error {
	loan.BookID = strings.TrimSpace(loan.BookID)
	loan.BorrowerEmail = strings.TrimSpace(loan.BorrowerEmail)
	if loan.BookID == "" {
		return fmt.Errorf("%w: borrowingBookId is required", ErrInvalidInput)
	}
	if loan.BorrowerEmail == "" {
		return fmt.Errorf("%w: borrowerEmail is required", ErrInvalidInput)
	}
	return nil
}
