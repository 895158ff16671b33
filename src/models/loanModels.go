package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoanModel is an active loan. Returning a book deletes the row, so the
// unique index over (book_id, borrower_email) allows one active loan per pair.
type LoanModel struct {
	ID            string         `json:"_id" gorm:"primaryKey;type:varchar(36)"`
	BookID        string         `json:"bookId" gorm:"column:book_id;type:varchar(36);not null;uniqueIndex:idx_loans_book_borrower"`
	BorrowerEmail string         `json:"borrowerEmail" gorm:"column:borrower_email;type:varchar(255);not null;uniqueIndex:idx_loans_book_borrower;index"`
	BorrowerName  string         `json:"borrowerName" gorm:"column:borrower_name;type:varchar(255)"`
	ReturnDate    string         `json:"returnDate" gorm:"column:return_date;type:varchar(64)"`
	Details       map[string]any `json:"details,omitempty" gorm:"type:text;serializer:json"`
	CreatedAt     time.Time      `json:"borrowedAt"`
}

func (LoanModel) TableName() string { return "loans" }

func (l *LoanModel) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// BorrowerModel counts the active loans of one identity. The row is updated in
// the same transaction as every loan insert and delete.
type BorrowerModel struct {
	Email       string `json:"email" gorm:"primaryKey;type:varchar(255)"`
	ActiveLoans int    `json:"activeLoans" gorm:"column:active_loans;not null;default:0;check:chk_borrowers_active_loans,active_loans >= 0"`
}

func (BorrowerModel) TableName() string { return "borrowers" }
