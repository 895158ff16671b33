package dtos

import "time"

// BorrowerDTO is the "borrower" object of a borrow request.
type BorrowerDTO struct {
	BorrowingBookID string `json:"borrowingBookId"`
	BorrowerEmail   string `json:"borrowerEmail"`
	BorrowerName    string `json:"borrowerName"`
	ReturnDate      string `json:"returnDate"` // stored as sent, any format
}

// BorrowRequestDTO is the body of POST /borrow-books. Any other top-level
// field is kept as loan metadata.
type BorrowRequestDTO struct {
	Borrower BorrowerDTO `json:"borrower"`
}

// InsertResultDTO mirrors the acknowledgement clients expect after an insert.
type InsertResultDTO struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
	Quantity     *int   `json:"quantity,omitempty"`
}

// UpdateResultDTO mirrors the acknowledgement clients expect after an update.
type UpdateResultDTO struct {
	Acknowledged  bool `json:"acknowledged"`
	MatchedCount  int  `json:"matchedCount"`
	ModifiedCount int  `json:"modifiedCount"`
	Quantity      *int `json:"quantity,omitempty"`
}

// DeleteResultDTO mirrors the acknowledgement clients expect after a delete.
type DeleteResultDTO struct {
	Acknowledged bool `json:"acknowledged"`
	DeletedCount int  `json:"deletedCount"`
}

// LoanDTO is one entry of GET /borrow-books.
type LoanDTO struct {
	ID         string         `json:"_id"`
	Borrower   BorrowerDTO    `json:"borrower"`
	BorrowedAt time.Time      `json:"borrowedAt"`
	Details    map[string]any `json:"details,omitempty"`
}

// BorrowStatusDTO tells a reader how many more books they may borrow.
type BorrowStatusDTO struct {
	Email            string    `json:"email"`
	ActiveLoans      int       `json:"activeLoans"`
	MaxLoans         int       `json:"maxLoans"`
	Remaining        int       `json:"remaining"`
	SessionExpiresAt time.Time `json:"sessionExpiresAt"`
}
