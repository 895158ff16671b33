package services

import (
	"errors"

	"github.com/BookHut/BookHut-Backend/src/auth"
)

var (
	ErrUnauthorized      = auth.ErrUnauthorized
	ErrForbidden         = errors.New("forbidden")
	ErrLimitExceeded     = errors.New("borrow limit reached: a reader may hold at most 3 books")
	ErrDuplicateLoan     = errors.New("book already in the borrowed list of this reader")
	ErrInsufficientStock = errors.New("no copies of this book are available")
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
)
