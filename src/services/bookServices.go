package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/BookHut/BookHut-Backend/src/dtos"
	"github.com/BookHut/BookHut-Backend/src/models"
	excelize "github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	bookCacheTTL = 10 * time.Minute
	listCacheTTL = 5 * time.Minute

	bookKeyPrefix = "book_"
	listKeyPrefix = "books_"
)

type BookService struct {
	db        *gorm.DB
	cache     *Cache
	readCache bool
}

// BookOption configures a BookService.
type BookOption func(*BookService)

// WithReadCache turns the per-process read cache on or off. The cache only
// sees writes made through this process, so it must be off when several
// replicas share one database.
func WithReadCache(enabled bool) BookOption {
	return func(s *BookService) {
		s.readCache = enabled
	}
}

// NewBookService creates a new instance of BookService. The read cache is on
// unless WithReadCache(false) is given.
func NewBookService(db *gorm.DB, opts ...BookOption) *BookService {
	service := &BookService{db: db, readCache: true}
	for _, opt := range opts {
		opt(service)
	}

	if service.readCache {
		service.cache = NewCache(30 * time.Minute)
	} else {
		service.cache = newDisabledCache()
	}
	return service
}

// Close stops the cache sweeper.
func (s *BookService) Close() {
	s.cache.Close()
}

// InvalidateBook drops the cached copy of one book and every cached list,
// since lists embed quantities.
func (s *BookService) InvalidateBook(id string) {
	s.cache.Invalidate(bookKeyPrefix + id)
	s.cache.Invalidate(listKeyPrefix)
}

// GetBooksByCategory lists books whose category contains q, ignoring case.
// An empty q lists every book.
func (s *BookService) GetBooksByCategory(ctx context.Context, q string) ([]models.BookModel, error) {
	needle := strings.ToLower(strings.TrimSpace(q))
	cacheKey := listKeyPrefix + "search_" + needle

	if cached, found := s.cache.Get(cacheKey); found {
		return cached.([]models.BookModel), nil
	}
	generation := s.cache.Generation()

	books := []models.BookModel{}
	err := s.db.WithContext(ctx).
		Where(`LOWER(category) LIKE ? ESCAPE '\'`, containsPattern(needle)).
		Order("name").
		Find(&books).Error
	if err != nil {
		return nil, err
	}

	s.cache.Set(cacheKey, books, listCacheTTL, generation)
	return books, nil
}

// GetBooksInCategory lists books whose category equals category, ignoring case.
func (s *BookService) GetBooksInCategory(ctx context.Context, category string) ([]models.BookModel, error) {
	needle := strings.ToLower(strings.TrimSpace(category))
	cacheKey := listKeyPrefix + "category_" + needle

	if cached, found := s.cache.Get(cacheKey); found {
		return cached.([]models.BookModel), nil
	}
	generation := s.cache.Generation()

	books := []models.BookModel{}
	err := s.db.WithContext(ctx).
		Where("LOWER(category) = ?", needle).
		Order("name").
		Find(&books).Error
	if err != nil {
		return nil, err
	}

	s.cache.Set(cacheKey, books, listCacheTTL, generation)
	return books, nil
}

// GetAllBooks lists the whole catalog, or only books with copies left.
func (s *BookService) GetAllBooks(ctx context.Context, onlyAvailable bool) ([]models.BookModel, error) {
	books := []models.BookModel{}
	query := s.db.WithContext(ctx).Order("name")
	if onlyAvailable {
		query = query.Where("quantity > 0")
	}
	if err := query.Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

// GetBookByID retrieves a book by its id.
func (s *BookService) GetBookByID(ctx context.Context, id string) (*models.BookModel, error) {
	cacheKey := bookKeyPrefix + id

	if cached, found := s.cache.Get(cacheKey); found {
		book := cached.(models.BookModel)
		return &book, nil
	}
	generation := s.cache.Generation()

	var book models.BookModel
	if err := s.db.WithContext(ctx).First(&book, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.cache.Set(cacheKey, book, bookCacheTTL, generation)
	return &book, nil
}

// CountByCategory returns the number of titles per category.
func (s *BookService) CountByCategory(ctx context.Context) ([]models.CategoryCount, error) {
	cacheKey := listKeyPrefix + "count"
	if cached, found := s.cache.Get(cacheKey); found {
		return cached.([]models.CategoryCount), nil
	}
	generation := s.cache.Generation()

	counts := []models.CategoryCount{}
	err := s.db.WithContext(ctx).
		Model(&models.BookModel{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("category").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	s.cache.Set(cacheKey, counts, listCacheTTL, generation)
	return counts, nil
}

// CreateBook validates and inserts a book.
func (s *BookService) CreateBook(ctx context.Context, book *models.BookModel) error {
	if err := validateBook(book); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(book).Error; err != nil {
		return err
	}

	s.cache.Invalidate(listKeyPrefix)
	return nil
}

// CreateBookFromFields builds a book from a decoded JSON document. Fields the
// schema does not know are kept in Details.
func (s *BookService) CreateBookFromFields(ctx context.Context, fields map[string]any) (*models.BookModel, error) {
	book := &models.BookModel{}
	if _, err := applyBookFields(book, fields); err != nil {
		return nil, err
	}
	if err := s.CreateBook(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// UpdateBook merges fields into the stored book and returns the result.
func (s *BookService) UpdateBook(ctx context.Context, id string, fields map[string]any) (*models.BookModel, error) {
	var book models.BookModel

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&book, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		changed, err := applyBookFields(&book, fields)
		if err != nil {
			return err
		}
		if len(changed) == 0 {
			return nil
		}
		if err := validateBook(&book); err != nil {
			return err
		}

		return tx.Model(&book).Select(changed).Updates(&book).Error
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateBook(id)
	return &book, nil
}

// ImportBooksFromExcel reads the first sheet of an .xlsx workbook whose first
// row names the columns and inserts one book per following row.
func (s *BookService) ImportBooksFromExcel(ctx context.Context, r io.Reader) (*dtos.ImportResultDTO, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid excel file: %v", ErrInvalidInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidInput)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: reading sheet %s: %v", ErrInvalidInput, sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %s is empty", ErrInvalidInput, sheets[0])
	}

	header := make(map[string]int)
	for i, name := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := header["name"]; !ok {
		return nil, fmt.Errorf("%w: header row must contain a name column", ErrInvalidInput)
	}

	cell := func(row []string, column string) string {
		i, ok := header[strings.ToLower(column)]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	result := &dtos.ImportResultDTO{Imported: 0, Errors: []string{}}

	for i, row := range rows[1:] {
		line := i + 2
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}

		book := models.BookModel{
			Name:             cell(row, "name"),
			Author:           cell(row, "author"),
			Category:         cell(row, "category"),
			Image:            cell(row, "image"),
			ShortDescription: cell(row, "shortDescription"),
		}

		if q := cell(row, "quantity"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: invalid quantity %q", line, q))
				continue
			}
			book.Quantity = n
		}
		if rt := cell(row, "rating"); rt != "" {
			rating, err := strconv.ParseFloat(rt, 64)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: invalid rating %q", line, rt))
				continue
			}
			book.Rating = rating
		}

		if err := validateBook(&book); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		if err := s.db.WithContext(ctx).Create(&book).Error; err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
			continue
		}

		result.Imported++
	}

	s.cache.Invalidate(listKeyPrefix)

	if result.Imported == 0 && len(result.Errors) > 0 {
		return result, fmt.Errorf("%w: no book could be imported", ErrInvalidInput)
	}

	return result, nil
}

func validateBook(book *models.BookModel) error {
	if strings.TrimSpace(book.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if book.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidInput)
	}
	return nil
}

// applyBookFields copies a decoded JSON document onto book and returns the
// names of the fields it changed.
func applyBookFields(book *models.BookModel, fields map[string]any) ([]string, error) {
	var changed []string
	detailsChanged := false

	setDetail := func(key string, value any) {
		if book.Details == nil {
			book.Details = map[string]any{}
		}
		book.Details[key] = value
		detailsChanged = true
	}

	for key, value := range fields {
		switch key {
		case "_id", "id", "createdAt", "updatedAt":
			continue
		case "name", "author", "category", "image", "shortDescription":
			str, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s must be a string", ErrInvalidInput, key)
			}
			switch key {
			case "name":
				book.Name, changed = str, append(changed, "Name")
			case "author":
				book.Author, changed = str, append(changed, "Author")
			case "category":
				book.Category, changed = str, append(changed, "Category")
			case "image":
				book.Image, changed = str, append(changed, "Image")
			case "shortDescription":
				book.ShortDescription, changed = str, append(changed, "ShortDescription")
			}
		case "quantity":
			n, err := toQuantity(value)
			if err != nil {
				return nil, err
			}
			book.Quantity, changed = n, append(changed, "Quantity")
		case "rating":
			rating, err := toFloat(value)
			if err != nil {
				return nil, fmt.Errorf("%w: rating must be a number", ErrInvalidInput)
			}
			book.Rating, changed = rating, append(changed, "Rating")
		case "details":
			obj, ok := value.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: details must be an object", ErrInvalidInput)
			}
			for k, v := range obj {
				setDetail(k, v)
			}
		default:
			setDetail(key, value)
		}
	}

	if detailsChanged {
		changed = append(changed, "Details")
	}
	return changed, nil
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("unsupported number type %T", value)
	}
}

func toQuantity(value any) (int, error) {
	f, err := toFloat(value)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: quantity must be a whole number", ErrInvalidInput)
	}
	if f < 0 {
		return 0, fmt.Errorf("%w: quantity must not be negative", ErrInvalidInput)
	}
	return int(f), nil
}

func containsPattern(needle string) string {
	escaper := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + escaper.Replace(needle) + "%"
}
