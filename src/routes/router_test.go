package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BookHut/BookHut-Backend/src/auth"
	"github.com/BookHut/BookHut-Backend/src/config"
	"github.com/BookHut/BookHut-Backend/src/models"
	"github.com/BookHut/BookHut-Backend/src/routes"
	"github.com/BookHut/BookHut-Backend/src/services"
	"github.com/BookHut/BookHut-Backend/src/session"
	"github.com/BookHut/BookHut-Backend/src/testutil"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	excelize "github.com/xuri/excelize/v2"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	router   *gin.Engine
	verifier *auth.TokenVerifier
	books    *services.BookService
	loans    *services.LoanService
}

func newAPI(t *testing.T, configure func(*config.Config)) *apiFixture {
	t.Helper()

	cfg := &config.Config{
		AppEnv:            "development",
		SecretAccessToken: "test-secret",
		CORSOrigins:       []string{"http://localhost:5174"},
		AtomicStock:       true,
	}
	if configure != nil {
		configure(cfg)
	}

	gdb := testutil.NewDB(t)

	verifier, err := auth.NewTokenVerifier(cfg.SecretAccessToken)
	require.NoError(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	books := services.NewBookService(gdb)
	t.Cleanup(books.Close)
	loans := services.NewLoanService(gdb, books, services.WithOwnerCheckOnReturn(cfg.ReturnRequiresOwner))

	router := routes.NewRouter(routes.Dependencies{
		Config:          cfg,
		Verifier:        verifier,
		Revoker:         session.NewRedisRevoker(rdb),
		BookService:     books,
		LoanService:     loans,
		UserCardService: services.NewUserCardService(gdb),
	})

	return &apiFixture{router: router, verifier: verifier, books: books, loans: loans}
}

func (f *apiFixture) token(t *testing.T, email string) string {
	t.Helper()
	token, err := f.verifier.Issue(map[string]any{"email": email})
	require.NoError(t, err)
	return token
}

func (f *apiFixture) addBook(t *testing.T, name string, quantity int) string {
	t.Helper()
	book := models.BookModel{Name: name, Category: "Novel", Quantity: quantity}
	require.NoError(t, f.books.CreateBook(context.Background(), &book))
	return book.ID
}

func (f *apiFixture) quantity(t *testing.T, bookID string) int {
	t.Helper()
	book, err := f.books.GetBookByID(context.Background(), bookID)
	require.NoError(t, err)
	return book.Quantity
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) borrow(t *testing.T, bookID, email string) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, http.MethodPost, "/borrow-books", map[string]any{
		"borrower": map[string]any{
			"borrowingBookId": bookID,
			"borrowerEmail":   email,
			"borrowerName":    "Reader",
		},
	}, "")
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	return nil
}

func TestRootRoute(t *testing.T) {
	f := newAPI(t, nil)

	rec := f.do(t, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Book Hut is running.", rec.Body.String())
}

func TestIssueTokenSetsSessionCookie(t *testing.T) {
	f := newAPI(t, nil)

	rec := f.do(t, http.MethodPost, "/jwt", map[string]any{"email": "a@x.com"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, 3600, cookie.MaxAge)

	claims, err := f.verifier.Verify(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Email)

	rec = f.do(t, http.MethodPost, "/jwt", map[string]any{"name": "nobody"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductionCookieIsSecure(t *testing.T) {
	f := newAPI(t, func(cfg *config.Config) { cfg.AppEnv = "production" })

	rec := f.do(t, http.MethodPost, "/jwt", map[string]any{"email": "a@x.com"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
}

func TestGatedRoutesRequireToken(t *testing.T) {
	f := newAPI(t, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/allBooks?email=a@x.com"},
		{http.MethodGet, "/borrow-books?email=a@x.com"},
		{http.MethodPost, "/add-book?email=a@x.com"},
		{http.MethodPost, "/import-books?email=a@x.com"},
	} {
		rec := f.do(t, tc.method, tc.path, map[string]any{"name": "Sneaky"}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.path)
	}

	books, err := f.books.GetAllBooks(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestGatedRoutesRejectIdentityMismatch(t *testing.T) {
	f := newAPI(t, nil)
	token := f.token(t, "a@x.com")

	rec := f.do(t, http.MethodGet, "/allBooks?email=b@x.com", nil, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/borrow-books?email=b@x.com", nil, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/allBooks?email=a@x.com", nil, token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBorrowDuplicateThenOutOfStock(t *testing.T) {
	f := newAPI(t, nil)
	bookID := f.addBook(t, "Dune", 1)

	rec := f.borrow(t, bookID, "a@x.com")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["acknowledged"])
	assert.NotEmpty(t, body["insertedId"])
	assert.Equal(t, float64(0), body["quantity"])
	assert.Equal(t, 0, f.quantity(t, bookID))

	rec = f.borrow(t, bookID, "a@x.com")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, services.ErrDuplicateLoan.Error(), decode(t, rec)["error"])

	rec = f.borrow(t, bookID, "c@x.com")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, services.ErrInsufficientStock.Error(), decode(t, rec)["error"])

	n, err := f.loans.CountActiveLoans(context.Background(), "c@x.com")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 0, f.quantity(t, bookID))
}

func TestBorrowLimitOverHTTP(t *testing.T) {
	f := newAPI(t, nil)
	token := f.token(t, "a@x.com")

	for i, name := range []string{"One", "Two", "Three"} {
		rec := f.borrow(t, f.addBook(t, name, 1), "a@x.com")
		require.Equal(t, http.StatusOK, rec.Code, "borrow %d: %s", i, rec.Body.String())
	}

	fourth := f.addBook(t, "Four", 1)
	rec := f.borrow(t, fourth, "a@x.com")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, services.ErrLimitExceeded.Error(), decode(t, rec)["error"])
	assert.Equal(t, 1, f.quantity(t, fourth))

	rec = f.do(t, http.MethodGet, "/borrow-books?email=a@x.com", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	var loans []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loans))
	require.Len(t, loans, 3)
	borrower := loans[0]["borrower"].(map[string]any)
	assert.Equal(t, "a@x.com", borrower["borrowerEmail"])
}

func TestBorrowKeepsExtraFieldsAsDetails(t *testing.T) {
	f := newAPI(t, nil)
	bookID := f.addBook(t, "Dune", 2)
	token := f.token(t, "a@x.com")

	rec := f.do(t, http.MethodPost, "/borrow-books", map[string]any{
		"borrower": map[string]any{"borrowingBookId": bookID, "borrowerEmail": "a@x.com"},
		"name":     "Dune",
		"image":    "dune.jpg",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/borrow-books?email=a@x.com", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	var loans []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loans))
	require.Len(t, loans, 1)
	details := loans[0]["details"].(map[string]any)
	assert.Equal(t, "dune.jpg", details["image"])
	assert.NotContains(t, details, "borrower")
}

func TestBorrowRejectsMalformedBody(t *testing.T) {
	f := newAPI(t, nil)

	rec := f.do(t, http.MethodPost, "/borrow-books", map[string]any{"borrower": map[string]any{}}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/borrow-books", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	raw := httptest.NewRecorder()
	f.router.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestReturnBookRestoresStock(t *testing.T) {
	f := newAPI(t, nil)
	bookID := f.addBook(t, "Dune", 1)

	rec := f.borrow(t, bookID, "a@x.com")
	require.Equal(t, http.StatusOK, rec.Code)
	loanID := decode(t, rec)["insertedId"].(string)

	rec = f.do(t, http.MethodDelete, "/delete-borrowedBook/"+loanID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"acknowledged":true,"deletedCount":1}`, rec.Body.String())
	assert.Equal(t, 1, f.quantity(t, bookID))

	rec = f.do(t, http.MethodDelete, "/delete-borrowedBook/"+loanID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, f.quantity(t, bookID))
}

func TestReturnRequiresOwnerWhenConfigured(t *testing.T) {
	f := newAPI(t, func(cfg *config.Config) { cfg.ReturnRequiresOwner = true })
	bookID := f.addBook(t, "Dune", 1)

	rec := f.borrow(t, bookID, "a@x.com")
	require.Equal(t, http.StatusOK, rec.Code)
	loanID := decode(t, rec)["insertedId"].(string)

	rec = f.do(t, http.MethodDelete, "/delete-borrowedBook/"+loanID, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodDelete, "/delete-borrowedBook/"+loanID, nil, f.token(t, "b@x.com"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, f.quantity(t, bookID))

	rec = f.do(t, http.MethodDelete, "/delete-borrowedBook/"+loanID, nil, f.token(t, "a@x.com"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.quantity(t, bookID))
}

func TestSplitStockModeUsesQuantityRoutes(t *testing.T) {
	f := newAPI(t, func(cfg *config.Config) { cfg.AtomicStock = false })
	bookID := f.addBook(t, "Dune", 1)

	rec := f.borrow(t, bookID, "a@x.com")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, decode(t, rec), "quantity")
	assert.Equal(t, 1, f.quantity(t, bookID))

	rec = f.do(t, http.MethodPatch, "/update-quantity/"+bookID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["quantity"])

	rec = f.do(t, http.MethodPatch, "/update-quantity/"+bookID, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, f.quantity(t, bookID))

	rec = f.do(t, http.MethodPatch, "/update-quantity-increase/"+bookID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.quantity(t, bookID))

	rec = f.do(t, http.MethodPatch, "/update-quantity/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newAPI(t, nil)

	rec := f.do(t, http.MethodPost, "/jwt", map[string]any{"email": "a@x.com"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	token := sessionCookie(rec).Value

	rec = f.do(t, http.MethodGet, "/allBooks?email=a@x.com", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/logout", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	cleared := sessionCookie(rec)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	rec = f.do(t, http.MethodGet, "/allBooks?email=a@x.com", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// logout without a session still succeeds
	rec = f.do(t, http.MethodPost, "/logout", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCatalogRoutes(t *testing.T) {
	f := newAPI(t, nil)
	token := f.token(t, "a@x.com")

	rec := f.do(t, http.MethodPost, "/add-book?email=a@x.com", map[string]any{
		"name": "Dune", "category": "Science Fiction", "quantity": 2, "publisher": "Chilton",
	}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	bookID := decode(t, rec)["insertedId"].(string)

	rec = f.do(t, http.MethodGet, "/book-details/"+bookID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	book := decode(t, rec)
	assert.Equal(t, bookID, book["_id"])
	assert.Equal(t, "Dune", book["name"])

	rec = f.do(t, http.MethodGet, "/book-details/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/books?category=fiction", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Dune")

	rec = f.do(t, http.MethodGet, "/book-category/science%20fiction", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Dune")

	rec = f.do(t, http.MethodPatch, "/update-book/"+bookID, map[string]any{"rating": 4.5}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["modifiedCount"])

	rec = f.do(t, http.MethodPatch, "/update-book/"+bookID, map[string]any{"quantity": -1}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/book-count", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"category":"Science Fiction","count":1}]`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/add-book?email=a@x.com", map[string]any{"name": "Bad", "quantity": -1}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAllBooksShowAvailable(t *testing.T) {
	f := newAPI(t, nil)
	token := f.token(t, "a@x.com")
	f.addBook(t, "Dune", 1)
	f.addBook(t, "Emma", 0)

	rec := f.do(t, http.MethodGet, "/allBooks?email=a@x.com", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	rec = f.do(t, http.MethodGet, "/allBooks?email=a@x.com&showAvailable=true", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var available []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &available))
	require.Len(t, available, 1)
	assert.Equal(t, "Dune", available[0]["name"])
}

func TestImportBooksUpload(t *testing.T) {
	f := newAPI(t, nil)
	token := f.token(t, "a@x.com")

	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	require.NoError(t, wb.SetSheetRow(sheet, "A1", &[]any{"name", "category", "quantity"}))
	require.NoError(t, wb.SetSheetRow(sheet, "A2", &[]any{"Dune", "Science Fiction", 2}))
	xlsx, err := wb.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "books.xlsx")
	require.NoError(t, err)
	_, err = part.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/import-books?email=a@x.com", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"imported":1,"errors":[]}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/import-books?email=a@x.com", nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserCards(t *testing.T) {
	f := newAPI(t, nil)

	rec := f.do(t, http.MethodGet, "/users-card", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestBorrowStoresReturnDateAsSent(t *testing.T) {
	f := newAPI(t, nil)
	token := f.token(t, "a@x.com")

	dates := []string{"2024-06-01", "2024-06-01T10:00:00Z", "next friday"}
	for i, returnDate := range dates {
		bookID := f.addBook(t, "Book "+returnDate, 1)
		rec := f.do(t, http.MethodPost, "/borrow-books", map[string]any{
			"borrower": map[string]any{
				"borrowingBookId": bookID,
				"borrowerEmail":   "a@x.com",
				"returnDate":      returnDate,
			},
		}, "")
		require.Equal(t, http.StatusOK, rec.Code, "borrow %d: %s", i, rec.Body.String())
	}

	rec := f.do(t, http.MethodGet, "/borrow-books?email=a@x.com", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	var loans []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loans))
	var got []string
	for _, loan := range loans {
		got = append(got, loan["borrower"].(map[string]any)["returnDate"].(string))
	}
	assert.ElementsMatch(t, dates, got)
}

func TestAddBookTakesIdentityFromBody(t *testing.T) {
	f := newAPI(t, nil)
	token := f.token(t, "a@x.com")

	rec := f.do(t, http.MethodPost, "/add-book", map[string]any{
		"email": "a@x.com", "name": "Dune", "quantity": 1,
	}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	book, err := f.books.GetBookByID(context.Background(), decode(t, rec)["insertedId"].(string))
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Name)
	assert.NotContains(t, book.Details, "email")

	rec = f.do(t, http.MethodPost, "/add-book", map[string]any{"email": "b@x.com", "name": "Emma"}, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	books, err := f.books.GetAllBooks(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestBorrowStatusReportsRemainingSlots(t *testing.T) {
	f := newAPI(t, nil)
	token := f.token(t, "a@x.com")

	rec := f.do(t, http.MethodGet, "/borrow-status?email=a@x.com", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode(t, rec)
	assert.Equal(t, float64(0), status["activeLoans"])
	assert.Equal(t, float64(services.MaxActiveLoans), status["maxLoans"])
	assert.Equal(t, float64(services.MaxActiveLoans), status["remaining"])
	assert.NotEmpty(t, status["sessionExpiresAt"])

	for _, name := range []string{"One", "Two"} {
		require.Equal(t, http.StatusOK, f.borrow(t, f.addBook(t, name, 1), "a@x.com").Code)
	}

	rec = f.do(t, http.MethodGet, "/borrow-status?email=a@x.com", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	status = decode(t, rec)
	assert.Equal(t, float64(2), status["activeLoans"])
	assert.Equal(t, float64(1), status["remaining"])

	rec = f.do(t, http.MethodGet, "/borrow-status?email=b@x.com", nil, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.do(t, http.MethodGet, "/borrow-status?email=a@x.com", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
