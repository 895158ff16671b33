package routes

import (
	"net/http"

	"github.com/BookHut/BookHut-Backend/src/auth"
	"github.com/BookHut/BookHut-Backend/src/config"
	"github.com/BookHut/BookHut-Backend/src/middleware"
	"github.com/BookHut/BookHut-Backend/src/services"
	"github.com/BookHut/BookHut-Backend/src/session"
	"github.com/gin-gonic/gin"
)

// Dependencies are the process-wide handles the routes are built from.
type Dependencies struct {
	Config          *config.Config
	Verifier        *auth.TokenVerifier
	Revoker         session.Revoker
	BookService     *services.BookService
	LoanService     *services.LoanService
	UserCardService *services.UserCardService
}

// NewRouter builds the gin engine serving the whole API.
func NewRouter(deps Dependencies) *gin.Engine {
	revoker := deps.Revoker
	if revoker == nil {
		revoker = session.NopRevoker{}
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.SetupCORS(deps.Config.CORSOrigins))

	authenticated := middleware.AuthMiddleware(deps.Verifier, revoker)
	gate := []gin.HandlerFunc{authenticated, middleware.RequireIdentityMatch()}

	SetupAuthRoutes(router, deps.Verifier, revoker, deps.Config.IsProduction())
	SetupBookRoutes(router, deps.BookService, gate...)
	SetupLoanRoutes(router, deps.LoanService, deps.Config.AtomicStock, authenticated, gate...)
	SetupUserCardRoutes(router, deps.UserCardService)

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Book Hut is running.")
	})

	return router
}
