// Package handlers exposes the library services over HTTP
package handlers

import (
	"net/http"
	"time"

	"github.com/Cherishclears/library-backend/models"
	"github.com/Cherishclears/library-backend/natsserver"
	"github.com/Cherishclears/library-backend/services"
	"github.com/gin-gonic/gin"
)

// NATSStats is satisfied by *natsserver.EmbeddedNATS
type NATSStats interface {
	GetStats() natsserver.Stats
}

// Dependencies wires the services behind the handlers
type Dependencies struct {
	Users   *services.UserService
	Books   *services.BookService
	Borrows *services.BorrowService
	Stats   *services.StatsService
	Files   *services.FileStorage
	Hub     *services.NotificationHub
	NATS    NATSStats // nil when an external NATS server is used

	JWTSecret       string
	JWTTTL          time.Duration
	LoginRatePerMin int
}

var (
	userService   *services.UserService
	bookService   *services.BookService
	borrowService *services.BorrowService
	statsService  *services.StatsService
	fileStorage   *services.FileStorage
	notifyHub     *services.NotificationHub
	natsStats     NATSStats

	loginLimiter *IPRateLimiter
)

// Configure sets the services used by every handler
func Configure(d Dependencies) {
	userService = d.Users
	bookService = d.Books
	borrowService = d.Borrows
	statsService = d.Stats
	fileStorage = d.Files
	notifyHub = d.Hub
	natsStats = d.NATS

	setJWT(d.JWTSecret, d.JWTTTL)

	rate := d.LoginRatePerMin
	if rate <= 0 {
		rate = 10
	}
	loginLimiter = NewIPRateLimiter(rate)
}

// RegisterRoutes mounts every endpoint on the router
func RegisterRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// WebSocket route for live notifications (outside /api group)
	router.GET("/ws/notifications", HandleNotificationWebSocket)

	admin := RequireRole(models.RoleAdmin)
	reader := RequireRole(models.RoleReader)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", loginLimiter.Middleware(), Login)
			auth.POST("/register", Register)
			auth.GET("/check", OptionalAuth(), CheckAuth)
		}

		// Public catalog search
		api.GET("/books/public/search", SearchBooks)

		books := api.Group("/books", AuthMiddleware())
		{
			books.GET("", GetBooks)
			books.GET("/search", SearchBooks)
			books.GET("/available", GetAvailableBooks)
			books.GET("/isbn/:isbn", GetBookByISBN)
			books.GET("/category/:category", GetBooksByCategory)
			books.GET("/author/:author", GetBooksByAuthor)
			books.GET("/:id", GetBook)

			books.POST("", admin, CreateBook)
			books.PUT("/:id", admin, UpdateBook)
			books.DELETE("/:id", admin, DeleteBook)
			books.POST("/upload-cover", admin, UploadBookCover)
		}

		borrows := api.Group("/borrows", AuthMiddleware())
		{
			borrows.POST("", reader, CreateBorrow)
			borrows.GET("/current", GetCurrentBorrows)
			borrows.GET("/user/:userId", GetUserBorrows)
			borrows.GET("/:id", GetBorrow)

			borrows.GET("", admin, GetBorrows)
			borrows.GET("/overdue", admin, GetOverdueBorrows)
			borrows.GET("/book/:bookId", admin, GetBookBorrows)
			borrows.GET("/status/:status", admin, GetBorrowsByStatus)
			borrows.PUT("/:id/approve", admin, ApproveBorrow)
			borrows.PUT("/:id/reject", admin, RejectBorrow)
			borrows.PUT("/:id/return", admin, ReturnBorrow)
		}

		users := api.Group("/users", AuthMiddleware())
		{
			users.GET("", admin, GetUsers)
			users.GET("/:id", GetUser)
			users.PUT("/:id", UpdateUser)
			users.DELETE("/:id", admin, DeleteUser)
		}

		adminGroup := api.Group("/admin", AuthMiddleware(), admin)
		{
			adminGroup.GET("/stats", GetDashboardStats)
			adminGroup.GET("/borrows/recent", GetRecentBorrows)
			adminGroup.POST("/borrows/mark-overdue", MarkOverdueBorrows)
			adminGroup.GET("/system", GetSystemStats)
			adminGroup.GET("/notifications/stats", GetNotificationStats)
		}

		files := api.Group("/files")
		{
			files.POST("/upload", AuthMiddleware(), UploadFile)
			files.GET("/:name", DownloadFile)
		}
	}
}
