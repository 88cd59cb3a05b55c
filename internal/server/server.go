// Package server assembles the Fiber application: middleware, routes and error mapping.
package server

import (
	"log/slog"
	"strings"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/localnerve/gestionale/internal/auth"
	"github.com/localnerve/gestionale/internal/config"
	"github.com/localnerve/gestionale/internal/handlers"
	"github.com/localnerve/gestionale/internal/middleware"
	"github.com/localnerve/gestionale/internal/notify"
	"github.com/localnerve/gestionale/internal/push"
	"github.com/localnerve/gestionale/internal/services"
	"github.com/localnerve/gestionale/internal/types"
	"github.com/localnerve/gestionale/internal/utils"
	"gorm.io/gorm"
)

// Deps are the collaborators the routes need. Redis, Mailer and Google may be nil.
type Deps struct {
	Config     *config.Config
	DB         *gorm.DB
	JWT        *auth.JWTManager
	Registry   *push.Registry
	Dispatcher *notify.Dispatcher
	Redis      services.Pinger
	Mailer     handlers.Inviter
	Google     *auth.GoogleProvider
	// Metrics exposes /metrics; off in tests to keep the default registry clean
	Metrics bool
	// AccessLog enables the request logger middleware
	AccessLog bool
}

// New builds the application with every route registered
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})

	// Global middleware
	app.Use(recover.New())
	if d.AccessLog {
		app.Use(logger.New())
	}
	app.Use(compress.New())
	origins := d.Config.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Api-Version",
		AllowCredentials: origins != "*",
	}))

	// Prometheus metrics
	if d.Metrics {
		prometheus := fiberprometheus.New("gestionale")
		prometheus.RegisterAt(app, "/metrics")
		app.Use(prometheus.Middleware)
	}

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	RegisterRoutes(app, d)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return utils.NotFoundResponse(c, "[404] Resource Not Found")
	})

	return app
}

// RegisterRoutes mounts the API under /api
func RegisterRoutes(app *fiber.App, d Deps) {
	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())

	requireUser := middleware.AuthUser(d.JWT, d.DB)

	healthHandler := &handlers.HealthHandler{Cfg: d.Config, DB: d.DB, Redis: d.Redis, Registry: d.Registry}
	api.Get("/health", healthHandler.Health)

	authHandler := &handlers.AuthHandler{DB: d.DB, JWT: d.JWT}
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/token", authHandler.Token)
	authGroup.Get("/me", requireUser, authHandler.Me)
	authGroup.Put("/update-email", requireUser, authHandler.UpdateEmail)
	authGroup.Put("/update-password", requireUser, authHandler.UpdatePassword)

	oauthHandler := &handlers.OAuthHandler{
		DB:           d.DB,
		JWT:          d.JWT,
		Google:       d.Google,
		FrontendURL:  d.Config.FrontendURL,
		SecureCookie: strings.HasPrefix(d.Config.BackendURL, "https://"),
	}
	oauth := api.Group("/oauth/google")
	oauth.Get("/login", oauthHandler.GoogleLogin)
	oauth.Get("/callback", oauthHandler.GoogleCallback)
	oauth.Get("/status", oauthHandler.GoogleStatus)

	userHandler := &handlers.UserHandler{DB: d.DB}
	users := api.Group("/users", requireUser)
	users.Get("/", userHandler.ListUsers)
	users.Get("/:id", userHandler.GetUser)

	expenseHandler := &handlers.ExpenseHandler{DB: d.DB, Notifier: d.Dispatcher, Mailer: d.Mailer}
	expenses := api.Group("/expenses", requireUser)
	expenses.Post("/groups", expenseHandler.CreateGroup)
	expenses.Get("/groups", expenseHandler.ListGroups)
	expenses.Get("/groups/shared/:token", expenseHandler.JoinGroup)
	expenses.Get("/groups/:id", expenseHandler.GetGroup)
	expenses.Put("/groups/:id", expenseHandler.UpdateGroup)
	expenses.Delete("/groups/:id", expenseHandler.DeleteGroup)
	expenses.Post("/groups/:id/members", expenseHandler.AddMembers)
	expenses.Delete("/groups/:id/members/:user_id", expenseHandler.RemoveMember)
	expenses.Post("/groups/:id/invite", expenseHandler.InviteToGroup)
	expenses.Get("/groups/:id/balances", expenseHandler.GroupBalances)
	expenses.Post("/expenses", expenseHandler.CreateExpense)
	expenses.Get("/expenses", expenseHandler.ListExpenses)
	expenses.Get("/expenses/:id", expenseHandler.GetExpense)
	expenses.Put("/expenses/:id", expenseHandler.UpdateExpense)
	expenses.Delete("/expenses/:id", expenseHandler.DeleteExpense)

	shoppingHandler := &handlers.ShoppingHandler{DB: d.DB, Notifier: d.Dispatcher, Mailer: d.Mailer}
	lists := api.Group("/shopping-lists", requireUser)
	lists.Post("/", shoppingHandler.CreateList)
	lists.Get("/", shoppingHandler.ListLists)
	lists.Get("/shared/:token", shoppingHandler.JoinList)
	lists.Get("/:id", shoppingHandler.GetList)
	lists.Put("/:id", shoppingHandler.UpdateList)
	lists.Delete("/:id", shoppingHandler.DeleteList)
	lists.Post("/:id/invite", shoppingHandler.InviteToList)
	lists.Post("/:id/items", shoppingHandler.AddItem)
	lists.Put("/:id/items/:item_id", shoppingHandler.UpdateItem)
	lists.Delete("/:id/items/:item_id", shoppingHandler.DeleteItem)

	gymHandler := &handlers.GymHandler{DB: d.DB}
	gym := api.Group("/gym/cards", requireUser)
	gym.Post("/", gymHandler.CreateCard)
	gym.Get("/", gymHandler.ListCards)
	gym.Get("/:id", gymHandler.GetCard)
	gym.Put("/:id", gymHandler.UpdateCard)
	gym.Delete("/:id", gymHandler.DeleteCard)
	gym.Post("/:id/days", gymHandler.AddDay)
	gym.Put("/:id/days/:day_id", gymHandler.UpdateDay)
	gym.Delete("/:id/days/:day_id", gymHandler.DeleteDay)
	gym.Post("/:id/days/:day_id/exercises", gymHandler.AddExercise)
	gym.Put("/:id/days/:day_id/exercises/:exercise_id", gymHandler.UpdateExercise)
	gym.Delete("/:id/days/:day_id/exercises/:exercise_id", gymHandler.DeleteExercise)

	// Registered ahead of the notifications group so its Bearer middleware is never reached;
	// the channel reads the token from the query string instead
	pushHandler := &handlers.PushHandler{DB: d.DB, JWT: d.JWT, Registry: d.Registry, WriteTimeout: d.Config.PushWriteTimeout}
	api.Get("/notifications/ws", pushHandler.Upgrade, pushHandler.Handler())

	notificationHandler := &handlers.NotificationHandler{DB: d.DB}
	notifications := api.Group("/notifications", requireUser)
	notifications.Get("/", notificationHandler.ListNotifications)
	notifications.Get("/unread-count", notificationHandler.UnreadCount)
	notifications.Put("/mark-all-read", notificationHandler.MarkAllRead)
	notifications.Put("/:id/mark-read", notificationHandler.MarkRead)
	notifications.Delete("/:id", notificationHandler.DeleteNotification)
}

// ErrorHandler maps every returned error onto the standard error body
func ErrorHandler(c *fiber.Ctx, err error) error {
	ce := types.ToCustomError(err)
	if ce.Code >= fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "status", ce.Code, "error", err)
	}
	return utils.ErrorResponse(c, ce.Message, ce.Code, ce.Type)
}

// ShutdownTimeout bounds graceful shutdown
const ShutdownTimeout = 10 * time.Second
