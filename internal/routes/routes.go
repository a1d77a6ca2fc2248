package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/example/registry/internal/config"
	"github.com/example/registry/internal/handlers"
	"github.com/example/registry/internal/middleware"
	"github.com/example/registry/internal/services"
)

// Public paths reachable without a session.
var publicPaths = []string{
	"/api/login",
	"/api/logout",
	"/api/verify-otp",
}

// Dependencies lets callers (tests in particular) swap collaborators.
type Dependencies struct {
	Notifier services.OTPNotifier
	Telegram *services.TelegramService
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, log zerolog.Logger, deps Dependencies) {
	if deps.Notifier == nil {
		deps.Notifier = services.NewOTPNotifier(cfg, log)
	}
	if deps.Telegram == nil {
		deps.Telegram = services.NewTelegramService(cfg.Telegram, log)
	}

	wf := services.NewWorkflow(db, log)
	sessions := services.NewSessionStore(db)
	verifier := services.NewCredentialVerifier(db, deps.Notifier, log)

	userService := services.NewUserService(wf, sessions)
	roleService := services.NewRoleService(wf)
	foreignerService := services.NewForeignerService(wf)
	applicationService := services.NewApplicationService(wf, deps.Telegram)
	sponsorService := services.NewSponsorService(wf)
	withdrawalService := services.NewWithdrawalService(wf)

	authHandler := handlers.NewAuthHandler(cfg, verifier, sessions, userService, log)
	userHandler := handlers.NewUserHandler(userService, roleService)
	roleHandler := handlers.NewRoleHandler(roleService)
	foreignerHandler := handlers.NewForeignerHandler(foreignerService, applicationService)
	sponsorHandler := handlers.NewSponsorHandler(sponsorService)
	withdrawalHandler := handlers.NewWithdrawalHandler(withdrawalService)

	gate := middleware.NewGate(db, sessions, log, publicPaths...)
	api := app.Group("/api", gate.Handler())

	loginLimiter := limiter.New(limiter.Config{
		Max:        cfg.LoginRateLimit,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many attempts. Please try again later.")
		},
	})

	// Auth routes
	api.Post("/login", loginLimiter, authHandler.Login)
	api.Post("/verify-otp", loginLimiter, authHandler.VerifyOTP)
	api.Post("/logout", authHandler.Logout)
	api.Post("/user", authHandler.UserInfo)

	users := api.Group("/users")
	users.Post("/", userHandler.Index)
	users.Post("/create", userHandler.Create)
	users.Post("/getSingle", userHandler.GetSingle)
	users.Post("/destroy", userHandler.Destroy)
	users.Post("/roles", userHandler.Roles)

	roles := api.Group("/roles")
	roles.Post("/", roleHandler.Index)
	roles.Post("/create", roleHandler.Create)
	roles.Post("/getSingle", roleHandler.GetSingle)
	roles.Post("/destroy", roleHandler.Destroy)
	roles.Post("/permissions", roleHandler.AllPermissions)
	roles.Post("/getPermissions", roleHandler.GetPermissions)
	roles.Post("/setPermissions", roleHandler.SetPermissions)

	foreigners := api.Group("/foreigners")
	foreigners.Post("/", foreignerHandler.Index)
	foreigners.Post("/create", foreignerHandler.Create)
	foreigners.Post("/getSingle", foreignerHandler.GetSingle)
	foreigners.Post("/search", foreignerHandler.Search)
	foreigners.Post("/sponsers", foreignerHandler.Sponsors)
	foreigners.Post("/applications", foreignerHandler.CreateApplication)
	foreigners.Post("/get_applications", foreignerHandler.Applications)
	foreigners.Post("/approve_approval", foreignerHandler.ApproveApplication)
	foreigners.Post("/pay_application", foreignerHandler.PayApplication)
	foreigners.Post("/profile", foreignerHandler.Profile)
	foreigners.Post("/application_history", foreignerHandler.ApplicationHistory)

	sponsors := api.Group("/sponsors")
	sponsors.Post("/", sponsorHandler.Index)
	sponsors.Post("/create", sponsorHandler.Create)
	sponsors.Post("/getSingle", sponsorHandler.GetSingle)
	sponsors.Post("/updateStatus", sponsorHandler.UpdateStatus)
	sponsors.Post("/destroy", sponsorHandler.Destroy)

	withdrawals := api.Group("/withdrawal")
	withdrawals.Post("/", withdrawalHandler.Index)
	withdrawals.Post("/create", withdrawalHandler.Create)
	withdrawals.Post("/getSingle", withdrawalHandler.GetSingle)
	withdrawals.Post("/destroy", withdrawalHandler.Destroy)
	withdrawals.Post("/history", withdrawalHandler.History)
	withdrawals.Post("/balance", withdrawalHandler.Balance)
}
