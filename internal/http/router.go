package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/bankdesk/internal/auth"
	"github.com/geocoder89/bankdesk/internal/cache"
	"github.com/geocoder89/bankdesk/internal/config"
	"github.com/geocoder89/bankdesk/internal/domain/user"
	"github.com/geocoder89/bankdesk/internal/http/handlers"
	"github.com/geocoder89/bankdesk/internal/http/middlewares"
	"github.com/geocoder89/bankdesk/internal/observability"
	"github.com/geocoder89/bankdesk/internal/repo/memory"
	"github.com/geocoder89/bankdesk/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps is everything the router needs; storage is behind the handler interfaces
// so the same routes run on postgres or in memory.
type Deps struct {
	Accounts      handlers.AccountsStore
	Users         handlers.UserReader
	RefreshTokens handlers.RefreshTokenStore
	AccountCache  cache.Accounts
	JWT           *auth.Manager

	// optional
	Prom        *observability.Prom
	Gatherer    prometheus.Gatherer
	ReadyChecks map[string]handlers.Pinger
}

// PostgresDeps wires the postgres repositories around one pool.
func PostgresDeps(pool *pgxpool.Pool, prom *observability.Prom) Deps {
	var obs postgres.DBObserver
	if prom != nil {
		obs = prom
	}

	return Deps{
		Accounts:      postgres.NewAccountsRepo(pool, obs),
		Users:         postgres.NewUsersRepo(pool, obs),
		RefreshTokens: postgres.NewRefreshTokensRepo(pool, obs),
		Prom:          prom,
		ReadyChecks: map[string]handlers.Pinger{
			"db": pool.Ping,
		},
	}
}

// MemoryDeps backs every store with the in-memory repos; used by tests and
// by local runs without a database.
func MemoryDeps() (Deps, *memory.UsersRepo) {
	users := memory.NewUsersRepo()

	return Deps{
		Accounts:      memory.NewAccountsRepo(),
		Users:         users,
		RefreshTokens: memory.NewRefreshTokensRepo(),
	}, users
}

func NewRouter(log *slog.Logger, deps Deps, cfg config.Config) *gin.Engine {
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = slog.Default()
	}
	if deps.JWT == nil {
		deps.JWT = auth.NewManager(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL())
	}
	if deps.AccountCache == nil {
		deps.AccountCache = cache.NewMemoryAccounts(cfg.AccountCacheTTL)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(serviceName(cfg)))
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders(cfg.Env == "prod"))
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(middlewares.DefaultMaxBodyBytes))

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	// operational routes
	health := handlers.NewHealthHandler(deps.ReadyChecks)
	r.GET("/health", health.Health)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	// auth
	authHandler := handlers.NewAuthHandler(deps.Users, deps.RefreshTokens, deps.JWT, cfg, deps.Prom, log)
	loginLimiter := middlewares.NewRateLimiter(loginRateLimit(cfg), time.Minute)

	r.POST("/token", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
	r.POST("/refresh", authHandler.Refresh)
	r.POST("/logout", authHandler.Logout)

	// accounts
	authMiddleware := middlewares.NewAuthMiddleware(deps.JWT)
	accountsHandler := handlers.NewAccountsHandler(deps.Accounts, deps.AccountCache, deps.Prom, log)

	// per staff user once authenticated, so a shared office IP does not throttle everyone
	apiLimiter := middlewares.NewRateLimiter(apiRateLimit(cfg), time.Minute)

	accounts := r.Group("/accounts",
		authMiddleware.RequireAuth(),
		apiLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP),
		middlewares.RequireJSON(),
	)
	{
		accounts.POST("", accountsHandler.CreateAccount)
		accounts.GET("", accountsHandler.ListAccounts)
		accounts.GET("/:id", accountsHandler.GetAccountByID)
		accounts.PUT("/:id", accountsHandler.UpdateAccount)
		accounts.DELETE("/:id", authMiddleware.RequireRole(user.RoleManager), accountsHandler.DeleteAccount)
	}

	return r
}

func serviceName(cfg config.Config) string {
	if cfg.OTelServiceName != "" {
		return cfg.OTelServiceName
	}
	return "bankdesk-api"
}

func loginRateLimit(cfg config.Config) int {
	if cfg.LoginRateLimit > 0 {
		return cfg.LoginRateLimit
	}
	return 10
}

func apiRateLimit(cfg config.Config) int {
	if cfg.APIRateLimit > 0 {
		return cfg.APIRateLimit
	}
	return 300
}
