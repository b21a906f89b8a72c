package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-manager/config"
	"github.com/oksasatya/go-ddd-task-manager/internal/application"
	"github.com/oksasatya/go-ddd-task-manager/internal/container"
	repo "github.com/oksasatya/go-ddd-task-manager/internal/domain/repository"
	esinfra "github.com/oksasatya/go-ddd-task-manager/internal/infrastructure/elasticsearch"
	pginfra "github.com/oksasatya/go-ddd-task-manager/internal/infrastructure/postgres"
	redisinfra "github.com/oksasatya/go-ddd-task-manager/internal/infrastructure/redis"
	handlers "github.com/oksasatya/go-ddd-task-manager/internal/interface/http"
	"github.com/oksasatya/go-ddd-task-manager/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-task-manager/internal/router/modules"
)

// Deps is everything the HTTP modules need.
type Deps struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Auth    *application.AuthService
	Users   *application.UserService
	Tasks   *application.TaskService
	Limiter repo.RateLimiter // route-level limits; nil disables them
}

func buildDeps() Deps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	pool := container.GetPGPool()
	rdb := container.GetRedis()
	limiter := redisinfra.NewRateLimiter(rdb)

	auth := application.NewAuthService(
		pginfra.NewUserRepository(pool),
		pginfra.NewTokenRepository(pool),
		limiter,
		container.GetTokenManager(),
		rdb,
		logger,
	)
	auth.MaxAttempts = cfg.LoginMaxAttempts
	auth.Decay = cfg.LoginDecay

	users := application.NewUserService(pginfra.NewUserRepository(pool), container.GetGCS(), cfg.GCSBucket, logger)

	taskRepo := pginfra.NewTaskRepository(pool)
	var searcher repo.TaskSearcher = taskRepo
	if es := container.GetES(); es != nil && cfg.UseElasticsearchSearch() {
		searcher = esinfra.NewTaskIndex(es, cfg.ESTasksIndex, logger)
	}
	var events application.EventPublisher
	if pub := container.GetRabbitPub(); pub != nil {
		events = pub
	}
	tasks := application.NewTaskService(taskRepo, searcher, events, logger)

	return Deps{Config: cfg, Logger: logger, Auth: auth, Users: users, Tasks: tasks, Limiter: limiter}
}

// Mount adds every feature module to the registry.
func Mount(r *Registry, d Deps) {
	cfg := d.Config
	auth := middleware.Auth(d.Auth, d.Logger)

	var loginLimit, userLimit, debugLimit gin.HandlerFunc
	if d.Limiter != nil {
		loginLimit = middleware.RateLimit(d.Limiter, cfg.LoginIPLimit, time.Minute, middleware.KeyByIPAndPath(), nil, d.Logger)
		userLimit = middleware.RateLimit(d.Limiter, cfg.APIUserLimit, time.Minute, middleware.KeyByUserID(), nil, d.Logger)
		debugLimit = middleware.RateLimit(d.Limiter, 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP(), d.Logger)
	}

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(d.Auth, d.Logger, cfg.CookieDomain, cfg.CookieSecure), auth, loginLimit))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(d.Users, d.Logger), auth, userLimit))
	r.Add(modules.NewTaskModule(handlers.NewTaskHandler(d.Tasks, d.Logger), auth, userLimit))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(debugLimit))
	}
}

// InitModules wires modules from the container and registers them with the router registry.
// This function should be called once during application startup.
func InitModules(r *Registry) {
	Mount(r, buildDeps())
}
