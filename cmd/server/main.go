package main

import (
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/velora/storegrid/internal/config"
    "github.com/velora/storegrid/internal/database"
    "github.com/velora/storegrid/internal/handler"
    "github.com/velora/storegrid/internal/middleware"
    "github.com/velora/storegrid/internal/queue"
    "github.com/velora/storegrid/internal/repository"
    "github.com/velora/storegrid/internal/router"
    "github.com/velora/storegrid/internal/service"
)

func main() {
    // .env is optional; real deployments set the environment directly.
    _ = godotenv.Load()

    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // Repositories.
    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    orgs := repository.NewOrganizationRepo(db)
    concepts := repository.NewConceptRepo(db)
    stores := repository.NewStoreRepo(db)
    access := repository.NewStoreAccessRepo(db)
    agents := repository.NewAgentRepo(db)
    regTokens := repository.NewRegistrationTokenRepo(db)
    bindings := repository.NewStoreAgentRepo(db)

    // Provisioning core.
    provisioner := service.NewProvisioner(
        repository.NewProvisionStore(db),
        repository.NewGrantAuthorizer(access),
        cfg.TokenTTLMin,
    )

    // Handlers.
    authH := handler.NewAuthHandler(cfg, users, tokens)
    adminH := handler.NewAdminHandler(orgs, concepts, stores, users, access, agents, regTokens, bindings)
    provH := handler.NewProvisionHandler(provisioner)
    provH.Stores = stores
    provH.Publish = queue.PublishAgentRegistered
    provH.MaxTTLMinutes = cfg.TokenTTLMaxMin

    // Redis is optional: without it the limiter and cache are skipped.
    var limiter, cache echo.MiddlewareFunc
    if rdb := config.NewRedisClient(); rdb != nil {
        limiter = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
        cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
    } else {
        log.Printf("redis unavailable; rate limiting and response cache disabled")
    }

    // Background consumer writes registration events to logs/agent.log.
    go func() {
        if err := queue.StartAgentConsumer(); err != nil {
            log.Printf("agent-consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    router.RegisterRoutes(e)
    router.RegisterAuth(e, authH, cfg.JWTSecret)
    router.RegisterAdmin(e, adminH, cfg.JWTSecret, cache)
    router.RegisterAgent(e, provH, cfg.JWTSecret, limiter)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
