package router

import (
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"

    "github.com/velora/storegrid/internal/handler"
    "github.com/velora/storegrid/internal/middleware"
)

// RegisterAgent registers the device-facing protocol under /v1/agent.
// Register and heartbeat carry no JWT (the registration token is the
// credential), so the whole group runs behind CORS and, when limiter is
// non-nil, the Redis token-bucket rate limiter.  Token issuance is the
// exception: it is staff-initiated and sits behind the JWT middleware.
func RegisterAgent(e *echo.Echo, h *handler.ProvisionHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
    mws := []echo.MiddlewareFunc{echomw.CORS()}
    if limiter != nil {
        mws = append(mws, limiter)
    }
    g := e.Group("/v1/agent", mws...)

    g.POST("/tokens", h.IssueToken,
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("ADMIN", "MANAGER"),
    )
    g.POST("/register", h.RegisterAgent)
    g.POST("/heartbeat", h.HeartbeatAgent)
}
