// Package router defines how HTTP routes are registered for the API.
package router

import (
    "github.com/labstack/echo/v4"

    "github.com/velora/storegrid/internal/handler"
    "github.com/velora/storegrid/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints and the protected
// /v1/me route.  Unauthenticated operations live under /v1/auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    // Rotating refresh: invalidates the presented refresh token.
    g.POST("/refresh", a.Refresh)
    // Non-rotating variant: new access token, refresh token untouched.
    g.POST("/refresh-access", a.RefreshAccess)
    // Logout accepts either a refresh token in the body or a bearer access
    // token, so it stays outside the JWT middleware.
    g.POST("/logout", a.Logout)

    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.Use(middleware.RequireRole("ADMIN", "MANAGER"))
    auth.GET("/me", a.Me)
}
