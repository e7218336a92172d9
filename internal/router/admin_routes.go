package router

import (
    "github.com/labstack/echo/v4"

    "github.com/velora/storegrid/internal/handler"
    "github.com/velora/storegrid/internal/middleware"
)

// RegisterAdmin registers the management surface under /v1.  Every route
// requires a valid JWT; writes additionally require the ADMIN role, while
// reads accept MANAGER (handlers scope MANAGER results by store grants).
// cache may be nil, in which case the dashboard is served uncached.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string, cache echo.MiddlewareFunc) {
    read := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("ADMIN", "MANAGER"),
    )
    write := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("ADMIN"),
    )

    // ---- Organizations ----
    write.POST("/organizations", h.CreateOrganization)
    read.GET("/organizations", h.ListOrganizations)
    read.GET("/organizations/:id", h.GetOrganization)
    write.PUT("/organizations/:id", h.UpdateOrganization)
    write.PATCH("/organizations/:id", h.UpdateOrganization)
    write.DELETE("/organizations/:id", h.DeleteOrganization)

    // ---- Concepts ----
    write.POST("/concepts", h.CreateConcept)
    read.GET("/concepts", h.ListConcepts)
    read.GET("/concepts/:id", h.GetConcept)
    write.PUT("/concepts/:id", h.UpdateConcept)
    write.PATCH("/concepts/:id", h.UpdateConcept)
    write.DELETE("/concepts/:id", h.DeleteConcept)

    // ---- Stores ----
    write.POST("/stores", h.CreateStore)
    read.GET("/stores", h.ListStores)
    read.GET("/stores/:id", h.GetStore)
    write.PUT("/stores/:id", h.UpdateStore)
    write.PATCH("/stores/:id", h.UpdateStore)
    write.DELETE("/stores/:id", h.DeleteStore)
    read.GET("/stores/:id/tokens", h.ListStoreTokens)

    // ---- Users & store access grants ----
    write.GET("/users", h.ListUsers)
    write.GET("/users/:id", h.GetUser)
    write.PATCH("/users/:id/role", h.UpdateUserRole)
    write.DELETE("/users/:id", h.DeactivateUser)
    write.POST("/users/:id/store-access", h.GrantStoreAccess)
    write.DELETE("/users/:id/store-access/:store_id", h.RevokeStoreAccess)

    // ---- Agents ----
    read.GET("/agents", h.ListAgents)
    read.GET("/agents/:id", h.GetAgent)
    write.DELETE("/agents/:id", h.DeactivateAgent)
    write.DELETE("/stores/:store_id/agents/:agent_id", h.DeactivateBinding)
    write.PUT("/stores/:store_id/agents/:agent_id/config", h.UpdateBindingConfig)

    // ---- Dashboard ----
    if cache != nil {
        read.GET("/dashboard", h.Dashboard, cache)
    } else {
        read.GET("/dashboard", h.Dashboard)
    }
}
