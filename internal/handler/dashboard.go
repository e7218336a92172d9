package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// staleCutoff is how long an agent may stay silent before the dashboard
// lists it as stale.
const staleCutoff = 5 * time.Minute

// Dashboard handles GET /v1/dashboard: entity counts, agent status
// breakdown and the agents that have gone quiet.  The route sits behind
// the Redis response cache, so repeated loads within the cache TTL do not
// hit the database.
func (h *AdminHandler) Dashboard(c echo.Context) error {
    ctx := c.Request().Context()

    orgs, err := h.Orgs.Count(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    concepts, err := h.Concepts.Count(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    stores, err := h.Stores.Count(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    agents, byStatus, err := h.Agents.CountByStatus(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    stale, err := h.Agents.StaleSince(ctx, time.Now().UTC().Add(-staleCutoff), 20)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }

    staleKeys := make([]string, 0, len(stale))
    for _, a := range stale {
        staleKeys = append(staleKeys, a.AgentKey)
    }

    return c.JSON(http.StatusOK, echo.Map{
        "organizations":    orgs,
        "concepts":         concepts,
        "stores":           stores,
        "agents":           agents,
        "agents_by_status": byStatus,
        "stale_agents":     staleKeys,
    })
}
