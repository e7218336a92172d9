package handler

import (
    "database/sql"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/velora/storegrid/internal/model"
    "github.com/velora/storegrid/internal/repository"
)

// ListAgents handles GET /v1/agents with ?q (key or name substring),
// ?status and ?store_id filters.
func (h *AdminHandler) ListAgents(c echo.Context) error {
    page, pageSize := parsePaging(c)
    status := strings.ToLower(strings.TrimSpace(c.QueryParam("status")))
    if status != "" && !model.ValidAgentStatus(status) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
    }
    var storeID uint64
    if raw := c.QueryParam("store_id"); raw != "" {
        parsed, err := strconv.ParseUint(raw, 10, 64)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid store_id"})
        }
        storeID = parsed
    }
    items, total, err := h.Agents.List(c.Request().Context(), c.QueryParam("q"), status, storeID, page, pageSize)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    return c.JSON(http.StatusOK, listResp(items, total, page, pageSize))
}

// GetAgent handles GET /v1/agents/:id and includes the agent's bindings,
// active and historical.
func (h *AdminHandler) GetAgent(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    agent, err := h.Agents.GetByID(c.Request().Context(), id)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    bindings, err := h.Bindings.ListByAgent(c.Request().Context(), id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"agent": agent, "bindings": bindings})
}

// DeactivateAgent handles DELETE /v1/agents/:id (soft).  The agent stops
// being counted as online; a fresh token lets the device register again.
func (h *AdminHandler) DeactivateAgent(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    if _, err := h.Agents.GetByID(c.Request().Context(), id); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    if err := h.Agents.Deactivate(c.Request().Context(), id); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deactivate failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

// DeactivateBinding handles DELETE /v1/stores/:store_id/agents/:agent_id:
// removing an agent from one store while leaving the agent itself alone.
// The binding row stays behind inactive and is reactivated, not duplicated,
// if the agent later registers for the same store again.
func (h *AdminHandler) DeactivateBinding(c echo.Context) error {
    storeID, err := parseID(c, "store_id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid store_id"})
    }
    agentID, err := parseID(c, "agent_id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid agent_id"})
    }
    if err := h.Bindings.Deactivate(c.Request().Context(), storeID, agentID); err != nil {
        if err == repository.ErrConflict {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "no active assignment for agent in store"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deactivate failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

// UpdateBindingConfig handles PUT /v1/stores/:store_id/agents/:agent_id/config,
// replacing the per-store configuration override for an active binding.
func (h *AdminHandler) UpdateBindingConfig(c echo.Context) error {
    storeID, err := parseID(c, "store_id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid store_id"})
    }
    agentID, err := parseID(c, "agent_id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid agent_id"})
    }
    var body struct {
        Config map[string]any `json:"config"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := h.Bindings.UpdateConfig(c.Request().Context(), storeID, agentID, body.Config); err != nil {
        if err == repository.ErrConflict {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "no active assignment for agent in store"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"store_id": storeID, "agent_id": agentID, "config": body.Config})
}

// ListStoreTokens handles GET /v1/stores/:id/tokens: the issuance history
// of a store, newest first.  Token strings are included; they are useless
// once consumed or expired and the caller is already privileged.
func (h *AdminHandler) ListStoreTokens(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    if !isAdmin(c) {
        uid, err := getUserID(c)
        if err != nil {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
        }
        ok, err := h.Access.Has(c.Request().Context(), uid, id)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
        }
        if !ok {
            return c.JSON(http.StatusForbidden, echo.Map{"error": "no access to store"})
        }
    }
    if _, err := h.Stores.GetByID(c.Request().Context(), id); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    page, pageSize := parsePaging(c)
    items, total, err := h.RegTokens.ListByStore(c.Request().Context(), id, page, pageSize)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    return c.JSON(http.StatusOK, listResp(items, total, page, pageSize))
}
