package handler

import (
    "database/sql"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/velora/storegrid/internal/repository"
)

type storeBody struct {
    ConceptID *uint64 `json:"concept_id"`
    Name      *string `json:"name"`
    Location  *string `json:"location"`
}

// CreateStore handles POST /v1/stores.  ADMIN only (enforced by routing).
func (h *AdminHandler) CreateStore(c echo.Context) error {
    var body storeBody
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.ConceptID == nil || *body.ConceptID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "concept_id is required"})
    }
    if body.Name == nil || strings.TrimSpace(*body.Name) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
    }
    name := strings.TrimSpace(*body.Name)

    concept, err := h.Concepts.GetByID(c.Request().Context(), *body.ConceptID)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "concept not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    if !concept.IsActive {
        return c.JSON(http.StatusConflict, echo.Map{"error": "concept is deactivated"})
    }

    id, err := h.Stores.Create(c.Request().Context(), concept.ID, name, body.Location)
    if err != nil {
        if err == repository.ErrConflict {
            return c.JSON(http.StatusConflict, echo.Map{"error": "store name already exists in concept"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create store"})
    }
    store, err := h.Stores.GetByID(c.Request().Context(), id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    return c.JSON(http.StatusCreated, store)
}

// ListStores handles GET /v1/stores.  MANAGER callers only see stores they
// hold a grant for; ADMIN sees everything.  Supports ?concept_id and ?q.
func (h *AdminHandler) ListStores(c echo.Context) error {
    page, pageSize := parsePaging(c)
    var conceptID uint64
    if raw := c.QueryParam("concept_id"); raw != "" {
        parsed, err := strconv.ParseUint(raw, 10, 64)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid concept_id"})
        }
        conceptID = parsed
    }

    var onlyIDs []uint64
    if !isAdmin(c) {
        uid, err := getUserID(c)
        if err != nil {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
        }
        ids, err := h.Access.StoreIDsForUser(c.Request().Context(), uid)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
        }
        if len(ids) == 0 {
            return c.JSON(http.StatusOK, listResp([]struct{}{}, 0, page, pageSize))
        }
        onlyIDs = ids
    }

    items, total, err := h.Stores.List(c.Request().Context(), conceptID, c.QueryParam("q"), onlyIDs, page, pageSize)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    return c.JSON(http.StatusOK, listResp(items, total, page, pageSize))
}

// GetStore handles GET /v1/stores/:id.  MANAGER callers need a grant.
func (h *AdminHandler) GetStore(c echo.Context) error {
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
    store, err := h.Stores.GetByID(c.Request().Context(), id)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    return c.JSON(http.StatusOK, store)
}

// UpdateStore handles PUT/PATCH /v1/stores/:id.
func (h *AdminHandler) UpdateStore(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var body storeBody
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Name != nil {
        trimmed := strings.TrimSpace(*body.Name)
        if trimmed == "" {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "name cannot be empty"})
        }
        body.Name = &trimmed
    }
    if _, err := h.Stores.GetByID(c.Request().Context(), id); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    if err := h.Stores.Update(c.Request().Context(), id, body.Name, body.Location); err != nil {
        if strings.Contains(err.Error(), "1062") {
            return c.JSON(http.StatusConflict, echo.Map{"error": "store name already exists in concept"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
    }
    updated, _ := h.Stores.GetByID(c.Request().Context(), id)
    return c.JSON(http.StatusOK, updated)
}

// DeleteStore handles DELETE /v1/stores/:id (soft delete).  Bindings and
// issued tokens stay as history.
func (h *AdminHandler) DeleteStore(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    if _, err := h.Stores.GetByID(c.Request().Context(), id); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    if err := h.Stores.Deactivate(c.Request().Context(), id); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
    }
    return c.NoContent(http.StatusNoContent)
}
