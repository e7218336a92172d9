package handler

import (
    "database/sql"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/velora/storegrid/internal/repository"
)

type conceptBody struct {
    OrganizationID *uint64 `json:"organization_id"`
    Name           *string `json:"name"`
    Description    *string `json:"description"`
}

// CreateConcept handles POST /v1/concepts.
func (h *AdminHandler) CreateConcept(c echo.Context) error {
    var body conceptBody
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.OrganizationID == nil || *body.OrganizationID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization_id is required"})
    }
    if body.Name == nil || strings.TrimSpace(*body.Name) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
    }
    name := strings.TrimSpace(*body.Name)

    // The parent organization must exist and be active.
    org, err := h.Orgs.GetByID(c.Request().Context(), *body.OrganizationID)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    if !org.IsActive {
        return c.JSON(http.StatusConflict, echo.Map{"error": "organization is deactivated"})
    }

    id, err := h.Concepts.Create(c.Request().Context(), org.ID, name, body.Description)
    if err != nil {
        if err == repository.ErrConflict {
            return c.JSON(http.StatusConflict, echo.Map{"error": "concept name already exists in organization"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create concept"})
    }
    concept, err := h.Concepts.GetByID(c.Request().Context(), id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    return c.JSON(http.StatusCreated, concept)
}

// ListConcepts handles GET /v1/concepts with optional ?organization_id and
// ?q filters.
func (h *AdminHandler) ListConcepts(c echo.Context) error {
    page, pageSize := parsePaging(c)
    var orgID uint64
    if raw := c.QueryParam("organization_id"); raw != "" {
        parsed, err := strconv.ParseUint(raw, 10, 64)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid organization_id"})
        }
        orgID = parsed
    }
    items, total, err := h.Concepts.List(c.Request().Context(), orgID, c.QueryParam("q"), page, pageSize)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    return c.JSON(http.StatusOK, listResp(items, total, page, pageSize))
}

// GetConcept handles GET /v1/concepts/:id.
func (h *AdminHandler) GetConcept(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    concept, err := h.Concepts.GetByID(c.Request().Context(), id)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "concept not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    return c.JSON(http.StatusOK, concept)
}

// UpdateConcept handles PUT/PATCH /v1/concepts/:id.
func (h *AdminHandler) UpdateConcept(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var body conceptBody
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
    if _, err := h.Concepts.GetByID(c.Request().Context(), id); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "concept not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    if err := h.Concepts.Update(c.Request().Context(), id, body.Name, body.Description); err != nil {
        if err == repository.ErrConflict {
            return c.JSON(http.StatusConflict, echo.Map{"error": "concept name already exists in organization"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
    }
    updated, _ := h.Concepts.GetByID(c.Request().Context(), id)
    return c.JSON(http.StatusOK, updated)
}

// DeleteConcept handles DELETE /v1/concepts/:id (soft delete).  Refused
// with 409 while active stores remain under it.
func (h *AdminHandler) DeleteConcept(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    if _, err := h.Concepts.GetByID(c.Request().Context(), id); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "concept not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    if err := h.Concepts.Deactivate(c.Request().Context(), id); err != nil {
        if err == repository.ErrConflict {
            return c.JSON(http.StatusConflict, echo.Map{"error": "concept still has active stores"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
    }
    return c.NoContent(http.StatusNoContent)
}
