package handler

import (
    "database/sql"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/velora/storegrid/internal/repository"
)

type orgBody struct {
    Name        *string `json:"name"`
    Description *string `json:"description"`
}

// CreateOrganization handles POST /v1/organizations.
func (h *AdminHandler) CreateOrganization(c echo.Context) error {
    var body orgBody
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Name == nil || strings.TrimSpace(*body.Name) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
    }
    name := strings.TrimSpace(*body.Name)

    id, err := h.Orgs.Create(c.Request().Context(), name, body.Description)
    if err != nil {
        if err == repository.ErrConflict {
            return c.JSON(http.StatusConflict, echo.Map{"error": "organization name already exists"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create organization"})
    }
    org, err := h.Orgs.GetByID(c.Request().Context(), id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    return c.JSON(http.StatusCreated, org)
}

// ListOrganizations handles GET /v1/organizations with pagination and
// optional ?q name search.
func (h *AdminHandler) ListOrganizations(c echo.Context) error {
    page, pageSize := parsePaging(c)
    items, total, err := h.Orgs.List(c.Request().Context(), c.QueryParam("q"), page, pageSize)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    return c.JSON(http.StatusOK, listResp(items, total, page, pageSize))
}

// GetOrganization handles GET /v1/organizations/:id.
func (h *AdminHandler) GetOrganization(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    org, err := h.Orgs.GetByID(c.Request().Context(), id)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    return c.JSON(http.StatusOK, org)
}

// UpdateOrganization handles PUT/PATCH /v1/organizations/:id.  Omitted
// fields keep their current values.
func (h *AdminHandler) UpdateOrganization(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var body orgBody
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
    if _, err := h.Orgs.GetByID(c.Request().Context(), id); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    if err := h.Orgs.Update(c.Request().Context(), id, body.Name, body.Description); err != nil {
        if err == repository.ErrConflict {
            return c.JSON(http.StatusConflict, echo.Map{"error": "organization name already exists"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
    }
    updated, _ := h.Orgs.GetByID(c.Request().Context(), id)
    return c.JSON(http.StatusOK, updated)
}

// DeleteOrganization handles DELETE /v1/organizations/:id (soft delete).
// Refused with 409 while active concepts remain under it.
func (h *AdminHandler) DeleteOrganization(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    if _, err := h.Orgs.GetByID(c.Request().Context(), id); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    if err := h.Orgs.Deactivate(c.Request().Context(), id); err != nil {
        if err == repository.ErrConflict {
            return c.JSON(http.StatusConflict, echo.Map{"error": "organization still has active concepts"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
    }
    return c.NoContent(http.StatusNoContent)
}
