package handler

import (
    "database/sql"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
)

// userView strips the password hash from API responses.
type userView struct {
    ID       uint64 `json:"id"`
    Email    string `json:"email"`
    Role     string `json:"role"`
    IsActive bool   `json:"is_active"`
}

// ListUsers handles GET /v1/users (ADMIN only).  ?q searches by email.
func (h *AdminHandler) ListUsers(c echo.Context) error {
    page, pageSize := parsePaging(c)
    users, total, err := h.Users.List(c.Request().Context(), c.QueryParam("q"), page, pageSize)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    views := make([]userView, 0, len(users))
    for _, u := range users {
        views = append(views, userView{ID: u.ID, Email: u.Email, Role: u.Role, IsActive: u.IsActive})
    }
    return c.JSON(http.StatusOK, listResp(views, total, page, pageSize))
}

// GetUser handles GET /v1/users/:id (ADMIN only).  Includes the user's
// store access grants so the admin UI can show scope at a glance.
func (h *AdminHandler) GetUser(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    u, err := h.Users.GetByID(c.Request().Context(), id)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    storeIDs, err := h.Access.StoreIDsForUser(c.Request().Context(), id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "user":      userView{ID: u.ID, Email: u.Email, Role: u.Role, IsActive: u.IsActive},
        "store_ids": storeIDs,
    })
}

// UpdateUserRole handles PATCH /v1/users/:id/role (ADMIN only).
func (h *AdminHandler) UpdateUserRole(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var body struct {
        Role string `json:"role"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    role := strings.ToUpper(strings.TrimSpace(body.Role))
    if role != "ADMIN" && role != "MANAGER" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be ADMIN or MANAGER"})
    }
    if _, err := h.Users.GetByID(c.Request().Context(), id); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    if err := h.Users.UpdateRole(c.Request().Context(), id, role); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"id": id, "role": role})
}

// DeactivateUser handles DELETE /v1/users/:id (ADMIN only, soft).  Admins
// cannot deactivate themselves.
func (h *AdminHandler) DeactivateUser(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    if uid == id {
        return c.JSON(http.StatusConflict, echo.Map{"error": "cannot deactivate yourself"})
    }
    if _, err := h.Users.GetByID(c.Request().Context(), id); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    if err := h.Users.SetActive(c.Request().Context(), id, false); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deactivate failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

// GrantStoreAccess handles POST /v1/users/:id/store-access (ADMIN only).
func (h *AdminHandler) GrantStoreAccess(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var body struct {
        StoreID uint64 `json:"store_id"`
    }
    if err := c.Bind(&body); err != nil || body.StoreID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "store_id is required"})
    }
    grantedBy, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    if _, err := h.Users.GetByID(c.Request().Context(), id); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    if _, err := h.Stores.GetByID(c.Request().Context(), body.StoreID); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    if err := h.Access.Grant(c.Request().Context(), id, body.StoreID, grantedBy); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "grant failed"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"user_id": id, "store_id": body.StoreID})
}

// RevokeStoreAccess handles DELETE /v1/users/:id/store-access/:store_id
// (ADMIN only).
func (h *AdminHandler) RevokeStoreAccess(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    storeID, err := parseID(c, "store_id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid store_id"})
    }
    if err := h.Access.Revoke(c.Request().Context(), id, storeID); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke failed"})
    }
    return c.NoContent(http.StatusNoContent)
}
