package handler

import (
    "errors"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/velora/storegrid/internal/repository"
)

// AdminHandler bundles the repositories behind the management surface:
// tenancy CRUD, user administration, agent oversight and the dashboard.
type AdminHandler struct {
    Orgs      *repository.OrganizationRepo
    Concepts  *repository.ConceptRepo
    Stores    *repository.StoreRepo
    Users     *repository.UserRepo
    Access    *repository.StoreAccessRepo
    Agents    *repository.AgentRepo
    RegTokens *repository.RegistrationTokenRepo
    Bindings  *repository.StoreAgentRepo
}

// NewAdminHandler constructs an AdminHandler and panics if any dependency
// is nil.
func NewAdminHandler(
    orgs *repository.OrganizationRepo,
    concepts *repository.ConceptRepo,
    stores *repository.StoreRepo,
    users *repository.UserRepo,
    access *repository.StoreAccessRepo,
    agents *repository.AgentRepo,
    regTokens *repository.RegistrationTokenRepo,
    bindings *repository.StoreAgentRepo,
) *AdminHandler {
    if orgs == nil || concepts == nil || stores == nil || users == nil ||
        access == nil || agents == nil || regTokens == nil || bindings == nil {
        panic("nil repository passed to NewAdminHandler")
    }
    return &AdminHandler{
        Orgs:      orgs,
        Concepts:  concepts,
        Stores:    stores,
        Users:     users,
        Access:    access,
        Agents:    agents,
        RegTokens: regTokens,
        Bindings:  bindings,
    }
}

// getUserID extracts the user_id set by the JWT middleware and converts it
// to uint64.
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// getRole returns the role claim set by the JWT middleware, uppercased.
func getRole(c echo.Context) string {
    if s, ok := c.Get("role").(string); ok {
        return strings.ToUpper(s)
    }
    return ""
}

// isAdmin reports whether the request carries the global ADMIN role.
func isAdmin(c echo.Context) bool { return getRole(c) == "ADMIN" }

// parseID parses a numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
    return strconv.ParseUint(c.Param(name), 10, 64)
}

// parsePaging reads ?page and ?page_size with sane bounds.
func parsePaging(c echo.Context) (page, pageSize int) {
    page, _ = strconv.Atoi(c.QueryParam("page"))
    if page < 1 {
        page = 1
    }
    pageSize, _ = strconv.Atoi(c.QueryParam("page_size"))
    if pageSize < 1 {
        pageSize = 20
    }
    if pageSize > 100 {
        pageSize = 100
    }
    return page, pageSize
}

// listResp is the uniform paginated list envelope.
func listResp(items any, total int64, page, pageSize int) echo.Map {
    return echo.Map{
        "items":     items,
        "total":     total,
        "page":      page,
        "page_size": pageSize,
    }
}
