package handler

import (
    "context"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/velora/storegrid/internal/model"
    "github.com/velora/storegrid/internal/queue"
    "github.com/velora/storegrid/internal/repository"
    "github.com/velora/storegrid/internal/service"
    "github.com/velora/storegrid/internal/utils"
)

// ProvisionService is the slice of the provisioning core the HTTP layer
// needs.  *service.Provisioner satisfies it.
type ProvisionService interface {
    IssueToken(ctx context.Context, storeID uint64, expiresInMinutes int, p service.Principal) (*service.IssuedToken, error)
    Register(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error)
    Heartbeat(ctx context.Context, in service.HeartbeatInput) (*service.HeartbeatResult, error)
}

// ProvisionHandler exposes the agent-facing protocol: token issuance for
// authenticated staff, then registration and heartbeats for devices.
// Publish is optional; when set, successful registrations emit an
// AgentRegisteredEvent best-effort (failures are ignored, the registration
// already succeeded).  Stores is likewise optional and only enriches the
// event with the store name.
type ProvisionHandler struct {
    Svc     ProvisionService
    Stores  *repository.StoreRepo
    Publish func(ctx context.Context, ev queue.AgentRegisteredEvent) error

    // MaxTTLMinutes caps caller-supplied token lifetimes; zero means the
    // default of 1440 (one day).
    MaxTTLMinutes int
}

func NewProvisionHandler(svc ProvisionService) *ProvisionHandler {
    if svc == nil {
        panic("nil service passed to NewProvisionHandler")
    }
    return &ProvisionHandler{Svc: svc}
}

// ----- DTOs -----

type issueTokenReq struct {
    StoreID          uint64 `json:"store_id"`
    ExpiresInMinutes *int   `json:"expires_in_minutes"`
}

type registerAgentReq struct {
    Token       string         `json:"token"`
    AgentKey    string         `json:"agent_key"`
    Name        string         `json:"name"`
    Description *string        `json:"description"`
    Version     *string        `json:"version"`
    Config      map[string]any `json:"config"`
}

type heartbeatReq struct {
    AgentKey string         `json:"agent_key"`
    Status   string         `json:"status"`
    Config   map[string]any `json:"config"`
    Version  *string        `json:"version"`
}

type assignmentStore struct {
    ID   uint64 `json:"id"`
    Name string `json:"name"`
}

// assignmentView is the wire shape of one store assignment in the
// heartbeat response.
type assignmentView struct {
    StoreID uint64          `json:"store_id"`
    Config  map[string]any  `json:"config"`
    Store   assignmentStore `json:"store"`
}

// IssueToken handles POST /v1/agent/tokens (JWT protected).  Mints a
// short-lived single-use registration token for a store the caller may
// manage.
func (h *ProvisionHandler) IssueToken(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req issueTokenReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if req.StoreID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "store_id is required"})
    }
    maxTTL := h.MaxTTLMinutes
    if maxTTL <= 0 {
        maxTTL = 1440
    }
    minutes := 0
    if req.ExpiresInMinutes != nil {
        if *req.ExpiresInMinutes < 1 || *req.ExpiresInMinutes > maxTTL {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("expires_in_minutes must be between 1 and %d", maxTTL)})
        }
        minutes = *req.ExpiresInMinutes
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    issued, err := h.Svc.IssueToken(ctx, req.StoreID, minutes, service.Principal{UserID: uid, Role: getRole(c)})
    if err != nil {
        switch err {
        case service.ErrStoreNotFound:
            return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
        case service.ErrStoreForbidden:
            return c.JSON(http.StatusForbidden, echo.Map{"error": "no access to store"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue token"})
        }
    }
    return c.JSON(http.StatusOK, echo.Map{
        "token":              issued.Token,
        "store_id":           issued.StoreID,
        "expires_at":         issued.ExpiresAt,
        "expires_in_minutes": issued.ExpiresInMinutes,
    })
}

// RegisterAgent handles POST /v1/agent/register (no auth; the token is the
// credential).  Every way a token can be unusable maps to the same 400
// body so callers cannot probe token state.
func (h *ProvisionHandler) RegisterAgent(c echo.Context) error {
    var req registerAgentReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    req.Token = strings.ToUpper(strings.TrimSpace(req.Token))
    req.AgentKey = strings.TrimSpace(req.AgentKey)
    if req.Token == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
    }
    if req.AgentKey == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "agent_key is required"})
    }
    // Malformed tokens get the same body as unknown ones; no database
    // round trip and nothing for a caller to learn.
    if !utils.IsRegistrationToken(req.Token) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired token"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    res, err := h.Svc.Register(ctx, service.RegisterInput{
        Token:       req.Token,
        AgentKey:    req.AgentKey,
        Name:        strings.TrimSpace(req.Name),
        Description: req.Description,
        Version:     req.Version,
        Config:      req.Config,
    })
    if err != nil {
        if err == service.ErrInvalidToken {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired token"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
    }

    if h.Publish != nil {
        storeName := ""
        if h.Stores != nil {
            if st, err := h.Stores.GetByID(ctx, res.StoreID); err == nil {
                storeName = st.Name
            }
        }
        _ = h.Publish(ctx, queue.AgentRegisteredEvent{
            AgentID:      res.AgentID,
            AgentKey:     res.AgentKey,
            AgentName:    res.Name,
            StoreID:      res.StoreID,
            StoreName:    storeName,
            Reactivated:  res.Reactivated,
            RegisteredAt: time.Now().UTC().Format(time.RFC3339),
        })
    }

    return c.JSON(http.StatusOK, echo.Map{
        "success": true,
        "agent": echo.Map{
            "id":        res.AgentID,
            "agent_key": res.AgentKey,
            "name":      res.Name,
            "status":    res.Status,
        },
        "store_id": res.StoreID,
        "message":  "agent registered",
    })
}

// HeartbeatAgent handles POST /v1/agent/heartbeat (no auth).  Unknown
// agent keys get 404: heartbeats never create agents.
func (h *ProvisionHandler) HeartbeatAgent(c echo.Context) error {
    var req heartbeatReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    req.AgentKey = strings.TrimSpace(req.AgentKey)
    if req.AgentKey == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "agent_key is required"})
    }
    status := strings.ToLower(strings.TrimSpace(req.Status))
    if status != "" && !model.ValidAgentStatus(status) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    res, err := h.Svc.Heartbeat(ctx, service.HeartbeatInput{
        AgentKey: req.AgentKey,
        Status:   status,
        Config:   req.Config,
        Version:  req.Version,
    })
    if err != nil {
        if err == service.ErrAgentNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "heartbeat failed"})
    }

    assignments := make([]assignmentView, 0, len(res.Assignments))
    for _, a := range res.Assignments {
        assignments = append(assignments, assignmentView{
            StoreID: a.StoreID,
            Config:  a.Config,
            Store:   assignmentStore{ID: a.StoreID, Name: a.StoreName},
        })
    }

    return c.JSON(http.StatusOK, echo.Map{
        "success":           true,
        "agent_id":          res.AgentID,
        "status":            res.Status,
        "last_seen_at":      res.LastSeenAt,
        "store_assignments": assignments,
    })
}
