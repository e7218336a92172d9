package handler

import (
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/velora/storegrid/internal/queue"
    "github.com/velora/storegrid/internal/service"
)

// stubProvision scripts the service layer so handler tests exercise only
// the HTTP contract.
type stubProvision struct {
    issueErr     error
    registerErr  error
    heartbeatErr error

    lastRegister service.RegisterInput
}

func (s *stubProvision) IssueToken(_ context.Context, storeID uint64, minutes int, _ service.Principal) (*service.IssuedToken, error) {
    if s.issueErr != nil {
        return nil, s.issueErr
    }
    if minutes == 0 {
        minutes = 15
    }
    return &service.IssuedToken{
        Token:            "ABCD-EF23",
        StoreID:          storeID,
        ExpiresAt:        time.Now().UTC().Add(time.Duration(minutes) * time.Minute),
        ExpiresInMinutes: minutes,
    }, nil
}

func (s *stubProvision) Register(_ context.Context, in service.RegisterInput) (*service.RegisterResult, error) {
    s.lastRegister = in
    if s.registerErr != nil {
        return nil, s.registerErr
    }
    return &service.RegisterResult{
        AgentID:  7,
        AgentKey: in.AgentKey,
        Name:     "Agent " + in.AgentKey,
        Status:   "online",
        StoreID:  3,
    }, nil
}

func (s *stubProvision) Heartbeat(_ context.Context, in service.HeartbeatInput) (*service.HeartbeatResult, error) {
    if s.heartbeatErr != nil {
        return nil, s.heartbeatErr
    }
    status := in.Status
    if status == "" {
        status = "online"
    }
    return &service.HeartbeatResult{
        AgentID:    7,
        Status:     status,
        LastSeenAt: time.Now().UTC(),
        Assignments: []service.StoreAssignment{
            {StoreID: 3, StoreName: "Downtown", Config: map[string]any{"pos": "a"}},
        },
    }, nil
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string, setup func(echo.Context)) (*httptest.ResponseRecorder, map[string]any) {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(method, target, strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    if setup != nil {
        setup(c)
    }
    require.NoError(t, h(c))

    var out map[string]any
    if rec.Body.Len() > 0 {
        require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
    }
    return rec, out
}

func asPrincipal(uid uint64, role string) func(echo.Context) {
    return func(c echo.Context) {
        c.Set("user_id", uid)
        c.Set("role", role)
    }
}

func TestIssueToken_HappyPath(t *testing.T) {
    h := NewProvisionHandler(&stubProvision{})
    rec, out := doJSON(t, h.IssueToken, http.MethodPost, "/v1/agent/tokens",
        `{"store_id":3,"expires_in_minutes":30}`, asPrincipal(1, "ADMIN"))

    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "ABCD-EF23", out["token"])
    assert.Equal(t, float64(3), out["store_id"])
    assert.Equal(t, float64(30), out["expires_in_minutes"])
}

func TestIssueToken_Validation(t *testing.T) {
    h := NewProvisionHandler(&stubProvision{})

    rec, out := doJSON(t, h.IssueToken, http.MethodPost, "/v1/agent/tokens",
        `{}`, asPrincipal(1, "ADMIN"))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, "store_id is required", out["error"])

    rec, out = doJSON(t, h.IssueToken, http.MethodPost, "/v1/agent/tokens",
        `{"store_id":3,"expires_in_minutes":0}`, asPrincipal(1, "ADMIN"))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Contains(t, out["error"], "expires_in_minutes")

    rec, _ = doJSON(t, h.IssueToken, http.MethodPost, "/v1/agent/tokens",
        `{"store_id":3,"expires_in_minutes":2000}`, asPrincipal(1, "ADMIN"))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIssueToken_ErrorMapping(t *testing.T) {
    rec, _ := doJSON(t, NewProvisionHandler(&stubProvision{issueErr: service.ErrStoreNotFound}).IssueToken,
        http.MethodPost, "/v1/agent/tokens", `{"store_id":99}`, asPrincipal(1, "ADMIN"))
    assert.Equal(t, http.StatusNotFound, rec.Code)

    rec, _ = doJSON(t, NewProvisionHandler(&stubProvision{issueErr: service.ErrStoreForbidden}).IssueToken,
        http.MethodPost, "/v1/agent/tokens", `{"store_id":3}`, asPrincipal(2, "MANAGER"))
    assert.Equal(t, http.StatusForbidden, rec.Code)

    rec, _ = doJSON(t, NewProvisionHandler(&stubProvision{issueErr: errors.New("boom")}).IssueToken,
        http.MethodPost, "/v1/agent/tokens", `{"store_id":3}`, asPrincipal(1, "ADMIN"))
    assert.Equal(t, http.StatusInternalServerError, rec.Code)

    // No identity in context means the middleware was bypassed somehow.
    rec, _ = doJSON(t, NewProvisionHandler(&stubProvision{}).IssueToken,
        http.MethodPost, "/v1/agent/tokens", `{"store_id":3}`, nil)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterAgent_HappyPath(t *testing.T) {
    stub := &stubProvision{}
    h := NewProvisionHandler(stub)

    var published []queue.AgentRegisteredEvent
    h.Publish = func(_ context.Context, ev queue.AgentRegisteredEvent) error {
        published = append(published, ev)
        return nil
    }

    rec, out := doJSON(t, h.RegisterAgent, http.MethodPost, "/v1/agent/register",
        `{"token":"abcd-ef23","agent_key":"pos-001","config":{"tz":"UTC"}}`, nil)

    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, true, out["success"])
    agent := out["agent"].(map[string]any)
    assert.Equal(t, "pos-001", agent["agent_key"])
    assert.Equal(t, "online", agent["status"])
    assert.Equal(t, float64(3), out["store_id"])

    // Token is normalized to the uppercase wire format before redemption.
    assert.Equal(t, "ABCD-EF23", stub.lastRegister.Token)

    require.Len(t, published, 1)
    assert.Equal(t, uint64(7), published[0].AgentID)
    assert.Equal(t, uint64(3), published[0].StoreID)
}

func TestRegisterAgent_Validation(t *testing.T) {
    h := NewProvisionHandler(&stubProvision{})

    rec, out := doJSON(t, h.RegisterAgent, http.MethodPost, "/v1/agent/register",
        `{"agent_key":"pos-001"}`, nil)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, "token is required", out["error"])

    rec, out = doJSON(t, h.RegisterAgent, http.MethodPost, "/v1/agent/register",
        `{"token":"ABCD-EF23"}`, nil)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, "agent_key is required", out["error"])

    // Malformed tokens are indistinguishable from unknown ones.
    rec, out = doJSON(t, h.RegisterAgent, http.MethodPost, "/v1/agent/register",
        `{"token":"not a token","agent_key":"pos-001"}`, nil)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, "invalid or expired token", out["error"])
}

func TestRegisterAgent_InvalidTokenIsUndifferentiated(t *testing.T) {
    // Whatever made the token unusable, the body is the same.
    h := NewProvisionHandler(&stubProvision{registerErr: service.ErrInvalidToken})
    rec, out := doJSON(t, h.RegisterAgent, http.MethodPost, "/v1/agent/register",
        `{"token":"ABCD-EF23","agent_key":"pos-001"}`, nil)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, "invalid or expired token", out["error"])
}

func TestRegisterAgent_PublishFailureDoesNotFailRequest(t *testing.T) {
    h := NewProvisionHandler(&stubProvision{})
    h.Publish = func(context.Context, queue.AgentRegisteredEvent) error {
        return errors.New("broker down")
    }
    rec, out := doJSON(t, h.RegisterAgent, http.MethodPost, "/v1/agent/register",
        `{"token":"ABCD-EF23","agent_key":"pos-001"}`, nil)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, true, out["success"])
}

func TestHeartbeatAgent_HappyPath(t *testing.T) {
    h := NewProvisionHandler(&stubProvision{})
    rec, out := doJSON(t, h.HeartbeatAgent, http.MethodPost, "/v1/agent/heartbeat",
        `{"agent_key":"pos-001","status":"online"}`, nil)

    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, true, out["success"])
    assert.Equal(t, "online", out["status"])
    assignments := out["store_assignments"].([]any)
    require.Len(t, assignments, 1)
    first := assignments[0].(map[string]any)
    assert.Equal(t, float64(3), first["store_id"])
    store := first["store"].(map[string]any)
    assert.Equal(t, "Downtown", store["name"])
}

func TestHeartbeatAgent_Errors(t *testing.T) {
    rec, out := doJSON(t, NewProvisionHandler(&stubProvision{heartbeatErr: service.ErrAgentNotFound}).HeartbeatAgent,
        http.MethodPost, "/v1/agent/heartbeat", `{"agent_key":"ghost"}`, nil)
    assert.Equal(t, http.StatusNotFound, rec.Code)
    assert.Equal(t, "agent not found", out["error"])

    rec, _ = doJSON(t, NewProvisionHandler(&stubProvision{}).HeartbeatAgent,
        http.MethodPost, "/v1/agent/heartbeat", `{"agent_key":"pos-001","status":"sleeping"}`, nil)
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec, _ = doJSON(t, NewProvisionHandler(&stubProvision{}).HeartbeatAgent,
        http.MethodPost, "/v1/agent/heartbeat", `{}`, nil)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAgentRoutes_CORSPreflight(t *testing.T) {
    e := echo.New()
    g := e.Group("/v1/agent", echomw.CORS())
    h := NewProvisionHandler(&stubProvision{})
    g.POST("/register", h.RegisterAgent)

    req := httptest.NewRequest(http.MethodOptions, "/v1/agent/register", nil)
    req.Header.Set(echo.HeaderOrigin, "http://kiosk.local")
    req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)

    assert.Equal(t, http.StatusNoContent, rec.Code)
    assert.NotEmpty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
