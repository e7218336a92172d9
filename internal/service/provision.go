// Package service holds the agent provisioning core: issuing single-use
// registration tokens, redeeming them to bind agents to stores, and
// receiving heartbeats.  The service owns the protocol's ordering and
// uniqueness rules; persistence is behind the ProvisionStore interface so
// the same logic runs against MySQL in production and an in-memory store
// in tests.
package service

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/velora/storegrid/internal/model"
    "github.com/velora/storegrid/internal/utils"
)

// Sentinel errors surfaced by the provisioning operations.  Handlers map
// these onto HTTP statuses.  ErrInvalidToken deliberately covers token
// not-found, expired and already-consumed alike so that callers cannot
// probe token state.
var (
    ErrInvalidToken    = errors.New("invalid or expired token")
    ErrStoreNotFound   = errors.New("store not found")
    ErrStoreForbidden  = errors.New("not authorized for store")
    ErrAgentNotFound   = errors.New("agent not found")
    ErrTokenGeneration = errors.New("could not generate a unique token")
)

// tokenGenAttempts bounds the uniqueness retry loop when minting tokens.
const tokenGenAttempts = 10

// Principal identifies the authenticated caller of IssueToken.
type Principal struct {
    UserID uint64
    Role   string
}

// IsAdmin reports whether the principal holds the global ADMIN role.
func (p Principal) IsAdmin() bool { return p.Role == "ADMIN" }

// StoreAssignment is one active store binding returned to a heartbeating
// agent, letting the device learn of reassignment without a separate call.
type StoreAssignment struct {
    StoreID   uint64
    StoreName string
    Config    map[string]any
}

// ProvisionStore is the persistence boundary of the provisioning core.
// Find* methods return (nil, nil) when no row matches.  ConsumeToken must
// be a conditional update keyed on the consumption timestamp still being
// null and report via its boolean whether this caller won; that is the one
// place the store has to serialize concurrent writers.
type ProvisionStore interface {
    StoreExists(ctx context.Context, storeID uint64) (bool, error)

    TokenValueExists(ctx context.Context, token string) (bool, error)
    CreateToken(ctx context.Context, t *model.RegistrationToken) error
    FindTokenByValue(ctx context.Context, token string) (*model.RegistrationToken, error)
    ConsumeToken(ctx context.Context, tokenID, agentID uint64, at time.Time) (bool, error)

    FindAgentByKey(ctx context.Context, agentKey string) (*model.Agent, error)
    CreateAgent(ctx context.Context, a *model.Agent) error
    UpdateAgent(ctx context.Context, a *model.Agent) error

    FindBinding(ctx context.Context, storeID, agentID uint64) (*model.StoreAgent, error)
    CreateBinding(ctx context.Context, b *model.StoreAgent) error
    ReactivateBinding(ctx context.Context, bindingID uint64) error
    ListActiveAssignments(ctx context.Context, agentID uint64) ([]StoreAssignment, error)
}

// Authorizer answers whether a principal may manage a given store.  The
// production implementation checks the ADMIN role and user_store_access
// grant rows.
type Authorizer interface {
    CanManageStore(ctx context.Context, p Principal, storeID uint64) (bool, error)
}

// Provisioner implements the three protocol operations.  The clock is
// injectable so expiry behavior is testable without sleeping.
type Provisioner struct {
    store      ProvisionStore
    authz      Authorizer
    defaultTTL time.Duration
    now        func() time.Time
}

// NewProvisioner wires a Provisioner.  defaultTTLMin is used when a caller
// does not supply an expiry window.
func NewProvisioner(store ProvisionStore, authz Authorizer, defaultTTLMin int) *Provisioner {
    if defaultTTLMin <= 0 {
        defaultTTLMin = 15
    }
    return &Provisioner{
        store:      store,
        authz:      authz,
        defaultTTL: time.Duration(defaultTTLMin) * time.Minute,
        now:        func() time.Time { return time.Now().UTC() },
    }
}

// IssuedToken is the result of IssueToken.
type IssuedToken struct {
    Token            string
    StoreID          uint64
    ExpiresAt        time.Time
    ExpiresInMinutes int
}

// IssueToken mints a single-use registration token scoped to storeID.  The
// principal must be an ADMIN or hold an explicit grant for the store.  The
// returned token string is unique among all tokens ever issued; generation
// retries a bounded number of times and then fails with ErrTokenGeneration.
func (s *Provisioner) IssueToken(ctx context.Context, storeID uint64, expiresInMinutes int, p Principal) (*IssuedToken, error) {
    exists, err := s.store.StoreExists(ctx, storeID)
    if err != nil {
        return nil, err
    }
    if !exists {
        return nil, ErrStoreNotFound
    }

    ok, err := s.authz.CanManageStore(ctx, p, storeID)
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, ErrStoreForbidden
    }

    ttl := s.defaultTTL
    if expiresInMinutes > 0 {
        ttl = time.Duration(expiresInMinutes) * time.Minute
    }

    var token string
    for attempt := 0; ; attempt++ {
        if attempt >= tokenGenAttempts {
            return nil, ErrTokenGeneration
        }
        candidate, err := utils.NewRegistrationToken()
        if err != nil {
            return nil, err
        }
        taken, err := s.store.TokenValueExists(ctx, candidate)
        if err != nil {
            return nil, err
        }
        if !taken {
            token = candidate
            break
        }
    }

    now := s.now()
    rec := &model.RegistrationToken{
        Token:     token,
        StoreID:   storeID,
        CreatedBy: &p.UserID,
        ExpiresAt: now.Add(ttl),
        IsActive:  true,
        CreatedAt: now,
    }
    if err := s.store.CreateToken(ctx, rec); err != nil {
        return nil, err
    }

    return &IssuedToken{
        Token:            token,
        StoreID:          storeID,
        ExpiresAt:        rec.ExpiresAt,
        ExpiresInMinutes: int(ttl / time.Minute),
    }, nil
}

// RegisterInput carries the device-supplied registration payload.
type RegisterInput struct {
    Token       string
    AgentKey    string
    Name        string
    Description *string
    Version     *string
    Config      map[string]any
}

// RegisterResult reports the established agent identity and binding scope.
type RegisterResult struct {
    AgentID     uint64
    AgentKey    string
    Name        string
    Status      string
    StoreID     uint64
    Reactivated bool
}

// Register redeems a token to create or refresh an agent and bind it to the
// token's store.  The token stays redeemable until the agent and binding
// are durably established: consumption is the final, commit-like step, a
// conditional update that exactly one concurrent redeemer can win.  Partial
// agent/binding state from a failed attempt is acceptable because both
// upserts converge on retry.
func (s *Provisioner) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
    now := s.now()

    tok, err := s.store.FindTokenByValue(ctx, in.Token)
    if err != nil {
        return nil, err
    }
    if tok == nil || !tok.IsActive || tok.ConsumedAt != nil || !tok.ExpiresAt.After(now) {
        return nil, ErrInvalidToken
    }

    agent, err := s.store.FindAgentByKey(ctx, in.AgentKey)
    if err != nil {
        return nil, err
    }
    if agent != nil {
        if in.Name != "" {
            agent.Name = in.Name
        }
        if in.Description != nil {
            agent.Description = in.Description
        }
        if in.Version != nil {
            agent.Version = in.Version
        }
        agent.Config = mergeConfig(agent.Config, in.Config)
        agent.Status = model.AgentStatusOnline
        agent.LastSeenAt = &now
        agent.IsActive = true
        if err := s.store.UpdateAgent(ctx, agent); err != nil {
            return nil, err
        }
    } else {
        name := in.Name
        if name == "" {
            name = fmt.Sprintf("Agent %s", in.AgentKey)
        }
        agent = &model.Agent{
            AgentKey:    in.AgentKey,
            Name:        name,
            Description: in.Description,
            Version:     in.Version,
            Status:      model.AgentStatusOnline,
            LastSeenAt:  &now,
            Config:      mergeConfig(nil, in.Config),
            IsActive:    true,
        }
        if err := s.store.CreateAgent(ctx, agent); err != nil {
            return nil, err
        }
    }

    reactivated := false
    binding, err := s.store.FindBinding(ctx, tok.StoreID, agent.ID)
    if err != nil {
        return nil, err
    }
    switch {
    case binding == nil:
        b := &model.StoreAgent{
            StoreID:    tok.StoreID,
            AgentID:    agent.ID,
            AssignedBy: tok.CreatedBy,
            Config:     map[string]any{},
            IsActive:   true,
            AssignedAt: now,
        }
        if err := s.store.CreateBinding(ctx, b); err != nil {
            return nil, err
        }
    case !binding.IsActive:
        if err := s.store.ReactivateBinding(ctx, binding.ID); err != nil {
            return nil, err
        }
        reactivated = true
    }

    won, err := s.store.ConsumeToken(ctx, tok.ID, agent.ID, now)
    if err != nil {
        return nil, err
    }
    if !won {
        // A concurrent redeemer consumed the token between our validity
        // check and this update.  Same undifferentiated error as step 1.
        return nil, ErrInvalidToken
    }

    return &RegisterResult{
        AgentID:     agent.ID,
        AgentKey:    agent.AgentKey,
        Name:        agent.Name,
        Status:      agent.Status,
        StoreID:     tok.StoreID,
        Reactivated: reactivated,
    }, nil
}

// HeartbeatInput carries a liveness update from a registered agent.
type HeartbeatInput struct {
    AgentKey string
    Status   string
    Config   map[string]any
    Version  *string
}

// HeartbeatResult reports the refreshed agent state and its active store
// assignments.
type HeartbeatResult struct {
    AgentID     uint64
    Status      string
    LastSeenAt  time.Time
    Assignments []StoreAssignment
}

// Heartbeat refreshes the liveness state of an already-registered agent.
// Unlike Register it never creates an agent: an unknown key means the
// device must go through registration again.  Bindings are not touched.
func (s *Provisioner) Heartbeat(ctx context.Context, in HeartbeatInput) (*HeartbeatResult, error) {
    agent, err := s.store.FindAgentByKey(ctx, in.AgentKey)
    if err != nil {
        return nil, err
    }
    if agent == nil {
        return nil, ErrAgentNotFound
    }

    status := in.Status
    if status == "" {
        status = model.AgentStatusOnline
    }

    now := s.now()
    agent.Status = status
    agent.LastSeenAt = &now
    agent.Config = mergeConfig(agent.Config, in.Config)
    if in.Version != nil {
        agent.Version = in.Version
    }
    if err := s.store.UpdateAgent(ctx, agent); err != nil {
        return nil, err
    }

    assignments, err := s.store.ListActiveAssignments(ctx, agent.ID)
    if err != nil {
        return nil, err
    }

    return &HeartbeatResult{
        AgentID:     agent.ID,
        Status:      status,
        LastSeenAt:  now,
        Assignments: assignments,
    }, nil
}

// mergeConfig returns the shallow union of existing and update, with update
// values winning on key collisions.  Neither input map is mutated.
func mergeConfig(existing, update map[string]any) map[string]any {
    out := make(map[string]any, len(existing)+len(update))
    for k, v := range existing {
        out[k] = v
    }
    for k, v := range update {
        out[k] = v
    }
    return out
}
