package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/velora/storegrid/internal/model"
    "github.com/velora/storegrid/internal/service"
)

// ProvisionStore is the MySQL-backed implementation of
// service.ProvisionStore.  It deliberately avoids select-then-update for
// token consumption: the consume is a single conditional UPDATE guarded on
// consumed_at still being NULL, and the affected-row count decides which
// concurrent redeemer won.
type ProvisionStore struct {
    db *sql.DB
}

// NewProvisionStore returns a store bound to the provided database.
func NewProvisionStore(db *sql.DB) *ProvisionStore { return &ProvisionStore{db: db} }

// StoreExists reports whether an active store with the given id exists.
func (s *ProvisionStore) StoreExists(ctx context.Context, storeID uint64) (bool, error) {
    var one int
    err := s.db.QueryRowContext(ctx,
        "SELECT 1 FROM stores WHERE id=? AND is_active=1 LIMIT 1", storeID).Scan(&one)
    if err == sql.ErrNoRows {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}

// TokenValueExists checks the value against every token ever issued, not
// just redeemable ones, because token strings must stay unique forever.
func (s *ProvisionStore) TokenValueExists(ctx context.Context, token string) (bool, error) {
    var one int
    err := s.db.QueryRowContext(ctx,
        "SELECT 1 FROM registration_tokens WHERE token=? LIMIT 1", token).Scan(&one)
    if err == sql.ErrNoRows {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}

// CreateToken persists a freshly minted token in active, unconsumed state.
func (s *ProvisionStore) CreateToken(ctx context.Context, t *model.RegistrationToken) error {
    res, err := s.db.ExecContext(ctx,
        "INSERT INTO registration_tokens (token, store_id, created_by, expires_at, is_active) VALUES (?,?,?,?,1)",
        t.Token, t.StoreID, t.CreatedBy, t.ExpiresAt.UTC())
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    t.ID = uint64(id)
    return nil
}

// FindTokenByValue returns the token row for an exact string match, or
// (nil, nil) when absent.  Validity checks belong to the service.
func (s *ProvisionStore) FindTokenByValue(ctx context.Context, token string) (*model.RegistrationToken, error) {
    row := s.db.QueryRowContext(ctx,
        "SELECT "+regTokenColumns+" FROM registration_tokens WHERE token=? LIMIT 1", token)
    t, err := scanRegToken(row.Scan)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &t, nil
}

// ConsumeToken marks the token consumed if and only if no one else already
// did.  The WHERE clause on consumed_at IS NULL makes this a compare-and-
// swap; a zero affected-row count means a concurrent redeemer won.
func (s *ProvisionStore) ConsumeToken(ctx context.Context, tokenID, agentID uint64, at time.Time) (bool, error) {
    res, err := s.db.ExecContext(ctx,
        "UPDATE registration_tokens SET is_active=0, consumed_at=?, consumed_by_agent_id=? WHERE id=? AND consumed_at IS NULL",
        at.UTC(), agentID, tokenID)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// FindAgentByKey returns the agent for a key, or (nil, nil) when absent.
func (s *ProvisionStore) FindAgentByKey(ctx context.Context, agentKey string) (*model.Agent, error) {
    row := s.db.QueryRowContext(ctx,
        "SELECT "+agentColumns+" FROM agents WHERE agent_key=? LIMIT 1", agentKey)
    a, err := scanAgent(row.Scan)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &a, nil
}

// CreateAgent inserts a new agent row and populates its generated ID.
func (s *ProvisionStore) CreateAgent(ctx context.Context, a *model.Agent) error {
    cfg, err := encodeConfig(a.Config)
    if err != nil {
        return err
    }
    res, err := s.db.ExecContext(ctx,
        "INSERT INTO agents (agent_key, name, description, version, status, last_seen_at, config, is_active) VALUES (?,?,?,?,?,?,?,?)",
        a.AgentKey, a.Name, a.Description, a.Version, a.Status, a.LastSeenAt, cfg, a.IsActive)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    a.ID = uint64(id)
    return nil
}

// UpdateAgent writes back the merged agent state from a registration or
// heartbeat.
func (s *ProvisionStore) UpdateAgent(ctx context.Context, a *model.Agent) error {
    cfg, err := encodeConfig(a.Config)
    if err != nil {
        return err
    }
    _, err = s.db.ExecContext(ctx,
        "UPDATE agents SET name=?, description=?, version=?, status=?, last_seen_at=?, config=?, is_active=? WHERE id=?",
        a.Name, a.Description, a.Version, a.Status, a.LastSeenAt, cfg, a.IsActive, a.ID)
    return err
}

// FindBinding returns the (store, agent) binding row regardless of its
// active flag, or (nil, nil) when no such row exists.
func (s *ProvisionStore) FindBinding(ctx context.Context, storeID, agentID uint64) (*model.StoreAgent, error) {
    row := s.db.QueryRowContext(ctx,
        "SELECT "+storeAgentColumns+" FROM store_agents WHERE store_id=? AND agent_id=? LIMIT 1",
        storeID, agentID)
    b, err := scanStoreAgent(row.Scan)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &b, nil
}

// CreateBinding inserts a new binding row and populates its generated ID.
func (s *ProvisionStore) CreateBinding(ctx context.Context, b *model.StoreAgent) error {
    cfg, err := encodeConfig(b.Config)
    if err != nil {
        return err
    }
    res, err := s.db.ExecContext(ctx,
        "INSERT INTO store_agents (store_id, agent_id, assigned_by, config, is_active) VALUES (?,?,?,?,1)",
        b.StoreID, b.AgentID, b.AssignedBy, cfg)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    return nil
}

// ReactivateBinding flips an existing binding back to active.
func (s *ProvisionStore) ReactivateBinding(ctx context.Context, bindingID uint64) error {
    _, err := s.db.ExecContext(ctx,
        "UPDATE store_agents SET is_active=1 WHERE id=?", bindingID)
    return err
}

// ListActiveAssignments returns the agent's active bindings joined with
// store names, the shape returned to a heartbeating device.
func (s *ProvisionStore) ListActiveAssignments(ctx context.Context, agentID uint64) ([]service.StoreAssignment, error) {
    rows, err := s.db.QueryContext(ctx,
        `SELECT sa.store_id, st.name, sa.config
         FROM store_agents sa
         JOIN stores st ON st.id = sa.store_id
         WHERE sa.agent_id=? AND sa.is_active=1
         ORDER BY sa.store_id`, agentID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    out := []service.StoreAssignment{}
    for rows.Next() {
        var (
            sa  service.StoreAssignment
            cfg sql.NullString
        )
        if err := rows.Scan(&sa.StoreID, &sa.StoreName, &cfg); err != nil {
            return nil, err
        }
        sa.Config = decodeConfig(cfg)
        out = append(out, sa)
    }
    return out, rows.Err()
}

// GrantAuthorizer implements service.Authorizer on top of the role column
// and the user_store_access grant rows.
type GrantAuthorizer struct {
    access *StoreAccessRepo
}

// NewGrantAuthorizer returns an authorizer backed by the grant table.
func NewGrantAuthorizer(access *StoreAccessRepo) *GrantAuthorizer {
    return &GrantAuthorizer{access: access}
}

// CanManageStore allows global ADMINs outright and MANAGERs holding an
// explicit grant for the store.
func (a *GrantAuthorizer) CanManageStore(ctx context.Context, p service.Principal, storeID uint64) (bool, error) {
    if p.IsAdmin() {
        return true, nil
    }
    return a.access.Has(ctx, p.UserID, storeID)
}
