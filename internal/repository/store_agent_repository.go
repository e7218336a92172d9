package repository

import (
    "context"
    "database/sql"

    "github.com/velora/storegrid/internal/model"
)

// StoreAgentRepo exposes the management-side view of store/agent bindings.
// The registration path creates and reactivates bindings through
// ProvisionStore; this repo covers listing them and the explicit
// "remove agent from store" management action.
type StoreAgentRepo struct {
    db *sql.DB
}

// NewStoreAgentRepo returns a repo bound to the provided database.
func NewStoreAgentRepo(db *sql.DB) *StoreAgentRepo { return &StoreAgentRepo{db: db} }

const storeAgentColumns = "id,store_id,agent_id,assigned_by,config,is_active,assigned_at"

func scanStoreAgent(scan func(...any) error) (model.StoreAgent, error) {
    var (
        b          model.StoreAgent
        assignedBy sql.NullInt64
        cfg        sql.NullString
    )
    err := scan(&b.ID, &b.StoreID, &b.AgentID, &assignedBy, &cfg, &b.IsActive, &b.AssignedAt)
    if err != nil {
        return b, err
    }
    if assignedBy.Valid {
        v := uint64(assignedBy.Int64)
        b.AssignedBy = &v
    }
    b.Config = decodeConfig(cfg)
    return b, nil
}

// ListByAgent returns every binding of an agent, active or not.
func (r *StoreAgentRepo) ListByAgent(ctx context.Context, agentID uint64) ([]model.StoreAgent, error) {
    rows, err := r.db.QueryContext(ctx,
        "SELECT "+storeAgentColumns+" FROM store_agents WHERE agent_id=? ORDER BY assigned_at", agentID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []model.StoreAgent
    for rows.Next() {
        b, err := scanStoreAgent(rows.Scan)
        if err != nil {
            return nil, err
        }
        out = append(out, b)
    }
    return out, rows.Err()
}

// Deactivate removes an agent from a store without touching the agent
// entity.  Returns ErrConflict when there is no active binding to remove,
// so handlers can answer 409 instead of pretending success.
func (r *StoreAgentRepo) Deactivate(ctx context.Context, storeID, agentID uint64) error {
    res, err := r.db.ExecContext(ctx,
        "UPDATE store_agents SET is_active=0 WHERE store_id=? AND agent_id=? AND is_active=1",
        storeID, agentID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrConflict
    }
    return nil
}

// UpdateConfig replaces the per-store configuration override of an active
// binding.
func (r *StoreAgentRepo) UpdateConfig(ctx context.Context, storeID, agentID uint64, config map[string]any) error {
    enc, err := encodeConfig(config)
    if err != nil {
        return err
    }
    res, err := r.db.ExecContext(ctx,
        "UPDATE store_agents SET config=? WHERE store_id=? AND agent_id=? AND is_active=1",
        enc, storeID, agentID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrConflict
    }
    return nil
}
