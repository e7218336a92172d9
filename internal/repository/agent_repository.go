package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/velora/storegrid/internal/model"
)

// AgentRepo provides the management-side view of agents: paginated
// listings with search, detail lookups and soft deletion.  The
// registration/heartbeat path goes through ProvisionStore instead.
type AgentRepo struct {
    db *sql.DB
}

// NewAgentRepo returns a repo bound to the provided database.
func NewAgentRepo(db *sql.DB) *AgentRepo { return &AgentRepo{db: db} }

const agentColumns = "id,agent_key,name,description,version,status,last_seen_at,config,is_active,created_at,updated_at"

func scanAgent(scan func(...any) error) (model.Agent, error) {
    var (
        a        model.Agent
        desc     sql.NullString
        version  sql.NullString
        lastSeen sql.NullTime
        cfg      sql.NullString
    )
    err := scan(&a.ID, &a.AgentKey, &a.Name, &desc, &version, &a.Status, &lastSeen, &cfg, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
    if err != nil {
        return a, err
    }
    if desc.Valid {
        d := desc.String
        a.Description = &d
    }
    if version.Valid {
        v := version.String
        a.Version = &v
    }
    if lastSeen.Valid {
        ts := lastSeen.Time
        a.LastSeenAt = &ts
    }
    a.Config = decodeConfig(cfg)
    if !model.ValidAgentStatus(a.Status) {
        a.Status = model.AgentStatusOffline
    }
    return a, nil
}

// GetByID fetches one agent.
func (r *AgentRepo) GetByID(ctx context.Context, id uint64) (model.Agent, error) {
    row := r.db.QueryRowContext(ctx, "SELECT "+agentColumns+" FROM agents WHERE id=? LIMIT 1", id)
    return scanAgent(row.Scan)
}

// List returns a page of agents.  q filters by key or name substring;
// status narrows to one status when set; storeID restricts to agents with
// an active binding to that store when non-zero.
func (r *AgentRepo) List(ctx context.Context, q, status string, storeID uint64, page, pageSize int) ([]model.Agent, int64, error) {
    where := []string{}
    args := []any{}
    join := ""
    if storeID != 0 {
        join = " JOIN store_agents sa ON sa.agent_id = a.id AND sa.is_active=1 AND sa.store_id=?"
        args = append(args, storeID)
    }
    if q != "" {
        where = append(where, "(LOWER(a.agent_key) LIKE ? OR LOWER(a.name) LIKE ?)")
        needle := "%" + strings.ToLower(q) + "%"
        args = append(args, needle, needle)
    }
    if status != "" {
        where = append(where, "a.status=?")
        args = append(args, status)
    }
    cond := "1=1"
    if len(where) > 0 {
        cond = strings.Join(where, " AND ")
    }

    var total int64
    if err := r.db.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM agents a"+join+" WHERE "+cond, args...).Scan(&total); err != nil {
        return nil, 0, err
    }

    args = append(args, pageSize, (page-1)*pageSize)
    cols := "a.id,a.agent_key,a.name,a.description,a.version,a.status,a.last_seen_at,a.config,a.is_active,a.created_at,a.updated_at"
    rows, err := r.db.QueryContext(ctx,
        "SELECT "+cols+" FROM agents a"+join+" WHERE "+cond+" ORDER BY a.agent_key LIMIT ? OFFSET ?", args...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    var out []model.Agent
    for rows.Next() {
        a, err := scanAgent(rows.Scan)
        if err != nil {
            return nil, 0, err
        }
        out = append(out, a)
    }
    return out, total, rows.Err()
}

// Deactivate soft-deletes an agent and marks it offline.  Bindings stay
// as history; a later registration through a fresh token reactivates the
// agent.
func (r *AgentRepo) Deactivate(ctx context.Context, id uint64) error {
    _, err := r.db.ExecContext(ctx,
        "UPDATE agents SET is_active=0, status=? WHERE id=?", model.AgentStatusOffline, id)
    return err
}

// CountByStatus returns active agent totals for the dashboard: overall and
// per status.
func (r *AgentRepo) CountByStatus(ctx context.Context) (total int64, byStatus map[string]int64, err error) {
    byStatus = map[string]int64{}
    rows, err := r.db.QueryContext(ctx,
        "SELECT status, COUNT(*) FROM agents WHERE is_active=1 GROUP BY status")
    if err != nil {
        return 0, nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var (
            status string
            n      int64
        )
        if err := rows.Scan(&status, &n); err != nil {
            return 0, nil, err
        }
        byStatus[status] = n
        total += n
    }
    return total, byStatus, rows.Err()
}

// StaleSince returns active agents whose last_seen_at is older than the
// cutoff (or null), for surfacing silent devices on the dashboard.
func (r *AgentRepo) StaleSince(ctx context.Context, cutoff time.Time, limit int) ([]model.Agent, error) {
    rows, err := r.db.QueryContext(ctx,
        "SELECT "+agentColumns+" FROM agents WHERE is_active=1 AND (last_seen_at IS NULL OR last_seen_at < ?)"+
            " ORDER BY last_seen_at LIMIT ?", cutoff, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []model.Agent
    for rows.Next() {
        a, err := scanAgent(rows.Scan)
        if err != nil {
            return nil, err
        }
        out = append(out, a)
    }
    return out, rows.Err()
}
