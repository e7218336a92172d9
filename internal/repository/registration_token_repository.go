package repository

import (
    "context"
    "database/sql"

    "github.com/velora/storegrid/internal/model"
)

// RegistrationTokenRepo exposes the audit view of registration tokens.
// Tokens are never deleted, so the listing is the full issuance history of
// a store: open tokens, consumed tokens with the consuming agent, and
// expired leftovers.  Issuing and consuming happen in ProvisionStore.
type RegistrationTokenRepo struct {
    db *sql.DB
}

// NewRegistrationTokenRepo returns a repo bound to the provided database.
func NewRegistrationTokenRepo(db *sql.DB) *RegistrationTokenRepo {
    return &RegistrationTokenRepo{db: db}
}

const regTokenColumns = "id,token,store_id,created_by,expires_at,consumed_at,consumed_by_agent_id,is_active,created_at"

func scanRegToken(scan func(...any) error) (model.RegistrationToken, error) {
    var (
        t          model.RegistrationToken
        createdBy  sql.NullInt64
        consumedAt sql.NullTime
        consumedBy sql.NullInt64
    )
    err := scan(&t.ID, &t.Token, &t.StoreID, &createdBy, &t.ExpiresAt, &consumedAt, &consumedBy, &t.IsActive, &t.CreatedAt)
    if err != nil {
        return t, err
    }
    if createdBy.Valid {
        v := uint64(createdBy.Int64)
        t.CreatedBy = &v
    }
    if consumedAt.Valid {
        ts := consumedAt.Time
        t.ConsumedAt = &ts
    }
    if consumedBy.Valid {
        v := uint64(consumedBy.Int64)
        t.ConsumedByAgentID = &v
    }
    return t, nil
}

// ListByStore returns a page of a store's tokens, newest first.
func (r *RegistrationTokenRepo) ListByStore(ctx context.Context, storeID uint64, page, pageSize int) ([]model.RegistrationToken, int64, error) {
    var total int64
    if err := r.db.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM registration_tokens WHERE store_id=?", storeID).Scan(&total); err != nil {
        return nil, 0, err
    }

    rows, err := r.db.QueryContext(ctx,
        "SELECT "+regTokenColumns+" FROM registration_tokens WHERE store_id=?"+
            " ORDER BY created_at DESC LIMIT ? OFFSET ?",
        storeID, pageSize, (page-1)*pageSize)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    var out []model.RegistrationToken
    for rows.Next() {
        t, err := scanRegToken(rows.Scan)
        if err != nil {
            return nil, 0, err
        }
        out = append(out, t)
    }
    return out, total, rows.Err()
}
