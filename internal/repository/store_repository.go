package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/velora/storegrid/internal/model"
)

// StoreRepo provides data access to the stores table.
type StoreRepo struct {
    db *sql.DB
}

// NewStoreRepo returns a repo bound to the provided database.
func NewStoreRepo(db *sql.DB) *StoreRepo { return &StoreRepo{db: db} }

// Create inserts a new store under a concept.
func (r *StoreRepo) Create(ctx context.Context, conceptID uint64, name string, location *string) (uint64, error) {
    res, err := r.db.ExecContext(ctx,
        "INSERT INTO stores (concept_id, name, location) VALUES (?,?,?)",
        conceptID, name, location)
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return 0, ErrConflict
        }
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// GetByID fetches one store.
func (r *StoreRepo) GetByID(ctx context.Context, id uint64) (model.Store, error) {
    var s model.Store
    err := r.db.QueryRowContext(ctx,
        "SELECT id,concept_id,name,location,is_active,created_at,updated_at FROM stores WHERE id=? LIMIT 1",
        id).Scan(&s.ID, &s.ConceptID, &s.Name, &s.Location, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
    return s, err
}

// List returns a page of stores.  conceptID narrows to one concept when
// non-zero; q filters by name or location substring; onlyIDs restricts the
// result to the given store IDs (used to scope MANAGER listings to their
// grants) and is ignored when empty.
func (r *StoreRepo) List(ctx context.Context, conceptID uint64, q string, onlyIDs []uint64, page, pageSize int) ([]model.Store, int64, error) {
    where := []string{}
    args := []any{}
    if conceptID != 0 {
        where = append(where, "concept_id=?")
        args = append(args, conceptID)
    }
    if q != "" {
        where = append(where, "(LOWER(name) LIKE ? OR LOWER(COALESCE(location,'')) LIKE ?)")
        needle := "%" + strings.ToLower(q) + "%"
        args = append(args, needle, needle)
    }
    if len(onlyIDs) > 0 {
        ph := make([]string, len(onlyIDs))
        for i, id := range onlyIDs {
            ph[i] = "?"
            args = append(args, id)
        }
        where = append(where, "id IN ("+strings.Join(ph, ",")+")")
    }
    cond := "1=1"
    if len(where) > 0 {
        cond = strings.Join(where, " AND ")
    }

    var total int64
    if err := r.db.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM stores WHERE "+cond, args...).Scan(&total); err != nil {
        return nil, 0, err
    }

    args = append(args, pageSize, (page-1)*pageSize)
    rows, err := r.db.QueryContext(ctx,
        "SELECT id,concept_id,name,location,is_active,created_at,updated_at FROM stores WHERE "+cond+
            " ORDER BY name LIMIT ? OFFSET ?", args...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    var out []model.Store
    for rows.Next() {
        var s model.Store
        if err := rows.Scan(&s.ID, &s.ConceptID, &s.Name, &s.Location, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
            return nil, 0, err
        }
        out = append(out, s)
    }
    return out, total, rows.Err()
}

// Update changes name/location.  Nil fields are left untouched.
func (r *StoreRepo) Update(ctx context.Context, id uint64, name *string, location *string) error {
    sets := []string{}
    args := []any{}
    if name != nil {
        sets = append(sets, "name=?")
        args = append(args, *name)
    }
    if location != nil {
        sets = append(sets, "location=?")
        args = append(args, *location)
    }
    if len(sets) == 0 {
        return nil
    }
    args = append(args, id)
    _, err := r.db.ExecContext(ctx, "UPDATE stores SET "+strings.Join(sets, ",")+" WHERE id=?", args...)
    return err
}

// Deactivate soft-deletes a store.  Existing agent bindings and tokens are
// left in place as history; tokens for a deactivated store still expire on
// their own.
func (r *StoreRepo) Deactivate(ctx context.Context, id uint64) error {
    _, err := r.db.ExecContext(ctx, "UPDATE stores SET is_active=0 WHERE id=?", id)
    return err
}

// Count returns the number of active stores (dashboard).
func (r *StoreRepo) Count(ctx context.Context) (int64, error) {
    var n int64
    err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stores WHERE is_active=1").Scan(&n)
    return n, err
}
