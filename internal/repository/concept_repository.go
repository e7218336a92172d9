package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/velora/storegrid/internal/model"
)

// ConceptRepo provides data access to the concepts table.  A concept is a
// brand within an organization; its name is unique per organization.
type ConceptRepo struct {
    db *sql.DB
}

// NewConceptRepo returns a repo bound to the provided database.
func NewConceptRepo(db *sql.DB) *ConceptRepo { return &ConceptRepo{db: db} }

// Create inserts a new concept under an organization.
func (r *ConceptRepo) Create(ctx context.Context, orgID uint64, name string, description *string) (uint64, error) {
    res, err := r.db.ExecContext(ctx,
        "INSERT INTO concepts (organization_id, name, description) VALUES (?,?,?)",
        orgID, name, description)
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

// GetByID fetches one concept.
func (r *ConceptRepo) GetByID(ctx context.Context, id uint64) (model.Concept, error) {
    var c model.Concept
    err := r.db.QueryRowContext(ctx,
        "SELECT id,organization_id,name,description,is_active,created_at,updated_at FROM concepts WHERE id=? LIMIT 1",
        id).Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
    return c, err
}

// List returns a page of concepts.  When orgID is non-zero only concepts
// of that organization are returned; q filters by name substring.
func (r *ConceptRepo) List(ctx context.Context, orgID uint64, q string, page, pageSize int) ([]model.Concept, int64, error) {
    where := []string{}
    args := []any{}
    if orgID != 0 {
        where = append(where, "organization_id=?")
        args = append(args, orgID)
    }
    if q != "" {
        where = append(where, "LOWER(name) LIKE ?")
        args = append(args, "%"+strings.ToLower(q)+"%")
    }
    cond := "1=1"
    if len(where) > 0 {
        cond = strings.Join(where, " AND ")
    }

    var total int64
    if err := r.db.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM concepts WHERE "+cond, args...).Scan(&total); err != nil {
        return nil, 0, err
    }

    args = append(args, pageSize, (page-1)*pageSize)
    rows, err := r.db.QueryContext(ctx,
        "SELECT id,organization_id,name,description,is_active,created_at,updated_at FROM concepts WHERE "+cond+
            " ORDER BY name LIMIT ? OFFSET ?", args...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    var out []model.Concept
    for rows.Next() {
        var c model.Concept
        if err := rows.Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
            return nil, 0, err
        }
        out = append(out, c)
    }
    return out, total, rows.Err()
}

// Update changes name/description.  Nil fields are left untouched.
func (r *ConceptRepo) Update(ctx context.Context, id uint64, name *string, description *string) error {
    sets := []string{}
    args := []any{}
    if name != nil {
        sets = append(sets, "name=?")
        args = append(args, *name)
    }
    if description != nil {
        sets = append(sets, "description=?")
        args = append(args, *description)
    }
    if len(sets) == 0 {
        return nil
    }
    args = append(args, id)
    _, err := r.db.ExecContext(ctx,
        "UPDATE concepts SET "+strings.Join(sets, ",")+" WHERE id=?", args...)
    if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
        return ErrConflict
    }
    return err
}

// Deactivate soft-deletes a concept; refuses while active stores remain.
func (r *ConceptRepo) Deactivate(ctx context.Context, id uint64) error {
    var n int64
    if err := r.db.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM stores WHERE concept_id=? AND is_active=1", id).Scan(&n); err != nil {
        return err
    }
    if n > 0 {
        return ErrConflict
    }
    _, err := r.db.ExecContext(ctx, "UPDATE concepts SET is_active=0 WHERE id=?", id)
    return err
}

// Count returns the number of active concepts (dashboard).
func (r *ConceptRepo) Count(ctx context.Context) (int64, error) {
    var n int64
    err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM concepts WHERE is_active=1").Scan(&n)
    return n, err
}
