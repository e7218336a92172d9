package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/velora/storegrid/internal/model"
)

// OrganizationRepo provides data access to the organizations table.
type OrganizationRepo struct {
    db *sql.DB
}

// NewOrganizationRepo returns a repo bound to the provided database.
func NewOrganizationRepo(db *sql.DB) *OrganizationRepo { return &OrganizationRepo{db: db} }

// Create inserts a new organization and returns its ID.  Duplicate names
// surface as ErrConflict.
func (r *OrganizationRepo) Create(ctx context.Context, name string, description *string) (uint64, error) {
    res, err := r.db.ExecContext(ctx,
        "INSERT INTO organizations (name, description) VALUES (?,?)", name, description)
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

// GetByID fetches one organization.
func (r *OrganizationRepo) GetByID(ctx context.Context, id uint64) (model.Organization, error) {
    var o model.Organization
    err := r.db.QueryRowContext(ctx,
        "SELECT id,name,description,is_active,created_at,updated_at FROM organizations WHERE id=? LIMIT 1",
        id).Scan(&o.ID, &o.Name, &o.Description, &o.IsActive, &o.CreatedAt, &o.UpdatedAt)
    return o, err
}

// List returns a page of organizations filtered by an optional
// case-insensitive name substring, plus the total match count.
func (r *OrganizationRepo) List(ctx context.Context, q string, page, pageSize int) ([]model.Organization, int64, error) {
    cond := "1=1"
    args := []any{}
    if q != "" {
        cond = "LOWER(name) LIKE ?"
        args = append(args, "%"+strings.ToLower(q)+"%")
    }

    var total int64
    if err := r.db.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM organizations WHERE "+cond, args...).Scan(&total); err != nil {
        return nil, 0, err
    }

    args = append(args, pageSize, (page-1)*pageSize)
    rows, err := r.db.QueryContext(ctx,
        "SELECT id,name,description,is_active,created_at,updated_at FROM organizations WHERE "+cond+
            " ORDER BY name LIMIT ? OFFSET ?", args...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    var out []model.Organization
    for rows.Next() {
        var o model.Organization
        if err := rows.Scan(&o.ID, &o.Name, &o.Description, &o.IsActive, &o.CreatedAt, &o.UpdatedAt); err != nil {
            return nil, 0, err
        }
        out = append(out, o)
    }
    return out, total, rows.Err()
}

// Update changes name/description.  Nil fields are left untouched.
func (r *OrganizationRepo) Update(ctx context.Context, id uint64, name *string, description *string) error {
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
        "UPDATE organizations SET "+strings.Join(sets, ",")+" WHERE id=?", args...)
    if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
        return ErrConflict
    }
    return err
}

// Deactivate soft-deletes an organization.  It refuses when active
// concepts still reference it.
func (r *OrganizationRepo) Deactivate(ctx context.Context, id uint64) error {
    var n int64
    if err := r.db.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM concepts WHERE organization_id=? AND is_active=1", id).Scan(&n); err != nil {
        return err
    }
    if n > 0 {
        return ErrConflict
    }
    _, err := r.db.ExecContext(ctx, "UPDATE organizations SET is_active=0 WHERE id=?", id)
    return err
}

// Count returns the number of active organizations (dashboard).
func (r *OrganizationRepo) Count(ctx context.Context) (int64, error) {
    var n int64
    err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM organizations WHERE is_active=1").Scan(&n)
    return n, err
}
