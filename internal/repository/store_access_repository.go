package repository

import (
    "context"
    "database/sql"
    "strings"
)

// StoreAccessRepo manages the user_store_access grant rows that let a
// MANAGER user administer specific stores.  ADMIN users bypass grants.
type StoreAccessRepo struct {
    db *sql.DB
}

// NewStoreAccessRepo returns a repo bound to the provided database.
func NewStoreAccessRepo(db *sql.DB) *StoreAccessRepo { return &StoreAccessRepo{db: db} }

// Grant inserts a grant row.  Granting twice is a no-op thanks to the
// unique (user_id, store_id) index.
func (r *StoreAccessRepo) Grant(ctx context.Context, userID, storeID, grantedBy uint64) error {
    _, err := r.db.ExecContext(ctx,
        "INSERT INTO user_store_access (user_id, store_id, granted_by) VALUES (?,?,?)",
        userID, storeID, grantedBy)
    if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
        return nil
    }
    return err
}

// Revoke removes a grant row.
func (r *StoreAccessRepo) Revoke(ctx context.Context, userID, storeID uint64) error {
    _, err := r.db.ExecContext(ctx,
        "DELETE FROM user_store_access WHERE user_id=? AND store_id=?", userID, storeID)
    return err
}

// Has reports whether the user holds a grant for the store.
func (r *StoreAccessRepo) Has(ctx context.Context, userID, storeID uint64) (bool, error) {
    var one int
    err := r.db.QueryRowContext(ctx,
        "SELECT 1 FROM user_store_access WHERE user_id=? AND store_id=? LIMIT 1",
        userID, storeID).Scan(&one)
    if err == sql.ErrNoRows {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}

// StoreIDsForUser returns every store the user is granted.  Used to scope
// MANAGER store listings.
func (r *StoreAccessRepo) StoreIDsForUser(ctx context.Context, userID uint64) ([]uint64, error) {
    rows, err := r.db.QueryContext(ctx,
        "SELECT store_id FROM user_store_access WHERE user_id=?", userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var ids []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    return ids, rows.Err()
}
