package model

import "time"

// User represents an application user record as stored in the `users`
// table.  Each field corresponds to a column in the database.  The json
// tags are omitted here because these structs are primarily used
// internally by the repository layer; handlers define separate response
// types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – name of the role (ADMIN or MANAGER).
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA‑256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}

// StoreAccess records an explicit grant allowing a MANAGER user to
// administer a specific store.  ADMIN users implicitly manage every
// store and need no grant rows.  Corresponds to the `user_store_access`
// table; the (UserID, StoreID) pair is unique.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – user the grant applies to.
//  StoreID   – store the user may manage.
//  GrantedBy – user who created the grant (nullable when seeded).
//  CreatedAt – timestamp of creation.
type StoreAccess struct {
    ID        uint64    // user_store_access.id
    UserID    uint64    // user_store_access.user_id
    StoreID   uint64    // user_store_access.store_id
    GrantedBy *uint64   // user_store_access.granted_by (nullable)
    CreatedAt time.Time // user_store_access.created_at
}
