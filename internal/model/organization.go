package model

import "time"

// Organization is the top level of the tenancy hierarchy.  An
// organization owns one or more concepts (brands), and each concept owns
// stores.  This struct corresponds to a row in the `organizations` table.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – unique organization name.
//  Description – optional free-form description.
//  IsActive    – whether the organization is active (soft delete flag).
//  CreatedAt   – timestamp when the organization was created.
//  UpdatedAt   – timestamp of last update.
type Organization struct {
    ID          uint64    // organizations.id
    Name        string    // organizations.name
    Description *string   // organizations.description (nullable)
    IsActive    bool      // organizations.is_active
    CreatedAt   time.Time // organizations.created_at
    UpdatedAt   time.Time // organizations.updated_at
}
