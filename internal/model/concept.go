package model

import "time"

// Concept represents a brand operated by an organization.  A concept
// groups stores that share branding and configuration.  Each concept
// belongs to exactly one organization.  This struct corresponds to a row
// in the `concepts` table.
//
// Fields:
//  ID             – primary key identifier.
//  OrganizationID – owning organization.
//  Name           – concept name, unique per organization.
//  Description    – optional free-form description.
//  IsActive       – whether the concept is active (soft delete flag).
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Concept struct {
    ID             uint64    // concepts.id
    OrganizationID uint64    // concepts.organization_id
    Name           string    // concepts.name
    Description    *string   // concepts.description (nullable)
    IsActive       bool      // concepts.is_active
    CreatedAt      time.Time // concepts.created_at
    UpdatedAt      time.Time // concepts.updated_at
}
