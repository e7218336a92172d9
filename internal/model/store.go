package model

import "time"

// Store is a physical location belonging to a concept.  Stores are the
// scope unit of the agent provisioning protocol: registration tokens are
// issued per store and agents are bound to stores.
//
// Fields:
//  ID        – primary key identifier.
//  ConceptID – owning concept.
//  Name      – store name.
//  Location  – optional human readable address or site label.
//  IsActive  – whether the store is active (soft delete flag).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Store struct {
    ID        uint64    // stores.id
    ConceptID uint64    // stores.concept_id
    Name      string    // stores.name
    Location  *string   // stores.location (nullable)
    IsActive  bool      // stores.is_active
    CreatedAt time.Time // stores.created_at
    UpdatedAt time.Time // stores.updated_at
}
