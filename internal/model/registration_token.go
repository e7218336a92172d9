package model

import "time"

// RegistrationToken is a short-lived, single-use secret that lets an
// unauthenticated device bind itself to one store.  Rows are never
// deleted: consumed and expired tokens remain as an audit trail.  A
// token is redeemable only while IsActive is true, ConsumedAt is null
// and the expiry lies in the future.
//
// Fields:
//  ID                – primary key identifier.
//  Token             – opaque grouped token string, unique across all
//                      tokens ever issued.
//  StoreID           – store the token is scoped to.
//  CreatedBy         – user who issued the token (nullable only for
//                      historic rows; issuance always records a principal).
//  ExpiresAt         – wall-clock expiry; checked at redemption, no sweep.
//  ConsumedAt        – when the token was redeemed (null until then).
//  ConsumedByAgentID – agent created/updated by the redemption.
//  IsActive          – flips to false exactly once, on consumption.
//  CreatedAt         – creation timestamp.
type RegistrationToken struct {
    ID                uint64     // registration_tokens.id
    Token             string     // registration_tokens.token
    StoreID           uint64     // registration_tokens.store_id
    CreatedBy         *uint64    // registration_tokens.created_by (nullable)
    ExpiresAt         time.Time  // registration_tokens.expires_at
    ConsumedAt        *time.Time // registration_tokens.consumed_at (nullable)
    ConsumedByAgentID *uint64    // registration_tokens.consumed_by_agent_id (nullable)
    IsActive          bool       // registration_tokens.is_active
    CreatedAt         time.Time  // registration_tokens.created_at
}
