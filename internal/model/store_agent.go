package model

import "time"

// StoreAgent is the join record binding an agent to a store.  At most
// one row per (store, agent) pair is meaningful: re-registration against
// the same store reactivates the existing row instead of inserting a
// duplicate.  Deactivating a binding removes the agent from the store
// without touching the agent entity itself.
//
// Fields:
//  ID         – primary key identifier.
//  StoreID    – bound store.
//  AgentID    – bound agent.
//  AssignedBy – principal that caused the binding (the token creator).
//  Config     – per-store configuration override map, stored as JSON text.
//  IsActive   – soft removal flag; flips true again on re-registration.
//  AssignedAt – when the binding was first created.
type StoreAgent struct {
    ID         uint64         // store_agents.id
    StoreID    uint64         // store_agents.store_id
    AgentID    uint64         // store_agents.agent_id
    AssignedBy *uint64        // store_agents.assigned_by (nullable)
    Config     map[string]any // store_agents.config (JSON text column)
    IsActive   bool           // store_agents.is_active
    AssignedAt time.Time      // store_agents.assigned_at
}
