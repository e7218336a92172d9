// Package queue defines message payloads exchanged over the message broker
// plus the publisher and background consumer for them.
package queue

// AgentRegisteredEvent is published when an agent successfully redeems a
// registration token. It contains enough information for downstream
// consumers to log, notify, or trigger analytics without querying the
// primary database.
type AgentRegisteredEvent struct {
    AgentID      uint64 `json:"agent_id"`
    AgentKey     string `json:"agent_key"`
    AgentName    string `json:"agent_name"`
    StoreID      uint64 `json:"store_id"`
    StoreName    string `json:"store_name"`
    Reactivated  bool   `json:"reactivated"`
    RegisteredAt string `json:"registered_at"`
}
