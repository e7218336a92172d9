package model

import "time"

// Agent status values.  These are liveness indicators reported by the
// device, not a workflow: any status may follow any other.
const (
    AgentStatusOnline      = "online"
    AgentStatusOffline     = "offline"
    AgentStatusError       = "error"
    AgentStatusMaintenance = "maintenance"
)

// ValidAgentStatus reports whether s is one of the known status values.
func ValidAgentStatus(s string) bool {
    switch s {
    case AgentStatusOnline, AgentStatusOffline, AgentStatusError, AgentStatusMaintenance:
        return true
    }
    return false
}

// Agent is a field monitoring device identity.  Agents are free-standing
// entities keyed by a caller-chosen AgentKey and may be bound to one or
// more stores through the `store_agents` join.  This struct corresponds
// to a row in the `agents` table.
//
// Fields:
//  ID          – primary key identifier.
//  AgentKey    – caller-supplied natural key, globally unique.
//  Name        – display name; defaults to "Agent <key>" when omitted.
//  Description – optional free-form description.
//  Version     – firmware/software version reported by the device.
//  Status      – one of online/offline/error/maintenance.
//  LastSeenAt  – last registration or heartbeat time (null before first).
//  Config      – free-form configuration map, stored as JSON text.
//  IsActive    – soft delete flag; reactivated on re-registration.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Agent struct {
    ID          uint64         // agents.id
    AgentKey    string         // agents.agent_key
    Name        string         // agents.name
    Description *string        // agents.description (nullable)
    Version     *string        // agents.version (nullable)
    Status      string         // agents.status
    LastSeenAt  *time.Time     // agents.last_seen_at (nullable)
    Config      map[string]any // agents.config (JSON text column)
    IsActive    bool           // agents.is_active
    CreatedAt   time.Time      // agents.created_at
    UpdatedAt   time.Time      // agents.updated_at
}
