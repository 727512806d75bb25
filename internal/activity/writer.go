package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Type names an activity entry as "<entity kind>.<verb>".
type Type string

const (
	ProfileCreated             Type = "profile.created"
	ProfileBootstrapped        Type = "profile.bootstrapped"
	ProfileRoleChanged         Type = "profile.role_changed"
	ProfileAvailabilityChanged Type = "profile.availability_changed"
	APIKeyCreated              Type = "api_key.created"

	CompanyCreated Type = "company.created"
	CompanyUpdated Type = "company.updated"
	CompanyDeleted Type = "company.deleted"

	EventCreated Type = "event.created"
	EventUpdated Type = "event.updated"
	EventDeleted Type = "event.deleted"

	TeamCreated     Type = "team.created"
	TeamUpdated     Type = "team.updated"
	TeamDeleted     Type = "team.deleted"
	TeamMemberAdded Type = "team.member_added"

	MissionCreated   Type = "mission.created"
	MissionSuggested Type = "mission.suggested"
	MissionUpdated   Type = "mission.updated"
	MissionDeleted   Type = "mission.deleted"
	MissionSplit     Type = "mission.split"
	MissionApproved  Type = "mission.approved"

	TaskCreated Type = "task.created"
	TaskUpdated Type = "task.updated"
	TaskDeleted Type = "task.deleted"
)

// Types lists every entry type the engine records.
var Types = []Type{
	ProfileCreated, ProfileBootstrapped, ProfileRoleChanged, ProfileAvailabilityChanged, APIKeyCreated,
	CompanyCreated, CompanyUpdated, CompanyDeleted,
	EventCreated, EventUpdated, EventDeleted,
	TeamCreated, TeamUpdated, TeamDeleted, TeamMemberAdded,
	MissionCreated, MissionSuggested, MissionUpdated, MissionDeleted, MissionSplit, MissionApproved,
	TaskCreated, TaskUpdated, TaskDeleted,
}

// Known reports whether s is one of Types.
func Known(s string) bool {
	for _, t := range Types {
		if string(t) == s {
			return true
		}
	}
	return false
}

// EntityKind is the part before the dot.
func (t Type) EntityKind() string {
	kind, _, _ := strings.Cut(string(t), ".")
	return kind
}

// Payload is stored as payload_json. Nil is written as {}.
type Payload map[string]any

// Writer appends entries to the activity log inside the caller's transaction.
type Writer struct {
	Now func() time.Time
}

// Record appends one entry. actorID is "system" for unchecked paths.
func (w Writer) Record(ctx context.Context, tx *sql.Tx, t Type, entityID, actorID string, payload Payload) error {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	if payload == nil {
		payload = Payload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("activity %s: marshal payload: %w", t, err)
	}
	var entity any
	if entityID != "" {
		entity = entityID
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO activity(ts,type,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?)`,
		now().UTC().Format(time.RFC3339), string(t), t.EntityKind(), entity, actorID, string(data))
	return err
}
