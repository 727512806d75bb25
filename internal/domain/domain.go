package domain

import "fmt"

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RoleManager   Role = "manager"
	RoleStaff     Role = "staff"
)

// Roles is the closed role set.
var Roles = []Role{RoleAdmin, RoleOrganizer, RoleManager, RoleStaff}

// ParseRole reports whether s names a known role.
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// Status is shared by missions and tasks.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
)

var Statuses = []Status{StatusPending, StatusInProgress, StatusDone, StatusBlocked}

func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

type Profile struct {
	ID           string  `json:"id"`
	Username     string  `json:"username"`
	Email        string  `json:"email,omitempty"`
	Role         Role    `json:"role" enum:"admin,organizer,manager,staff"`
	IsAvailable  bool    `json:"is_available"`
	CurrentTeam  *string `json:"current_team,omitempty"`
	PasswordHash string  `json:"-"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
}

func (p Profile) String() string {
	return fmt.Sprintf("%s - %s", p.Username, p.Role)
}

type Company struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	CreatedBy *string `json:"created_by,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

func (c Company) String() string { return c.Name }

type Event struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Location    string  `json:"location,omitempty"`
	Description string  `json:"description,omitempty"`
	Date        string  `json:"date,omitempty"`
	Status      string  `json:"status"`
	CompanyID   *string `json:"company_id,omitempty"`
	CreatedBy   *string `json:"created_by,omitempty"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
}

func (e Event) String() string { return e.Title }

type Team struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	EventID   string   `json:"event_id"`
	ManagerID *string  `json:"manager_id,omitempty"`
	MemberIDs []string `json:"member_ids"`
	CreatedBy *string  `json:"created_by,omitempty"`
	CreatedAt string   `json:"created_at" format:"date-time"`
}

// Label renders the team with the title of its event.
func (t Team) Label(eventTitle string) string {
	return fmt.Sprintf("%s (%s)", t.Name, eventTitle)
}

type Mission struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	Description       string  `json:"description,omitempty"`
	EventID           string  `json:"event_id"`
	TeamID            string  `json:"team_id"`
	CreatedBy         *string `json:"created_by,omitempty"`
	AssignedManagerID *string `json:"assigned_manager_id,omitempty"`
	AISplit           bool    `json:"ai_split"`
	IsApproved        bool    `json:"is_approved"`
	Status            Status  `json:"status" enum:"pending,in_progress,done,blocked"`
	CreatedAt         string  `json:"created_at" format:"date-time"`
	UpdatedAt         string  `json:"updated_at" format:"date-time"`
}

func (m Mission) Label(teamName, eventTitle string) string {
	return fmt.Sprintf("Mission: %s (%s - %s)", m.Title, teamName, eventTitle)
}

type Task struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	MissionID   *string `json:"mission_id,omitempty"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
	TeamID      *string `json:"team_id,omitempty"`
	EventID     string  `json:"event_id"`
	CreatedBy   *string `json:"created_by,omitempty"`
	Status      Status  `json:"status" enum:"pending,in_progress,done,blocked"`
	AIGenerated bool    `json:"ai_generated"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
	UpdatedAt   string  `json:"updated_at" format:"date-time"`
}

// Label renders the task, naming its mission when it has one.
func (t Task) Label(missionTitle string) string {
	if t.MissionID == nil || missionTitle == "" {
		return t.Title
	}
	return fmt.Sprintf("%s (sub of %s)", t.Title, missionTitle)
}

// Activity is one entry of the append-only activity log.
type Activity struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ProfileID string `json:"profile_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
