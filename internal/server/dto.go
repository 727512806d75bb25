package server

import (
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine"
)

// Request payloads

type SignupRequest struct {
	Username string `json:"username" minLength:"1"`
	Email    string `json:"email,omitempty" format:"email"`
	Password string `json:"password" minLength:"8"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SetRoleRequest struct {
	Role string `json:"role" enum:"admin,organizer,manager,staff"`
}

type AvailabilityRequest struct {
	IsAvailable *bool   `json:"is_available,omitempty"`
	CurrentTeam *string `json:"current_team,omitempty"`
}

type CompanyRequest struct {
	Name string `json:"name"`
}

type CreateEventRequest struct {
	Title       string `json:"title"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty"`
	Status      string `json:"status,omitempty"`
	CompanyID   string `json:"company_id,omitempty"`
}

type UpdateEventRequest struct {
	Title       *string `json:"title,omitempty"`
	Location    *string `json:"location,omitempty"`
	Description *string `json:"description,omitempty"`
	Date        *string `json:"date,omitempty"`
	Status      *string `json:"status,omitempty"`
	CompanyID   *string `json:"company_id,omitempty"`
}

type CreateTeamRequest struct {
	Name      string   `json:"name"`
	EventID   string   `json:"event_id"`
	ManagerID string   `json:"manager_id,omitempty"`
	MemberIDs []string `json:"member_ids,omitempty"`
}

type UpdateTeamRequest struct {
	Name      *string `json:"name,omitempty"`
	ManagerID *string `json:"manager_id,omitempty"`
}

type AddMemberRequest struct {
	ProfileID string `json:"profile_id"`
}

type CreateMissionRequest struct {
	Title             string `json:"title"`
	Description       string `json:"description,omitempty"`
	EventID           string `json:"event_id"`
	TeamID            string `json:"team_id"`
	AssignedManagerID string `json:"assigned_manager_id,omitempty"`
	Status            string `json:"status,omitempty" enum:"pending,in_progress,done,blocked"`
}

type UpdateMissionRequest struct {
	Title             *string `json:"title,omitempty"`
	Description       *string `json:"description,omitempty"`
	Status            *string `json:"status,omitempty" enum:"pending,in_progress,done,blocked"`
	AssignedManagerID *string `json:"assigned_manager_id,omitempty"`
}

type TaskUpdateEntry struct {
	TaskID      string  `json:"task_id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Assignee    *string `json:"assignee,omitempty" doc:"Profile id or username"`
}

type ApproveMissionRequest struct {
	Updates []TaskUpdateEntry `json:"updates,omitempty"`
}

type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	MissionID   string `json:"mission_id,omitempty"`
	TeamID      string `json:"team_id,omitempty"`
	EventID     string `json:"event_id,omitempty"`
	AssigneeID  string `json:"assignee_id,omitempty"`
	Status      string `json:"status,omitempty" enum:"pending,in_progress,done,blocked"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" enum:"pending,in_progress,done,blocked"`
	AssigneeID  *string `json:"assignee_id,omitempty" doc:"Empty string unassigns"`
}

// Response payloads

type TokenResponse struct {
	Token     string         `json:"token"`
	ExpiresAt string         `json:"expires_at" format:"date-time"`
	Profile   domain.Profile `json:"profile"`
}

type VerifyResponse struct {
	ProfileID string `json:"profile_id"`
	Role      string `json:"role"`
	Source    string `json:"source" enum:"jwt,api_key,legacy_header"`
}

type SplitResponse struct {
	Mission domain.Mission `json:"mission"`
	Tasks   []domain.Task  `json:"tasks"`
}

type paginatedActivity struct {
	Items      []domain.Activity `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

func taskEdits(in []TaskUpdateEntry) []engine.TaskEdit {
	out := make([]engine.TaskEdit, 0, len(in))
	for _, u := range in {
		out = append(out, engine.TaskEdit{
			TaskID:      u.TaskID,
			Title:       u.Title,
			Description: u.Description,
			Assignee:    u.Assignee,
		})
	}
	return out
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
