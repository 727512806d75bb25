package auth

import (
	"fmt"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
)

type Action string

const (
	ActionCreateCompany Action = "company.create"
	ActionEditCompany   Action = "company.edit"
	ActionDeleteCompany Action = "company.delete"

	ActionCreateEvent    Action = "event.create"
	ActionEditEvent      Action = "event.edit"
	ActionDeleteEvent    Action = "event.delete"
	ActionSuggestMission Action = "event.suggest_mission"

	ActionCreateTeam    Action = "team.create"
	ActionEditTeam      Action = "team.edit"
	ActionDeleteTeam    Action = "team.delete"
	ActionAddTeamMember Action = "team.add_member"

	ActionCreateMission  Action = "mission.create"
	ActionEditMission    Action = "mission.edit"
	ActionDeleteMission  Action = "mission.delete"
	ActionSplitMission   Action = "mission.split"
	ActionApproveMission Action = "mission.approve"

	ActionCreateTask       Action = "task.create"
	ActionEditTask         Action = "task.edit"
	ActionUpdateTaskStatus Action = "task.update_status"
	ActionDeleteTask       Action = "task.delete"

	ActionSetRole         Action = "profile.set_role"
	ActionSetAvailability Action = "profile.set_availability"
	ActionViewActivity    Action = "activity.view"
)

// Relation is a link between the acting profile and the resource.
type Relation string

const (
	RelCreator         Relation = "creator"
	RelAssignee        Relation = "assignee"
	RelTeamManager     Relation = "team_manager"
	RelAssignedManager Relation = "assigned_manager"
	RelSelf            Relation = "self"
)

// Resource carries the profile ids a rule may compare against. Empty ids never match.
type Resource struct {
	CreatedBy         string
	AssigneeID        string
	TeamManagerID     string
	AssignedManagerID string
	ProfileID         string
}

func (r Resource) holds(rel Relation, profileID string) bool {
	var id string
	switch rel {
	case RelCreator:
		id = r.CreatedBy
	case RelAssignee:
		id = r.AssigneeID
	case RelTeamManager:
		id = r.TeamManagerID
	case RelAssignedManager:
		id = r.AssignedManagerID
	case RelSelf:
		id = r.ProfileID
	}
	return id != "" && id == profileID
}

// Grant allows an action when the role matches (any role if Roles is empty)
// and, if Relations is non-empty, at least one relation holds.
type Grant struct {
	Roles     []domain.Role
	Relations []Relation
}

func (g Grant) allows(p domain.Profile, res Resource) bool {
	if len(g.Roles) > 0 && !hasRole(g.Roles, p.Role) {
		return false
	}
	if len(g.Relations) == 0 {
		return true
	}
	for _, rel := range g.Relations {
		if res.holds(rel, p.ID) {
			return true
		}
	}
	return false
}

// Rule is one row of the policy matrix. Any matching grant permits the action.
type Rule struct {
	Description string
	Grants      []Grant
}

var (
	anyone      = Grant{}
	organizer   = Grant{Roles: []domain.Role{domain.RoleOrganizer}}
	admin       = Grant{Roles: []domain.Role{domain.RoleAdmin}}
	orgOrAdmin  = Grant{Roles: []domain.Role{domain.RoleOrganizer, domain.RoleAdmin}}
	creator     = Grant{Relations: []Relation{RelCreator}}
	assignee    = Grant{Relations: []Relation{RelAssignee}}
	teamManager = Grant{Relations: []Relation{RelTeamManager}}
	self        = Grant{Relations: []Relation{RelSelf}}

	managerOfTask = Grant{
		Roles:     []domain.Role{domain.RoleManager},
		Relations: []Relation{RelAssignee, RelTeamManager},
	}
	missionManager = Grant{
		Roles:     []domain.Role{domain.RoleManager},
		Relations: []Relation{RelAssignedManager},
	}
)

// Matrix is the complete policy. Actions missing from it are denied.
var Matrix = map[Action]Rule{
	ActionCreateCompany: {"create company requires an authenticated profile", []Grant{anyone}},
	ActionEditCompany:   {"edit company requires creator or admin", []Grant{creator, admin}},
	ActionDeleteCompany: {"delete company requires creator or admin", []Grant{creator, admin}},

	ActionCreateEvent:    {"create event requires an authenticated profile", []Grant{anyone}},
	ActionEditEvent:      {"edit event requires creator, organizer or admin", []Grant{creator, orgOrAdmin}},
	ActionDeleteEvent:    {"delete event requires creator, organizer or admin", []Grant{creator, orgOrAdmin}},
	ActionSuggestMission: {"suggest mission requires organizer", []Grant{organizer}},

	ActionCreateTeam:    {"create team requires organizer", []Grant{organizer}},
	ActionEditTeam:      {"edit team requires team creator or admin", []Grant{creator, admin}},
	ActionDeleteTeam:    {"delete team requires team creator or admin", []Grant{creator, admin}},
	ActionAddTeamMember: {"add team member requires organizer or admin", []Grant{orgOrAdmin}},

	ActionCreateMission: {"create mission requires organizer", []Grant{organizer}},
	// open to every authenticated profile until product decides otherwise
	ActionEditMission:    {"edit mission is open to any authenticated profile", []Grant{anyone}},
	ActionDeleteMission:  {"delete mission requires organizer or admin", []Grant{orgOrAdmin}},
	ActionSplitMission:   {"split mission requires manager assigned to the mission", []Grant{missionManager}},
	ActionApproveMission: {"approve mission requires manager assigned to the mission", []Grant{missionManager}},

	ActionCreateTask:       {"create task requires organizer", []Grant{organizer}},
	ActionEditTask:         {"edit task requires organizer, or manager who is assignee or team manager", []Grant{organizer, managerOfTask}},
	ActionUpdateTaskStatus: {"update task status requires organizer, assignee, or manager who is team manager", []Grant{organizer, managerOfTask, assignee}},
	ActionDeleteTask:       {"delete task requires organizer, admin, assignee or team manager", []Grant{orgOrAdmin, assignee, teamManager}},

	ActionSetRole:         {"set role requires admin", []Grant{admin}},
	ActionSetAvailability: {"set availability requires self or admin", []Grant{self, admin}},
	ActionViewActivity:    {"view activity requires organizer or admin", []Grant{orgOrAdmin}},
}

// ForbiddenError indicates a policy denial.
type ForbiddenError struct {
	Action Action
	Rule   string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Rule)
}

// Can reports whether profile may perform action on res.
func Can(p domain.Profile, action Action, res Resource) bool {
	rule, ok := Matrix[action]
	if !ok {
		return false
	}
	for _, g := range rule.Grants {
		if g.allows(p, res) {
			return true
		}
	}
	return false
}

// Check returns a ForbiddenError naming the violated rule when Can is false.
func Check(p domain.Profile, action Action, res Resource) error {
	if Can(p, action, res) {
		return nil
	}
	rule, ok := Matrix[action]
	desc := rule.Description
	if !ok {
		desc = fmt.Sprintf("unknown action %s", action)
	}
	return ForbiddenError{Action: action, Rule: desc}
}

func hasRole(roles []domain.Role, r domain.Role) bool {
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}
