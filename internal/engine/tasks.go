package engine

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/activity"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine/auth"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/repo"
)

// TaskCreateOptions are parameters for creating a task. When MissionID is set,
// team and event come from the mission and any explicit values must match it.
type TaskCreateOptions struct {
	Title       string
	Description string
	MissionID   string
	TeamID      string
	EventID     string
	AssigneeID  string
	Status      string
}

func (e Engine) CreateTask(ctx context.Context, actorID string, opts TaskCreateOptions) (domain.Task, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := auth.Check(actor, auth.ActionCreateTask, auth.Resource{}); err != nil {
		return domain.Task{}, err
	}
	if strings.TrimSpace(opts.Title) == "" {
		return domain.Task{}, ValidationError{Field: "title", Reason: "is required"}
	}
	status := domain.StatusPending
	if opts.Status != "" {
		var ok bool
		if status, ok = domain.ParseStatus(opts.Status); !ok {
			return domain.Task{}, ValidationError{Field: "status", Reason: "must be one of pending, in_progress, done, blocked"}
		}
	}
	now := e.timestamp()
	t := domain.Task{
		ID:          uuid.NewString(),
		Title:       opts.Title,
		Description: opts.Description,
		MissionID:   optionalString(opts.MissionID),
		AssigneeID:  optionalString(opts.AssigneeID),
		TeamID:      optionalString(opts.TeamID),
		EventID:     opts.EventID,
		CreatedBy:   &actor.ID,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		if err := resolveTaskAggregate(ctx, r, &t); err != nil {
			return err
		}
		if t.AssigneeID != nil {
			if _, err := r.GetProfile(ctx, *t.AssigneeID); err != nil {
				return asValidation(err, "assignee_id", "profile does not exist")
			}
		}
		if err := r.InsertTask(ctx, t); err != nil {
			return err
		}
		return e.writer().Record(ctx, tx, activity.TaskCreated, t.ID, actor.ID, activity.Payload{
			"mission_id":  deref(t.MissionID),
			"assignee_id": deref(t.AssigneeID),
		})
	})
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// resolveTaskAggregate fills team and event from the mission and rejects mismatches.
func resolveTaskAggregate(ctx context.Context, r repo.Repo, t *domain.Task) error {
	if t.MissionID != nil {
		m, err := r.GetMission(ctx, *t.MissionID)
		if err != nil {
			return asValidation(err, "mission_id", "mission does not exist")
		}
		if t.TeamID != nil && *t.TeamID != m.TeamID {
			return ValidationError{Field: "team_id", Reason: "does not match the mission's team"}
		}
		if t.EventID != "" && t.EventID != m.EventID {
			return ValidationError{Field: "event_id", Reason: "does not match the mission's event"}
		}
		t.TeamID = &m.TeamID
		t.EventID = m.EventID
		return nil
	}
	if t.TeamID != nil {
		team, err := r.GetTeam(ctx, *t.TeamID)
		if err != nil {
			return asValidation(err, "team_id", "team does not exist")
		}
		if t.EventID != "" && t.EventID != team.EventID {
			return ValidationError{Field: "event_id", Reason: "does not match the team's event"}
		}
		t.EventID = team.EventID
		return nil
	}
	if t.EventID == "" {
		return ValidationError{Field: "event_id", Reason: "is required without mission or team"}
	}
	if _, err := r.GetEvent(ctx, t.EventID); err != nil {
		return asValidation(err, "event_id", "event does not exist")
	}
	return nil
}

// taskScope returns the visibility filter for the profile.
func taskScope(p domain.Profile) repo.TaskFilters {
	switch p.Role {
	case domain.RoleOrganizer:
		return repo.TaskFilters{}
	case domain.RoleManager:
		return repo.TaskFilters{AssigneeOrTeamManagerID: p.ID}
	}
	return repo.TaskFilters{AssigneeID: p.ID}
}

type TaskQuery struct {
	MissionID string
	EventID   string
	TeamID    string
	Status    string
}

func (e Engine) ListTasks(ctx context.Context, actorID string, q TaskQuery) ([]domain.Task, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	f := taskScope(actor)
	f.MissionID, f.EventID, f.TeamID, f.Status = q.MissionID, q.EventID, q.TeamID, q.Status
	return e.Repo.ListTasks(ctx, f)
}

func (e Engine) GetTask(ctx context.Context, actorID, id string) (domain.Task, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return domain.Task{}, err
	}
	f := taskScope(actor)
	f.ID = id
	tasks, err := e.Repo.ListTasks(ctx, f)
	if err != nil {
		return domain.Task{}, err
	}
	if len(tasks) == 0 {
		return domain.Task{}, ErrNotFound
	}
	return tasks[0], nil
}

// TaskUpdateOptions holds optional changes. An empty AssigneeID unassigns.
type TaskUpdateOptions struct {
	Title       *string
	Description *string
	Status      *string
	AssigneeID  *string
}

func (o TaskUpdateOptions) statusOnly() bool {
	return o.Status != nil && o.Title == nil && o.Description == nil && o.AssigneeID == nil
}

func (e Engine) UpdateTask(ctx context.Context, actorID, id string, opts TaskUpdateOptions) (domain.Task, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return domain.Task{}, err
	}
	if opts.Title != nil && strings.TrimSpace(*opts.Title) == "" {
		return domain.Task{}, ValidationError{Field: "title", Reason: "must not be empty"}
	}
	action := auth.ActionEditTask
	if opts.statusOnly() {
		action = auth.ActionUpdateTaskStatus
	}
	var t domain.Task
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		current, err := r.GetTask(ctx, id)
		if err != nil {
			return err
		}
		res, err := taskResource(ctx, r, current)
		if err != nil {
			return err
		}
		if err := auth.Check(actor, action, res); err != nil {
			return err
		}
		up := repo.TaskUpdate{Title: opts.Title, Description: opts.Description, UpdatedAt: e.timestamp()}
		if opts.Status != nil {
			next, ok := domain.ParseStatus(*opts.Status)
			if !ok {
				return ValidationError{Field: "status", Reason: "must be one of pending, in_progress, done, blocked"}
			}
			up.Status = &next
		}
		if opts.AssigneeID != nil {
			if *opts.AssigneeID != "" {
				if _, err := r.GetProfile(ctx, *opts.AssigneeID); err != nil {
					return asValidation(err, "assignee_id", "profile does not exist")
				}
			}
			up.AssigneeID = opts.AssigneeID
		}
		if err := r.UpdateTask(ctx, id, up); err != nil {
			return err
		}
		if t, err = r.GetTask(ctx, id); err != nil {
			return err
		}
		return e.writer().Record(ctx, tx, activity.TaskUpdated, id, actor.ID, activity.Payload{
			"from_status": current.Status,
			"to_status":   t.Status,
		})
	})
	return t, err
}

func (e Engine) DeleteTask(ctx context.Context, actorID, id string) error {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return err
	}
	return e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		t, err := r.GetTask(ctx, id)
		if err != nil {
			return err
		}
		res, err := taskResource(ctx, r, t)
		if err != nil {
			return err
		}
		if err := auth.Check(actor, auth.ActionDeleteTask, res); err != nil {
			return err
		}
		if err := r.DeleteTask(ctx, id); err != nil {
			return err
		}
		return e.writer().Record(ctx, tx, activity.TaskDeleted, id, actor.ID, activity.Payload{"title": t.Title})
	})
}

func taskResource(ctx context.Context, r repo.Repo, t domain.Task) (auth.Resource, error) {
	res := auth.Resource{CreatedBy: deref(t.CreatedBy), AssigneeID: deref(t.AssigneeID)}
	if t.TeamID == nil {
		return res, nil
	}
	team, err := r.GetTeam(ctx, *t.TeamID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return res, err
	}
	res.TeamManagerID = deref(team.ManagerID)
	return res, nil
}
