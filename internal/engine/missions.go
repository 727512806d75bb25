package engine

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/activity"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine/auth"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/repo"
)

// MissionCreateOptions are parameters for creating a mission. An empty
// AssignedManagerID defaults to the team's manager.
type MissionCreateOptions struct {
	Title             string
	Description       string
	EventID           string
	TeamID            string
	AssignedManagerID string
	Status            string
}

func (e Engine) CreateMission(ctx context.Context, actorID string, opts MissionCreateOptions) (domain.Mission, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return domain.Mission{}, err
	}
	if err := auth.Check(actor, auth.ActionCreateMission, auth.Resource{}); err != nil {
		return domain.Mission{}, err
	}
	if strings.TrimSpace(opts.Title) == "" {
		return domain.Mission{}, ValidationError{Field: "title", Reason: "is required"}
	}
	if opts.EventID == "" {
		return domain.Mission{}, ValidationError{Field: "event_id", Reason: "is required"}
	}
	if opts.TeamID == "" {
		return domain.Mission{}, ValidationError{Field: "team_id", Reason: "is required"}
	}
	status := domain.StatusPending
	if opts.Status != "" {
		var ok bool
		if status, ok = domain.ParseStatus(opts.Status); !ok {
			return domain.Mission{}, ValidationError{Field: "status", Reason: "must be one of pending, in_progress, done, blocked"}
		}
	}
	now := e.timestamp()
	m := domain.Mission{
		ID:          uuid.NewString(),
		Title:       opts.Title,
		Description: opts.Description,
		EventID:     opts.EventID,
		TeamID:      opts.TeamID,
		CreatedBy:   &actor.ID,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		if _, err := r.GetEvent(ctx, m.EventID); err != nil {
			return asValidation(err, "event_id", "event does not exist")
		}
		team, err := r.GetTeam(ctx, m.TeamID)
		if err != nil {
			return asValidation(err, "team_id", "team does not exist")
		}
		if team.EventID != m.EventID {
			return ValidationError{Field: "team_id", Reason: "team belongs to a different event"}
		}
		if opts.AssignedManagerID != "" {
			if _, err := r.GetProfile(ctx, opts.AssignedManagerID); err != nil {
				return asValidation(err, "assigned_manager_id", "profile does not exist")
			}
			m.AssignedManagerID = optionalString(opts.AssignedManagerID)
		} else {
			m.AssignedManagerID = team.ManagerID
		}
		return e.insertMission(ctx, tx, r, m, actor.ID, activity.MissionCreated)
	})
	if err != nil {
		return domain.Mission{}, err
	}
	return m, nil
}

func (e Engine) insertMission(ctx context.Context, tx *sql.Tx, r repo.Repo, m domain.Mission, actorID string, entryType activity.Type) error {
	if err := r.InsertMission(ctx, m); err != nil {
		return err
	}
	return e.writer().Record(ctx, tx, entryType, m.ID, actorID, activity.Payload{
		"event_id":            m.EventID,
		"team_id":             m.TeamID,
		"assigned_manager_id": deref(m.AssignedManagerID),
	})
}

// missionScope returns the visibility filter for the profile. ok is false when nothing is visible.
func missionScope(p domain.Profile) (repo.MissionFilters, bool) {
	switch p.Role {
	case domain.RoleOrganizer:
		return repo.MissionFilters{}, true
	case domain.RoleManager:
		return repo.MissionFilters{TeamManagerID: p.ID}, true
	case domain.RoleStaff:
		return repo.MissionFilters{TeamMemberID: p.ID}, true
	}
	return repo.MissionFilters{}, false
}

// MissionQuery holds caller-supplied filters; visibility is applied on top.
type MissionQuery struct {
	EventID string
	TeamID  string
	Status  string
}

func (e Engine) ListMissions(ctx context.Context, actorID string, q MissionQuery) ([]domain.Mission, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	f, ok := missionScope(actor)
	if !ok {
		return nil, nil
	}
	f.EventID, f.TeamID, f.Status = q.EventID, q.TeamID, q.Status
	return e.Repo.ListMissions(ctx, f)
}

// GetMission returns the mission when it is visible to the caller.
func (e Engine) GetMission(ctx context.Context, actorID, id string) (domain.Mission, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return domain.Mission{}, err
	}
	f, ok := missionScope(actor)
	if !ok {
		return domain.Mission{}, ErrNotFound
	}
	f.ID = id
	missions, err := e.Repo.ListMissions(ctx, f)
	if err != nil {
		return domain.Mission{}, err
	}
	if len(missions) == 0 {
		return domain.Mission{}, ErrNotFound
	}
	return missions[0], nil
}

type MissionUpdateOptions struct {
	Title             *string
	Description       *string
	Status            *string
	AssignedManagerID *string
}

// UpdateMission edits mission fields. Status moves freely between the four values.
func (e Engine) UpdateMission(ctx context.Context, actorID, id string, opts MissionUpdateOptions) (domain.Mission, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return domain.Mission{}, err
	}
	up := repo.MissionUpdate{
		Title:             opts.Title,
		Description:       opts.Description,
		AssignedManagerID: opts.AssignedManagerID,
		UpdatedAt:         e.timestamp(),
	}
	if opts.Title != nil && strings.TrimSpace(*opts.Title) == "" {
		return domain.Mission{}, ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if opts.Status != nil {
		st, ok := domain.ParseStatus(*opts.Status)
		if !ok {
			return domain.Mission{}, ValidationError{Field: "status", Reason: "must be one of pending, in_progress, done, blocked"}
		}
		up.Status = &st
	}
	var m domain.Mission
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		current, err := r.GetMission(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.Check(actor, auth.ActionEditMission, auth.Resource{CreatedBy: deref(current.CreatedBy)}); err != nil {
			return err
		}
		if opts.AssignedManagerID != nil && *opts.AssignedManagerID != "" {
			if _, err := r.GetProfile(ctx, *opts.AssignedManagerID); err != nil {
				return asValidation(err, "assigned_manager_id", "profile does not exist")
			}
		}
		if err := r.UpdateMission(ctx, id, up); err != nil {
			return err
		}
		if m, err = r.GetMission(ctx, id); err != nil {
			return err
		}
		return e.writer().Record(ctx, tx, activity.MissionUpdated, id, actor.ID, activity.Payload{
			"from_status": current.Status,
			"to_status":   m.Status,
		})
	})
	return m, err
}

// DeleteMission removes a mission and its tasks.
func (e Engine) DeleteMission(ctx context.Context, actorID, id string) error {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return err
	}
	if err := auth.Check(actor, auth.ActionDeleteMission, auth.Resource{}); err != nil {
		return err
	}
	return e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		m, err := r.GetMission(ctx, id)
		if err != nil {
			return err
		}
		if err := r.DeleteMission(ctx, id); err != nil {
			return err
		}
		return e.writer().Record(ctx, tx, activity.MissionDeleted, id, actor.ID, activity.Payload{"title": m.Title})
	})
}
