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

type TeamCreateOptions struct {
	Name      string
	EventID   string
	ManagerID string
	MemberIDs []string
}

func (e Engine) CreateTeam(ctx context.Context, actorID string, opts TeamCreateOptions) (domain.Team, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return domain.Team{}, err
	}
	if err := auth.Check(actor, auth.ActionCreateTeam, auth.Resource{}); err != nil {
		return domain.Team{}, err
	}
	if strings.TrimSpace(opts.Name) == "" {
		return domain.Team{}, ValidationError{Field: "name", Reason: "is required"}
	}
	if opts.EventID == "" {
		return domain.Team{}, ValidationError{Field: "event_id", Reason: "is required"}
	}
	t := domain.Team{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(opts.Name),
		EventID:   opts.EventID,
		ManagerID: optionalString(opts.ManagerID),
		MemberIDs: dedupe(opts.MemberIDs),
		CreatedBy: &actor.ID,
		CreatedAt: e.timestamp(),
	}
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		if _, err := r.GetEvent(ctx, t.EventID); err != nil {
			return asValidation(err, "event_id", "event does not exist")
		}
		if t.ManagerID != nil {
			if _, err := r.GetProfile(ctx, *t.ManagerID); err != nil {
				return asValidation(err, "manager_id", "profile does not exist")
			}
		}
		for _, id := range t.MemberIDs {
			if _, err := r.GetProfile(ctx, id); err != nil {
				return asValidation(err, "member_ids", "profile "+id+" does not exist")
			}
		}
		if err := r.InsertTeam(ctx, t); err != nil {
			return err
		}
		return e.writer().Record(ctx, tx, activity.TeamCreated, t.ID, actor.ID, activity.Payload{
			"event_id":   t.EventID,
			"manager_id": opts.ManagerID,
			"members":    len(t.MemberIDs),
		})
	})
	if err != nil {
		return domain.Team{}, err
	}
	return t, nil
}

// teamScope returns the visibility filter for the profile. ok is false when nothing is visible.
func teamScope(p domain.Profile) (repo.TeamFilters, bool) {
	switch p.Role {
	case domain.RoleOrganizer, domain.RoleAdmin:
		return repo.TeamFilters{}, true
	case domain.RoleManager:
		return repo.TeamFilters{ManagerID: p.ID}, true
	case domain.RoleStaff:
		return repo.TeamFilters{MemberID: p.ID}, true
	}
	return repo.TeamFilters{}, false
}

func (e Engine) ListTeams(ctx context.Context, actorID, eventID string) ([]domain.Team, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	f, ok := teamScope(actor)
	if !ok {
		return nil, nil
	}
	f.EventID = eventID
	return e.Repo.ListTeams(ctx, f)
}

func (e Engine) GetTeam(ctx context.Context, actorID, id string) (domain.Team, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return domain.Team{}, err
	}
	f, ok := teamScope(actor)
	if !ok {
		return domain.Team{}, ErrNotFound
	}
	f.ID = id
	teams, err := e.Repo.ListTeams(ctx, f)
	if err != nil {
		return domain.Team{}, err
	}
	if len(teams) == 0 {
		return domain.Team{}, ErrNotFound
	}
	return teams[0], nil
}

func (e Engine) UpdateTeam(ctx context.Context, actorID, id string, up repo.TeamUpdate) (domain.Team, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return domain.Team{}, err
	}
	if up.Name != nil && strings.TrimSpace(*up.Name) == "" {
		return domain.Team{}, ValidationError{Field: "name", Reason: "must not be empty"}
	}
	var t domain.Team
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		current, err := r.GetTeam(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.Check(actor, auth.ActionEditTeam, auth.Resource{CreatedBy: deref(current.CreatedBy)}); err != nil {
			return err
		}
		if up.ManagerID != nil && *up.ManagerID != "" {
			if _, err := r.GetProfile(ctx, *up.ManagerID); err != nil {
				return asValidation(err, "manager_id", "profile does not exist")
			}
		}
		if err := r.UpdateTeam(ctx, id, up); err != nil {
			return err
		}
		if t, err = r.GetTeam(ctx, id); err != nil {
			return err
		}
		return e.writer().Record(ctx, tx, activity.TeamUpdated, id, actor.ID, activity.Payload{"manager_id": deref(t.ManagerID)})
	})
	return t, err
}

// DeleteTeam removes a team; its missions and tasks cascade.
func (e Engine) DeleteTeam(ctx context.Context, actorID, id string) error {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return err
	}
	return e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		t, err := r.GetTeam(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.Check(actor, auth.ActionDeleteTeam, auth.Resource{CreatedBy: deref(t.CreatedBy)}); err != nil {
			return err
		}
		if err := r.DeleteTeam(ctx, id); err != nil {
			return err
		}
		return e.writer().Record(ctx, tx, activity.TeamDeleted, id, actor.ID, activity.Payload{"name": t.Name})
	})
}

// AddTeamMember appends a profile to the team's membership order.
func (e Engine) AddTeamMember(ctx context.Context, actorID, teamID, profileID string) (domain.Team, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return domain.Team{}, err
	}
	if err := auth.Check(actor, auth.ActionAddTeamMember, auth.Resource{}); err != nil {
		return domain.Team{}, err
	}
	var t domain.Team
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		if _, err := r.GetTeam(ctx, teamID); err != nil {
			return err
		}
		if _, err := r.GetProfile(ctx, profileID); err != nil {
			return asValidation(err, "profile_id", "profile does not exist")
		}
		if err := r.AddTeamMember(ctx, teamID, profileID); err != nil {
			return err
		}
		var err error
		if t, err = r.GetTeam(ctx, teamID); err != nil {
			return err
		}
		return e.writer().Record(ctx, tx, activity.TeamMemberAdded, teamID, actor.ID, activity.Payload{"profile_id": profileID})
	})
	return t, err
}

// asValidation turns a missing reference into a validation failure; other errors pass through.
func asValidation(err error, field, reason string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ValidationError{Field: field, Reason: reason}
	}
	return err
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
