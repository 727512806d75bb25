package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/activity"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine/auth"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/repo"
)

const defaultDescriptionPrefix = 50

// SplitResult is the mission after a split together with the generated tasks.
type SplitResult struct {
	Mission domain.Mission `json:"mission"`
	Tasks   []domain.Task  `json:"tasks"`
}

// assignedMission loads a mission the caller manages. Missions assigned to
// someone else are reported as missing.
func assignedMission(ctx context.Context, r repo.Repo, actor domain.Profile, id string, action auth.Action) (domain.Mission, error) {
	m, err := r.GetMission(ctx, id)
	if err != nil {
		return m, err
	}
	if deref(m.AssignedManagerID) != actor.ID {
		return m, ErrNotFound
	}
	if err := auth.Check(actor, action, auth.Resource{AssignedManagerID: deref(m.AssignedManagerID)}); err != nil {
		return m, err
	}
	return m, nil
}

// SplitMission creates one AI-generated task per staff member of the mission's
// team, in membership order, and marks the mission split. All or nothing.
func (e Engine) SplitMission(ctx context.Context, actorID, missionID string) (SplitResult, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return SplitResult{}, err
	}
	var res SplitResult
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		m, err := assignedMission(ctx, r, actor, missionID, auth.ActionSplitMission)
		if err != nil {
			return err
		}
		if m.AISplit {
			return ValidationError{Field: "mission", Reason: "mission is already split"}
		}
		members, err := r.ListTeamMembers(ctx, m.TeamID)
		if err != nil {
			return err
		}
		var staff []domain.Profile
		for _, p := range members {
			if p.Role == domain.RoleStaff {
				staff = append(staff, p)
			}
		}
		if len(staff) == 0 {
			return ErrNoEligibleMembers
		}
		now := e.timestamp()
		ids := make([]string, 0, len(staff))
		for i, member := range staff {
			t := domain.Task{
				ID:          uuid.NewString(),
				Title:       fmt.Sprintf("%s - Subtask %d", m.Title, i+1),
				Description: e.subtaskDescription(m.Description, member.Username),
				MissionID:   &m.ID,
				AssigneeID:  &member.ID,
				TeamID:      &m.TeamID,
				EventID:     m.EventID,
				CreatedBy:   &actor.ID,
				Status:      domain.StatusPending,
				AIGenerated: true,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := r.InsertTask(ctx, t); err != nil {
				return fmt.Errorf("insert subtask %d: %w", i+1, err)
			}
			ids = append(ids, t.ID)
			res.Tasks = append(res.Tasks, t)
		}
		split := true
		if err := r.UpdateMission(ctx, m.ID, repo.MissionUpdate{AISplit: &split, UpdatedAt: now}); err != nil {
			return err
		}
		m.AISplit = true
		m.UpdatedAt = now
		res.Mission = m
		return e.writer().Record(ctx, tx, activity.MissionSplit, m.ID, actor.ID, activity.Payload{"task_ids": ids})
	})
	if err != nil {
		return SplitResult{}, err
	}
	e.log().Info("mission split", "mission_id", missionID, "actor_id", actor.ID, "tasks", len(res.Tasks))
	return res, nil
}

// subtaskDescription keeps a fixed-length prefix of the mission description
// and notes who the task is for.
func (e Engine) subtaskDescription(description, username string) string {
	limit := defaultDescriptionPrefix
	if e.Config != nil && e.Config.Split.DescriptionPrefix > 0 {
		limit = e.Config.Split.DescriptionPrefix
	}
	prefix := description
	if utf8.RuneCountInString(description) > limit {
		prefix = string([]rune(description)[:limit]) + "..."
	}
	note := "Assigned to " + username
	if strings.TrimSpace(prefix) == "" {
		return note
	}
	return prefix + " " + note
}

// TaskEdit is one entry of an approval batch. Nil fields are left alone.
// Assignee is matched against profile ids first, then usernames.
type TaskEdit struct {
	TaskID      string  `json:"task_id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Assignee    *string `json:"assignee,omitempty"`
}

// ApproveMission applies edits to the mission's AI-generated tasks and marks
// it approved, in one transaction. Entries for unknown or foreign tasks and
// unresolvable assignees are skipped. Returns the mission's generated tasks.
func (e Engine) ApproveMission(ctx context.Context, actorID, missionID string, edits []TaskEdit) ([]domain.Task, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	var (
		tasks   []domain.Task
		applied int
		skipped int
	)
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		m, err := assignedMission(ctx, r, actor, missionID, auth.ActionApproveMission)
		if err != nil {
			return err
		}
		now := e.timestamp()
		for _, edit := range edits {
			ok, err := applyTaskEdit(ctx, r, m, edit, now)
			if err != nil {
				return err
			}
			if ok {
				applied++
			} else {
				skipped++
			}
		}
		approved := true
		if err := r.UpdateMission(ctx, m.ID, repo.MissionUpdate{IsApproved: &approved, UpdatedAt: now}); err != nil {
			return err
		}
		generated := true
		if tasks, err = r.ListTasks(ctx, repo.TaskFilters{MissionID: m.ID, AIGenerated: &generated}); err != nil {
			return err
		}
		return e.writer().Record(ctx, tx, activity.MissionApproved, m.ID, actor.ID, activity.Payload{
			"applied": applied,
			"skipped": skipped,
		})
	})
	if err != nil {
		return nil, err
	}
	e.log().Info("mission approved", "mission_id", missionID, "actor_id", actor.ID, "applied", applied, "skipped", skipped)
	return tasks, nil
}

// applyTaskEdit reports false when the entry does not target a generated task of m.
func applyTaskEdit(ctx context.Context, r repo.Repo, m domain.Mission, edit TaskEdit, now string) (bool, error) {
	t, err := r.GetTask(ctx, edit.TaskID)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !t.AIGenerated || deref(t.MissionID) != m.ID {
		return false, nil
	}
	up := repo.TaskUpdate{Title: edit.Title, Description: edit.Description, UpdatedAt: now}
	if edit.Assignee != nil {
		id, err := resolveAssignee(ctx, r, *edit.Assignee)
		if err != nil {
			return false, err
		}
		if id != "" {
			up.AssigneeID = &id
		}
	}
	if err := r.UpdateTask(ctx, t.ID, up); err != nil {
		return false, err
	}
	return true, nil
}

// resolveAssignee returns "" when ref names no profile.
func resolveAssignee(ctx context.Context, r repo.Repo, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}
	p, err := r.GetProfile(ctx, ref)
	if err == nil {
		return p.ID, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return "", err
	}
	p, err = r.GetProfileByUsername(ctx, ref)
	if err == nil {
		return p.ID, nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return "", nil
	}
	return "", err
}
