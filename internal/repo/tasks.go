package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
)

const taskColumns = `id,title,COALESCE(description,''),mission_id,assignee_id,team_id,event_id,created_by,status,ai_generated,created_at,updated_at`

func scanTask(s scanner) (domain.Task, error) {
	var t domain.Task
	var mission, assignee, team, createdBy sql.NullString
	var status string
	err := s.Scan(&t.ID, &t.Title, &t.Description, &mission, &assignee, &team, &t.EventID, &createdBy,
		&status, &t.AIGenerated, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	t.MissionID = ptrFromNull(mission)
	t.AssigneeID = ptrFromNull(assignee)
	t.TeamID = ptrFromNull(team)
	t.CreatedBy = ptrFromNull(createdBy)
	t.Status = domain.Status(status)
	return t, err
}

func (r Repo) InsertTask(ctx context.Context, t domain.Task) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO tasks(id,title,description,mission_id,assignee_id,team_id,event_id,created_by,status,ai_generated,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Title, nullable(t.Description), nullableStringPtr(t.MissionID), nullableStringPtr(t.AssigneeID), nullableStringPtr(t.TeamID),
		t.EventID, nullableStringPtr(t.CreatedBy), string(t.Status), t.AIGenerated, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return scanTask(r.q().QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
}

// TaskFilters narrows task listings. AssigneeOrTeamManagerID is the manager visibility scope.
type TaskFilters struct {
	ID                      string
	MissionID               string
	EventID                 string
	TeamID                  string
	Status                  string
	AssigneeID              string
	AssigneeOrTeamManagerID string
	AIGenerated             *bool
	Limit                   int
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.ID != "" {
		clauses = append(clauses, "id=?")
		args = append(args, f.ID)
	}
	if f.MissionID != "" {
		clauses = append(clauses, "mission_id=?")
		args = append(args, f.MissionID)
	}
	if f.EventID != "" {
		clauses = append(clauses, "event_id=?")
		args = append(args, f.EventID)
	}
	if f.TeamID != "" {
		clauses = append(clauses, "team_id=?")
		args = append(args, f.TeamID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.AssigneeID != "" {
		clauses = append(clauses, "assignee_id=?")
		args = append(args, f.AssigneeID)
	}
	if f.AssigneeOrTeamManagerID != "" {
		clauses = append(clauses, "(assignee_id=? OR team_id IN (SELECT id FROM teams WHERE manager_id=?))")
		args = append(args, f.AssigneeOrTeamManagerID, f.AssigneeOrTeamManagerID)
	}
	if f.AIGenerated != nil {
		clauses = append(clauses, "ai_generated=?")
		args = append(args, *f.AIGenerated)
	}
	query := fmt.Sprintf(`SELECT %s FROM tasks %s ORDER BY rowid`, taskColumns, whereClause(clauses))
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// TaskUpdate holds optional changes; an empty AssigneeID clears the assignee.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *domain.Status
	AssigneeID  *string
	UpdatedAt   string
}

func (r Repo) UpdateTask(ctx context.Context, id string, up TaskUpdate) error {
	var u updateSet
	if up.Title != nil {
		u.set("title", *up.Title)
	}
	if up.Description != nil {
		u.set("description", nullable(*up.Description))
	}
	if up.Status != nil {
		u.set("status", string(*up.Status))
	}
	if up.AssigneeID != nil {
		u.set("assignee_id", nullable(*up.AssigneeID))
	}
	if len(u.fields) > 0 && up.UpdatedAt != "" {
		u.set("updated_at", up.UpdatedAt)
	}
	return r.applyUpdate(ctx, "tasks", id, u)
}

func (r Repo) DeleteTask(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "tasks", id)
}
