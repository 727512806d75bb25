package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
)

const missionColumns = `id,title,COALESCE(description,''),event_id,team_id,created_by,assigned_manager_id,ai_split,is_approved,status,created_at,updated_at`

func scanMission(s scanner) (domain.Mission, error) {
	var m domain.Mission
	var createdBy, manager sql.NullString
	var status string
	err := s.Scan(&m.ID, &m.Title, &m.Description, &m.EventID, &m.TeamID, &createdBy, &manager,
		&m.AISplit, &m.IsApproved, &status, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	m.CreatedBy = ptrFromNull(createdBy)
	m.AssignedManagerID = ptrFromNull(manager)
	m.Status = domain.Status(status)
	return m, err
}

func (r Repo) InsertMission(ctx context.Context, m domain.Mission) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO missions(id,title,description,event_id,team_id,created_by,assigned_manager_id,ai_split,is_approved,status,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.Title, nullable(m.Description), m.EventID, m.TeamID, nullableStringPtr(m.CreatedBy), nullableStringPtr(m.AssignedManagerID),
		m.AISplit, m.IsApproved, string(m.Status), m.CreatedAt, m.UpdatedAt)
	return err
}

func (r Repo) GetMission(ctx context.Context, id string) (domain.Mission, error) {
	return scanMission(r.q().QueryRowContext(ctx, `SELECT `+missionColumns+` FROM missions WHERE id=?`, id))
}

// MissionFilters narrows mission listings. TeamManagerID and TeamMemberID are visibility scopes.
type MissionFilters struct {
	ID            string
	EventID       string
	TeamID        string
	Status        string
	TeamManagerID string
	TeamMemberID  string
}

func (r Repo) ListMissions(ctx context.Context, f MissionFilters) ([]domain.Mission, error) {
	var clauses []string
	var args []any
	if f.ID != "" {
		clauses = append(clauses, "id=?")
		args = append(args, f.ID)
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
	if f.TeamManagerID != "" {
		clauses = append(clauses, "team_id IN (SELECT id FROM teams WHERE manager_id=?)")
		args = append(args, f.TeamManagerID)
	}
	if f.TeamMemberID != "" {
		clauses = append(clauses, "team_id IN (SELECT team_id FROM team_members WHERE profile_id=?)")
		args = append(args, f.TeamMemberID)
	}
	query := fmt.Sprintf(`SELECT %s FROM missions %s ORDER BY created_at DESC, rowid DESC`, missionColumns, whereClause(clauses))
	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// MissionUpdate holds optional changes; an empty AssignedManagerID clears the assignment.
type MissionUpdate struct {
	Title             *string
	Description       *string
	Status            *domain.Status
	AssignedManagerID *string
	AISplit           *bool
	IsApproved        *bool
	UpdatedAt         string
}

func (r Repo) UpdateMission(ctx context.Context, id string, up MissionUpdate) error {
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
	if up.AssignedManagerID != nil {
		u.set("assigned_manager_id", nullable(*up.AssignedManagerID))
	}
	if up.AISplit != nil {
		u.set("ai_split", *up.AISplit)
	}
	if up.IsApproved != nil {
		u.set("is_approved", *up.IsApproved)
	}
	if len(u.fields) > 0 && up.UpdatedAt != "" {
		u.set("updated_at", up.UpdatedAt)
	}
	return r.applyUpdate(ctx, "missions", id, u)
}

func (r Repo) DeleteMission(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "missions", id)
}
