package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
)

const teamColumns = `id,name,event_id,manager_id,created_by,created_at`

func scanTeam(s scanner) (domain.Team, error) {
	var t domain.Team
	var manager, createdBy sql.NullString
	err := s.Scan(&t.ID, &t.Name, &t.EventID, &manager, &createdBy, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	t.ManagerID = ptrFromNull(manager)
	t.CreatedBy = ptrFromNull(createdBy)
	return t, err
}

func (r Repo) InsertTeam(ctx context.Context, t domain.Team) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO teams(id,name,event_id,manager_id,created_by,created_at) VALUES (?,?,?,?,?,?)`,
		t.ID, t.Name, t.EventID, nullableStringPtr(t.ManagerID), nullableStringPtr(t.CreatedBy), t.CreatedAt)
	if err != nil {
		return err
	}
	for _, memberID := range t.MemberIDs {
		if err := r.AddTeamMember(ctx, t.ID, memberID); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) GetTeam(ctx context.Context, id string) (domain.Team, error) {
	t, err := scanTeam(r.q().QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id=?`, id))
	if err != nil {
		return t, err
	}
	t.MemberIDs, err = r.teamMemberIDs(ctx, t.ID)
	return t, err
}

// FirstTeamForEvent returns the earliest created team of the event.
func (r Repo) FirstTeamForEvent(ctx context.Context, eventID string) (domain.Team, error) {
	t, err := scanTeam(r.q().QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE event_id=? ORDER BY rowid LIMIT 1`, eventID))
	if err != nil {
		return t, err
	}
	t.MemberIDs, err = r.teamMemberIDs(ctx, t.ID)
	return t, err
}

// TeamFilters narrows team listings. ManagerID and MemberID are visibility scopes.
type TeamFilters struct {
	ID        string
	EventID   string
	ManagerID string
	MemberID  string
}

func (r Repo) ListTeams(ctx context.Context, f TeamFilters) ([]domain.Team, error) {
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
	if f.ManagerID != "" {
		clauses = append(clauses, "manager_id=?")
		args = append(args, f.ManagerID)
	}
	if f.MemberID != "" {
		clauses = append(clauses, "id IN (SELECT team_id FROM team_members WHERE profile_id=?)")
		args = append(args, f.MemberID)
	}
	query := fmt.Sprintf(`SELECT %s FROM teams %s ORDER BY rowid`, teamColumns, whereClause(clauses))
	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var res []domain.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		res = append(res, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	// members load after the cursor closes; the pool holds a single connection
	for i := range res {
		if res[i].MemberIDs, err = r.teamMemberIDs(ctx, res[i].ID); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// TeamUpdate holds optional changes; an empty ManagerID clears the manager.
type TeamUpdate struct {
	Name      *string
	ManagerID *string
}

func (r Repo) UpdateTeam(ctx context.Context, id string, up TeamUpdate) error {
	var u updateSet
	if up.Name != nil {
		u.set("name", *up.Name)
	}
	if up.ManagerID != nil {
		u.set("manager_id", nullable(*up.ManagerID))
	}
	return r.applyUpdate(ctx, "teams", id, u)
}

func (r Repo) DeleteTeam(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "teams", id)
}

// AddTeamMember appends a member at the end of the membership order. Re-adding is a no-op.
func (r Repo) AddTeamMember(ctx context.Context, teamID, profileID string) error {
	_, err := r.q().ExecContext(ctx, `
INSERT OR IGNORE INTO team_members(team_id, profile_id, position)
SELECT ?, ?, COALESCE(MAX(position), 0) + 1 FROM team_members WHERE team_id=?`, teamID, profileID, teamID)
	return err
}

func (r Repo) teamMemberIDs(ctx context.Context, teamID string) ([]string, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT profile_id FROM team_members WHERE team_id=? ORDER BY position`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListTeamMembers returns member profiles in membership order.
func (r Repo) ListTeamMembers(ctx context.Context, teamID string) ([]domain.Profile, error) {
	rows, err := r.q().QueryContext(ctx, `
SELECT p.id,p.username,COALESCE(p.email,''),p.role,p.is_available,p.current_team,COALESCE(p.password_hash,''),p.created_at
FROM team_members tm JOIN profiles p ON p.id=tm.profile_id
WHERE tm.team_id=? ORDER BY tm.position`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// EventMemberUsernames lists the distinct usernames of members across all teams of an event.
func (r Repo) EventMemberUsernames(ctx context.Context, eventID string) ([]string, error) {
	rows, err := r.q().QueryContext(ctx, `
SELECT p.username FROM teams t
JOIN team_members tm ON tm.team_id=t.id
JOIN profiles p ON p.id=tm.profile_id
WHERE t.event_id=?
GROUP BY p.username
ORDER BY MIN(t.rowid), MIN(tm.position)`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		res = append(res, name)
	}
	return res, rows.Err()
}
