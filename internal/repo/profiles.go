package repo

import (
	"context"
	"database/sql"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
)

const profileColumns = `id,username,COALESCE(email,''),role,is_available,current_team,COALESCE(password_hash,''),created_at`

func scanProfile(s scanner) (domain.Profile, error) {
	var p domain.Profile
	var role string
	var team sql.NullString
	err := s.Scan(&p.ID, &p.Username, &p.Email, &role, &p.IsAvailable, &team, &p.PasswordHash, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	p.Role = domain.Role(role)
	p.CurrentTeam = ptrFromNull(team)
	return p, err
}

func (r Repo) InsertProfile(ctx context.Context, p domain.Profile) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO profiles(id,username,email,role,is_available,current_team,password_hash,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		p.ID, p.Username, nullable(p.Email), string(p.Role), p.IsAvailable, nullableStringPtr(p.CurrentTeam), nullable(p.PasswordHash), p.CreatedAt)
	return err
}

func (r Repo) GetProfile(ctx context.Context, id string) (domain.Profile, error) {
	return scanProfile(r.q().QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id=?`, id))
}

func (r Repo) GetProfileByUsername(ctx context.Context, username string) (domain.Profile, error) {
	return scanProfile(r.q().QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE username=?`, username))
}

func (r Repo) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY username`)
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

func (r Repo) UpdateProfileRole(ctx context.Context, id string, role domain.Role) error {
	var u updateSet
	u.set("role", string(role))
	return r.applyUpdate(ctx, "profiles", id, u)
}

// ProfileAvailability carries optional availability changes; an empty CurrentTeam clears it.
type ProfileAvailability struct {
	IsAvailable *bool
	CurrentTeam *string
}

func (r Repo) UpdateProfileAvailability(ctx context.Context, id string, a ProfileAvailability) error {
	var u updateSet
	if a.IsAvailable != nil {
		u.set("is_available", *a.IsAvailable)
	}
	if a.CurrentTeam != nil {
		u.set("current_team", nullable(*a.CurrentTeam))
	}
	return r.applyUpdate(ctx, "profiles", id, u)
}
