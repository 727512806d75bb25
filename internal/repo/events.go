package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
)

const eventColumns = `id,title,COALESCE(location,''),COALESCE(description,''),COALESCE(date,''),status,company_id,created_by,created_at`

func scanEvent(s scanner) (domain.Event, error) {
	var e domain.Event
	var company, createdBy sql.NullString
	err := s.Scan(&e.ID, &e.Title, &e.Location, &e.Description, &e.Date, &e.Status, &company, &createdBy, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	e.CompanyID = ptrFromNull(company)
	e.CreatedBy = ptrFromNull(createdBy)
	return e, err
}

func (r Repo) InsertEvent(ctx context.Context, e domain.Event) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO events(id,title,location,description,date,status,company_id,created_by,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		e.ID, e.Title, nullable(e.Location), nullable(e.Description), nullable(e.Date), e.Status,
		nullableStringPtr(e.CompanyID), nullableStringPtr(e.CreatedBy), e.CreatedAt)
	return err
}

func (r Repo) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	return scanEvent(r.q().QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id=?`, id))
}

type EventFilters struct {
	CompanyID string
	Status    string
}

func (r Repo) ListEvents(ctx context.Context, f EventFilters) ([]domain.Event, error) {
	var clauses []string
	var args []any
	if f.CompanyID != "" {
		clauses = append(clauses, "company_id=?")
		args = append(args, f.CompanyID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	query := fmt.Sprintf(`SELECT %s FROM events %s ORDER BY created_at DESC, id`, eventColumns, whereClause(clauses))
	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// EventUpdate holds optional field changes; an empty CompanyID detaches the event.
type EventUpdate struct {
	Title       *string
	Location    *string
	Description *string
	Date        *string
	Status      *string
	CompanyID   *string
}

func (r Repo) UpdateEvent(ctx context.Context, id string, up EventUpdate) error {
	var u updateSet
	if up.Title != nil {
		u.set("title", *up.Title)
	}
	if up.Location != nil {
		u.set("location", nullable(*up.Location))
	}
	if up.Description != nil {
		u.set("description", nullable(*up.Description))
	}
	if up.Date != nil {
		u.set("date", nullable(*up.Date))
	}
	if up.Status != nil {
		u.set("status", *up.Status)
	}
	if up.CompanyID != nil {
		u.set("company_id", nullable(*up.CompanyID))
	}
	return r.applyUpdate(ctx, "events", id, u)
}

func (r Repo) DeleteEvent(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "events", id)
}
