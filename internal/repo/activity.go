package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
)

type ActivityFilters struct {
	Type       string
	EntityKind string
	EntityID   string
	// Before pages backwards from an entry id.
	Before int64
	Limit  int
}

func scanActivity(rows *sql.Rows) ([]domain.Activity, error) {
	defer rows.Close()
	var res []domain.Activity
	for rows.Next() {
		var a domain.Activity
		var entityID, payload sql.NullString
		if err := rows.Scan(&a.ID, &a.TS, &a.Type, &a.EntityKind, &entityID, &a.ActorID, &payload); err != nil {
			return nil, err
		}
		a.EntityID = entityID.String
		a.Payload = payload.String
		res = append(res, a)
	}
	return res, rows.Err()
}

// LatestActivity returns the newest entries first.
func (r Repo) LatestActivity(ctx context.Context, f ActivityFilters) ([]domain.Activity, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	var clauses []string
	var args []any
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.EntityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, f.EntityKind)
	}
	if f.EntityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, f.EntityID)
	}
	if f.Before > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, f.Before)
	}
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,entity_id,actor_id,payload_json FROM activity %s ORDER BY id DESC LIMIT ?`, whereClause(clauses))
	args = append(args, f.Limit)
	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanActivity(rows)
}

// ActivityAfter returns entries with IDs greater than the cursor in ascending order.
func (r Repo) ActivityAfter(ctx context.Context, limit int, cursor int64) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.q().QueryContext(ctx, `SELECT id,ts,type,entity_kind,entity_id,actor_id,payload_json FROM activity WHERE id>? ORDER BY id ASC LIMIT ?`, cursor, limit)
	if err != nil {
		return nil, err
	}
	return scanActivity(rows)
}

// LatestActivityID returns the most recent entry ID, or 0 on an empty log.
func (r Repo) LatestActivityID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.q().QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM activity`).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
