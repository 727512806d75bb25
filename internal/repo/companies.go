package repo

import (
	"context"
	"database/sql"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
)

func scanCompany(s scanner) (domain.Company, error) {
	var c domain.Company
	var createdBy sql.NullString
	err := s.Scan(&c.ID, &c.Name, &createdBy, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	c.CreatedBy = ptrFromNull(createdBy)
	return c, err
}

func (r Repo) InsertCompany(ctx context.Context, c domain.Company) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO companies(id,name,created_by,created_at) VALUES (?,?,?,?)`,
		c.ID, c.Name, nullableStringPtr(c.CreatedBy), c.CreatedAt)
	return err
}

func (r Repo) GetCompany(ctx context.Context, id string) (domain.Company, error) {
	return scanCompany(r.q().QueryRowContext(ctx, `SELECT id,name,created_by,created_at FROM companies WHERE id=?`, id))
}

func (r Repo) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT id,name,created_by,created_at FROM companies ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) UpdateCompanyName(ctx context.Context, id, name string) error {
	var u updateSet
	u.set("name", name)
	return r.applyUpdate(ctx, "companies", id, u)
}

// DeleteCompany removes the company; its events and everything under them cascade.
func (r Repo) DeleteCompany(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "companies", id)
}
