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

func (e Engine) CreateCompany(ctx context.Context, actorID, name string) (domain.Company, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return domain.Company{}, err
	}
	if err := auth.Check(actor, auth.ActionCreateCompany, auth.Resource{}); err != nil {
		return domain.Company{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Company{}, ValidationError{Field: "name", Reason: "is required"}
	}
	c := domain.Company{ID: uuid.NewString(), Name: name, CreatedBy: &actor.ID, CreatedAt: e.timestamp()}
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		if err := r.InsertCompany(ctx, c); err != nil {
			if repo.IsUniqueViolation(err) {
				return ValidationError{Field: "name", Reason: "company already exists"}
			}
			return err
		}
		return e.writer().Record(ctx, tx, activity.CompanyCreated, c.ID, actor.ID, activity.Payload{"name": c.Name})
	})
	if err != nil {
		return domain.Company{}, err
	}
	return c, nil
}

func (e Engine) GetCompany(ctx context.Context, actorID, id string) (domain.Company, error) {
	if _, err := e.ResolveProfile(ctx, actorID); err != nil {
		return domain.Company{}, err
	}
	return e.Repo.GetCompany(ctx, id)
}

func (e Engine) ListCompanies(ctx context.Context, actorID string) ([]domain.Company, error) {
	if _, err := e.ResolveProfile(ctx, actorID); err != nil {
		return nil, err
	}
	return e.Repo.ListCompanies(ctx)
}

func (e Engine) RenameCompany(ctx context.Context, actorID, id, name string) (domain.Company, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return domain.Company{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Company{}, ValidationError{Field: "name", Reason: "is required"}
	}
	var c domain.Company
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		var err error
		if c, err = r.GetCompany(ctx, id); err != nil {
			return err
		}
		if err := auth.Check(actor, auth.ActionEditCompany, auth.Resource{CreatedBy: deref(c.CreatedBy)}); err != nil {
			return err
		}
		if err := r.UpdateCompanyName(ctx, id, name); err != nil {
			if repo.IsUniqueViolation(err) {
				return ValidationError{Field: "name", Reason: "company already exists"}
			}
			return err
		}
		c.Name = name
		return e.writer().Record(ctx, tx, activity.CompanyUpdated, id, actor.ID, activity.Payload{"name": name})
	})
	return c, err
}

// DeleteCompany removes a company together with its events and everything under them.
func (e Engine) DeleteCompany(ctx context.Context, actorID, id string) error {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return err
	}
	return e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		c, err := r.GetCompany(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.Check(actor, auth.ActionDeleteCompany, auth.Resource{CreatedBy: deref(c.CreatedBy)}); err != nil {
			return err
		}
		if err := r.DeleteCompany(ctx, id); err != nil {
			return err
		}
		return e.writer().Record(ctx, tx, activity.CompanyDeleted, id, actor.ID, activity.Payload{"name": c.Name})
	})
}
