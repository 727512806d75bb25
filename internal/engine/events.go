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

type EventCreateOptions struct {
	Title       string
	Location    string
	Description string
	Date        string
	Status      string
	CompanyID   string
}

func (e Engine) CreateEvent(ctx context.Context, actorID string, opts EventCreateOptions) (domain.Event, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return domain.Event{}, err
	}
	if err := auth.Check(actor, auth.ActionCreateEvent, auth.Resource{}); err != nil {
		return domain.Event{}, err
	}
	if strings.TrimSpace(opts.Title) == "" {
		return domain.Event{}, ValidationError{Field: "title", Reason: "is required"}
	}
	if opts.Status == "" {
		opts.Status = "pending"
	}
	ev := domain.Event{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(opts.Title),
		Location:    opts.Location,
		Description: opts.Description,
		Date:        opts.Date,
		Status:      opts.Status,
		CompanyID:   optionalString(opts.CompanyID),
		CreatedBy:   &actor.ID,
		CreatedAt:   e.timestamp(),
	}
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		if ev.CompanyID != nil {
			if _, err := r.GetCompany(ctx, *ev.CompanyID); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return ValidationError{Field: "company_id", Reason: "company does not exist"}
				}
				return err
			}
		}
		if err := r.InsertEvent(ctx, ev); err != nil {
			return err
		}
		return e.writer().Record(ctx, tx, activity.EventCreated, ev.ID, actor.ID, activity.Payload{"title": ev.Title, "company_id": opts.CompanyID})
	})
	if err != nil {
		return domain.Event{}, err
	}
	return ev, nil
}

func (e Engine) GetEvent(ctx context.Context, actorID, id string) (domain.Event, error) {
	if _, err := e.ResolveProfile(ctx, actorID); err != nil {
		return domain.Event{}, err
	}
	return e.Repo.GetEvent(ctx, id)
}

func (e Engine) ListEvents(ctx context.Context, actorID string, f repo.EventFilters) ([]domain.Event, error) {
	if _, err := e.ResolveProfile(ctx, actorID); err != nil {
		return nil, err
	}
	return e.Repo.ListEvents(ctx, f)
}

func (e Engine) UpdateEvent(ctx context.Context, actorID, id string, up repo.EventUpdate) (domain.Event, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return domain.Event{}, err
	}
	if up.Title != nil && strings.TrimSpace(*up.Title) == "" {
		return domain.Event{}, ValidationError{Field: "title", Reason: "must not be empty"}
	}
	var ev domain.Event
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		current, err := r.GetEvent(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.Check(actor, auth.ActionEditEvent, auth.Resource{CreatedBy: deref(current.CreatedBy)}); err != nil {
			return err
		}
		if up.CompanyID != nil && *up.CompanyID != "" {
			if _, err := r.GetCompany(ctx, *up.CompanyID); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return ValidationError{Field: "company_id", Reason: "company does not exist"}
				}
				return err
			}
		}
		if err := r.UpdateEvent(ctx, id, up); err != nil {
			return err
		}
		if ev, err = r.GetEvent(ctx, id); err != nil {
			return err
		}
		return e.writer().Record(ctx, tx, activity.EventUpdated, id, actor.ID, activity.Payload{"status": ev.Status})
	})
	return ev, err
}

// DeleteEvent removes an event; its teams, missions and tasks cascade.
func (e Engine) DeleteEvent(ctx context.Context, actorID, id string) error {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return err
	}
	return e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		ev, err := r.GetEvent(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.Check(actor, auth.ActionDeleteEvent, auth.Resource{CreatedBy: deref(ev.CreatedBy)}); err != nil {
			return err
		}
		if err := r.DeleteEvent(ctx, id); err != nil {
			return err
		}
		return e.writer().Record(ctx, tx, activity.EventDeleted, id, actor.ID, activity.Payload{"title": ev.Title})
	})
}
