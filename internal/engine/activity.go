package engine

import (
	"context"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine/auth"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/repo"
)

// ListActivity returns the newest activity entries. Organizer or admin only.
func (e Engine) ListActivity(ctx context.Context, actorID string, f repo.ActivityFilters) ([]domain.Activity, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := auth.Check(actor, auth.ActionViewActivity, auth.Resource{}); err != nil {
		return nil, err
	}
	return e.Repo.LatestActivity(ctx, f)
}
