package engine

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/activity"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine/advisor"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine/auth"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/repo"
)

// SuggestMission asks the advisor for one mission for the event and stores it
// against the event's first team and that team's manager. The generator is
// called once; nothing is written unless its answer parses.
func (e Engine) SuggestMission(ctx context.Context, actorID, eventID string) (domain.Mission, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return domain.Mission{}, err
	}
	if err := auth.Check(actor, auth.ActionSuggestMission, auth.Resource{}); err != nil {
		return domain.Mission{}, err
	}
	ev, err := e.Repo.GetEvent(ctx, eventID)
	if err != nil {
		return domain.Mission{}, err
	}
	team, err := e.Repo.FirstTeamForEvent(ctx, eventID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Mission{}, ErrNoTeamForEvent
	}
	if err != nil {
		return domain.Mission{}, err
	}
	if team.ManagerID == nil {
		return domain.Mission{}, ErrNoManagerAssigned
	}
	members, err := e.Repo.EventMemberUsernames(ctx, eventID)
	if err != nil {
		return domain.Mission{}, err
	}

	prompt := advisor.BuildPrompt(advisor.EventContext{
		Title:       ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Date:        ev.Date,
		Members:     members,
	})
	suggestion, err := e.generateSuggestion(ctx, prompt)
	if err != nil {
		return domain.Mission{}, err
	}

	now := e.timestamp()
	m := domain.Mission{
		ID:                uuid.NewString(),
		Title:             suggestion.Title,
		Description:       suggestion.Description,
		EventID:           ev.ID,
		TeamID:            team.ID,
		CreatedBy:         &actor.ID,
		AssignedManagerID: team.ManagerID,
		Status:            domain.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		return e.insertMission(ctx, tx, r, m, actor.ID, activity.MissionSuggested)
	})
	if err != nil {
		return domain.Mission{}, err
	}
	e.log().Info("mission suggested", "mission_id", m.ID, "event_id", ev.ID, "actor_id", actor.ID)
	return m, nil
}

func (e Engine) generateSuggestion(ctx context.Context, prompt string) (advisor.Suggestion, error) {
	adv := e.Advisor
	if adv == nil {
		adv = advisor.Disabled{}
	}
	callCtx, cancel := context.WithTimeout(ctx, e.Config.AdvisorTimeout())
	defer cancel()
	raw, err := adv.Generate(callCtx, prompt)
	if err != nil {
		e.log().Warn("advisor call failed", "error", err)
		return advisor.Suggestion{}, AIResponseError{Raw: raw, Err: err}
	}
	s, err := advisor.ParseSuggestion(raw)
	if err != nil {
		e.log().Warn("advisor response unusable", "error", err, "raw_len", len(raw))
		return advisor.Suggestion{}, AIResponseError{Raw: raw, Err: err}
	}
	return s, nil
}
