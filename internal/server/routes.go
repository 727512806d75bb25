package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/repo"
)

func registerCompanies(api huma.API, h handlers) {
	e := h.engine
	huma.Register(api, huma.Operation{
		OperationID:   "create-company",
		Method:        http.MethodPost,
		Path:          "/companies",
		Summary:       "Create company",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body CompanyRequest
	}) (*output[domain.Company], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.CreateCompany(ctx, actorID, input.Body.Name)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[domain.Company]{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-companies",
		Method:      http.MethodGet,
		Path:        "/companies",
		Summary:     "List companies",
		Errors:      errorStatuses,
	}, func(ctx context.Context, _ *struct{}) (*output[[]domain.Company], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListCompanies(ctx, actorID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[[]domain.Company]{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-company",
		Method:      http.MethodGet,
		Path:        "/companies/{id}",
		Summary:     "Get company",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *IDPath) (*output[domain.Company], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.GetCompany(ctx, actorID, input.ID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[domain.Company]{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-company",
		Method:      http.MethodPatch,
		Path:        "/companies/{id}",
		Summary:     "Rename company",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		IDPath
		Body CompanyRequest
	}) (*output[domain.Company], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.RenameCompany(ctx, actorID, input.ID, input.Body.Name)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[domain.Company]{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-company",
		Method:        http.MethodDelete,
		Path:          "/companies/{id}",
		Summary:       "Delete company and everything under it",
		DefaultStatus: http.StatusNoContent,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *IDPath) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteCompany(ctx, actorID, input.ID); err != nil {
			return nil, h.handleError(err)
		}
		return nil, nil
	})
}

func registerEvents(api huma.API, h handlers) {
	e := h.engine
	huma.Register(api, huma.Operation{
		OperationID:   "create-event",
		Method:        http.MethodPost,
		Path:          "/events",
		Summary:       "Create event",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body CreateEventRequest
	}) (*output[domain.Event], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ev, err := e.CreateEvent(ctx, actorID, engine.EventCreateOptions{
			Title:       input.Body.Title,
			Location:    input.Body.Location,
			Description: input.Body.Description,
			Date:        input.Body.Date,
			Status:      input.Body.Status,
			CompanyID:   input.Body.CompanyID,
		})
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[domain.Event]{Body: ev}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List events",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		CompanyID string `query:"company_id"`
		Status    string `query:"status"`
	}) (*output[[]domain.Event], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListEvents(ctx, actorID, repo.EventFilters{CompanyID: input.CompanyID, Status: input.Status})
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[[]domain.Event]{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-event",
		Method:      http.MethodGet,
		Path:        "/events/{id}",
		Summary:     "Get event",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *IDPath) (*output[domain.Event], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ev, err := e.GetEvent(ctx, actorID, input.ID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[domain.Event]{Body: ev}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-event",
		Method:      http.MethodPatch,
		Path:        "/events/{id}",
		Summary:     "Update event",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		IDPath
		Body UpdateEventRequest
	}) (*output[domain.Event], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ev, err := e.UpdateEvent(ctx, actorID, input.ID, repo.EventUpdate{
			Title:       input.Body.Title,
			Location:    input.Body.Location,
			Description: input.Body.Description,
			Date:        input.Body.Date,
			Status:      input.Body.Status,
			CompanyID:   input.Body.CompanyID,
		})
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[domain.Event]{Body: ev}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-event",
		Method:        http.MethodDelete,
		Path:          "/events/{id}",
		Summary:       "Delete event with its teams, missions and tasks",
		DefaultStatus: http.StatusNoContent,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *IDPath) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteEvent(ctx, actorID, input.ID); err != nil {
			return nil, h.handleError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "suggest-mission",
		Method:        http.MethodPost,
		Path:          "/events/{id}/suggest-mission",
		Summary:       "Ask the advisor for a mission and store it",
		DefaultStatus: http.StatusCreated,
		Errors:        append(errorStatuses, http.StatusBadGateway),
	}, func(ctx context.Context, input *IDPath) (*output[domain.Mission], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.SuggestMission(ctx, actorID, input.ID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[domain.Mission]{Body: m}, nil
	})
}

func registerTeams(api huma.API, h handlers) {
	e := h.engine
	huma.Register(api, huma.Operation{
		OperationID:   "create-team",
		Method:        http.MethodPost,
		Path:          "/teams",
		Summary:       "Create team (organizer only)",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body CreateTeamRequest
	}) (*output[domain.Team], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTeam(ctx, actorID, engine.TeamCreateOptions{
			Name:      input.Body.Name,
			EventID:   input.Body.EventID,
			ManagerID: input.Body.ManagerID,
			MemberIDs: input.Body.MemberIDs,
		})
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[domain.Team]{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-teams",
		Method:      http.MethodGet,
		Path:        "/teams",
		Summary:     "List teams visible to the caller",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		EventID string `query:"event_id"`
	}) (*output[[]domain.Team], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListTeams(ctx, actorID, input.EventID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[[]domain.Team]{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-team",
		Method:      http.MethodGet,
		Path:        "/teams/{id}",
		Summary:     "Get team",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *IDPath) (*output[domain.Team], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.GetTeam(ctx, actorID, input.ID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[domain.Team]{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-team",
		Method:      http.MethodPatch,
		Path:        "/teams/{id}",
		Summary:     "Update team",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		IDPath
		Body UpdateTeamRequest
	}) (*output[domain.Team], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.UpdateTeam(ctx, actorID, input.ID, repo.TeamUpdate{Name: input.Body.Name, ManagerID: input.Body.ManagerID})
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[domain.Team]{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-team",
		Method:        http.MethodDelete,
		Path:          "/teams/{id}",
		Summary:       "Delete team with its missions and tasks",
		DefaultStatus: http.StatusNoContent,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *IDPath) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteTeam(ctx, actorID, input.ID); err != nil {
			return nil, h.handleError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-team-member",
		Method:      http.MethodPost,
		Path:        "/teams/{id}/members",
		Summary:     "Add a member to the team",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		IDPath
		Body AddMemberRequest
	}) (*output[domain.Team], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.AddTeamMember(ctx, actorID, input.ID, input.Body.ProfileID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[domain.Team]{Body: t}, nil
	})
}

func registerMissions(api huma.API, h handlers) {
	e := h.engine
	huma.Register(api, huma.Operation{
		OperationID:   "create-mission",
		Method:        http.MethodPost,
		Path:          "/missions",
		Summary:       "Create mission (organizer only)",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body CreateMissionRequest
	}) (*output[domain.Mission], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.CreateMission(ctx, actorID, engine.MissionCreateOptions{
			Title:             input.Body.Title,
			Description:       input.Body.Description,
			EventID:           input.Body.EventID,
			TeamID:            input.Body.TeamID,
			AssignedManagerID: input.Body.AssignedManagerID,
			Status:            input.Body.Status,
		})
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[domain.Mission]{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-missions",
		Method:      http.MethodGet,
		Path:        "/missions",
		Summary:     "List missions visible to the caller",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		EventID string `query:"event_id"`
		TeamID  string `query:"team_id"`
		Status  string `query:"status"`
	}) (*output[[]domain.Mission], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListMissions(ctx, actorID, engine.MissionQuery{EventID: input.EventID, TeamID: input.TeamID, Status: input.Status})
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[[]domain.Mission]{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-mission",
		Method:      http.MethodGet,
		Path:        "/missions/{id}",
		Summary:     "Get mission",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *IDPath) (*output[domain.Mission], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.GetMission(ctx, actorID, input.ID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[domain.Mission]{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-mission",
		Method:      http.MethodPatch,
		Path:        "/missions/{id}",
		Summary:     "Update mission",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		IDPath
		Body UpdateMissionRequest
	}) (*output[domain.Mission], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.UpdateMission(ctx, actorID, input.ID, engine.MissionUpdateOptions{
			Title:             input.Body.Title,
			Description:       input.Body.Description,
			Status:            input.Body.Status,
			AssignedManagerID: input.Body.AssignedManagerID,
		})
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[domain.Mission]{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-mission",
		Method:        http.MethodDelete,
		Path:          "/missions/{id}",
		Summary:       "Delete mission with its tasks",
		DefaultStatus: http.StatusNoContent,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *IDPath) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteMission(ctx, actorID, input.ID); err != nil {
			return nil, h.handleError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "split-mission",
		Method:      http.MethodPost,
		Path:        "/missions/{id}/split",
		Summary:     "Split the mission into one task per staff member",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *IDPath) (*output[SplitResponse], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.SplitMission(ctx, actorID, input.ID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[SplitResponse]{Body: SplitResponse{Mission: res.Mission, Tasks: nonNilSlice(res.Tasks)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "approve-mission",
		Method:      http.MethodPost,
		Path:        "/missions/{id}/approve",
		Summary:     "Apply edits to generated tasks and approve the mission",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		IDPath
		Body ApproveMissionRequest
	}) (*output[[]domain.Task], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		tasks, err := e.ApproveMission(ctx, actorID, input.ID, taskEdits(input.Body.Updates))
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[[]domain.Task]{Body: nonNilSlice(tasks)}, nil
	})
}

func registerTasks(api huma.API, h handlers) {
	e := h.engine
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task (organizer only)",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest
	}) (*output[domain.Task], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTask(ctx, actorID, engine.TaskCreateOptions{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			MissionID:   input.Body.MissionID,
			TeamID:      input.Body.TeamID,
			EventID:     input.Body.EventID,
			AssigneeID:  input.Body.AssigneeID,
			Status:      input.Body.Status,
		})
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[domain.Task]{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks visible to the caller",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		MissionID string `query:"mission_id"`
		EventID   string `query:"event_id"`
		TeamID    string `query:"team_id"`
		Status    string `query:"status"`
	}) (*output[[]domain.Task], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListTasks(ctx, actorID, engine.TaskQuery{
			MissionID: input.MissionID,
			EventID:   input.EventID,
			TeamID:    input.TeamID,
			Status:    input.Status,
		})
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[[]domain.Task]{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get task",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *IDPath) (*output[domain.Task], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.GetTask(ctx, actorID, input.ID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[domain.Task]{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update task; assignees may change status only",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		IDPath
		Body UpdateTaskRequest
	}) (*output[domain.Task], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.UpdateTask(ctx, actorID, input.ID, engine.TaskUpdateOptions{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Status:      input.Body.Status,
			AssigneeID:  input.Body.AssigneeID,
		})
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[domain.Task]{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete task",
		DefaultStatus: http.StatusNoContent,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *IDPath) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteTask(ctx, actorID, input.ID); err != nil {
			return nil, h.handleError(err)
		}
		return nil, nil
	})
}
