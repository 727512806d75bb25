package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine/auth"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
	Logger   *slog.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"no_eligible_members"`
	Message string         `json:"message" example:"team has no staff members"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// output wraps a response body.
type output[T any] struct {
	Body T
}

type IDPath struct {
	ID string `path:"id"`
}

var errorStatuses = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusServiceUnavailable,
}

// New returns an HTTP handler exposing the Eventify API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Auth.Logger == nil {
		cfg.Auth.Logger = logger
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Eventify API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	h := handlers{engine: cfg.Engine, logger: logger}
	registerAuth(group, h, cfg.Auth)
	registerProfiles(group, h)
	registerCompanies(group, h)
	registerEvents(group, h)
	registerTeams(group, h)
	registerMissions(group, h)
	registerTasks(group, h)
	registerActivity(group, h)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// handlers carries what every operation needs.
type handlers struct {
	engine engine.Engine
	logger *slog.Logger
}

// handleError maps engine errors onto the envelope by kind.
func (h handlers) handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	kind := engine.KindOf(err)
	code := string(kind)
	switch kind {
	case engine.KindForbidden:
		var fe auth.ForbiddenError
		errors.As(err, &fe)
		return newAPIError(http.StatusForbidden, code, err.Error(), map[string]any{"action": string(fe.Action), "rule": fe.Rule})
	case engine.KindNotFound, engine.KindProfileNotFound:
		return newAPIError(http.StatusNotFound, code, err.Error(), nil)
	case engine.KindValidation:
		var ve engine.ValidationError
		errors.As(err, &ve)
		return newAPIError(http.StatusBadRequest, code, err.Error(), map[string]any{"field": ve.Field, "reason": ve.Reason})
	case engine.KindNoEligibleMembers, engine.KindNoTeamForEvent, engine.KindNoManagerAssigned:
		return newAPIError(http.StatusBadRequest, code, err.Error(), nil)
	case engine.KindAIResponseInvalid:
		var ae engine.AIResponseError
		errors.As(err, &ae)
		return newAPIError(http.StatusBadGateway, code, err.Error(), map[string]any{"raw": ae.Raw})
	case engine.KindUnauthenticated:
		return newAPIError(http.StatusUnauthorized, code, err.Error(), nil)
	case engine.KindStoreUnavailable:
		h.logger.Warn("store unavailable", "error", err)
		return newAPIError(http.StatusServiceUnavailable, code, "store unavailable", nil)
	}
	h.logger.Error("request failed", "error", err)
	return newAPIError(http.StatusInternalServerError, "internal", "internal error", nil)
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{item.Get, item.Put, item.Post, item.Delete, item.Patch} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	public := publicPaths(basePath)
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{item.Get, item.Put, item.Post, item.Delete, item.Patch} {
			if op == nil {
				continue
			}
			if public[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Eventify API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*output[map[string]string], error) {
		return &output[map[string]string]{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerAuth(api huma.API, h handlers, authCfg AuthConfig) {
	e := h.engine
	tokenFor := func(p domain.Profile) (*output[TokenResponse], error) {
		token, exp, err := issueToken(authCfg, p)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal", err.Error(), nil)
		}
		return &output[TokenResponse]{Body: TokenResponse{
			Token:     token,
			ExpiresAt: exp.UTC().Format(time.RFC3339),
			Profile:   p,
		}}, nil
	}

	huma.Register(api, huma.Operation{
		OperationID:   "signup",
		Method:        http.MethodPost,
		Path:          "/auth/signup",
		Summary:       "Create a staff profile and return a token",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body SignupRequest
	}) (*output[TokenResponse], error) {
		p, err := e.Signup(ctx, engine.SignupOptions{
			Username: input.Body.Username,
			Email:    input.Body.Email,
			Password: input.Body.Password,
		})
		if err != nil {
			return nil, h.handleError(err)
		}
		return tokenFor(p)
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Exchange username and password for a token",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body LoginRequest
	}) (*output[TokenResponse], error) {
		p, err := e.Authenticate(ctx, input.Body.Username, input.Body.Password)
		if err != nil {
			return nil, h.handleError(err)
		}
		return tokenFor(p)
	})

	huma.Register(api, huma.Operation{
		OperationID: "verify",
		Method:      http.MethodGet,
		Path:        "/auth/verify",
		Summary:     "Verify the presented credentials",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*output[VerifyResponse], error) {
		p, ok := principalFromContext(ctx)
		if !ok {
			return nil, newAPIError(http.StatusUnauthorized, "unauthenticated", "authentication required", nil)
		}
		prof, err := e.ResolveProfile(ctx, p.ProfileID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[VerifyResponse]{Body: VerifyResponse{ProfileID: prof.ID, Role: string(prof.Role), Source: p.Source}}, nil
	})
}

func registerProfiles(api huma.API, h handlers) {
	e := h.engine
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Caller's own profile",
		Errors:      errorStatuses,
	}, func(ctx context.Context, _ *struct{}) (*output[domain.Profile], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.ResolveProfile(ctx, actorID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[domain.Profile]{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-profiles",
		Method:      http.MethodGet,
		Path:        "/profiles",
		Summary:     "List profiles",
		Errors:      errorStatuses,
	}, func(ctx context.Context, _ *struct{}) (*output[[]domain.Profile], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListProfiles(ctx, actorID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[[]domain.Profile]{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-profile-role",
		Method:      http.MethodPatch,
		Path:        "/profiles/{id}/role",
		Summary:     "Change a profile's role (admin only)",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		IDPath
		Body SetRoleRequest
	}) (*output[domain.Profile], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.SetProfileRole(ctx, actorID, input.ID, input.Body.Role)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[domain.Profile]{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-profile-availability",
		Method:      http.MethodPatch,
		Path:        "/profiles/{id}/availability",
		Summary:     "Update availability (self or admin)",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		IDPath
		Body AvailabilityRequest
	}) (*output[domain.Profile], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.SetAvailability(ctx, actorID, input.ID, engine.AvailabilityOptions{
			IsAvailable: input.Body.IsAvailable,
			CurrentTeam: input.Body.CurrentTeam,
		})
		if err != nil {
			return nil, h.handleError(err)
		}
		return &output[domain.Profile]{Body: p}, nil
	})
}

func registerActivity(api huma.API, h handlers) {
	e := h.engine
	huma.Register(api, huma.Operation{
		OperationID: "list-activity",
		Method:      http.MethodGet,
		Path:        "/activity",
		Summary:     "List recent activity, newest first",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind" enum:"profile,company,event,team,mission,task,api_key"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*output[paginatedActivity], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		limit := normalizeLimit(input.Limit)
		var before int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			before = parsed
		}
		items, err := e.ListActivity(ctx, actorID, repo.ActivityFilters{
			Type:       input.Type,
			EntityKind: input.EntityKind,
			EntityID:   input.EntityID,
			Before:     before,
			Limit:      limit + 1,
		})
		if err != nil {
			return nil, h.handleError(err)
		}
		resp := paginatedActivity{Items: []domain.Activity{}}
		if len(items) > limit {
			resp.NextCursor = strconv.FormatInt(items[limit-1].ID, 10)
			items = items[:limit]
		}
		resp.Items = append(resp.Items, items...)
		return &output[paginatedActivity]{Body: resp}, nil
	})
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}
