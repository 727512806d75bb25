package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/config"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/db"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine/advisor"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/migrate"
)

const testSecret = "test-secret"

type testServer struct {
	URL    string
	Engine engine.Engine
	Auth   AuthConfig
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

// token mints a bearer header for a seeded profile.
func (s *testServer) token(t *testing.T, profileID string) map[string]string {
	t.Helper()
	p, err := s.Engine.ResolveProfile(context.Background(), profileID)
	if err != nil {
		t.Fatalf("resolve %s: %v", profileID, err)
	}
	tok, _, err := issueToken(s.Auth, p)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + tok}
}

func newTestServer(t *testing.T, adv advisor.Advisor) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	if adv != nil {
		e.Advisor = adv
	}
	ctx := context.Background()
	for _, p := range []struct {
		id   string
		role domain.Role
	}{
		{"org", domain.RoleOrganizer},
		{"admin", domain.RoleAdmin},
		{"mgr", domain.RoleManager},
		{"amy", domain.RoleStaff},
		{"bob", domain.RoleStaff},
	} {
		if _, err := e.BootstrapProfile(ctx, p.id, p.id, p.role); err != nil {
			t.Fatalf("bootstrap %s: %v", p.id, err)
		}
	}
	authCfg := AuthConfig{JWTSecret: testSecret, TokenTTL: time.Hour}
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: authCfg})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		Auth:   authCfg,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("unmarshal %s: %v", string(data), err)
	}
	return v
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal error envelope %s: %v", string(data), err)
	}
	return env.Error.Code
}

// seedTeam creates an event and a team managed by mgr with members amy, mgr, bob.
func seedTeam(t *testing.T, srv *testServer) (domain.Event, domain.Team) {
	t.Helper()
	client, org := srv.Client(), srv.token(t, "org")
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/events", map[string]any{"title": "Spring Expo", "location": "Hall A"}, org)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create event status %d: %s", res.StatusCode, data)
	}
	ev := decode[domain.Event](t, data)
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/teams", map[string]any{
		"name": "Floor crew", "event_id": ev.ID, "manager_id": "mgr", "member_ids": []string{"amy", "mgr", "bob"},
	}, org)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create team status %d: %s", res.StatusCode, data)
	}
	return ev, decode[domain.Team](t, data)
}

func TestAuthenticationRequired(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, data)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/missions", nil, nil)
	if res.StatusCode != http.StatusUnauthorized || errorCode(t, data) != "unauthenticated" {
		t.Fatalf("expected 401 unauthenticated, got %d: %s", res.StatusCode, data)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/missions", nil, map[string]string{"Authorization": "Bearer garbage"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d: %s", res.StatusCode, data)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/missions", nil, map[string]string{"X-Actor-Id": "org"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("legacy header must be ignored by default, got %d: %s", res.StatusCode, data)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/openapi.json", nil, nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(data), "/v0/missions/{id}/split") {
		t.Fatalf("openapi not served: %d", res.StatusCode)
	}
}

func TestSignupLoginAndMe(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/auth/signup", map[string]any{
		"username": "newbie", "email": "n@example.com", "password": "correct-horse",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("signup status %d: %s", res.StatusCode, data)
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/auth/login", map[string]any{
		"username": "newbie", "password": "wrong-password",
	}, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login status %d: %s", res.StatusCode, data)
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/auth/login", map[string]any{
		"username": "newbie", "password": "correct-horse",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %s", res.StatusCode, data)
	}
	tok := decode[TokenResponse](t, data)
	headers := map[string]string{"Authorization": "Bearer " + tok.Token}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/me", nil, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me status %d: %s", res.StatusCode, data)
	}
	me := decode[domain.Profile](t, data)
	if me.Username != "newbie" || me.Role != domain.RoleStaff {
		t.Fatalf("unexpected profile %+v", me)
	}
	if strings.Contains(string(data), "password") {
		t.Fatalf("password hash leaked: %s", data)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/auth/verify", nil, headers)
	if res.StatusCode != http.StatusOK || decode[VerifyResponse](t, data).Source != "jwt" {
		t.Fatalf("verify status %d: %s", res.StatusCode, data)
	}
}

func TestAPIKeyAuthentication(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	raw, _, err := srv.Engine.CreateAPIKey(context.Background(), "org", "ci")
	if err != nil {
		t.Fatalf("create api key: %v", err)
	}
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/companies", map[string]any{"name": "Acme"}, map[string]string{"X-Api-Key": raw})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create company with api key status %d: %s", res.StatusCode, data)
	}
	if c := decode[domain.Company](t, data); c.CreatedBy == nil || *c.CreatedBy != "org" {
		t.Fatalf("unexpected creator %+v", c)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/companies", nil, map[string]string{"X-Api-Key": "evk_wrong"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown key, got %d", res.StatusCode)
	}
}

func TestCreateTeamForbiddenForStaff(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	ev, _ := seedTeam(t, srv)
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/teams", map[string]any{"name": "Rogue", "event_id": ev.ID}, srv.token(t, "amy"))
	if res.StatusCode != http.StatusForbidden || errorCode(t, data) != "forbidden" {
		t.Fatalf("expected 403 forbidden, got %d: %s", res.StatusCode, data)
	}
}

func TestMissionSplitApproveFlow(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	client := srv.Client()
	ev, team := seedTeam(t, srv)
	org, mgr := srv.token(t, "org"), srv.token(t, "mgr")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/missions", map[string]any{
		"title": "Set up hall", "description": "Chairs and stage", "event_id": ev.ID, "team_id": team.ID,
	}, org)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create mission status %d: %s", res.StatusCode, data)
	}
	mission := decode[domain.Mission](t, data)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/missions/"+mission.ID+"/split", nil, org)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("organizer split: expected 404, got %d: %s", res.StatusCode, data)
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/missions/"+mission.ID+"/split", nil, mgr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("split status %d: %s", res.StatusCode, data)
	}
	split := decode[SplitResponse](t, data)
	if !split.Mission.AISplit || len(split.Tasks) != 2 || split.Tasks[0].Title != "Set up hall - Subtask 1" {
		t.Fatalf("unexpected split %+v", split)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/missions/"+mission.ID+"/split", nil, mgr)
	if res.StatusCode != http.StatusBadRequest || errorCode(t, data) != "validation_failed" {
		t.Fatalf("second split: expected 400 validation_failed, got %d: %s", res.StatusCode, data)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/missions/"+mission.ID+"/approve", map[string]any{
		"updates": []map[string]any{
			{"task_id": split.Tasks[0].ID, "title": "Chairs", "assignee": "bob"},
			{"task_id": "missing", "title": "ignored"},
		},
	}, mgr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("approve status %d: %s", res.StatusCode, data)
	}
	tasks := decode[[]domain.Task](t, data)
	if len(tasks) != 2 || tasks[0].Title != "Chairs" || *tasks[0].AssigneeID != "bob" {
		t.Fatalf("unexpected approved tasks %+v", tasks)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/missions/"+mission.ID, nil, srv.token(t, "amy"))
	if res.StatusCode != http.StatusOK || !decode[domain.Mission](t, data).IsApproved {
		t.Fatalf("staff get mission %d: %s", res.StatusCode, data)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks", nil, srv.token(t, "bob"))
	if res.StatusCode != http.StatusOK || len(decode[[]domain.Task](t, data)) != 2 {
		t.Fatalf("bob should see both tasks now: %d %s", res.StatusCode, data)
	}
	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/tasks/"+tasks[0].ID, map[string]any{"status": "in_progress"}, srv.token(t, "bob"))
	if res.StatusCode != http.StatusOK || decode[domain.Task](t, data).Status != domain.StatusInProgress {
		t.Fatalf("assignee status update %d: %s", res.StatusCode, data)
	}
}

func TestSplitWithoutStaff(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	client, org := srv.Client(), srv.token(t, "org")
	ev, _ := seedTeam(t, srv)
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/teams", map[string]any{
		"name": "Leads", "event_id": ev.ID, "manager_id": "mgr", "member_ids": []string{"mgr"},
	}, org)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create team %d: %s", res.StatusCode, data)
	}
	team := decode[domain.Team](t, data)
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/missions", map[string]any{
		"title": "Plan", "event_id": ev.ID, "team_id": team.ID,
	}, org)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create mission %d: %s", res.StatusCode, data)
	}
	mission := decode[domain.Mission](t, data)
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/missions/"+mission.ID+"/split", nil, srv.token(t, "mgr"))
	if res.StatusCode != http.StatusBadRequest || errorCode(t, data) != "no_eligible_members" {
		t.Fatalf("expected 400 no_eligible_members, got %d: %s", res.StatusCode, data)
	}
}

func TestSuggestMissionErrors(t *testing.T) {
	adv := advisor.Func(func(context.Context, string) (string, error) {
		return "Sorry, I can only chat.", nil
	})
	srv, cleanup := newTestServer(t, adv)
	defer cleanup()
	client, org := srv.Client(), srv.token(t, "org")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/events", map[string]any{"title": "Empty"}, org)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create event %d: %s", res.StatusCode, data)
	}
	empty := decode[domain.Event](t, data)
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/events/"+empty.ID+"/suggest-mission", nil, org)
	if res.StatusCode != http.StatusBadRequest || errorCode(t, data) != "no_team_for_event" {
		t.Fatalf("expected no_team_for_event, got %d: %s", res.StatusCode, data)
	}

	ev, _ := seedTeam(t, srv)
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/events/"+ev.ID+"/suggest-mission", nil, org)
	if res.StatusCode != http.StatusBadGateway || errorCode(t, data) != "ai_response_invalid" {
		t.Fatalf("expected 502 ai_response_invalid, got %d: %s", res.StatusCode, data)
	}
	if !strings.Contains(string(data), "only chat") {
		t.Fatalf("raw response missing from details: %s", data)
	}
}

func TestActivityPagination(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	client, org := srv.Client(), srv.token(t, "org")
	for _, name := range []string{"A", "B", "C"} {
		if res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/companies", map[string]any{"name": name}, org); res.StatusCode != http.StatusCreated {
			t.Fatalf("create company %d: %s", res.StatusCode, data)
		}
	}
	url := srv.URL + "/v0/activity?entity_kind=company&limit=2"
	res, data := doJSON(t, client, http.MethodGet, url, nil, org)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("activity status %d: %s", res.StatusCode, data)
	}
	page := decode[paginatedActivity](t, data)
	if len(page.Items) != 2 || page.NextCursor == "" || page.Items[0].Type != "company.created" {
		t.Fatalf("unexpected first page %+v", page)
	}
	res, data = doJSON(t, client, http.MethodGet, url+"&cursor="+page.NextCursor, nil, org)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("activity page 2 status %d: %s", res.StatusCode, data)
	}
	page = decode[paginatedActivity](t, data)
	if len(page.Items) != 1 || page.NextCursor != "" {
		t.Fatalf("unexpected second page %+v", page)
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/activity", nil, srv.token(t, "amy"))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("staff activity access: expected 403, got %d", res.StatusCode)
	}
}

func TestWebhookDispatcherDeliversNewEntries(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	var (
		mu       sync.Mutex
		received []http.Header
		bodies   []webhookPayload
	)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhookPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		received = append(received, r.Header.Clone())
		bodies = append(bodies, p)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	ctx := context.Background()
	d := NewWebhookDispatcher(srv.Engine.Repo, []config.Webhook{{URL: hook.URL, Events: []string{"company.created"}, Secret: "s3cret"}}, nil)
	d.DispatchAll(ctx)
	if len(received) != 0 {
		t.Fatalf("existing entries must not be replayed")
	}
	if _, err := srv.Engine.CreateCompany(ctx, "org", "Acme"); err != nil {
		t.Fatal(err)
	}
	if _, err := srv.Engine.CreateEvent(ctx, "org", engine.EventCreateOptions{Title: "Ignored"}); err != nil {
		t.Fatal(err)
	}
	d.DispatchAll(ctx)
	d.DispatchAll(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected exactly one delivery, got %d", len(received))
	}
	if received[0].Get("X-Eventify-Event") != "company.created" || received[0].Get("X-Eventify-Secret") != "s3cret" || received[0].Get("X-Eventify-Delivery") == "" {
		t.Fatalf("unexpected headers %v", received[0])
	}
	if bodies[0].EntityKind != "company" || bodies[0].ActorID != "org" {
		t.Fatalf("unexpected payload %+v", bodies[0])
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestInternalErrorsUseConfiguredLogger(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	var logs lockedBuffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo}))
	authCfg := AuthConfig{JWTSecret: testSecret, TokenTTL: time.Hour}
	handler, err := New(Config{Engine: engine.New(conn, config.Default()), BasePath: "/v0", Auth: authCfg, Logger: logger})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	defer srv.Close()
	tok, _, err := issueToken(authCfg, domain.Profile{ID: "org", Role: domain.RoleOrganizer})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	conn.Close()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/companies", nil, map[string]string{"Authorization": "Bearer " + tok})
	if res.StatusCode != http.StatusInternalServerError || errorCode(t, data) != "internal" {
		t.Fatalf("expected 500 internal, got %d %s", res.StatusCode, data)
	}
	out := logs.String()
	if !strings.Contains(out, `"msg":"request failed"`) || !strings.Contains(out, `"level":"ERROR"`) {
		t.Fatalf("expected JSON error log on configured logger, got %q", out)
	}
}
