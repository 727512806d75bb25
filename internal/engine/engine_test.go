package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/config"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/db"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine/advisor"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine/auth"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/migrate"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/repo"
)

const longDescription = "Prepare the main hall: chairs, stage lighting, sound check and signage for the opening keynote."

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Event  domain.Event
	Team   domain.Team
}

// newTestEnv seeds org (organizer), admin, mgr and mgr2 (managers), amy and
// bob (staff), one event and a team managed by mgr with members amy, mgr, bob.
func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	for _, p := range []struct {
		id, name string
		role     domain.Role
	}{
		{"org", "olivia", domain.RoleOrganizer},
		{"admin", "ada", domain.RoleAdmin},
		{"mgr", "mark", domain.RoleManager},
		{"mgr2", "mona", domain.RoleManager},
		{"amy", "amy", domain.RoleStaff},
		{"bob", "bob", domain.RoleStaff},
	} {
		if _, err := eng.BootstrapProfile(ctx, p.id, p.name, p.role); err != nil {
			t.Fatalf("bootstrap %s: %v", p.id, err)
		}
	}
	ev, err := eng.CreateEvent(ctx, "org", engine.EventCreateOptions{Title: "Spring Expo", Location: "Hall A"})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	team, err := eng.CreateTeam(ctx, "org", engine.TeamCreateOptions{
		Name: "Floor crew", EventID: ev.ID, ManagerID: "mgr", MemberIDs: []string{"amy", "mgr", "bob"},
	})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx, Event: ev, Team: team}
}

func (env testEnv) mission(t *testing.T, title string) domain.Mission {
	t.Helper()
	m, err := env.Engine.CreateMission(env.Ctx, "org", engine.MissionCreateOptions{
		Title: title, Description: longDescription, EventID: env.Event.ID, TeamID: env.Team.ID,
	})
	if err != nil {
		t.Fatalf("create mission: %v", err)
	}
	return m
}

func isForbidden(err error) bool {
	var fe auth.ForbiddenError
	return errors.As(err, &fe)
}

func TestCreateTeamForbiddenForNonOrganizers(t *testing.T) {
	env := newTestEnv(t)
	for _, actor := range []string{"admin", "mgr", "amy"} {
		_, err := env.Engine.CreateTeam(env.Ctx, actor, engine.TeamCreateOptions{Name: "x", EventID: env.Event.ID})
		if !isForbidden(err) {
			t.Fatalf("%s: expected forbidden, got %v", actor, err)
		}
	}
}

func TestMissionRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	m := env.mission(t, "Set up hall")
	got, err := env.Engine.GetMission(env.Ctx, "org", m.ID)
	if err != nil {
		t.Fatalf("get mission: %v", err)
	}
	if got.Title != "Set up hall" || got.Description != longDescription || got.EventID != env.Event.ID || got.TeamID != env.Team.ID {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.AssignedManagerID == nil || *got.AssignedManagerID != "mgr" {
		t.Fatalf("expected team manager as assigned manager, got %v", got.AssignedManagerID)
	}
	if got.AISplit || got.IsApproved || got.Status != domain.StatusPending {
		t.Fatalf("unexpected initial state %+v", got)
	}
}

func TestCreateMissionRejectsTeamOfOtherEvent(t *testing.T) {
	env := newTestEnv(t)
	other, err := env.Engine.CreateEvent(env.Ctx, "org", engine.EventCreateOptions{Title: "Other"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = env.Engine.CreateMission(env.Ctx, "org", engine.MissionCreateOptions{Title: "x", EventID: other.ID, TeamID: env.Team.ID})
	var ve engine.ValidationError
	if !errors.As(err, &ve) || ve.Field != "team_id" {
		t.Fatalf("expected team_id validation error, got %v", err)
	}
	if _, err := env.Engine.CreateMission(env.Ctx, "mgr", engine.MissionCreateOptions{Title: "x", EventID: env.Event.ID, TeamID: env.Team.ID}); !isForbidden(err) {
		t.Fatalf("manager must not create missions: %v", err)
	}
}

func TestSplitCreatesOneTaskPerStaffMember(t *testing.T) {
	env := newTestEnv(t)
	m := env.mission(t, "Set up hall")
	res, err := env.Engine.SplitMission(env.Ctx, "mgr", m.ID)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(res.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(res.Tasks))
	}
	wantAssignees := []string{"amy", "bob"}
	for i, task := range res.Tasks {
		wantTitle := "Set up hall - Subtask " + string(rune('1'+i))
		if task.Title != wantTitle {
			t.Fatalf("task %d title %q, want %q", i, task.Title, wantTitle)
		}
		if !task.AIGenerated || task.AssigneeID == nil || *task.AssigneeID != wantAssignees[i] {
			t.Fatalf("task %d unexpected: %+v", i, task)
		}
		if task.MissionID == nil || *task.MissionID != m.ID || task.TeamID == nil || *task.TeamID != env.Team.ID || task.EventID != env.Event.ID {
			t.Fatalf("task %d aggregate mismatch: %+v", i, task)
		}
		wantDesc := string([]rune(longDescription)[:50]) + "... Assigned to " + wantAssignees[i]
		if task.Description != wantDesc {
			t.Fatalf("task %d description %q, want %q", i, task.Description, wantDesc)
		}
	}
	got, err := env.Engine.GetMission(env.Ctx, "org", m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.AISplit || got.IsApproved {
		t.Fatalf("expected split and not approved: %+v", got)
	}

	_, err = env.Engine.SplitMission(env.Ctx, "mgr", m.ID)
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error on second split, got %v", err)
	}
	tasks, err := env.Engine.ListTasks(env.Ctx, "org", engine.TaskQuery{MissionID: m.ID})
	if err != nil || len(tasks) != 2 {
		t.Fatalf("expected still 2 tasks, got %d (%v)", len(tasks), err)
	}
}

func TestSplitDescriptionPrefix(t *testing.T) {
	cases := []struct {
		name        string
		yaml        string
		description string
		want        string
	}{
		{
			name:        "shorter than prefix",
			description: "Set out chairs",
			want:        "Set out chairs Assigned to amy",
		},
		{
			name:        "exactly the prefix",
			description: strings.Repeat("x", 50),
			want:        strings.Repeat("x", 50) + " Assigned to amy",
		},
		{
			name:        "empty",
			description: "",
			want:        "Assigned to amy",
		},
		{
			name:        "configured prefix",
			yaml:        "split:\n  description_prefix: 10\n",
			description: longDescription,
			want:        "Prepare th... Assigned to amy",
		},
		{
			name:        "configured prefix counts runes",
			yaml:        "split:\n  description_prefix: 6\n",
			description: "Décor, flowers and banners",
			want:        "Décor,... Assigned to amy",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tc.yaml != "" {
				cfg, err := config.FromYAML([]byte(tc.yaml))
				if err != nil {
					t.Fatalf("config: %v", err)
				}
				env.Engine.Config = cfg
			}
			m, err := env.Engine.CreateMission(env.Ctx, "org", engine.MissionCreateOptions{
				Title: "Hall", Description: tc.description, EventID: env.Event.ID, TeamID: env.Team.ID,
			})
			if err != nil {
				t.Fatalf("create mission: %v", err)
			}
			res, err := env.Engine.SplitMission(env.Ctx, "mgr", m.ID)
			if err != nil {
				t.Fatalf("split: %v", err)
			}
			if len(res.Tasks) != 2 || res.Tasks[0].Description != tc.want {
				t.Fatalf("first task description %q, want %q", res.Tasks[0].Description, tc.want)
			}
		})
	}
}

func TestSplitWithoutStaffFails(t *testing.T) {
	env := newTestEnv(t)
	team, err := env.Engine.CreateTeam(env.Ctx, "org", engine.TeamCreateOptions{
		Name: "Managers only", EventID: env.Event.ID, ManagerID: "mgr", MemberIDs: []string{"mgr", "mgr2"},
	})
	if err != nil {
		t.Fatal(err)
	}
	m, err := env.Engine.CreateMission(env.Ctx, "org", engine.MissionCreateOptions{Title: "Empty", EventID: env.Event.ID, TeamID: team.ID})
	if err != nil {
		t.Fatal(err)
	}
	_, err = env.Engine.SplitMission(env.Ctx, "mgr", m.ID)
	if !errors.Is(err, engine.ErrNoEligibleMembers) {
		t.Fatalf("expected ErrNoEligibleMembers, got %v", err)
	}
	if engine.KindOf(err) != engine.KindNoEligibleMembers {
		t.Fatalf("unexpected kind %s", engine.KindOf(err))
	}
	got, err := env.Engine.GetMission(env.Ctx, "org", m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AISplit {
		t.Fatalf("ai_split must stay false")
	}
	tasks, err := env.Engine.ListTasks(env.Ctx, "org", engine.TaskQuery{MissionID: m.ID})
	if err != nil || len(tasks) != 0 {
		t.Fatalf("expected no tasks, got %d (%v)", len(tasks), err)
	}
}

func TestSplitRequiresAssignedManager(t *testing.T) {
	env := newTestEnv(t)
	m := env.mission(t, "Set up hall")
	if _, err := env.Engine.SplitMission(env.Ctx, "mgr2", m.ID); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("other manager: expected not found, got %v", err)
	}
	if _, err := env.Engine.SplitMission(env.Ctx, "mgr", "missing"); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("missing mission: expected not found, got %v", err)
	}
	org := "org"
	if _, err := env.Engine.UpdateMission(env.Ctx, "org", m.ID, engine.MissionUpdateOptions{AssignedManagerID: &org}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SplitMission(env.Ctx, "org", m.ID); !isForbidden(err) {
		t.Fatalf("assigned organizer: expected forbidden, got %v", err)
	}
}

func TestApproveAppliesKnownEditsAndSkipsUnknown(t *testing.T) {
	env := newTestEnv(t)
	m := env.mission(t, "Set up hall")
	res, err := env.Engine.SplitMission(env.Ctx, "mgr", m.ID)
	if err != nil {
		t.Fatal(err)
	}
	manual, err := env.Engine.CreateTask(env.Ctx, "org", engine.TaskCreateOptions{Title: "Manual", MissionID: m.ID})
	if err != nil {
		t.Fatal(err)
	}
	newTitle := "Chairs and stage"
	bob := "bob"
	ghost := "nobody"
	hijack := "Hijacked"
	desc := "Only the description"
	tasks, err := env.Engine.ApproveMission(env.Ctx, "mgr", m.ID, []engine.TaskEdit{
		{TaskID: res.Tasks[0].ID, Title: &newTitle, Assignee: &bob},
		{TaskID: res.Tasks[1].ID, Description: &desc, Assignee: &ghost},
		{TaskID: "does-not-exist", Title: &hijack},
		{TaskID: manual.ID, Title: &hijack},
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected the 2 generated tasks, got %d", len(tasks))
	}
	if tasks[0].Title != newTitle || tasks[0].AssigneeID == nil || *tasks[0].AssigneeID != "bob" {
		t.Fatalf("first task not updated: %+v", tasks[0])
	}
	if tasks[0].Description != res.Tasks[0].Description {
		t.Fatalf("absent description must be unchanged")
	}
	if tasks[1].Title != res.Tasks[1].Title || tasks[1].Description != desc || *tasks[1].AssigneeID != "bob" {
		t.Fatalf("second task unexpected: %+v", tasks[1])
	}
	got, err := env.Engine.GetTask(env.Ctx, "org", manual.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Manual" {
		t.Fatalf("non generated task must not be edited")
	}
	mission, err := env.Engine.GetMission(env.Ctx, "org", m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !mission.IsApproved {
		t.Fatalf("expected mission approved")
	}
}

func TestApproveWithOnlyUnknownEntriesStillApproves(t *testing.T) {
	env := newTestEnv(t)
	m := env.mission(t, "Set up hall")
	title := "x"
	if _, err := env.Engine.ApproveMission(env.Ctx, "mgr", m.ID, []engine.TaskEdit{{TaskID: "nope", Title: &title}}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, err := env.Engine.GetMission(env.Ctx, "org", m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsApproved {
		t.Fatalf("expected approved")
	}
	if _, err := env.Engine.ApproveMission(env.Ctx, "admin", m.ID, nil); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("admin approval must be refused, got %v", err)
	}
}

func TestMissionScoping(t *testing.T) {
	env := newTestEnv(t)
	m := env.mission(t, "Set up hall")
	teamU, err := env.Engine.CreateTeam(env.Ctx, "org", engine.TeamCreateOptions{Name: "Parking", EventID: env.Event.ID, ManagerID: "mgr2"})
	if err != nil {
		t.Fatal(err)
	}
	u, err := env.Engine.CreateMission(env.Ctx, "org", engine.MissionCreateOptions{Title: "Cones", EventID: env.Event.ID, TeamID: teamU.ID})
	if err != nil {
		t.Fatal(err)
	}
	visible := func(actor string) map[string]bool {
		t.Helper()
		missions, err := env.Engine.ListMissions(env.Ctx, actor, engine.MissionQuery{})
		if err != nil {
			t.Fatalf("list as %s: %v", actor, err)
		}
		ids := map[string]bool{}
		for _, mm := range missions {
			ids[mm.ID] = true
		}
		return ids
	}
	if ids := visible("amy"); !ids[m.ID] || ids[u.ID] {
		t.Fatalf("staff visibility wrong: %v", ids)
	}
	if ids := visible("mgr2"); ids[m.ID] || !ids[u.ID] {
		t.Fatalf("manager visibility wrong: %v", ids)
	}
	if ids := visible("org"); !ids[m.ID] || !ids[u.ID] {
		t.Fatalf("organizer visibility wrong: %v", ids)
	}
	if ids := visible("admin"); len(ids) != 0 {
		t.Fatalf("admin should see no missions: %v", ids)
	}
	if _, err := env.Engine.GetMission(env.Ctx, "amy", u.ID); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("out of scope get must be not found, got %v", err)
	}
}

func TestTaskScopingAndStatusUpdates(t *testing.T) {
	env := newTestEnv(t)
	m := env.mission(t, "Set up hall")
	res, err := env.Engine.SplitMission(env.Ctx, "mgr", m.ID)
	if err != nil {
		t.Fatal(err)
	}
	amyTask, bobTask := res.Tasks[0], res.Tasks[1]

	amyTasks, err := env.Engine.ListTasks(env.Ctx, "amy", engine.TaskQuery{})
	if err != nil || len(amyTasks) != 1 || amyTasks[0].ID != amyTask.ID {
		t.Fatalf("staff should only see own task: %v %v", amyTasks, err)
	}
	mgrTasks, err := env.Engine.ListTasks(env.Ctx, "mgr", engine.TaskQuery{})
	if err != nil || len(mgrTasks) != 2 {
		t.Fatalf("team manager should see both tasks: %d %v", len(mgrTasks), err)
	}
	otherMgr, err := env.Engine.ListTasks(env.Ctx, "mgr2", engine.TaskQuery{})
	if err != nil || len(otherMgr) != 0 {
		t.Fatalf("unrelated manager sees tasks: %d %v", len(otherMgr), err)
	}

	done := "done"
	task, err := env.Engine.UpdateTask(env.Ctx, "amy", amyTask.ID, engine.TaskUpdateOptions{Status: &done})
	if err != nil || task.Status != domain.StatusDone {
		t.Fatalf("assignee pending -> done: %v", err)
	}
	if task, err = env.Engine.UpdateTask(env.Ctx, "org", bobTask.ID, engine.TaskUpdateOptions{Status: &done}); err != nil || task.Status != domain.StatusDone {
		t.Fatalf("organizer pending -> done: %v", err)
	}
	inProgress := "in_progress"
	if _, err := env.Engine.UpdateTask(env.Ctx, "amy", bobTask.ID, engine.TaskUpdateOptions{Status: &inProgress}); !isForbidden(err) {
		t.Fatalf("non assignee status update must be forbidden, got %v", err)
	}
	title := "renamed"
	if _, err := env.Engine.UpdateTask(env.Ctx, "amy", amyTask.ID, engine.TaskUpdateOptions{Title: &title, Status: &inProgress}); !isForbidden(err) {
		t.Fatalf("staff full edit must be forbidden, got %v", err)
	}
	if _, err := env.Engine.UpdateTask(env.Ctx, "mgr", amyTask.ID, engine.TaskUpdateOptions{Title: &title}); err != nil {
		t.Fatalf("team manager edit: %v", err)
	}
	for _, next := range []domain.Status{domain.StatusBlocked, domain.StatusPending, domain.StatusInProgress, domain.StatusDone} {
		status := string(next)
		task, err := env.Engine.UpdateTask(env.Ctx, "amy", amyTask.ID, engine.TaskUpdateOptions{Status: &status})
		if err != nil || task.Status != next {
			t.Fatalf("status %s: %v", next, err)
		}
	}
	finished := "finished"
	_, err = env.Engine.UpdateTask(env.Ctx, "amy", amyTask.ID, engine.TaskUpdateOptions{Status: &finished})
	var ve engine.ValidationError
	if !errors.As(err, &ve) || ve.Field != "status" {
		t.Fatalf("unknown status must fail validation, got %v", err)
	}
	if err := env.Engine.DeleteTask(env.Ctx, "bob", bobTask.ID); err != nil {
		t.Fatalf("assignee delete: %v", err)
	}
}

func TestSuggestMission(t *testing.T) {
	env := newTestEnv(t)
	var prompt string
	env.Engine.Advisor = advisor.Func(func(ctx context.Context, p string) (string, error) {
		prompt = p
		return "Here is my idea:\n{\"title\": \"Greeting desk\", \"description\": \"Welcome guests at the entrance\"}\nThanks!", nil
	})
	m, err := env.Engine.SuggestMission(env.Ctx, "org", env.Event.ID)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if m.Title != "Greeting desk" || m.Description != "Welcome guests at the entrance" {
		t.Fatalf("unexpected mission %+v", m)
	}
	if m.TeamID != env.Team.ID || m.AssignedManagerID == nil || *m.AssignedManagerID != "mgr" || *m.CreatedBy != "org" {
		t.Fatalf("unexpected ownership %+v", m)
	}
	for _, name := range []string{"amy", "mark", "bob", "Spring Expo"} {
		if !strings.Contains(prompt, name) {
			t.Fatalf("prompt missing %q:\n%s", name, prompt)
		}
	}
	if _, err := env.Engine.GetMission(env.Ctx, "org", m.ID); err != nil {
		t.Fatalf("suggested mission not stored: %v", err)
	}
	if _, err := env.Engine.SuggestMission(env.Ctx, "mgr", env.Event.ID); !isForbidden(err) {
		t.Fatalf("manager suggest must be forbidden, got %v", err)
	}
}

func TestSuggestMissionPreconditions(t *testing.T) {
	env := newTestEnv(t)
	called := false
	env.Engine.Advisor = advisor.Func(func(context.Context, string) (string, error) {
		called = true
		return `{"title":"x"}`, nil
	})
	bare, err := env.Engine.CreateEvent(env.Ctx, "org", engine.EventCreateOptions{Title: "No teams"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SuggestMission(env.Ctx, "org", bare.ID); !errors.Is(err, engine.ErrNoTeamForEvent) {
		t.Fatalf("expected ErrNoTeamForEvent, got %v", err)
	}
	if _, err := env.Engine.CreateTeam(env.Ctx, "org", engine.TeamCreateOptions{Name: "Leaderless", EventID: bare.ID}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SuggestMission(env.Ctx, "org", bare.ID); !errors.Is(err, engine.ErrNoManagerAssigned) {
		t.Fatalf("expected ErrNoManagerAssigned, got %v", err)
	}
	if called {
		t.Fatalf("advisor must not be called when preconditions fail")
	}
	missions, err := env.Engine.ListMissions(env.Ctx, "org", engine.MissionQuery{EventID: bare.ID})
	if err != nil || len(missions) != 0 {
		t.Fatalf("expected no missions, got %d (%v)", len(missions), err)
	}
	if _, err := env.Engine.SuggestMission(env.Ctx, "org", "missing"); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected not found for missing event, got %v", err)
	}
}

func TestSuggestMissionInvalidResponses(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Config.Advisor.Timeout = "20ms"
	cases := map[string]advisor.Func{
		"prose only": func(context.Context, string) (string, error) { return "I cannot help with that.", nil },
		"broken json": func(context.Context, string) (string, error) { return `{"title": "x",`, nil },
		"failure": func(context.Context, string) (string, error) { return "", errors.New("upstream down") },
		"timeout": func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			env.Engine.Advisor = fn
			_, err := env.Engine.SuggestMission(env.Ctx, "org", env.Event.ID)
			var aiErr engine.AIResponseError
			if !errors.As(err, &aiErr) {
				t.Fatalf("expected AIResponseError, got %v", err)
			}
			if engine.KindOf(err) != engine.KindAIResponseInvalid {
				t.Fatalf("unexpected kind %s", engine.KindOf(err))
			}
		})
	}
	missions, err := env.Engine.ListMissions(env.Ctx, "org", engine.MissionQuery{})
	if err != nil || len(missions) != 0 {
		t.Fatalf("no mission should be stored, got %d (%v)", len(missions), err)
	}
}

func TestDeleteCompanyCascades(t *testing.T) {
	env := newTestEnv(t)
	c, err := env.Engine.CreateCompany(env.Ctx, "org", "Acme")
	if err != nil {
		t.Fatal(err)
	}
	ev, err := env.Engine.CreateEvent(env.Ctx, "org", engine.EventCreateOptions{Title: "Launch", CompanyID: c.ID})
	if err != nil {
		t.Fatal(err)
	}
	team, err := env.Engine.CreateTeam(env.Ctx, "org", engine.TeamCreateOptions{Name: "T", EventID: ev.ID, ManagerID: "mgr", MemberIDs: []string{"amy"}})
	if err != nil {
		t.Fatal(err)
	}
	m, err := env.Engine.CreateMission(env.Ctx, "org", engine.MissionCreateOptions{Title: "M", EventID: ev.ID, TeamID: team.ID})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SplitMission(env.Ctx, "mgr", m.ID); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.DeleteCompany(env.Ctx, "amy", c.ID); !isForbidden(err) {
		t.Fatalf("non creator delete must be forbidden, got %v", err)
	}
	if err := env.Engine.DeleteCompany(env.Ctx, "org", c.ID); err != nil {
		t.Fatalf("delete company: %v", err)
	}
	events, _ := env.Engine.ListEvents(env.Ctx, "org", repo.EventFilters{CompanyID: c.ID})
	teams, _ := env.Engine.ListTeams(env.Ctx, "org", ev.ID)
	missions, _ := env.Engine.ListMissions(env.Ctx, "org", engine.MissionQuery{EventID: ev.ID})
	tasks, _ := env.Engine.ListTasks(env.Ctx, "org", engine.TaskQuery{EventID: ev.ID})
	if len(events)+len(teams)+len(missions)+len(tasks) != 0 {
		t.Fatalf("cascade incomplete: %d %d %d %d", len(events), len(teams), len(missions), len(tasks))
	}
}

func TestCreateTaskConsistency(t *testing.T) {
	env := newTestEnv(t)
	m := env.mission(t, "Set up hall")
	other, err := env.Engine.CreateTeam(env.Ctx, "org", engine.TeamCreateOptions{Name: "Other", EventID: env.Event.ID})
	if err != nil {
		t.Fatal(err)
	}
	_, err = env.Engine.CreateTask(env.Ctx, "org", engine.TaskCreateOptions{Title: "x", MissionID: m.ID, TeamID: other.ID})
	var ve engine.ValidationError
	if !errors.As(err, &ve) || ve.Field != "team_id" {
		t.Fatalf("expected team mismatch, got %v", err)
	}
	task, err := env.Engine.CreateTask(env.Ctx, "org", engine.TaskCreateOptions{Title: "Top level", EventID: env.Event.ID, AssigneeID: "amy"})
	if err != nil {
		t.Fatalf("top level task: %v", err)
	}
	if task.MissionID != nil || task.TeamID != nil || task.AIGenerated {
		t.Fatalf("unexpected top level task %+v", task)
	}
	if _, err := env.Engine.CreateTask(env.Ctx, "mgr", engine.TaskCreateOptions{Title: "x", EventID: env.Event.ID}); !isForbidden(err) {
		t.Fatalf("manager create task must be forbidden, got %v", err)
	}
}

func TestSetProfileRole(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.SetProfileRole(env.Ctx, "admin", "amy", "manager")
	if err != nil || p.Role != domain.RoleManager {
		t.Fatalf("set role: %+v %v", p, err)
	}
	_, err = env.Engine.SetProfileRole(env.Ctx, "admin", "amy", "superuser")
	if engine.KindOf(err) != engine.KindValidation {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if _, err := env.Engine.SetProfileRole(env.Ctx, "org", "amy", "admin"); !isForbidden(err) {
		t.Fatalf("organizer must not set roles, got %v", err)
	}
	if _, err := env.Engine.SetProfileRole(env.Ctx, "admin", "ghost", "staff"); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUnknownPrincipalIsProfileNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.ListMissions(env.Ctx, "stranger", engine.MissionQuery{})
	if !errors.Is(err, engine.ErrProfileNotFound) || engine.KindOf(err) != engine.KindProfileNotFound {
		t.Fatalf("expected profile not found, got %v", err)
	}
}

func TestSignupAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.Signup(env.Ctx, engine.SignupOptions{Username: "newbie", Email: "n@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if p.Role != domain.RoleStaff || !p.IsAvailable {
		t.Fatalf("unexpected signup profile %+v", p)
	}
	if _, err := env.Engine.Signup(env.Ctx, engine.SignupOptions{Username: "newbie", Password: "another-one"}); engine.KindOf(err) != engine.KindValidation {
		t.Fatalf("duplicate username must fail validation, got %v", err)
	}
	got, err := env.Engine.Authenticate(env.Ctx, "newbie", "correct-horse")
	if err != nil || got.ID != p.ID {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := env.Engine.Authenticate(env.Ctx, "newbie", "wrong-password"); !errors.Is(err, engine.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := env.Engine.Authenticate(env.Ctx, "amy", "anything"); !errors.Is(err, engine.ErrInvalidCredentials) {
		t.Fatalf("passwordless profile must not log in, got %v", err)
	}
	env.Engine.Config.Auth.AllowSignup = false
	if _, err := env.Engine.Signup(env.Ctx, engine.SignupOptions{Username: "late", Password: "long-enough"}); !isForbidden(err) {
		t.Fatalf("disabled signup must be forbidden, got %v", err)
	}
}

func TestActivityRecordsWorkflow(t *testing.T) {
	env := newTestEnv(t)
	m := env.mission(t, "Set up hall")
	if _, err := env.Engine.SplitMission(env.Ctx, "mgr", m.ID); err != nil {
		t.Fatal(err)
	}
	entries, err := env.Engine.ListActivity(env.Ctx, "org", repo.ActivityFilters{EntityKind: "mission", EntityID: m.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Type != "mission.split" || entries[1].Type != "mission.created" {
		t.Fatalf("unexpected activity %+v", entries)
	}
	if _, err := env.Engine.ListActivity(env.Ctx, "amy", repo.ActivityFilters{}); !isForbidden(err) {
		t.Fatalf("staff must not read activity, got %v", err)
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want engine.Kind
	}{
		{auth.ForbiddenError{Action: auth.ActionCreateTeam, Rule: "r"}, engine.KindForbidden},
		{engine.ErrNotFound, engine.KindNotFound},
		{engine.ErrProfileNotFound, engine.KindProfileNotFound},
		{engine.ValidationError{Field: "f", Reason: "r"}, engine.KindValidation},
		{engine.ErrNoTeamForEvent, engine.KindNoTeamForEvent},
		{engine.ErrNoManagerAssigned, engine.KindNoManagerAssigned},
		{engine.AIResponseError{Err: errors.New("x")}, engine.KindAIResponseInvalid},
		{errors.New("boom"), engine.KindInternal},
	}
	for _, tc := range cases {
		if got := engine.KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestEventEditPolicy(t *testing.T) {
	env := newTestEnv(t)
	title := "Spring Expo 2025"
	if _, err := env.Engine.UpdateEvent(env.Ctx, "mgr", env.Event.ID, repo.EventUpdate{Title: &title}); !isForbidden(err) {
		t.Fatalf("manager edit: expected forbidden, got %v", err)
	}
	got, err := env.Engine.UpdateEvent(env.Ctx, "admin", env.Event.ID, repo.EventUpdate{Title: &title})
	if err != nil {
		t.Fatalf("admin edit: %v", err)
	}
	if got.Title != title || got.Location != "Hall A" {
		t.Fatalf("unexpected event %+v", got)
	}
	empty := " "
	if _, err := env.Engine.UpdateEvent(env.Ctx, "org", env.Event.ID, repo.EventUpdate{Title: &empty}); engine.KindOf(err) != engine.KindValidation {
		t.Fatalf("empty title: expected validation failure, got %v", err)
	}
	missing := "no-such-company"
	if _, err := env.Engine.UpdateEvent(env.Ctx, "org", env.Event.ID, repo.EventUpdate{CompanyID: &missing}); engine.KindOf(err) != engine.KindValidation {
		t.Fatalf("unknown company: expected validation failure, got %v", err)
	}
	if err := env.Engine.DeleteEvent(env.Ctx, "amy", env.Event.ID); !isForbidden(err) {
		t.Fatalf("staff delete: expected forbidden, got %v", err)
	}
	if err := env.Engine.DeleteEvent(env.Ctx, "org", env.Event.ID); err != nil {
		t.Fatalf("delete event: %v", err)
	}
	if _, err := env.Engine.GetTeam(env.Ctx, "org", env.Team.ID); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected team to cascade, got %v", err)
	}
}

func TestSetAvailability(t *testing.T) {
	env := newTestEnv(t)
	off := false
	p, err := env.Engine.SetAvailability(env.Ctx, "amy", "amy", engine.AvailabilityOptions{IsAvailable: &off})
	if err != nil {
		t.Fatalf("self availability: %v", err)
	}
	if p.IsAvailable {
		t.Fatalf("expected amy unavailable, got %+v", p)
	}
	if _, err := env.Engine.SetAvailability(env.Ctx, "bob", "amy", engine.AvailabilityOptions{IsAvailable: &off}); !isForbidden(err) {
		t.Fatalf("expected forbidden for other staff, got %v", err)
	}
	team := "Floor crew"
	p, err = env.Engine.SetAvailability(env.Ctx, "admin", "bob", engine.AvailabilityOptions{CurrentTeam: &team})
	if err != nil {
		t.Fatalf("admin availability: %v", err)
	}
	if p.CurrentTeam == nil || *p.CurrentTeam != team || !p.IsAvailable {
		t.Fatalf("unexpected profile %+v", p)
	}
}
