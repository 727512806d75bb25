package activity_test

import (
	"context"
	"testing"
	"time"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/activity"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/db"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/migrate"
)

func TestEntityKind(t *testing.T) {
	cases := map[activity.Type]string{
		activity.MissionSplit:               "mission",
		activity.APIKeyCreated:              "api_key",
		activity.ProfileAvailabilityChanged: "profile",
		activity.TeamMemberAdded:            "team",
	}
	for typ, want := range cases {
		if got := typ.EntityKind(); got != want {
			t.Fatalf("%s: expected kind %q, got %q", typ, want, got)
		}
	}
	if !activity.Known("task.updated") || activity.Known("task.exploded") {
		t.Fatal("Known disagrees with Types")
	}
}

func TestRecordWritesEntry(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ctx := context.Background()
	w := activity.Writer{Now: func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Record(ctx, tx, activity.MissionApproved, "m1", "mgr", activity.Payload{"tasks": 2}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := w.Record(ctx, tx, activity.ProfileBootstrapped, "", "system", nil); err != nil {
		t.Fatalf("record without entity: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	rows, err := conn.QueryContext(ctx, `SELECT ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM activity ORDER BY id`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var got [][6]string
	for rows.Next() {
		var r [6]string
		if err := rows.Scan(&r[0], &r[1], &r[2], &r[3], &r[4], &r[5]); err != nil {
			t.Fatal(err)
		}
		got = append(got, r)
	}
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}
	want := [][6]string{
		{"2025-03-01T09:00:00Z", "mission.approved", "mission", "m1", "mgr", `{"tasks":2}`},
		{"2025-03-01T09:00:00Z", "profile.bootstrapped", "profile", "", "system", `{}`},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}
