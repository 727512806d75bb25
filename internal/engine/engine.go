package engine

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/activity"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/config"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine/advisor"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/repo"
)

type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Activity activity.Writer
	Config   *config.Config
	Advisor  advisor.Advisor
	Logger   *slog.Logger
	Now      func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		DB:       db,
		Repo:     repo.Repo{DB: db},
		Activity: activity.Writer{},
		Config:   cfg,
		Advisor:  advisor.Disabled{},
		Now:      time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) log() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e Engine) writer() activity.Writer {
	w := e.Activity
	if w.Now == nil {
		w.Now = e.now
	}
	return w
}

// inTx runs fn in one transaction with a repo bound to it; fn's error rolls everything back.
func (e Engine) inTx(ctx context.Context, fn func(tx *sql.Tx, r repo.Repo) error) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx, e.Repo.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
