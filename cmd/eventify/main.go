package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/app"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/config"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/migrate"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/repo"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "eventify",
	Short: "Eventify CLI",
	Long: `Eventify staffs events: organizers create events, teams and missions, managers split
missions into one task per staff member and approve the result, staff work their tasks.
- Workspace: the directory holding eventify.yml and the .eventify database.
- Profiles: everyone has one role (admin, organizer, manager, staff); seed the first ones with 'profile bootstrap'.
- Missions: created by organizers or suggested by the AI advisor, then split and approved by the assigned manager.
- Activity log: every change is recorded, view it with 'eventify log tail'.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("EVENTIFY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("workspace", "w", ".", "workspace directory")
	flags.String("config", "", "config file (defaults to <workspace>/eventify.yml)")
	flags.String("database-url", "", "database url, e.g. sqlite3:/var/lib/eventify.db")
	flags.String("log-level", "", "log level override (debug, info, warn, error)")
	flags.Bool("json", false, "output JSON")
	flags.String("actor-id", "", "profile id to act as")
	for _, name := range []string{"workspace", "config", "database-url", "log-level", "json", "actor-id"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(apiKeyCmd())
	rootCmd.AddCommand(companyCmd())
	rootCmd.AddCommand(eventCmd())
	rootCmd.AddCommand(teamCmd())
	rootCmd.AddCommand(missionCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(logCmd())
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(ctx, func(ctx context.Context, a *app.App) error {
				cfg := a.Config
				if cmd.Flags().Changed("addr") {
					cfg.Server.Addr = addr
				}
				if cmd.Flags().Changed("base-path") {
					cfg.Server.BasePath = basePath
				}
				if cfg.Auth.JWTSecret == "" {
					return fmt.Errorf("auth.jwt_secret or EVENTIFY_JWT_SECRET is required")
				}
				authCfg := server.AuthConfig{
					JWTSecret:              cfg.Auth.JWTSecret,
					TokenTTL:               cfg.TokenTTL(),
					AllowLegacyActorHeader: cfg.Auth.AllowLegacyActorHeader,
					Logger:                 a.Logger,
				}
				handler, err := server.New(server.Config{Engine: a.Engine, BasePath: cfg.Server.BasePath, Auth: authCfg, Logger: a.Logger})
				if err != nil {
					return err
				}
				go server.NewWebhookDispatcher(a.Engine.Repo, cfg.Webhooks, a.Logger).Run(ctx)

				srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				a.Logger.Info("serving Eventify API", "addr", cfg.Server.Addr, "base_path", cfg.Server.BasePath, "advisor", cfg.Advisor.Provider)
				fmt.Printf("Serving Eventify API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", cfg.Server.Addr, cfg.Server.BasePath, cfg.Server.BasePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path (overrides server.base_path)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				v, err := migrate.Version(ctx, a.DB)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]int64{"version": v})
				}
				fmt.Printf("database at version %d\n", v)
				return nil
			})
		},
	}
}

func profileCmd() *cobra.Command {
	p := &cobra.Command{Use: "profile", Short: "Manage profiles"}
	p.AddCommand(profileListCmd())
	p.AddCommand(profileBootstrapCmd())
	p.AddCommand(profileSetRoleCmd())
	return p
}

func profileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListProfiles(ctx, actorID())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable(table.Row{"ID", "Profile", "Available", "Team"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.String(), p.IsAvailable, deref(p.CurrentTeam)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func profileBootstrapCmd() *cobra.Command {
	var id, username, role string
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create or promote a profile without a policy check",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("--username required")
			}
			r, ok := domain.ParseRole(role)
			if !ok {
				return fmt.Errorf("--role must be one of admin, organizer, manager, staff")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.BootstrapProfile(ctx, id, username, r)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "profile id (generated when empty)")
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleStaff), "role")
	return cmd
}

func profileSetRoleCmd() *cobra.Command {
	var target, role string
	cmd := &cobra.Command{
		Use:   "set-role",
		Short: "Change a profile's role (admin only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" {
				return fmt.Errorf("--profile required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.SetProfileRole(ctx, actorID(), target, role)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&target, "profile", "", "profile id")
	cmd.Flags().StringVar(&role, "role", "", "new role")
	return cmd
}

func apiKeyCmd() *cobra.Command {
	k := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for --actor-id; the key is printed once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				raw, key, err := e.CreateAPIKey(ctx, actorID(), name)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"id": key.ID, "key": raw})
				}
				fmt.Printf("api key %s created for %s\n%s\n", key.ID, key.ProfileID, raw)
				return nil
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "key label")
	k.AddCommand(create)
	return k
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Activity log",
		Long:  "Everything that happened: profiles, companies, events, teams, missions and tasks.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var f repo.ActivityFilters
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the newest activity entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListActivity(ctx, actorID(), f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable(table.Row{"ID", "TS", "Type", "Entity", "Actor", "Payload"})
				for _, a := range items {
					tw.AppendRow(table.Row{a.ID, a.TS, a.Type, a.EntityKind + "/" + a.EntityID, a.ActorID, a.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&f.Limit, "n", 20, "number of entries")
	cmd.Flags().StringVar(&f.Type, "type", "", "entry type filter")
	cmd.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	return cmd
}

// --- helpers ---

func actorID() string {
	return viper.GetString("actor-id")
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	opts := app.Options{
		Workspace:   viper.GetString("workspace"),
		ConfigPath:  viper.GetString("config"),
		DatabaseURL: viper.GetString("database-url"),
	}
	if level := viper.GetString("log-level"); level != "" {
		logger, err := app.NewLogger(os.Stderr, level, "text")
		if err != nil {
			return err
		}
		opts.Logger = logger
	}
	a, err := app.Open(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	applyEnvOverrides(a.Config)
	slog.SetDefault(a.Logger)
	return fn(ctx, a)
}

// applyEnvOverrides lets EVENTIFY_* variables win over file values.
func applyEnvOverrides(cfg *config.Config) {
	if v := viper.GetString("jwt-secret"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if viper.IsSet("allow-signup") {
		cfg.Auth.AllowSignup = viper.GetBool("allow-signup")
	}
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		return fn(ctx, a.Engine)
	})
}

func newTable(header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(header)
	return tw
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
