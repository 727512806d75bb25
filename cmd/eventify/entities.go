package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/repo"
)

func companyCmd() *cobra.Command {
	c := &cobra.Command{Use: "company", Short: "Manage companies"}
	c.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List companies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListCompanies(ctx, actorID())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable(table.Row{"ID", "Name", "Created"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.ID, c.String(), c.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	})
	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a company",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				company, err := e.CreateCompany(ctx, actorID(), name)
				if err != nil {
					return err
				}
				return printJSONOrTable(company)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "company name")
	c.AddCommand(create)
	return c
}

func eventCmd() *cobra.Command {
	ev := &cobra.Command{Use: "event", Short: "Manage events"}
	var f repo.EventFilters
	list := &cobra.Command{
		Use:   "list",
		Short: "List events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListEvents(ctx, actorID(), f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable(table.Row{"ID", "Title", "Date", "Location", "Status"})
				for _, ev := range items {
					tw.AppendRow(table.Row{ev.ID, ev.String(), ev.Date, ev.Location, ev.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&f.CompanyID, "company", "", "company id")
	list.Flags().StringVar(&f.Status, "status", "", "event status")
	ev.AddCommand(list)

	var opts engine.EventCreateOptions
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				created, err := e.CreateEvent(ctx, actorID(), opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(created)
			})
		},
	}
	create.Flags().StringVar(&opts.Title, "title", "", "event title")
	create.Flags().StringVar(&opts.Location, "location", "", "location")
	create.Flags().StringVar(&opts.Description, "description", "", "description")
	create.Flags().StringVar(&opts.Date, "date", "", "date (YYYY-MM-DD)")
	create.Flags().StringVar(&opts.Status, "status", "", "event status")
	create.Flags().StringVar(&opts.CompanyID, "company", "", "company id")
	ev.AddCommand(create)
	return ev
}

func teamCmd() *cobra.Command {
	t := &cobra.Command{Use: "team", Short: "Manage teams"}
	var eventID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List teams visible to the actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListTeams(ctx, actorID(), eventID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				titles := eventTitles(ctx, e)
				tw := newTable(table.Row{"ID", "Team", "Manager", "Members"})
				for _, team := range items {
					tw.AppendRow(table.Row{team.ID, team.Label(titles[team.EventID]), deref(team.ManagerID), len(team.MemberIDs)})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&eventID, "event", "", "event id")
	t.AddCommand(list)

	var opts engine.TeamCreateOptions
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a team for an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				team, err := e.CreateTeam(ctx, actorID(), opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(team)
			})
		},
	}
	create.Flags().StringVar(&opts.Name, "name", "", "team name")
	create.Flags().StringVar(&opts.EventID, "event", "", "event id")
	create.Flags().StringVar(&opts.ManagerID, "manager", "", "manager profile id")
	create.Flags().StringSliceVar(&opts.MemberIDs, "member", nil, "member profile id (repeatable)")
	t.AddCommand(create)

	var teamID, profileID string
	addMember := &cobra.Command{
		Use:   "add-member",
		Short: "Add a profile to a team",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				team, err := e.AddTeamMember(ctx, actorID(), teamID, profileID)
				if err != nil {
					return err
				}
				return printJSONOrTable(team)
			})
		},
	}
	addMember.Flags().StringVar(&teamID, "team", "", "team id")
	addMember.Flags().StringVar(&profileID, "profile", "", "profile id")
	t.AddCommand(addMember)
	return t
}

func missionCmd() *cobra.Command {
	m := &cobra.Command{
		Use:   "mission",
		Short: "Manage missions",
		Long:  "Missions belong to an event and a team. The assigned manager splits them into one task per staff member and approves the result.",
	}
	var q engine.MissionQuery
	list := &cobra.Command{
		Use:   "list",
		Short: "List missions visible to the actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListMissions(ctx, actorID(), q)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				titles := eventTitles(ctx, e)
				names := teamNames(ctx, e)
				tw := newTable(table.Row{"ID", "Mission", "Status", "Split", "Approved"})
				for _, ms := range items {
					tw.AppendRow(table.Row{ms.ID, ms.Label(names[ms.TeamID], titles[ms.EventID]), ms.Status, ms.AISplit, ms.IsApproved})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&q.EventID, "event", "", "event id")
	list.Flags().StringVar(&q.TeamID, "team", "", "team id")
	list.Flags().StringVar(&q.Status, "status", "", "status")
	m.AddCommand(list)

	var opts engine.MissionCreateOptions
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ms, err := e.CreateMission(ctx, actorID(), opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(ms)
			})
		},
	}
	create.Flags().StringVar(&opts.Title, "title", "", "mission title")
	create.Flags().StringVar(&opts.Description, "description", "", "description")
	create.Flags().StringVar(&opts.EventID, "event", "", "event id")
	create.Flags().StringVar(&opts.TeamID, "team", "", "team id")
	create.Flags().StringVar(&opts.AssignedManagerID, "manager", "", "assigned manager (defaults to the team manager)")
	create.Flags().StringVar(&opts.Status, "status", "", "initial status")
	m.AddCommand(create)

	m.AddCommand(&cobra.Command{
		Use:   "split <mission-id>",
		Short: "Split a mission into one task per staff member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.SplitMission(ctx, actorID(), args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				printTasks(res.Tasks, res.Mission.Title)
				return nil
			})
		},
	})

	var editsJSON string
	approve := &cobra.Command{
		Use:   "approve <mission-id>",
		Short: "Approve a split mission, optionally editing its tasks",
		Long:  `--edits takes a JSON array of {"task_id","title","description","assignee"}; the assignee may be a profile id or username.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var edits []engine.TaskEdit
			if editsJSON != "" {
				if err := json.Unmarshal([]byte(editsJSON), &edits); err != nil {
					return fmt.Errorf("--edits: %w", err)
				}
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.ApproveMission(ctx, actorID(), args[0], edits)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				printTasks(tasks, "")
				return nil
			})
		},
	}
	approve.Flags().StringVar(&editsJSON, "edits", "", "task edits as JSON")
	m.AddCommand(approve)

	m.AddCommand(&cobra.Command{
		Use:   "suggest <event-id>",
		Short: "Ask the advisor for a mission on an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ms, err := e.SuggestMission(ctx, actorID(), args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(ms)
			})
		},
	})
	return m
}

func taskCmd() *cobra.Command {
	t := &cobra.Command{Use: "task", Short: "Manage tasks"}
	var q engine.TaskQuery
	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks visible to the actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListTasks(ctx, actorID(), q)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				printTasks(items, "")
				return nil
			})
		},
	}
	list.Flags().StringVar(&q.MissionID, "mission", "", "mission id")
	list.Flags().StringVar(&q.EventID, "event", "", "event id")
	list.Flags().StringVar(&q.TeamID, "team", "", "team id")
	list.Flags().StringVar(&q.Status, "status", "", "status")
	t.AddCommand(list)

	var opts engine.TaskCreateOptions
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				task, err := e.CreateTask(ctx, actorID(), opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(task)
			})
		},
	}
	create.Flags().StringVar(&opts.Title, "title", "", "task title")
	create.Flags().StringVar(&opts.Description, "description", "", "description")
	create.Flags().StringVar(&opts.MissionID, "mission", "", "mission id")
	create.Flags().StringVar(&opts.TeamID, "team", "", "team id")
	create.Flags().StringVar(&opts.EventID, "event", "", "event id")
	create.Flags().StringVar(&opts.AssigneeID, "assignee", "", "assignee profile id")
	create.Flags().StringVar(&opts.Status, "status", "", "initial status")
	t.AddCommand(create)

	var title, description, status, assignee string
	update := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update a task; assignees may only change its status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var up engine.TaskUpdateOptions
			flags := cmd.Flags()
			if flags.Changed("title") {
				up.Title = &title
			}
			if flags.Changed("description") {
				up.Description = &description
			}
			if flags.Changed("status") {
				up.Status = optionalString(status)
			}
			if flags.Changed("assignee") {
				up.AssigneeID = &assignee
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				task, err := e.UpdateTask(ctx, actorID(), args[0], up)
				if err != nil {
					return err
				}
				return printJSONOrTable(task)
			})
		},
	}
	update.Flags().StringVar(&title, "title", "", "new title")
	update.Flags().StringVar(&description, "description", "", "new description")
	update.Flags().StringVar(&status, "status", "", "pending, in_progress, done or blocked")
	update.Flags().StringVar(&assignee, "assignee", "", "new assignee profile id")
	t.AddCommand(update)
	return t
}

func printTasks(items []domain.Task, missionTitle string) {
	tw := newTable(table.Row{"ID", "Task", "Assignee", "Status", "AI"})
	for _, task := range items {
		tw.AppendRow(table.Row{task.ID, task.Label(missionTitle), deref(task.AssigneeID), task.Status, task.AIGenerated})
	}
	tw.Render()
}

// eventTitles and teamNames read straight from the store; table labels are
// not subject to the actor's scope.
func eventTitles(ctx context.Context, e engine.Engine) map[string]string {
	out := map[string]string{}
	events, err := e.Repo.ListEvents(ctx, repo.EventFilters{})
	if err != nil {
		return out
	}
	for _, ev := range events {
		out[ev.ID] = ev.String()
	}
	return out
}

func teamNames(ctx context.Context, e engine.Engine) map[string]string {
	out := map[string]string{}
	teams, err := e.Repo.ListTeams(ctx, repo.TeamFilters{})
	if err != nil {
		return out
	}
	for _, t := range teams {
		out[t.ID] = t.Name
	}
	return out
}
