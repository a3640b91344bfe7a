package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"sitedesk/internal/app"
	"sitedesk/internal/config"
	"sitedesk/internal/db"
	"sitedesk/internal/engine"
	"sitedesk/internal/migrate"
	"sitedesk/internal/repo"
	"sitedesk/internal/server"
	"sitedesk/internal/workflow"
)

var rootCmd = &cobra.Command{
	Use:   "sd",
	Short: "Sitedesk CLI",
	Long: `Sitedesk tracks construction project workflows from the field and the trailer.
- Workspace: your .sitedesk directory with only the database; configs are stored in the DB and imported explicitly.
- Project: one job (the building, the bridge) that owns all RFIs, change orders, submittals, daily reports, and costs.
- RFIs: formal questions with an SLA clock; statuses go draft -> submitted -> under_review -> answered -> closed (cancelled is an exit).
- Ball-in-court: who owes the next move on an RFI, derived from status and assignment.
- Change orders: contract changes that climb contemplated -> potential -> proposed -> approved -> invoiced.
- Submittals: product data and shop drawings routed GC -> A/E -> owner, with numbered revisions.
- Daily reports: one field report per calendar date, submitted and approved.
- Event log: diary of everything that happened, view with 'sd log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SITEDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("project", "SITEDESK_PROJECT", "SITEDESK_DEFAULT_PROJECT")
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().Bool("force", false, "force operation")
	rootCmd.PersistentFlags().String("project", "", "project id (overrides config default)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("force", rootCmd.PersistentFlags().Lookup("force"))
	_ = viper.BindPFlag("project", rootCmd.PersistentFlags().Lookup("project"))
}

func registerCommands() {
	rootCmd.AddCommand(orgCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(rfiCmd())
	rootCmd.AddCommand(changeOrderCmd())
	rootCmd.AddCommand(submittalCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(costCmd())
	rootCmd.AddCommand(metricsCmd())
	rootCmd.AddCommand(courtCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(rbacCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(serveCmd())
}

func orgCmd() *cobra.Command {
	org := &cobra.Command{Use: "org", Short: "Organizations"}
	org.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List organizations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListOrgs(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	})
	org.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				o, err := r.GetOrg(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(o)
			})
		},
	})
	return org
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectUpdateCmd())
	prj.AddCommand(projectDeleteCmd())
	prj.AddCommand(projectConfigCmd())
	prj.AddCommand(projectUseCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListProjects(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func projectCreateCmd() *cobra.Command {
	var id, orgID, orgName, number, name, address string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create project",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg := config.Default(id)
			e := engine.New(conn, cfg)
			p, err := e.InitProject(cmd.Context(), engine.ProjectCreateOptions{
				ID:      id,
				OrgID:   orgID,
				OrgName: orgName,
				Number:  number,
				Name:    name,
				Address: address,
				ActorID: viper.GetString("actor-id"),
			})
			if err != nil {
				return err
			}
			return printJSONOrTable(p)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "project id (generated when omitted)")
	cmd.Flags().StringVar(&orgID, "org", "", "owning organization id")
	cmd.Flags().StringVar(&orgName, "org-name", "", "owning organization name")
	cmd.Flags().StringVar(&number, "number", "", "project number")
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&address, "address", "", "site address")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := viper.GetString("project")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if target == "" {
					target = e.Config.Project.ID
				}
				p, err := e.Repo.GetProject(ctx, target)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func projectUpdateCmd() *cobra.Command {
	var status, name, address string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := viper.GetString("project")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if target == "" {
					target = e.Config.Project.ID
				}
				var addrPtr *string
				if cmd.Flags().Changed("address") {
					addrPtr = &address
				}
				p, err := e.UpdateProject(ctx, target, status, name, addrPtr, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status (active, archived)")
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&address, "address", "", "site address")
	return cmd
}

func projectDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := viper.GetString("project")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if target == "" {
					target = e.Config.Project.ID
				}
				return e.Repo.DeleteProject(ctx, target)
			})
		},
	}
	return cmd
}

func projectUseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use <id>",
		Short: "Set current project for this workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := strings.TrimSpace(args[0])
			if projectID == "" {
				return fmt.Errorf("project id is required")
			}
			workspace := viper.GetString("workspace")
			if err := setEnvValue(filepath.Join(workspace, ".env"), "SITEDESK_DEFAULT_PROJECT", projectID); err != nil {
				return err
			}
			fmt.Printf("Set SITEDESK_DEFAULT_PROJECT=%s in %s/.env\n", projectID, workspace)
			return nil
		},
	}
	return cmd
}

func projectConfigCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage project config",
	}
	cfg.AddCommand(projectConfigShowCmd())
	cfg.AddCommand(projectConfigImportCmd())
	return cfg
}

func projectConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show project config stored in DB",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	}
	return cmd
}

func projectConfigImportCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import project config from YAML into the DB",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromFile(filePath)
			if err != nil {
				return err
			}
			projectID := cfg.Project.ID
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if projectID == "" {
					projectID = e.Config.Project.ID
					cfg.Project.ID = projectID
				}
				if err := e.ImportProjectConfig(ctx, projectID, cfg, viper.GetString("actor-id")); err != nil {
					return err
				}
				return printJSONOrTable(cfg)
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to YAML config")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Workspace config",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default sitedesk.yml to the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if projectID == "" {
				projectID = strings.TrimSpace(viper.GetString("project"))
			}
			if projectID == "" {
				projectID = "my-project"
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(projectID)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project-id", "", "project id to seed into the file")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective config (workspace file when present, DB otherwise)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fileCfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if fileCfg != nil {
				return printJSONOrTable(fileCfg)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a YAML config file (workspace sitedesk.yml by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if filePath != "" {
				_, err = config.FromFile(filePath)
			} else {
				_, err = config.Load(viper.GetString("workspace"))
			}
			if err != nil {
				return err
			}
			fmt.Println("config ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to YAML config")
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show project status",
		Long:  "The scoreboard for your job: RFI counts by status, approved change order value, and recorded costs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				projectID := e.Config.Project.ID
				p, err := e.Repo.GetProject(ctx, projectID)
				if err != nil {
					return err
				}
				counts, err := e.Repo.CountRFIsByStatus(ctx, projectID)
				if err != nil {
					return err
				}
				costs, err := e.ProjectCostSummary(ctx, projectID)
				if err != nil {
					return err
				}
				out := map[string]any{
					"project_id":                  p.ID,
					"status":                      p.Status,
					"rfi_counts":                  counts,
					"approved_change_order_cents": costs.ApprovedChangeOrderCents,
					"cost_item_cents":             costs.CostItemCents,
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("Project: %s (%s) %s\n", p.ID, p.Status, p.Name)
				fmt.Println("RFIs:")
				for status, c := range counts {
					fmt.Printf("  %s: %d\n", status, c)
				}
				fmt.Printf("Approved change orders: %s\n", formatCents(costs.ApprovedChangeOrderCents))
				fmt.Printf("Recorded costs: %s\n", formatCents(costs.CostItemCents))
				return nil
			})
		},
	}
	return cmd
}

func rfiCmd() *cobra.Command {
	rfi := &cobra.Command{
		Use:   "rfi",
		Short: "Manage RFIs",
		Long:  "Formal questions to the design team. Submitting starts the SLA clock; the ball-in-court column shows who owes the next move.",
	}
	rfi.AddCommand(rfiCreateCmd())
	rfi.AddCommand(rfiListCmd())
	rfi.AddCommand(rfiShowCmd())
	rfi.AddCommand(rfiSubmitCmd())
	rfi.AddCommand(rfiReviewCmd())
	rfi.AddCommand(rfiAnswerCmd())
	rfi.AddCommand(rfiCloseCmd())
	rfi.AddCommand(rfiCancelCmd())
	rfi.AddCommand(rfiAssignCmd())
	return rfi
}

func rfiCreateCmd() *cobra.Command {
	var opts engine.RFICreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft RFI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if opts.ProjectID == "" {
					opts.ProjectID = e.Config.Project.ID
				}
				opts.ActorID = viper.GetString("actor-id")
				r, err := e.CreateRFI(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(r)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "short subject line")
	cmd.Flags().StringVar(&opts.Question, "question", "", "the question text")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "low, normal, high, critical")
	cmd.Flags().StringVar(&opts.AssignedToID, "assign-to", "", "assignee user id")
	cmd.Flags().StringVar(&opts.AssignedToOrg, "assign-org", "", "assignee organization id")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}

func rfiListCmd() *cobra.Command {
	var f repo.RFIFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List RFIs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if f.ProjectID == "" {
					f.ProjectID = e.Config.Project.ID
				}
				rfis, err := e.Repo.ListRFIs(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rfis)
				}
				now := time.Now().UTC()
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "Subject", "Status", "Priority", "Court", "Due"})
				for _, r := range rfis {
					court := workflow.Resolve(r)
					holder := court.UserID
					if holder == "" {
						holder = court.OrgID
					}
					due := ""
					if r.ResponseDueDate != nil {
						due = r.ResponseDueDate.Format("2006-01-02")
						if workflow.IsOverdue(r, now) {
							due = color.RedString("%s (+%dd)", due, workflow.DaysOverdue(r, now))
						}
					}
					tw.AppendRow(table.Row{r.Number, r.Subject, rfiStatusCell(r.Status), r.Priority, holder, due})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.Priority, "priority", "", "priority filter")
	cmd.Flags().StringVar(&f.AssignedToID, "assignee", "", "assignee user filter")
	cmd.Flags().StringVar(&f.AssignedToOrg, "assignee-org", "", "assignee org filter")
	cmd.Flags().StringVar(&f.CreatedBy, "created-by", "", "creator filter")
	return cmd
}

func rfiShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an RFI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				r, err := e.Repo.GetRFI(ctx, args[0])
				if err != nil {
					return err
				}
				out := map[string]any{
					"rfi":           r,
					"ball_in_court": workflow.Resolve(r),
				}
				return printJSONOrTable(out)
			})
		},
	}
	return cmd
}

func rfiSubmitCmd() *cobra.Command {
	var due string
	cmd := &cobra.Command{
		Use:   "submit <id>",
		Short: "Submit an RFI (starts the SLA clock)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var duePtr *time.Time
			if due != "" {
				parsed, err := time.Parse("2006-01-02", due)
				if err != nil {
					return fmt.Errorf("due date must be YYYY-MM-DD: %w", err)
				}
				duePtr = &parsed
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				r, err := e.SubmitRFI(ctx, args[0], viper.GetString("actor-id"), duePtr, viper.GetBool("force"))
				if err != nil {
					return err
				}
				return printJSONOrTable(r)
			})
		},
	}
	cmd.Flags().StringVar(&due, "due", "", "explicit response due date (YYYY-MM-DD)")
	return cmd
}

func rfiReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review <id>",
		Short: "Mark an RFI under review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				r, err := e.StartRFIReview(ctx, args[0], viper.GetString("actor-id"), viper.GetBool("force"))
				if err != nil {
					return err
				}
				return printJSONOrTable(r)
			})
		},
	}
	return cmd
}

func rfiAnswerCmd() *cobra.Command {
	var answer string
	cmd := &cobra.Command{
		Use:   "answer <id>",
		Short: "Answer an RFI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				r, err := e.AnswerRFI(ctx, args[0], answer, viper.GetString("actor-id"), viper.GetBool("force"))
				if err != nil {
					return err
				}
				return printJSONOrTable(r)
			})
		},
	}
	cmd.Flags().StringVar(&answer, "answer", "", "answer text")
	_ = cmd.MarkFlagRequired("answer")
	return cmd
}

func rfiCloseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Close an answered RFI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				r, err := e.CloseRFI(ctx, args[0], viper.GetString("actor-id"), viper.GetBool("force"))
				if err != nil {
					return err
				}
				return printJSONOrTable(r)
			})
		},
	}
	return cmd
}

func rfiCancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel an RFI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				r, err := e.CancelRFI(ctx, args[0], viper.GetString("actor-id"), viper.GetBool("force"))
				if err != nil {
					return err
				}
				return printJSONOrTable(r)
			})
		},
	}
	return cmd
}

func rfiAssignCmd() *cobra.Command {
	var to, org string
	cmd := &cobra.Command{
		Use:   "assign <id>",
		Short: "Reassign an RFI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				r, err := e.ReassignRFI(ctx, args[0], to, org, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(r)
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "assignee user id (empty clears)")
	cmd.Flags().StringVar(&org, "org", "", "assignee org id (empty clears)")
	return cmd
}

func changeOrderCmd() *cobra.Command {
	co := &cobra.Command{Use: "co", Short: "Manage change orders"}
	co.AddCommand(changeOrderCreateCmd())
	co.AddCommand(changeOrderListCmd())
	co.AddCommand(changeOrderShowCmd())
	co.AddCommand(changeOrderStatusCmd())
	return co
}

func changeOrderCreateCmd() *cobra.Command {
	var opts engine.ChangeOrderCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a change order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if opts.ProjectID == "" {
					opts.ProjectID = e.Config.Project.ID
				}
				opts.ActorID = viper.GetString("actor-id")
				co, err := e.CreateChangeOrder(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(co)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().Int64Var(&opts.AmountCents, "amount-cents", 0, "amount in cents")
	cmd.Flags().IntVar(&opts.ScheduleImpactDays, "schedule-days", 0, "schedule impact in days")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func changeOrderListCmd() *cobra.Command {
	var f repo.ChangeOrderFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List change orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if f.ProjectID == "" {
					f.ProjectID = e.Config.Project.ID
				}
				items, err := e.Repo.ListChangeOrders(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "Title", "Status", "Amount", "Days"})
				for _, co := range items {
					tw.AppendRow(table.Row{co.Number, co.Title, changeOrderStatusCell(co.Status), formatCents(co.AmountCents), co.ScheduleImpactDays})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	return cmd
}

func changeOrderShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a change order with its cost roll-up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				co, err := e.Repo.GetChangeOrder(ctx, args[0])
				if err != nil {
					return err
				}
				costs, err := e.Repo.CostItemTotalForChangeOrder(ctx, co.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{
					"change_order":    co,
					"cost_item_cents": costs,
				})
			})
		},
	}
	return cmd
}

func changeOrderStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Move a change order through its ladder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				co, err := e.SetChangeOrderStatus(ctx, args[0], args[1], viper.GetString("actor-id"), viper.GetBool("force"))
				if err != nil {
					return err
				}
				return printJSONOrTable(co)
			})
		},
	}
	return cmd
}

func submittalCmd() *cobra.Command {
	sub := &cobra.Command{Use: "submittal", Short: "Manage submittals"}
	sub.AddCommand(submittalCreateCmd())
	sub.AddCommand(submittalListCmd())
	sub.AddCommand(submittalShowCmd())
	sub.AddCommand(submittalStatusCmd())
	sub.AddCommand(submittalReviseCmd())
	return sub
}

func submittalCreateCmd() *cobra.Command {
	var opts engine.SubmittalCreateOptions
	var due string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a submittal (revision 1)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if opts.ProjectID == "" {
					opts.ProjectID = e.Config.Project.ID
				}
				opts.ActorID = viper.GetString("actor-id")
				opts.DueDate = optionalString(due)
				s, err := e.CreateSubmittal(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.SpecSection, "spec-section", "", "spec section (e.g. 03 30 00)")
	cmd.Flags().StringVar(&due, "due", "", "due date")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func submittalListCmd() *cobra.Command {
	var f repo.SubmittalFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List submittals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if f.ProjectID == "" {
					f.ProjectID = e.Config.Project.ID
				}
				items, err := e.Repo.ListSubmittals(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "Rev", "Title", "Spec", "Status", "Reviewer"})
				for _, s := range items {
					reviewer := ""
					if s.CurrentReviewerOrg != nil {
						reviewer = *s.CurrentReviewerOrg
					}
					tw.AppendRow(table.Row{s.Number, s.Revision, s.Title, s.SpecSection, workflow.Label(workflow.DocSubmittal, s.Status), reviewer})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.SpecSection, "spec-section", "", "spec section filter")
	return cmd
}

func submittalShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a submittal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.Repo.GetSubmittal(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	return cmd
}

func submittalStatusCmd() *cobra.Command {
	var reviewerOrg string
	cmd := &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Route a submittal through review",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.SetSubmittalStatus(ctx, args[0], args[1], reviewerOrg, viper.GetString("actor-id"), viper.GetBool("force"))
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&reviewerOrg, "reviewer-org", "", "org holding the review")
	return cmd
}

func submittalReviseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revise <id>",
		Short: "Open the next revision of a returned submittal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.ReviseSubmittal(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	return cmd
}

func reportCmd() *cobra.Command {
	rep := &cobra.Command{Use: "report", Short: "Manage daily reports"}
	rep.AddCommand(reportCreateCmd())
	rep.AddCommand(reportListCmd())
	rep.AddCommand(reportShowCmd())
	rep.AddCommand(reportStatusCmd())
	return rep
}

func reportCreateCmd() *cobra.Command {
	var opts engine.DailyReportCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a daily report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if opts.ProjectID == "" {
					opts.ProjectID = e.Config.Project.ID
				}
				if opts.ReportDate == "" {
					opts.ReportDate = time.Now().UTC().Format("2006-01-02")
				}
				opts.ActorID = viper.GetString("actor-id")
				d, err := e.CreateDailyReport(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ReportDate, "date", "", "report date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVar(&opts.Weather, "weather", "", "weather summary")
	cmd.Flags().IntVar(&opts.CrewCount, "crew", 0, "crew headcount")
	cmd.Flags().StringVar(&opts.WorkPerformed, "notes", "", "work performed")
	return cmd
}

func reportListCmd() *cobra.Command {
	var f repo.DailyReportFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List daily reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if f.ProjectID == "" {
					f.ProjectID = e.Config.Project.ID
				}
				items, err := e.Repo.ListDailyReports(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Date", "Status", "Crew", "Weather"})
				for _, d := range items {
					tw.AppendRow(table.Row{d.ReportDate, workflow.Label(workflow.DocDailyReport, d.Status), d.CrewCount, d.Weather})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	return cmd
}

func reportShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a daily report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.Repo.GetDailyReport(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	return cmd
}

func reportStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Move a daily report (submitted, approved, archived)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.SetDailyReportStatus(ctx, args[0], args[1], viper.GetString("actor-id"), viper.GetBool("force"))
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	return cmd
}

func costCmd() *cobra.Command {
	cost := &cobra.Command{Use: "cost", Short: "Track costs"}
	cost.AddCommand(costAddCmd())
	cost.AddCommand(costListCmd())
	cost.AddCommand(costShowCmd())
	cost.AddCommand(costSummaryCmd())
	return cost
}

func costShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a cost item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				c, err := r.GetCostItem(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	return cmd
}

func costAddCmd() *cobra.Command {
	var opts engine.CostItemCreateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a cost item",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if opts.ProjectID == "" {
					opts.ProjectID = e.Config.Project.ID
				}
				opts.ActorID = viper.GetString("actor-id")
				c, err := e.AddCostItem(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().Int64Var(&opts.AmountCents, "amount-cents", 0, "amount in cents")
	cmd.Flags().StringVar(&opts.Category, "category", "", "labor, material, equipment, subcontract, other")
	cmd.Flags().StringVar(&opts.ChangeOrderID, "change-order", "", "attach to a change order")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func costListCmd() *cobra.Command {
	var f repo.CostItemFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cost items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if f.ProjectID == "" {
					f.ProjectID = e.Config.Project.ID
				}
				items, err := e.Repo.ListCostItems(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Category", "Description", "Amount", "CO"})
				for _, c := range items {
					co := ""
					if c.ChangeOrderID != nil {
						co = *c.ChangeOrderID
					}
					tw.AppendRow(table.Row{c.Category, c.Description, formatCents(c.AmountCents), co})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Category, "category", "", "category filter")
	cmd.Flags().StringVar(&f.ChangeOrderID, "change-order", "", "change order filter")
	return cmd
}

func costSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Project cost summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				sum, err := e.ProjectCostSummary(ctx, e.Config.Project.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(sum)
				}
				fmt.Printf("Approved change orders: %s\n", formatCents(sum.ApprovedChangeOrderCents))
				fmt.Printf("Recorded costs:         %s\n", formatCents(sum.CostItemCents))
				return nil
			})
		},
	}
	return cmd
}

func metricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "RFI SLA metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.ProjectRFIMetrics(ctx, e.Config.Project.ID, time.Now().UTC())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(m)
				}
				fmt.Println("RFIs by status:")
				for status, c := range m.ByStatus {
					fmt.Printf("  %s: %d\n", status, c)
				}
				fmt.Printf("Open and overdue: %d\n", m.OpenOverdue)
				fmt.Printf("SLA compliance: %d/%d (%d%%)\n", m.Compliance.Compliant, m.Compliance.Total, m.Compliance.Percentage)
				if m.AverageResponseHours != nil {
					fmt.Printf("Average response: %.1fh\n", *m.AverageResponseHours)
				}
				return nil
			})
		},
	}
	return cmd
}

func courtCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "court <user-id>",
		Short: "RFIs waiting on a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				entries, err := e.CourtForUser(ctx, e.Config.Project.ID, args[0], time.Now().UTC())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "Subject", "Status", "Action", "Due in"})
				for _, entry := range entries {
					dueIn := ""
					if entry.Overdue {
						dueIn = color.RedString("%d days overdue", entry.DaysOverdue)
					} else if entry.DaysUntilDue != nil {
						dueIn = fmt.Sprintf("%d days", *entry.DaysUntilDue)
					}
					tw.AppendRow(table.Row{entry.RFI.Number, entry.RFI.Subject, rfiStatusCell(entry.RFI.Status), entry.Court.SuggestedAction, dueIn})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: RFI moves, change order approvals, reassignments, and more.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.LatestEvents(ctx, n, e.Config.Project.ID, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func rbacCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rbac",
		Short: "RBAC management",
	}
	cmd.AddCommand(rbacWhoamiCmd())
	cmd.AddCommand(rbacGrantCmd())
	cmd.AddCommand(rbacRevokeCmd())
	cmd.AddCommand(rbacBootstrapCmd())
	return cmd
}

func rbacWhoamiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show current actor roles and permissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				who, err := e.WhoAmI(ctx, e.Config.Project.ID, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(who)
			})
		},
	}
	return cmd
}

func rbacGrantCmd() *cobra.Command {
	var target, role string
	cmd := &cobra.Command{
		Use:   "grant-role",
		Short: "Grant role to actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" || role == "" {
				return fmt.Errorf("--actor and --role required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.GrantRole(ctx, e.Config.Project.ID, target, role, viper.GetString("actor-id"))
			})
		},
	}
	cmd.Flags().StringVar(&target, "actor", "", "actor id")
	cmd.Flags().StringVar(&role, "role", "", "role id")
	return cmd
}

func rbacRevokeCmd() *cobra.Command {
	var target, role string
	cmd := &cobra.Command{
		Use:   "revoke-role",
		Short: "Revoke role from actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" || role == "" {
				return fmt.Errorf("--actor and --role required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.RevokeRole(ctx, e.Config.Project.ID, target, role, viper.GetString("actor-id"))
			})
		},
	}
	cmd.Flags().StringVar(&target, "actor", "", "actor id")
	cmd.Flags().StringVar(&role, "role", "", "role id")
	return cmd
}

func rbacBootstrapCmd() *cobra.Command {
	var target, role string
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap an actor role without RBAC checks (dev only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" || role == "" {
				return fmt.Errorf("--actor and --role required")
			}
			projectID := strings.TrimSpace(viper.GetString("project"))
			if projectID == "" {
				return fmt.Errorf("project not specified; use --project or set SITEDESK_DEFAULT_PROJECT (sd project use <id>)")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if _, err := r.GetProject(ctx, projectID); err != nil {
					return err
				}
				cfg, cfgErr := r.GetProjectConfig(ctx, projectID)
				tx, err := r.DB.BeginTx(ctx, nil)
				if err != nil {
					return err
				}
				defer tx.Rollback()
				if cfgErr == nil && cfg != nil {
					if roleDef, ok := cfg.RBAC.Roles[role]; ok {
						if err := r.InsertRole(ctx, tx, role, roleDef.Description); err != nil {
							return err
						}
						for _, perm := range roleDef.Permissions {
							if err := r.InsertPermission(ctx, tx, perm, ""); err != nil {
								return err
							}
							if err := r.AddRolePermission(ctx, tx, role, perm); err != nil {
								return err
							}
						}
					} else {
						if err := r.InsertRole(ctx, tx, role, ""); err != nil {
							return err
						}
					}
				} else {
					if err := r.InsertRole(ctx, tx, role, ""); err != nil {
						return err
					}
				}
				if err := r.EnsureActor(ctx, tx, target, time.Now().UTC().Format(time.RFC3339)); err != nil {
					return err
				}
				if err := r.AssignRole(ctx, tx, projectID, target, role); err != nil {
					return err
				}
				return tx.Commit()
			})
		},
	}
	cmd.Flags().StringVar(&target, "actor", "", "actor id")
	cmd.Flags().StringVar(&role, "role", "", "role id")
	return cmd
}

func apikeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
	}
	cmd.AddCommand(apikeyCreateCmd())
	cmd.AddCommand(apikeyListCmd())
	cmd.AddCommand(apikeyDeleteCmd())
	return cmd
}

func apikeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Mint an API key (plaintext shown once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				key, plaintext, err := e.CreateAPIKey(ctx, viper.GetString("actor-id"), name)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"key": key, "plaintext": plaintext})
				}
				fmt.Printf("Created key %s for %s\n", key.ID, key.ActorID)
				fmt.Printf("Plaintext (save it, it is not stored): %s\n", plaintext)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key label")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys for the current actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				keys, err := r.ListAPIKeys(ctx, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(keys)
			})
		},
	}
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			_, cfg, err := app.ResolveProjectAndConfig(cmd.Context(), workspace, viper.GetString("project"), viper.GetString("actor-id"), r)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("SITEDESK_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("SITEDESK_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			server.StartWebhookDispatcher(e)
			srv := &http.Server{Addr: addr, Handler: handler}
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			g, gctx := errgroup.WithContext(runCtx)
			g.Go(func() error {
				fmt.Printf("Serving Sitedesk API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	_, cfg, err := app.ResolveProjectAndConfig(ctx, workspace, viper.GetString("project"), viper.GetString("actor-id"), r)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	return fn(ctx, r)
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

func rfiStatusCell(status string) string {
	return paintToken(workflow.Color(status), workflow.Label(workflow.DocRFI, status))
}

func changeOrderStatusCell(status string) string {
	return paintToken(workflow.ChangeOrderEmphasis(status), workflow.Label(workflow.DocChangeOrder, status))
}

func paintToken(token workflow.ColorToken, text string) string {
	switch token {
	case workflow.ColorBlue:
		return color.BlueString(text)
	case workflow.ColorYellow:
		return color.YellowString(text)
	case workflow.ColorGreen:
		return color.GreenString(text)
	case workflow.ColorRed:
		return color.RedString(text)
	default:
		return text
	}
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

func setEnvValue(path, key, value string) error {
	var lines []string
	seen := false
	f, err := os.Open(path)
	if err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, key+"=") {
				lines = append(lines, fmt.Sprintf("%s=%s", key, value))
				seen = true
			} else {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return err
		}
		f.Close()
	} else if !os.IsNotExist(err) {
		return err
	}
	if !seen {
		lines = append(lines, fmt.Sprintf("%s=%s", key, value))
	}
	content := strings.Join(lines, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
