package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nhle/project-tracker/internal/billing"
	"github.com/nhle/project-tracker/internal/model"
	"github.com/nhle/project-tracker/internal/overview"
	"github.com/nhle/project-tracker/internal/store"
	"github.com/nhle/project-tracker/internal/ui/forms"
)

func newProjectCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create, list and show projects",
	}
	cmd.AddCommand(newProjectAddCmd(e), newProjectListCmd(e), newProjectShowCmd(e))
	return cmd
}

func newProjectAddCmd(e *env) *cobra.Command {
	var (
		code, projectType, status  string
		rate, fixedPrice, deadline string
		description                string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := &model.Project{Name: args[0], Code: code, Description: description}

			var err error
			if p.Type, err = parseChoice("project type", projectType, model.ProjectTypes); err != nil {
				return err
			}
			if p.Status, err = parseChoice("status", status, model.ProjectStatuses); err != nil {
				return err
			}
			if p.HourlyRate, err = optionalHours("rate", rate); err != nil {
				return err
			}
			if p.FixedPrice, err = optionalHours("fixed-price", fixedPrice); err != nil {
				return err
			}
			if p.Deadline, err = forms.ParseDate(deadline); err != nil {
				return fmt.Errorf("--deadline: %w", err)
			}

			if err := e.svc.CreateProject(cmd.Context(), e.user, p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s\n", p.Label())
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&code, "code", "", "short unique code used to prefix item codes (required)")
	flags.StringVar(&projectType, "type", "fixed", "billing type: fixed or hourly")
	flags.StringVar(&status, "status", "draft", "status: draft, active, onhold, completed, canceled")
	flags.StringVar(&rate, "rate", "", "hourly rate override")
	flags.StringVar(&fixedPrice, "fixed-price", "", "fixed price")
	flags.StringVar(&deadline, "deadline", "", "deadline as YYYY-MM-DD")
	flags.StringVar(&description, "description", "", "description")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func newProjectListCmd(e *env) *cobra.Command {
	var (
		statuses []string
		query    string
		sortBy   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.ProjectFilter{SortBy: sortBy}
			for _, s := range statuses {
				st, err := parseChoice("status", s, model.ProjectStatuses)
				if err != nil {
					return err
				}
				filter.Statuses = append(filter.Statuses, st)
			}
			if query != "" {
				filter.Query = &query
			}

			projects, err := e.svc.ListProjects(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects.")
				return nil
			}

			rows := make([][]string, len(projects))
			for i, p := range projects {
				rows[i] = []string{
					p.Code,
					p.Name,
					p.Status.String(),
					p.Type.String(),
					strconv.Itoa(p.OpenItems),
					strconv.Itoa(p.CompletedItems),
					overview.HoursBadge(p.TotalWorked),
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Code", "Name", "Status", "Type", "Open", "Done", "Worked"}, rows))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&statuses, "status", nil, "only projects in these statuses")
	flags.StringVarP(&query, "query", "q", "", "search code and name")
	flags.StringVar(&sortBy, "sort", "code", "sort by name, code, status, deadline or created_at")
	return cmd
}

// projectReport is the machine-readable form of "project show".
type projectReport struct {
	Project    model.Project      `yaml:"project"`
	Financials billing.Financials `yaml:"financials"`
	Backlog    []model.Item       `yaml:"backlog"`
}

func newProjectShowCmd(e *env) *cobra.Command {
	var (
		asYAML bool
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "show <code>",
		Short: "Show a project's backlog and financials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := e.svc.GetProjectByCode(ctx, args[0])
			if err != nil {
				return lookupError("project", args[0], err)
			}
			ov, err := overview.BuildProjectOverview(ctx, e.svc.Store(), e.user, p.ID, e.svc.DefaultHourlyRate(), all)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asYAML {
				report := projectReport{Project: ov.Project, Financials: ov.Financials}
				for _, row := range ov.Backlog {
					report.Backlog = append(report.Backlog, row.Item)
				}
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(report)
			}

			printProjectOverview(cmd, ov)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print as YAML")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include completed items")
	return cmd
}

func printProjectOverview(cmd *cobra.Command, ov *overview.ProjectOverview) {
	out := cmd.OutOrStdout()
	p := ov.Project
	fin := ov.Financials

	fmt.Fprintf(out, "%s [%s] %s\n", p.Label(), ov.StatusLabel, p.Type)
	fmt.Fprintf(out, "Open items: %d  Completed: %d\n", p.OpenItems, p.CompletedItems)
	fmt.Fprintf(out, "Hour rate: %.2f  %s: %.2f  %s: %.2f\n",
		fin.HourRate, fin.HoursLabel, fin.Hours, fin.PriceLabel, fin.Price)
	if ov.ShowLoggedHours {
		fmt.Fprintf(out, "Logged: %s  Billed: %s\n",
			overview.HoursBadge(p.TotalWorked), overview.HoursBadge(p.TotalBilled))
	}

	if len(ov.Backlog) == 0 {
		fmt.Fprintln(out, "No items.")
		return
	}
	rows := make([][]string, len(ov.Backlog))
	for i, row := range ov.Backlog {
		rows[i] = []string{
			row.Type.Glyph + row.Priority.Glyph,
			row.Item.Code,
			row.Item.Name,
			row.Estimate,
			row.Worked,
		}
	}
	fmt.Fprintln(out, renderTable([]string{"", "Code", "Name", "Estimate", "Worked"}, rows))
}
