package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nhle/project-tracker/internal/model"
	"github.com/nhle/project-tracker/internal/overview"
	"github.com/nhle/project-tracker/internal/store"
)

func newItemCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Add, complete and show backlog items",
	}
	cmd.AddCommand(newItemAddCmd(e), newItemDoneCmd(e), newItemReopenCmd(e), newItemShowCmd(e))
	return cmd
}

func newItemAddCmd(e *env) *cobra.Command {
	var (
		itemType, priority string
		estimate           string
		description        string
		nonBillable        bool
	)

	cmd := &cobra.Command{
		Use:   "add <project-code> <name>",
		Short: "Add an item to a project's backlog",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := e.svc.GetProjectByCode(ctx, args[0])
			if err != nil {
				return lookupError("project", args[0], err)
			}

			it := &model.Item{
				ProjectID:   p.ID,
				Name:        strings.Join(args[1:], " "),
				Description: description,
				NonBillable: nonBillable,
			}
			if it.Type, err = parseChoice("item type", itemType, model.ItemTypes); err != nil {
				return err
			}
			if it.Priority, err = parseChoice("priority", priority, model.Priorities); err != nil {
				return err
			}
			if it.Estimate, err = optionalHours("estimate", estimate); err != nil {
				return err
			}

			if err := e.svc.CreateItem(ctx, e.user, it); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", it.Title())
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&itemType, "type", "t", "feature", "feature, enhancement, task, bug or question")
	flags.StringVarP(&priority, "priority", "p", "medium", "highest, high, medium, low or lowest")
	flags.StringVarP(&estimate, "estimate", "e", "", "estimated hours")
	flags.StringVar(&description, "description", "", "description")
	flags.BoolVar(&nonBillable, "non-billable", false, "hours logged on the item are not billed")
	return cmd
}

func newItemDoneCmd(e *env) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "done <item-code>",
		Short: "Mark an item completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			it, err := e.svc.GetItemByCode(ctx, args[0])
			if err != nil {
				return lookupError("item", args[0], err)
			}
			on, err := dateOrToday(date)
			if err != nil {
				return fmt.Errorf("--date: %w", err)
			}
			if _, err := e.svc.CompleteItem(ctx, e.user, it.ID, on); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed %s\n", it.Code)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "completion date as YYYY-MM-DD (default today)")
	return cmd
}

func newItemReopenCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "reopen <item-code>",
		Short: "Clear an item's completion date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			it, err := e.svc.GetItemByCode(ctx, args[0])
			if err != nil {
				return lookupError("item", args[0], err)
			}
			if _, err := e.svc.ReopenItem(ctx, e.user, it.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reopened %s\n", it.Code)
			return nil
		},
	}
}

// itemReport is the machine-readable form of "item show".
type itemReport struct {
	Item     model.Item      `yaml:"item"`
	Comments []model.Comment `yaml:"comments,omitempty"`
	WorkLogs []model.WorkLog `yaml:"worklogs,omitempty"`
}

func newItemShowCmd(e *env) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "show <item-code>",
		Short: "Show an item with its comments and work logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			it, err := e.svc.GetItemByCode(ctx, args[0])
			if err != nil {
				return lookupError("item", args[0], err)
			}
			d, err := overview.BuildItemDetail(ctx, e.svc.Store(), e.user, it.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asYAML {
				report := itemReport{Item: d.Item, Comments: d.Comments}
				for _, row := range d.WorkLogs {
					report.WorkLogs = append(report.WorkLogs, row.Log)
				}
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(report)
			}

			fmt.Fprintf(out, "%s %s %s\n", d.Type.Glyph, d.Priority.Glyph, d.Title)
			fmt.Fprintf(out, "%s, %s priority, estimate %s\n", d.Item.Type, d.Item.Priority, d.EstimateBadge)
			if d.Item.IsCompleted() {
				fmt.Fprintf(out, "Completed on %s\n", d.Item.CompletedOn.Format("2006-01-02"))
			}
			if text := model.StripTags(d.Item.Description); strings.TrimSpace(text) != "" {
				fmt.Fprintf(out, "\n%s\n", text)
			}

			if d.ShowWorkLogs {
				fmt.Fprintf(out, "\nWork logs (logged %s, billed %s)\n", d.LoggedBadge, d.BilledBadge)
				if len(d.WorkLogs) > 0 {
					rows := make([][]string, len(d.WorkLogs))
					for i, row := range d.WorkLogs {
						rows[i] = []string{row.Log.Date.Format("2006-01-02"), row.Worked, row.Billed, row.Log.CreatedBy, row.Log.Label()}
					}
					fmt.Fprintln(out, renderTable([]string{"Date", "Worked", "Billed", "By", "Description"}, rows))
				}
			}

			if d.ShowComments && len(d.Comments) > 0 {
				fmt.Fprintf(out, "\nComments (%d)\n", len(d.Comments))
				for _, c := range d.Comments {
					fmt.Fprintf(out, "- %s (%s): %s\n", c.CreatedBy, c.CreatedAt.Format("2006-01-02 15:04"), model.StripTags(c.Body))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print as YAML")
	return cmd
}

func lookupError(kind, code string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no %s %s", kind, strings.ToUpper(code))
	}
	return err
}
