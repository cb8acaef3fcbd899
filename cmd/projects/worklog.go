package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/project-tracker/internal/model"
	"github.com/nhle/project-tracker/internal/overview"
	"github.com/nhle/project-tracker/internal/ui/forms"
)

func newLogCmd(e *env) *cobra.Command {
	var (
		billed      string
		date        string
		description string
	)

	cmd := &cobra.Command{
		Use:   "log <item-code> <hours>",
		Short: "Log hours worked on an item",
		Long: `Log hours worked on an item. Unless --billed is given, the billed hours
are taken from what is left of the item's estimate.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			it, err := e.svc.GetItemByCode(ctx, args[0])
			if err != nil {
				return lookupError("item", args[0], err)
			}

			worked, err := forms.ParseHours(args[1])
			if err != nil {
				return err
			}
			if worked == nil {
				return fmt.Errorf("hours are required")
			}

			wl := &model.WorkLog{ItemID: it.ID, Worked: *worked, Description: description}
			if wl.Billed, err = optionalHours("billed", billed); err != nil {
				return err
			}
			if wl.Date, err = dateOrToday(date); err != nil {
				return fmt.Errorf("--date: %w", err)
			}

			if err := e.svc.LogWork(ctx, e.user, wl); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged %s on %s, billed %s\n",
				overview.HoursBadge(wl.Worked), it.Code, overview.HoursBadge(wl.BilledHours()))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&billed, "billed", "", "billed hours (default: allocated from the estimate)")
	flags.StringVar(&date, "date", "", "date worked as YYYY-MM-DD (default today)")
	flags.StringVarP(&description, "description", "m", "", "what was done")
	return cmd
}

func newCommentCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <item-code> <text>",
		Short: "Comment on an item",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			it, err := e.svc.GetItemByCode(ctx, args[0])
			if err != nil {
				return lookupError("item", args[0], err)
			}
			c := &model.Comment{ItemID: it.ID, Body: strings.Join(args[1:], " ")}
			if err := e.svc.AddComment(ctx, e.user, c); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Commented on %s\n", it.Code)
			return nil
		},
	}
}

func newReconcileCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [project-code]",
		Short: "Recompute cached counts and totals from items and work logs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 1 {
				p, err := e.svc.GetProjectByCode(ctx, args[0])
				if err != nil {
					return lookupError("project", args[0], err)
				}
				if err := e.svc.Reconcile(ctx, p.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reconciled %s\n", p.Code)
				return nil
			}

			n, err := e.svc.ReconcileAll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reconciled %d projects\n", n)
			return nil
		},
	}
}
