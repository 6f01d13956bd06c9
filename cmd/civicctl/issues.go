package main

import (
	"context"
	"fmt"

	"civicreport-be/client"
	"civicreport-be/models"

	"github.com/urfave/cli/v3"
)

func issuesCommand() *cli.Command {
	return &cli.Command{
		Name:  "issues",
		Usage: "List, report and manage issues",
		Commands: []*cli.Command{
			issuesListCommand(),
			issuesShowCommand(),
			issuesCreateCommand(),
			issuesUpdateCommand(),
			issuesCommentCommand(),
			issuesUpvoteCommand(),
			issuesDeleteCommand(),
			issuesStatsCommand(),
		},
	}
}

func issuesListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List issues, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Value: models.FilterAll, Usage: "pending, in-progress, resolved, closed or all"},
			&cli.StringFlag{Name: "category", Value: models.FilterAll, Usage: "category key or all"},
			&cli.BoolFlag{Name: "mine", Usage: "only issues you reported"},
			&cli.StringFlag{Name: "search", Usage: "match title or description"},
			&cli.StringFlag{Name: "sort", Value: models.SortNewest, Usage: "newest or oldest"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			filter := models.IssueFilter{Search: cmd.String("search"), Sort: cmd.String("sort")}
			if cmd.Bool("mine") {
				user, ok := a.api.Session().User()
				if !ok {
					return fmt.Errorf("--mine: %w: run civicctl login first", models.ErrUnauthorized)
				}
				filter.ReportedBy = user.ID
			}
			cache := client.NewCache(a.api)
			if err := cache.Fetch(ctx, filter); err != nil {
				return err
			}
			issues := client.FilterByCategory(
				client.FilterByStatus(cache.Issues(), cmd.String("status")),
				cmd.String("category"))

			if cmd.Bool("json") {
				return printJSON(issues)
			}
			printIssues(issues)
			printStatusSummary(client.CountByStatus(issues))
			return nil
		},
	}
}

func issuesShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one issue with its comments",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireArg(cmd, "id")
			if err != nil {
				return err
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			issue, err := a.api.GetIssue(ctx, id)
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return printJSON(issue)
			}
			printIssue(issue)
			return nil
		},
	}
}

func issuesCreateCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Report a new issue",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Required: true},
			&cli.StringFlag{Name: "description", Required: true},
			&cli.StringFlag{Name: "category", Required: true},
			&cli.StringFlag{Name: "priority", Usage: "low, medium, high or urgent (default medium)"},
			&cli.StringFlag{Name: "address", Required: true},
			&cli.FloatFlag{Name: "lat"},
			&cli.FloatFlag{Name: "lng"},
			&cli.StringSliceFlag{Name: "image", Usage: "image URL, repeatable"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			issue, err := a.api.CreateIssue(ctx, models.CreateIssueInput{
				Title:       cmd.String("title"),
				Description: cmd.String("description"),
				Category:    models.IssueCategory(cmd.String("category")),
				Priority:    models.IssuePriority(cmd.String("priority")),
				Location:    models.Location{Lat: cmd.Float("lat"), Lng: cmd.Float("lng"), Address: cmd.String("address")},
				Images:      cmd.StringSlice("image"),
			})
			if err != nil {
				return err
			}
			fmt.Printf("reported issue %s\n", issue.ID.Hex())
			return nil
		},
	}
}

func issuesUpdateCommand() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Change fields of an issue",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title"},
			&cli.StringFlag{Name: "description"},
			&cli.StringFlag{Name: "category"},
			&cli.StringFlag{Name: "priority"},
			&cli.StringFlag{Name: "status"},
			&cli.StringFlag{Name: "assign", Usage: "assignee; empty string clears"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireArg(cmd, "id")
			if err != nil {
				return err
			}
			patch := patchFromFlags(cmd)
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to update")
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			issue, err := a.api.UpdateIssue(ctx, id, patch)
			if err != nil {
				return err
			}
			printIssue(issue)
			return nil
		},
	}
}

func patchFromFlags(cmd *cli.Command) models.IssuePatch {
	var patch models.IssuePatch
	if cmd.IsSet("title") {
		v := cmd.String("title")
		patch.Title = &v
	}
	if cmd.IsSet("description") {
		v := cmd.String("description")
		patch.Description = &v
	}
	if cmd.IsSet("category") {
		v := models.IssueCategory(cmd.String("category"))
		patch.Category = &v
	}
	if cmd.IsSet("priority") {
		v := models.IssuePriority(cmd.String("priority"))
		patch.Priority = &v
	}
	if cmd.IsSet("status") {
		v := models.IssueStatus(cmd.String("status"))
		patch.Status = &v
	}
	if cmd.IsSet("assign") {
		v := cmd.String("assign")
		patch.AssignedTo = &v
	}
	return patch
}

func issuesCommentCommand() *cli.Command {
	return &cli.Command{
		Name:      "comment",
		Usage:     "Add a comment to an issue",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{&cli.StringFlag{Name: "text", Required: true}},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireArg(cmd, "id")
			if err != nil {
				return err
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			comment, err := a.api.AddComment(ctx, id, cmd.String("text"))
			if err != nil {
				return err
			}
			fmt.Printf("comment %s added\n", comment.ID.Hex())
			return nil
		},
	}
}

func issuesUpvoteCommand() *cli.Command {
	return &cli.Command{
		Name:      "upvote",
		Usage:     "Toggle your upvote on an issue",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireArg(cmd, "id")
			if err != nil {
				return err
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			voted, upvotes, err := a.api.ToggleUpvote(ctx, id)
			if err != nil {
				return err
			}
			verb := "withdrawn"
			if voted {
				verb = "cast"
			}
			fmt.Printf("vote %s, %d upvotes\n", verb, upvotes)
			return nil
		},
	}
}

func issuesDeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete an issue permanently",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireArg(cmd, "id")
			if err != nil {
				return err
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if err := a.api.DeleteIssue(ctx, id); err != nil {
				return err
			}
			fmt.Printf("deleted issue %s\n", id)
			return nil
		},
	}
}

func issuesStatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show issue counts",
		Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			stats, err := a.api.Stats(ctx)
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return printJSON(stats)
			}
			printStats(stats)
			return nil
		},
	}
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := cmd.Args().First()
	if v == "" {
		return "", fmt.Errorf("missing <%s> argument", name)
	}
	return v, nil
}
