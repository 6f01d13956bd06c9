package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"civicreport-be/models"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
)

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func printIssues(issues []models.Issue) {
	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, []string{
			issue.ID.Hex(),
			truncate(issue.Title, 40),
			models.CategoryLabel(issue.Category),
			models.PriorityDisplay(issue.Priority).Label,
			models.StatusDisplay(issue.Status).Label,
			humanize.Comma(issue.Upvotes),
			strconv.Itoa(len(issue.Comments)),
			formatAge(issue.CreatedAt),
		})
	}
	printTable([]string{"ID", "TITLE", "CATEGORY", "PRIORITY", "STATUS", "UPVOTES", "COMMENTS", "REPORTED"}, rows)
}

func printStatusSummary(counts map[models.IssueStatus]int) {
	parts := make([]string, 0, len(models.IssueStatuses))
	for _, status := range models.IssueStatuses {
		parts = append(parts, fmt.Sprintf("%s: %d", models.StatusDisplay(status).Label, counts[status]))
	}
	fmt.Println(strings.Join(parts, "  "))
}

func printIssue(issue *models.Issue) {
	rows := [][2]string{
		{"ID", issue.ID.Hex()},
		{"Title", issue.Title},
		{"Category", models.CategoryLabel(issue.Category)},
		{"Priority", models.PriorityDisplay(issue.Priority).Label},
		{"Status", models.StatusDisplay(issue.Status).Label},
		{"Address", issue.Location.Address},
		{"Coordinates", fmt.Sprintf("%.5f, %.5f", issue.Location.Lat, issue.Location.Lng)},
		{"Upvotes", humanize.Comma(issue.Upvotes)},
		{"Reported", formatAge(issue.CreatedAt)},
		{"Updated", formatAge(issue.UpdatedAt)},
	}
	if issue.AssignedTo != nil {
		rows = append(rows, [2]string{"Assigned to", *issue.AssignedTo})
	}
	if issue.ResolvedAt != nil {
		rows = append(rows, [2]string{"Resolved", formatAge(*issue.ResolvedAt)})
	}
	printKV(rows)
	fmt.Println()
	fmt.Println(issue.Description)

	if len(issue.Images) > 0 {
		fmt.Println()
		for _, img := range issue.Images {
			fmt.Println("  image:", img)
		}
	}
	if len(issue.Comments) > 0 {
		fmt.Printf("\n%s:\n", english.Plural(len(issue.Comments), "comment", "comments"))
		for _, c := range issue.Comments {
			fmt.Printf("  %s (%s): %s\n", c.UserName, formatAge(c.CreatedAt), c.Content)
		}
	}
}

func printStats(stats *models.IssueStats) {
	printKV([][2]string{
		{"Total", humanize.Comma(stats.Total)},
		{"Open", humanize.Comma(stats.Open)},
	})
	fmt.Println()

	rows := make([][]string, 0, len(models.IssueStatuses))
	for _, status := range models.IssueStatuses {
		rows = append(rows, []string{models.StatusDisplay(status).Label, humanize.Comma(stats.ByStatus[status])})
	}
	printTable([]string{"STATUS", "COUNT"}, rows)
	fmt.Println()

	rows = rows[:0]
	for _, category := range models.IssueCategories {
		if n := stats.ByCategory[category]; n > 0 {
			rows = append(rows, []string{models.CategoryLabel(category), humanize.Comma(n)})
		}
	}
	printTable([]string{"CATEGORY", "COUNT"}, rows)
	fmt.Println()

	rows = rows[:0]
	for _, day := range stats.Last7Days {
		rows = append(rows, []string{day.Date, humanize.Comma(day.Count)})
	}
	printTable([]string{"DAY", "REPORTED"}, rows)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
