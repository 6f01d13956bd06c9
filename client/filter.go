package client

import "civicreport-be/models"

// FilterByStatus returns the issues whose status equals status, in input
// order. An empty status or models.FilterAll returns issues itself.
func FilterByStatus(issues []models.Issue, status string) []models.Issue {
	if status == "" || status == models.FilterAll {
		return issues
	}
	out := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		if string(issue.Status) == status {
			out = append(out, issue)
		}
	}
	return out
}

// FilterByCategory works like FilterByStatus for categories.
func FilterByCategory(issues []models.Issue, category string) []models.Issue {
	if category == "" || category == models.FilterAll {
		return issues
	}
	out := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		if string(issue.Category) == category {
			out = append(out, issue)
		}
	}
	return out
}

// CountByStatus tallies issues per status.
func CountByStatus(issues []models.Issue) map[models.IssueStatus]int {
	counts := make(map[models.IssueStatus]int, len(models.IssueStatuses))
	for _, issue := range issues {
		counts[issue.Status]++
	}
	return counts
}
