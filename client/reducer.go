package client

import (
	"civicreport-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is a confirmed server-side change the local issue list must reflect.
type Event interface {
	event()
}

// Fetched replaces the whole list with the server's result.
type Fetched struct{ Issues []models.Issue }

// Created puts a new issue at the front.
type Created struct{ Issue models.Issue }

// Updated replaces the issue with the same ID in place.
type Updated struct{ Issue models.Issue }

// Deleted removes the issue with ID.
type Deleted struct{ ID primitive.ObjectID }

// Commented appends a comment to its issue.
type Commented struct {
	IssueID primitive.ObjectID
	Comment models.Comment
}

func (Fetched) event()   {}
func (Created) event()   {}
func (Updated) event()   {}
func (Deleted) event()   {}
func (Commented) event() {}

// Reduce returns the list that results from applying ev to issues. The
// input slice is never modified; the result never aliases it.
func Reduce(issues []models.Issue, ev Event) []models.Issue {
	switch ev := ev.(type) {
	case Fetched:
		return append(make([]models.Issue, 0, len(ev.Issues)), ev.Issues...)

	case Created:
		out := make([]models.Issue, 0, len(issues)+1)
		out = append(out, ev.Issue)
		return append(out, issues...)

	case Updated:
		out := append(make([]models.Issue, 0, len(issues)), issues...)
		for i := range out {
			if out[i].ID == ev.Issue.ID {
				out[i] = ev.Issue
				break
			}
		}
		return out

	case Deleted:
		out := make([]models.Issue, 0, len(issues))
		for _, issue := range issues {
			if issue.ID != ev.ID {
				out = append(out, issue)
			}
		}
		return out

	case Commented:
		out := append(make([]models.Issue, 0, len(issues)), issues...)
		for i := range out {
			if out[i].ID == ev.IssueID {
				updated := out[i].Clone()
				updated.Comments = append(updated.Comments, ev.Comment)
				updated.UpdatedAt = ev.Comment.CreatedAt
				out[i] = updated
				break
			}
		}
		return out
	}
	return append(make([]models.Issue, 0, len(issues)), issues...)
}
