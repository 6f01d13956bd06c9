package client

import (
	"testing"
	"time"

	"civicreport-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func sampleIssue(title string, status models.IssueStatus) models.Issue {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return models.Issue{
		ID:        primitive.NewObjectID(),
		Title:     title,
		Category:  models.CategoryPothole,
		Priority:  models.PriorityMedium,
		Status:    status,
		Comments:  []models.Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestReduce_Created_Prepends(t *testing.T) {
	a, b := sampleIssue("a", models.StatusPending), sampleIssue("b", models.StatusPending)
	in := []models.Issue{a}

	out := Reduce(in, Created{Issue: b})

	require.Len(t, out, 2)
	assert.Equal(t, b.ID, out[0].ID)
	assert.Equal(t, a.ID, out[1].ID)
	assert.Equal(t, []models.Issue{a}, in)
}

func TestReduce_Updated_PreservesPosition(t *testing.T) {
	a, b, c := sampleIssue("a", models.StatusPending), sampleIssue("b", models.StatusPending), sampleIssue("c", models.StatusPending)
	in := []models.Issue{a, b, c}

	changed := b
	changed.Status = models.StatusResolved
	out := Reduce(in, Updated{Issue: changed})

	require.Len(t, out, 3)
	assert.Equal(t, models.StatusResolved, out[1].Status)
	assert.Equal(t, models.StatusPending, in[1].Status, "input must not change")
	assert.Equal(t, []primitive.ObjectID{a.ID, b.ID, c.ID}, []primitive.ObjectID{out[0].ID, out[1].ID, out[2].ID})
}

func TestReduce_Updated_UnknownIDIsNoop(t *testing.T) {
	in := []models.Issue{sampleIssue("a", models.StatusPending)}
	out := Reduce(in, Updated{Issue: sampleIssue("x", models.StatusClosed)})
	assert.Equal(t, in, out)
}

func TestReduce_Deleted(t *testing.T) {
	a, b := sampleIssue("a", models.StatusPending), sampleIssue("b", models.StatusPending)
	in := []models.Issue{a, b}

	out := Reduce(in, Deleted{ID: a.ID})

	require.Len(t, out, 1)
	assert.Equal(t, b.ID, out[0].ID)
	assert.Len(t, in, 2)
}

func TestReduce_Fetched_ReplacesAndCopies(t *testing.T) {
	server := []models.Issue{sampleIssue("s", models.StatusPending)}
	out := Reduce([]models.Issue{sampleIssue("old", models.StatusPending)}, Fetched{Issues: server})

	require.Len(t, out, 1)
	assert.Equal(t, server[0].ID, out[0].ID)
	out[0].Title = "changed"
	assert.Equal(t, "s", server[0].Title)
}

func TestReduce_Commented(t *testing.T) {
	a := sampleIssue("a", models.StatusPending)
	in := []models.Issue{a}
	comment := models.Comment{ID: primitive.NewObjectID(), IssueID: a.ID, Content: "+1", CreatedAt: a.CreatedAt.Add(time.Hour)}

	out := Reduce(in, Commented{IssueID: a.ID, Comment: comment})

	require.Len(t, out[0].Comments, 1)
	assert.Equal(t, comment.CreatedAt, out[0].UpdatedAt)
	assert.Empty(t, in[0].Comments)
}
