package client

import (
	"context"
	"fmt"
	"testing"

	"civicreport-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubAPI struct {
	issues  []models.Issue
	created models.Issue
	updated models.Issue
	comment models.Comment
	err     error
	calls   []string
}

func (s *stubAPI) ListIssues(context.Context, models.IssueFilter) ([]models.Issue, error) {
	s.calls = append(s.calls, "list")
	return s.issues, s.err
}

func (s *stubAPI) CreateIssue(context.Context, models.CreateIssueInput) (*models.Issue, error) {
	s.calls = append(s.calls, "create")
	if s.err != nil {
		return nil, s.err
	}
	return &s.created, nil
}

func (s *stubAPI) UpdateIssue(context.Context, string, models.IssuePatch) (*models.Issue, error) {
	s.calls = append(s.calls, "update")
	if s.err != nil {
		return nil, s.err
	}
	return &s.updated, nil
}

func (s *stubAPI) DeleteIssue(context.Context, string) error {
	s.calls = append(s.calls, "delete")
	return s.err
}

func (s *stubAPI) AddComment(context.Context, string, string) (*models.Comment, error) {
	s.calls = append(s.calls, "comment")
	if s.err != nil {
		return nil, s.err
	}
	return &s.comment, nil
}

func TestCache_AppliesSuccessfulCalls(t *testing.T) {
	ctx := context.Background()
	a, b := sampleIssue("a", models.StatusPending), sampleIssue("b", models.StatusPending)
	api := &stubAPI{issues: []models.Issue{a}, created: b}
	cache := NewCache(api)

	require.NoError(t, cache.Fetch(ctx, models.IssueFilter{}))
	_, err := cache.Create(ctx, models.CreateIssueInput{})
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{b.ID, a.ID}, ids(cache.Issues()))

	api.updated = a
	api.updated.Status = models.StatusInProgress
	_, err = cache.Update(ctx, a.ID.Hex(), models.IssuePatch{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, cache.Issues()[1].Status)

	api.comment = models.Comment{ID: primitive.NewObjectID(), IssueID: b.ID, Content: "hi"}
	_, err = cache.Comment(ctx, b.ID.Hex(), "hi")
	require.NoError(t, err)
	assert.Len(t, cache.Issues()[0].Comments, 1)

	require.NoError(t, cache.Delete(ctx, b.ID.Hex()))
	assert.Equal(t, []primitive.ObjectID{a.ID}, ids(cache.Issues()))
}

func TestCache_ErrorsLeaveListUntouched(t *testing.T) {
	ctx := context.Background()
	a := sampleIssue("a", models.StatusPending)
	api := &stubAPI{issues: []models.Issue{a}}
	cache := NewCache(api)
	require.NoError(t, cache.Fetch(ctx, models.IssueFilter{}))
	before := cache.Issues()

	api.err = fmt.Errorf("issues: %w", models.ErrStorageUnavailable)

	require.ErrorIs(t, cache.Fetch(ctx, models.IssueFilter{}), models.ErrStorageUnavailable)
	_, err := cache.Create(ctx, models.CreateIssueInput{})
	require.Error(t, err)
	_, err = cache.Update(ctx, a.ID.Hex(), models.IssuePatch{})
	require.Error(t, err)
	_, err = cache.Comment(ctx, a.ID.Hex(), "x")
	require.Error(t, err)
	require.Error(t, cache.Delete(ctx, a.ID.Hex()))

	assert.Equal(t, before, cache.Issues())
	assert.Equal(t, []string{"list", "list", "create", "update", "comment", "delete"}, api.calls)
}

func TestCache_IssuesReturnsCopy(t *testing.T) {
	cache := NewCache(&stubAPI{issues: []models.Issue{sampleIssue("a", models.StatusPending)}})
	require.NoError(t, cache.Fetch(context.Background(), models.IssueFilter{}))

	got := cache.Issues()
	got[0].Title = "mutated"
	assert.Equal(t, "a", cache.Issues()[0].Title)
}

func ids(issues []models.Issue) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.ID)
	}
	return out
}
