package client

import (
	"context"
	"sync"

	"civicreport-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueAPI is the remote issue store the cache reconciles against.
// *APIClient satisfies it.
type IssueAPI interface {
	ListIssues(ctx context.Context, filter models.IssueFilter) ([]models.Issue, error)
	CreateIssue(ctx context.Context, in models.CreateIssueInput) (*models.Issue, error)
	UpdateIssue(ctx context.Context, id string, patch models.IssuePatch) (*models.Issue, error)
	DeleteIssue(ctx context.Context, id string) error
	AddComment(ctx context.Context, issueID, content string) (*models.Comment, error)
}

// Cache is the local list of issues shown to the user. Every mutation is
// sent to the API first and applied locally only once it succeeded, so a
// failed call leaves the list as it was.
type Cache struct {
	api IssueAPI

	mu     sync.RWMutex
	issues []models.Issue
}

func NewCache(api IssueAPI) *Cache {
	return &Cache{api: api, issues: []models.Issue{}}
}

// Issues returns a copy of the current list.
func (c *Cache) Issues() []models.Issue {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append(make([]models.Issue, 0, len(c.issues)), c.issues...)
}

// Fetch replaces the list with the server's issues matching filter.
func (c *Cache) Fetch(ctx context.Context, filter models.IssueFilter) error {
	issues, err := c.api.ListIssues(ctx, filter)
	if err != nil {
		return err
	}
	c.apply(Fetched{Issues: issues})
	return nil
}

func (c *Cache) Create(ctx context.Context, in models.CreateIssueInput) (*models.Issue, error) {
	issue, err := c.api.CreateIssue(ctx, in)
	if err != nil {
		return nil, err
	}
	c.apply(Created{Issue: *issue})
	return issue, nil
}

func (c *Cache) Update(ctx context.Context, id string, patch models.IssuePatch) (*models.Issue, error) {
	issue, err := c.api.UpdateIssue(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	c.apply(Updated{Issue: *issue})
	return issue, nil
}

func (c *Cache) Delete(ctx context.Context, id string) error {
	if err := c.api.DeleteIssue(ctx, id); err != nil {
		return err
	}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		c.apply(Deleted{ID: oid})
	}
	return nil
}

func (c *Cache) Comment(ctx context.Context, issueID, content string) (*models.Comment, error) {
	comment, err := c.api.AddComment(ctx, issueID, content)
	if err != nil {
		return nil, err
	}
	c.apply(Commented{IssueID: comment.IssueID, Comment: *comment})
	return comment, nil
}

func (c *Cache) apply(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issues = Reduce(c.issues, ev)
}
