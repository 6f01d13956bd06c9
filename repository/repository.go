// Package repository persists issue aggregates, users and votes.
package repository

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

import (
	"context"
	"time"

	"civicreport-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueRepository stores Issue aggregates. Each mutation is atomic for a
// single issue document.
type IssueRepository interface {
	List(ctx context.Context, filter models.IssueFilter) ([]models.Issue, error)
	Get(ctx context.Context, id string) (*models.Issue, error)
	Create(ctx context.Context, input models.CreateIssueInput, reporterID primitive.ObjectID) (*models.Issue, error)
	Update(ctx context.Context, id string, patch models.IssuePatch) (*models.Issue, error)
	AddComment(ctx context.Context, issueID string, authorID primitive.ObjectID, authorName, text string) (*models.Comment, error)
	Delete(ctx context.Context, id string) error
	ToggleUpvote(ctx context.Context, issueID string, userID primitive.ObjectID) (voted bool, upvotes int64, err error)
	Stats(ctx context.Context) (*models.IssueStats, error)
	Ping(ctx context.Context) error
}

// UserRepository stores accounts used for attribution and login.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// now returns the current time at the precision MongoDB stores.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
