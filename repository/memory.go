package repository

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"civicreport-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryIssueRepository keeps issues in process memory. It follows the
// same contract as MongoIssueRepository and is used for local development
// and tests. Records are copied on the way in and out.
type MemoryIssueRepository struct {
	mu     sync.RWMutex
	issues map[primitive.ObjectID]*models.Issue
	votes  map[voteKey]struct{}
	policy models.TransitionPolicy
	clock  func() time.Time
}

type voteKey struct {
	issue, user primitive.ObjectID
}

// NewMemoryIssueRepository returns an empty store. A nil policy means
// PermissivePolicy.
func NewMemoryIssueRepository(policy models.TransitionPolicy) *MemoryIssueRepository {
	if policy == nil {
		policy = models.PermissivePolicy{}
	}
	return &MemoryIssueRepository{
		issues: make(map[primitive.ObjectID]*models.Issue),
		votes:  make(map[voteKey]struct{}),
		policy: policy,
		clock:  now,
	}
}

// SetClock replaces the time source.
func (r *MemoryIssueRepository) SetClock(clock func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = clock
}

func (r *MemoryIssueRepository) List(_ context.Context, filter models.IssueFilter) ([]models.Issue, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Issue, 0, len(r.issues))
	for _, issue := range r.issues {
		if filter.Matches(issue) {
			out = append(out, r.snapshot(issue))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if filter.Oldest() {
			a, b = b, a
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) > 0
	})
	return out, nil
}

func (r *MemoryIssueRepository) Get(_ context.Context, id string) (*models.Issue, error) {
	oid, err := parseID("issue", id)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	issue, ok := r.issues[oid]
	if !ok {
		return nil, fmt.Errorf("issue %s: %w", id, models.ErrNotFound)
	}
	out := r.snapshot(issue)
	return &out, nil
}

func (r *MemoryIssueRepository) Create(_ context.Context, input models.CreateIssueInput, reporterID primitive.ObjectID) (*models.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	issue, err := models.NewIssue(input, reporterID, r.clock())
	if err != nil {
		return nil, err
	}
	issue.ID = primitive.NewObjectID()
	stored := issue.Clone()
	r.issues[issue.ID] = &stored

	out := r.snapshot(issue)
	return &out, nil
}

func (r *MemoryIssueRepository) Update(_ context.Context, id string, patch models.IssuePatch) (*models.Issue, error) {
	oid, err := parseID("issue", id)
	if err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.issues[oid]
	if !ok {
		return nil, fmt.Errorf("issue %s: %w", id, models.ErrNotFound)
	}
	updated := stored.Clone()
	if err := updated.Apply(patch, r.policy, r.clock()); err != nil {
		return nil, err
	}
	r.issues[oid] = &updated

	out := r.snapshot(&updated)
	return &out, nil
}

func (r *MemoryIssueRepository) AddComment(_ context.Context, issueID string, authorID primitive.ObjectID, authorName, text string) (*models.Comment, error) {
	oid, err := parseID("issue", issueID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	comment, err := models.NewComment(authorID, authorName, text, r.clock())
	if err != nil {
		return nil, err
	}
	stored, ok := r.issues[oid]
	if !ok {
		return nil, fmt.Errorf("issue %s: %w", issueID, models.ErrNotFound)
	}
	stored.Comments = append(stored.Comments, comment)
	stored.UpdatedAt = comment.CreatedAt

	comment.IssueID = oid
	return &comment, nil
}

func (r *MemoryIssueRepository) Delete(_ context.Context, id string) error {
	oid, err := parseID("issue", id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.issues[oid]; !ok {
		return fmt.Errorf("issue %s: %w", id, models.ErrNotFound)
	}
	delete(r.issues, oid)
	for key := range r.votes {
		if key.issue == oid {
			delete(r.votes, key)
		}
	}
	return nil
}

func (r *MemoryIssueRepository) ToggleUpvote(_ context.Context, issueID string, userID primitive.ObjectID) (bool, int64, error) {
	oid, err := parseID("issue", issueID)
	if err != nil {
		return false, 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.issues[oid]
	if !ok {
		return false, 0, fmt.Errorf("issue %s: %w", issueID, models.ErrNotFound)
	}
	key := voteKey{issue: oid, user: userID}
	if _, voted := r.votes[key]; voted {
		delete(r.votes, key)
		stored.Upvotes--
		return false, stored.Upvotes, nil
	}
	r.votes[key] = struct{}{}
	stored.Upvotes++
	return true, stored.Upvotes, nil
}

func (r *MemoryIssueRepository) Stats(_ context.Context) (*models.IssueStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &models.IssueStats{
		ByStatus:   make(map[models.IssueStatus]int64),
		ByCategory: make(map[models.IssueCategory]int64),
	}
	days := models.LastSevenDays(r.clock())
	perDay := make(map[string]int64)
	for _, issue := range r.issues {
		stats.Total++
		stats.ByStatus[issue.Status]++
		stats.ByCategory[issue.Category]++
		if issue.Status.IsOpen() {
			stats.Open++
		}
		if !issue.CreatedAt.Before(days[0]) {
			perDay[issue.CreatedAt.In(days[0].Location()).Format("2006-01-02")]++
		}
	}
	for _, day := range days {
		date := day.Format("2006-01-02")
		stats.Last7Days = append(stats.Last7Days, models.DayCount{Date: date, Count: perDay[date]})
	}
	return stats, nil
}

func (r *MemoryIssueRepository) Ping(context.Context) error { return nil }

func (r *MemoryIssueRepository) snapshot(issue *models.Issue) models.Issue {
	out := issue.Clone()
	out.LinkComments()
	return out
}

// MemoryUserRepository keeps accounts in process memory.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

// NewMemoryUserRepository returns an empty account store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[primitive.ObjectID]models.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.Email = models.NormalizeEmail(user.Email)
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return fmt.Errorf("user %s: %w", user.Email, models.ErrAlreadyExists)
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			out := user
			return &out, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, models.ErrNotFound)
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	oid, err := parseID("user", id)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[oid]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return &user, nil
}
