package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 2000
	maxAddressLen     = 300
	maxCommentLen     = 1000
)

// Location is where an issue was reported. Coordinates are opaque input
// from the map provider and default to 0,0.
type Location struct {
	Lat     float64 `bson:"lat" json:"lat"`
	Lng     float64 `bson:"lng" json:"lng"`
	Address string  `bson:"address" json:"address"`
}

// Comment is owned by its issue and has no lifecycle of its own.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	IssueID   primitive.ObjectID `bson:"-" json:"issueId"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	UserName  string             `bson:"userName" json:"userName"`
	Content   string             `bson:"text" json:"content"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Issue is a citizen-reported infrastructure problem together with its
// embedded comments. It is stored and mutated as one document.
type Issue struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Category    IssueCategory      `bson:"category" json:"category"`
	Priority    IssuePriority      `bson:"priority" json:"priority"`
	Status      IssueStatus        `bson:"status" json:"status"`
	Location    Location           `bson:"location" json:"location"`
	Images      []string           `bson:"photos" json:"images"`
	ReportedBy  primitive.ObjectID `bson:"reporterId" json:"reportedBy"`
	AssignedTo  *string            `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	Upvotes     int64              `bson:"upvotes" json:"upvotes"`
	Comments    []Comment          `bson:"comments" json:"comments"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
	ResolvedAt  *time.Time         `bson:"resolvedAt" json:"resolvedAt,omitempty"`
}

// CreateIssueInput carries the caller-supplied fields of a new issue.
type CreateIssueInput struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    IssueCategory `json:"category"`
	Priority    IssuePriority `json:"priority"`
	Location    Location      `json:"location"`
	Images      []string      `json:"images,omitempty"`
}

func (in CreateIssueInput) normalize() CreateIssueInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location.Address = strings.TrimSpace(in.Location.Address)
	if in.Priority == "" {
		in.Priority = DefaultPriority
	}
	images := make([]string, 0, len(in.Images))
	for _, img := range in.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	in.Images = images
	return in
}

// Validate checks required fields and enumerations. An empty priority is
// accepted and later defaulted to DefaultPriority.
func (in CreateIssueInput) Validate() error {
	in = in.normalize()

	var errs fieldErrors
	checkText(&errs, "title", in.Title, maxTitleLen)
	checkText(&errs, "description", in.Description, maxDescriptionLen)
	checkText(&errs, "location.address", in.Location.Address, maxAddressLen)
	if !in.Category.IsValid() {
		errs.add("category", "unknown category "+quote(string(in.Category)))
	}
	if !in.Priority.IsValid() {
		errs.add("priority", "unknown priority "+quote(string(in.Priority)))
	}
	return errs.err()
}

// NewIssue builds a pending issue from validated input. The caller assigns
// the identifier when it persists the record.
func NewIssue(in CreateIssueInput, reporter primitive.ObjectID, now time.Time) (*Issue, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in = in.normalize()
	return &Issue{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Priority:    in.Priority,
		Status:      StatusPending,
		Location:    in.Location,
		Images:      in.Images,
		ReportedBy:  reporter,
		Comments:    []Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IssuePatch is a partial update. Nil fields are left untouched; an empty
// AssignedTo clears the assignment.
type IssuePatch struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Category    *IssueCategory `json:"category,omitempty"`
	Priority    *IssuePriority `json:"priority,omitempty"`
	Status      *IssueStatus   `json:"status,omitempty"`
	AssignedTo  *string        `json:"assignedTo,omitempty"`
}

func (p IssuePatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil &&
		p.Priority == nil && p.Status == nil && p.AssignedTo == nil
}

// Validate checks the fields present in the patch.
func (p IssuePatch) Validate() error {
	var errs fieldErrors
	if p.Title != nil {
		checkText(&errs, "title", strings.TrimSpace(*p.Title), maxTitleLen)
	}
	if p.Description != nil {
		checkText(&errs, "description", strings.TrimSpace(*p.Description), maxDescriptionLen)
	}
	if p.Category != nil && !p.Category.IsValid() {
		errs.add("category", "unknown category "+quote(string(*p.Category)))
	}
	if p.Priority != nil && !p.Priority.IsValid() {
		errs.add("priority", "unknown priority "+quote(string(*p.Priority)))
	}
	if p.Status != nil && !p.Status.IsValid() {
		errs.add("status", "unknown status "+quote(string(*p.Status)))
	}
	return errs.err()
}

// Apply validates p against policy and applies it to the issue. The first
// move into StatusResolved stamps ResolvedAt; it is never cleared.
// On error the issue is left unchanged.
func (i *Issue) Apply(p IssuePatch, policy TransitionPolicy, now time.Time) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Status != nil {
		if err := checkTransition(policy, i.Status, *p.Status); err != nil {
			return err
		}
	}

	if p.Title != nil {
		i.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		i.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil {
		i.Category = *p.Category
	}
	if p.Priority != nil {
		i.Priority = *p.Priority
	}
	if p.AssignedTo != nil {
		if assignee := strings.TrimSpace(*p.AssignedTo); assignee != "" {
			i.AssignedTo = &assignee
		} else {
			i.AssignedTo = nil
		}
	}
	if p.Status != nil {
		i.Status = *p.Status
		if i.Status == StatusResolved && i.ResolvedAt == nil {
			resolvedAt := now
			i.ResolvedAt = &resolvedAt
		}
	}
	i.UpdatedAt = now
	return nil
}

// NewComment builds a comment with a fresh identifier.
func NewComment(authorID primitive.ObjectID, authorName, text string, now time.Time) (Comment, error) {
	text = strings.TrimSpace(text)
	var errs fieldErrors
	checkText(&errs, "content", text, maxCommentLen)
	if err := errs.err(); err != nil {
		return Comment{}, err
	}
	return Comment{
		ID:        primitive.NewObjectID(),
		UserID:    authorID,
		UserName:  strings.TrimSpace(authorName),
		Content:   text,
		CreatedAt: now,
	}, nil
}

// LinkComments fills the IssueID of every embedded comment, which is not
// persisted because containment already implies it.
func (i *Issue) LinkComments() {
	if i.Comments == nil {
		i.Comments = []Comment{}
	}
	if i.Images == nil {
		i.Images = []string{}
	}
	for k := range i.Comments {
		i.Comments[k].IssueID = i.ID
	}
}

// Clone returns a deep copy of the issue.
func (i Issue) Clone() Issue {
	out := i
	if i.Images != nil {
		out.Images = make([]string, len(i.Images))
		copy(out.Images, i.Images)
	}
	if i.Comments != nil {
		out.Comments = make([]Comment, len(i.Comments))
		copy(out.Comments, i.Comments)
	}
	if i.AssignedTo != nil {
		v := *i.AssignedTo
		out.AssignedTo = &v
	}
	if i.ResolvedAt != nil {
		v := *i.ResolvedAt
		out.ResolvedAt = &v
	}
	return out
}

// FilterAll is the filter value that matches every status or category.
const FilterAll = "all"

// Listing orders accepted by IssueFilter.Sort.
const (
	SortNewest = "newest"
	SortOldest = "oldest"
)

// IssueFilter narrows a listing. Empty fields (or FilterAll) match
// everything. Search is a case-insensitive substring of the title or
// description.
type IssueFilter struct {
	Status     string
	Category   string
	ReportedBy primitive.ObjectID
	Search     string
	Sort       string
}

// Validate rejects filter values outside the enumerations.
func (f IssueFilter) Validate() error {
	var errs fieldErrors
	if !matchesAll(f.Status) && !IssueStatus(f.Status).IsValid() {
		errs.add("status", "unknown status "+quote(f.Status))
	}
	if !matchesAll(f.Category) && !IssueCategory(f.Category).IsValid() {
		errs.add("category", "unknown category "+quote(f.Category))
	}
	if f.Sort != "" && f.Sort != SortNewest && f.Sort != SortOldest {
		errs.add("sort", "unknown sort "+quote(f.Sort))
	}
	return errs.err()
}

// Matches reports whether the issue passes the filter.
func (f IssueFilter) Matches(i *Issue) bool {
	if !matchesAll(f.Status) && string(i.Status) != f.Status {
		return false
	}
	if !matchesAll(f.Category) && string(i.Category) != f.Category {
		return false
	}
	if !f.ReportedBy.IsZero() && i.ReportedBy != f.ReportedBy {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		return strings.Contains(strings.ToLower(i.Title), term) ||
			strings.Contains(strings.ToLower(i.Description), term)
	}
	return true
}

// Oldest reports whether the listing runs oldest first.
func (f IssueFilter) Oldest() bool { return f.Sort == SortOldest }

func matchesAll(v string) bool { return v == "" || v == FilterAll }

// IssueStats summarizes the issue collection.
type IssueStats struct {
	Total      int64                   `json:"totalIssues"`
	Open       int64                   `json:"openIssues"`
	ByStatus   map[IssueStatus]int64   `json:"byStatus"`
	ByCategory map[IssueCategory]int64 `json:"byCategory"`
	Last7Days  []DayCount              `json:"last7Days"`
}

// DayCount is the number of issues created on one calendar day.
type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// LastSevenDays returns the start of each of the last seven days ending
// today, oldest first, in now's location.
func LastSevenDays(now time.Time) []time.Time {
	days := make([]time.Time, 0, 7)
	for i := 6; i >= 0; i-- {
		d := now.AddDate(0, 0, -i)
		days = append(days, time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location()))
	}
	return days
}

func checkText(errs *fieldErrors, field, value string, max int) {
	switch {
	case value == "":
		errs.add(field, "is required")
	case utf8.RuneCountInString(value) > max:
		errs.add(field, "is too long")
	}
}

func quote(s string) string { return `"` + s + `"` }
