package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"civicreport-be/middlewares"
	"civicreport-be/models"
	"civicreport-be/repository"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueController serves the issue endpoints on top of an IssueRepository.
type IssueController struct {
	issues  repository.IssueRepository
	logger  *slog.Logger
	timeout time.Duration
}

// NewIssueController creates an IssueController. A nil logger falls back
// to slog.Default and a non-positive timeout to ten seconds.
func NewIssueController(issues repository.IssueRepository, logger *slog.Logger, timeout time.Duration) *IssueController {
	registerValidators()
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &IssueController{issues: issues, logger: logger, timeout: timeout}
}

type listIssuesQuery struct {
	Status     string `form:"status" binding:"omitempty,issuestatus|eq=all"`
	Category   string `form:"category" binding:"omitempty,issuecategory|eq=all"`
	Mine       bool   `form:"mine"`
	ReportedBy string `form:"reportedBy" binding:"omitempty,mongodb"`
	Search     string `form:"search" binding:"omitempty,max=100"`
	Sort       string `form:"sort" binding:"omitempty,oneof=newest oldest"`
}

// filter resolves the query against the caller. mine=true needs a
// signed-in user and takes precedence over reportedBy.
func (q listIssuesQuery) filter(c *gin.Context) (models.IssueFilter, error) {
	filter := models.IssueFilter{
		Status:   q.Status,
		Category: q.Category,
		Search:   q.Search,
		Sort:     q.Sort,
	}
	switch {
	case q.Mine:
		userID, _, ok := middlewares.CurrentUser(c)
		if !ok {
			return filter, models.ErrUnauthorized
		}
		filter.ReportedBy = userID
	case q.ReportedBy != "":
		id, err := primitive.ObjectIDFromHex(q.ReportedBy)
		if err != nil {
			return filter, models.NewValidationError("reportedBy", "is not a valid id")
		}
		filter.ReportedBy = id
	}
	return filter, nil
}

type locationRequest struct {
	Lat     float64 `json:"lat" binding:"min=-90,max=90"`
	Lng     float64 `json:"lng" binding:"min=-180,max=180"`
	Address string  `json:"address" binding:"required,max=300"`
}

type createIssueRequest struct {
	Title       string               `json:"title" binding:"required,max=200"`
	Description string               `json:"description" binding:"required,max=2000"`
	Category    models.IssueCategory `json:"category" binding:"required,issuecategory"`
	Priority    models.IssuePriority `json:"priority" binding:"omitempty,issuepriority"`
	Location    locationRequest      `json:"location"`
	Images      []string             `json:"images" binding:"omitempty,max=10"`
}

func (r createIssueRequest) input() models.CreateIssueInput {
	return models.CreateIssueInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Priority:    r.Priority,
		Location:    models.Location{Lat: r.Location.Lat, Lng: r.Location.Lng, Address: r.Location.Address},
		Images:      r.Images,
	}
}

type updateIssueRequest struct {
	Title       *string               `json:"title" binding:"omitempty,max=200"`
	Description *string               `json:"description" binding:"omitempty,max=2000"`
	Category    *models.IssueCategory `json:"category" binding:"omitempty,issuecategory"`
	Priority    *models.IssuePriority `json:"priority" binding:"omitempty,issuepriority"`
	Status      *models.IssueStatus   `json:"status" binding:"omitempty,issuestatus"`
	AssignedTo  *string               `json:"assignedTo" binding:"omitempty,max=100"`
}

func (r updateIssueRequest) patch() models.IssuePatch {
	return models.IssuePatch{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Priority:    r.Priority,
		Status:      r.Status,
		AssignedTo:  r.AssignedTo,
	}
}

type commentRequest struct {
	Content string `json:"content" binding:"required,max=1000"`
}

// ListIssues returns issues newest first (or oldest with sort=oldest),
// optionally filtered by status, category, reporter and a search term
// ("all" matches everything).
func (ic *IssueController) ListIssues(c *gin.Context) {
	var query listIssuesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, ic.logger, bindingError(err))
		return
	}
	filter, err := query.filter(c)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}

	ctx, cancel := ic.context(c)
	defer cancel()

	issues, err := ic.issues.List(ctx, filter)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusOK, issues)
}

// GetIssue handles fetching a single issue with its comments.
func (ic *IssueController) GetIssue(c *gin.Context) {
	ctx, cancel := ic.context(c)
	defer cancel()

	issue, err := ic.issues.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// GetStats handles the dashboard summary counts.
func (ic *IssueController) GetStats(c *gin.Context) {
	ctx, cancel := ic.context(c)
	defer cancel()

	stats, err := ic.issues.Stats(ctx)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// CreateIssue handles reporting a new issue on behalf of the caller.
func (ic *IssueController) CreateIssue(c *gin.Context) {
	reporterID, _, ok := middlewares.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req createIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ic.logger, bindingError(err))
		return
	}

	ctx, cancel := ic.context(c)
	defer cancel()

	issue, err := ic.issues.Create(ctx, req.input(), reporterID)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	ic.logger.InfoContext(ctx, "issue created",
		slog.String("issue_id", issue.ID.Hex()),
		slog.String("category", issue.Category.String()))
	c.JSON(http.StatusCreated, issue)
}

// UpdateIssue handles partial updates, including status transitions.
func (ic *IssueController) UpdateIssue(c *gin.Context) {
	var req updateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ic.logger, bindingError(err))
		return
	}

	ctx, cancel := ic.context(c)
	defer cancel()

	issue, err := ic.issues.Update(ctx, c.Param("id"), req.patch())
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// DeleteIssue handles removing an issue and its votes.
func (ic *IssueController) DeleteIssue(c *gin.Context) {
	ctx, cancel := ic.context(c)
	defer cancel()

	if err := ic.issues.Delete(ctx, c.Param("id")); err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddComment appends a comment attributed to the caller.
func (ic *IssueController) AddComment(c *gin.Context) {
	authorID, authorName, ok := middlewares.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ic.logger, bindingError(err))
		return
	}

	ctx, cancel := ic.context(c)
	defer cancel()

	comment, err := ic.issues.AddComment(ctx, c.Param("id"), authorID, authorName, req.Content)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// ToggleUpvote casts the caller's vote, or withdraws it if already cast.
func (ic *IssueController) ToggleUpvote(c *gin.Context) {
	userID, _, ok := middlewares.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx, cancel := ic.context(c)
	defer cancel()

	voted, upvotes, err := ic.issues.ToggleUpvote(ctx, c.Param("id"), userID)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voted": voted, "upvotes": upvotes})
}

func (ic *IssueController) context(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), ic.timeout)
}
