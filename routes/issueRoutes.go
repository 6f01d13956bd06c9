package routes

import (
	"civicreport-be/controllers"

	"github.com/gin-gonic/gin"
)

// IssueRoutes sets up the issue routes. Reads are public, with the caller
// identified when possible for ?mine=true. Every mutation requires a
// signed-in user and issue creation is rate limited.
func IssueRoutes(api *gin.RouterGroup, ic *controllers.IssueController, requireAuth, optionalAuth, rateLimit gin.HandlerFunc) {
	issues := api.Group("/issues")
	{
		issues.GET("", optionalAuth, ic.ListIssues)
		issues.GET("/stats", ic.GetStats)
		issues.GET("/:id", ic.GetIssue)

		issues.POST("", requireAuth, rateLimit, ic.CreateIssue)
		issues.PATCH("/:id", requireAuth, ic.UpdateIssue)
		issues.DELETE("/:id", requireAuth, ic.DeleteIssue)
		issues.POST("/:id/comments", requireAuth, ic.AddComment)
		issues.POST("/:id/upvote", requireAuth, ic.ToggleUpvote)
	}
}
