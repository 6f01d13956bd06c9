package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"civicreport-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// runIssueContract exercises the IssueRepository contract. Both storage
// implementations must pass it unchanged.
func runIssueContract(t *testing.T, newRepo func(t *testing.T, policy models.TransitionPolicy) IssueRepository) {
	ctx := context.Background()
	reporter := primitive.NewObjectID()

	t.Run("CreateDefaultsToPending", func(t *testing.T) {
		repo := newRepo(t, nil)

		issue, err := repo.Create(ctx, potholeInput(), reporter)
		require.NoError(t, err)
		assert.False(t, issue.ID.IsZero())
		assert.Equal(t, models.StatusPending, issue.Status)
		assert.Equal(t, models.PriorityHigh, issue.Priority)
		assert.Nil(t, issue.ResolvedAt)
		assert.False(t, issue.CreatedAt.IsZero())
		assert.Equal(t, issue.CreatedAt, issue.UpdatedAt)
	})

	t.Run("CreateRejectsInvalidInput", func(t *testing.T) {
		repo := newRepo(t, nil)

		in := potholeInput()
		in.Category = "plumbing"
		_, err := repo.Create(ctx, in, reporter)
		require.ErrorIs(t, err, models.ErrValidation)

		all, err := repo.List(ctx, models.IssueFilter{})
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("CreateThenGetRoundTrip", func(t *testing.T) {
		repo := newRepo(t, nil)

		in := potholeInput()
		in.Images = []string{"https://cdn.example/1.jpg"}
		created, err := repo.Create(ctx, in, reporter)
		require.NoError(t, err)

		got, err := repo.Get(ctx, created.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, in.Title, got.Title)
		assert.Equal(t, in.Description, got.Description)
		assert.Equal(t, in.Category, got.Category)
		assert.Equal(t, in.Priority, got.Priority)
		assert.Equal(t, in.Location, got.Location)
		assert.Equal(t, in.Images, got.Images)
		assert.Equal(t, reporter, got.ReportedBy)
		assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("GetUnknownIsNotFound", func(t *testing.T) {
		repo := newRepo(t, nil)

		_, err := repo.Get(ctx, primitive.NewObjectID().Hex())
		require.ErrorIs(t, err, models.ErrNotFound)

		_, err = repo.Get(ctx, "not-an-id")
		require.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("LifecycleScenario", func(t *testing.T) {
		repo := newRepo(t, nil)

		issue, err := repo.Create(ctx, potholeInput(), reporter)
		require.NoError(t, err)
		id := issue.ID.Hex()

		inProgress := models.StatusInProgress
		issue, err = repo.Update(ctx, id, models.IssuePatch{Status: &inProgress})
		require.NoError(t, err)
		assert.Equal(t, models.StatusInProgress, issue.Status)
		assert.Nil(t, issue.ResolvedAt)

		resolved := models.StatusResolved
		issue, err = repo.Update(ctx, id, models.IssuePatch{Status: &resolved})
		require.NoError(t, err)
		require.NotNil(t, issue.ResolvedAt)
		assert.False(t, issue.ResolvedAt.Before(issue.CreatedAt))
		stamp := *issue.ResolvedAt

		closed := models.StatusClosed
		_, err = repo.Update(ctx, id, models.IssuePatch{Status: &closed})
		require.NoError(t, err)

		stored, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusClosed, stored.Status)
		require.NotNil(t, stored.ResolvedAt)
		assert.True(t, stamp.Equal(*stored.ResolvedAt))
	})

	t.Run("UpdateValidation", func(t *testing.T) {
		repo := newRepo(t, nil)

		issue, err := repo.Create(ctx, potholeInput(), reporter)
		require.NoError(t, err)

		bad := models.IssueStatus("open")
		_, err = repo.Update(ctx, issue.ID.Hex(), models.IssuePatch{Status: &bad})
		require.ErrorIs(t, err, models.ErrValidation)

		ok := models.StatusClosed
		_, err = repo.Update(ctx, primitive.NewObjectID().Hex(), models.IssuePatch{Status: &ok})
		require.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("UpdateAssignment", func(t *testing.T) {
		repo := newRepo(t, nil)

		issue, err := repo.Create(ctx, potholeInput(), reporter)
		require.NoError(t, err)

		team := "roads-team"
		updated, err := repo.Update(ctx, issue.ID.Hex(), models.IssuePatch{AssignedTo: &team})
		require.NoError(t, err)
		require.NotNil(t, updated.AssignedTo)
		assert.Equal(t, team, *updated.AssignedTo)
		assert.False(t, updated.UpdatedAt.Before(issue.UpdatedAt))

		empty := ""
		_, err = repo.Update(ctx, issue.ID.Hex(), models.IssuePatch{AssignedTo: &empty})
		require.NoError(t, err)
		stored, err := repo.Get(ctx, issue.ID.Hex())
		require.NoError(t, err)
		assert.Nil(t, stored.AssignedTo)
	})

	t.Run("StrictPolicyRejectsSkippingSteps", func(t *testing.T) {
		repo := newRepo(t, models.NewStrictPolicy())

		issue, err := repo.Create(ctx, potholeInput(), reporter)
		require.NoError(t, err)

		resolved := models.StatusResolved
		_, err = repo.Update(ctx, issue.ID.Hex(), models.IssuePatch{Status: &resolved})
		require.ErrorIs(t, err, models.ErrValidation)

		stored, err := repo.Get(ctx, issue.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, stored.Status)
	})

	t.Run("ListFiltersByStatusPreservingOrder", func(t *testing.T) {
		repo := newRepo(t, nil)

		var ids []primitive.ObjectID
		for i := 0; i < 4; i++ {
			issue, err := repo.Create(ctx, potholeInput(), reporter)
			require.NoError(t, err)
			ids = append(ids, issue.ID)
			time.Sleep(2 * time.Millisecond)
		}
		resolved := models.StatusResolved
		_, err := repo.Update(ctx, ids[1].Hex(), models.IssuePatch{Status: &resolved})
		require.NoError(t, err)

		all, err := repo.List(ctx, models.IssueFilter{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		// Newest first.
		assert.Equal(t, ids[3], all[0].ID)
		assert.Equal(t, ids[0], all[3].ID)

		pending, err := repo.List(ctx, models.IssueFilter{Status: "pending"})
		require.NoError(t, err)

		var want []primitive.ObjectID
		for _, issue := range all {
			if issue.Status == models.StatusPending {
				want = append(want, issue.ID)
			}
		}
		var got []primitive.ObjectID
		for _, issue := range pending {
			got = append(got, issue.ID)
		}
		assert.Equal(t, want, got)

		everything, err := repo.List(ctx, models.IssueFilter{Status: models.FilterAll})
		require.NoError(t, err)
		assert.Len(t, everything, 4)

		_, err = repo.List(ctx, models.IssueFilter{Status: "open"})
		require.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("ListByReporterSearchAndSort", func(t *testing.T) {
		repo := newRepo(t, nil)

		other := primitive.NewObjectID()
		var ids []primitive.ObjectID
		for i, in := range []struct {
			title    string
			reporter primitive.ObjectID
		}{
			{"Pothole on Elm St", reporter},
			{"Broken streetlight", other},
			{"Second pothole near school", reporter},
		} {
			input := potholeInput()
			input.Title = in.title
			if i == 1 {
				input.Description = "Dark corner by the park"
			}
			issue, err := repo.Create(ctx, input, in.reporter)
			require.NoError(t, err)
			ids = append(ids, issue.ID)
			time.Sleep(2 * time.Millisecond)
		}

		mine, err := repo.List(ctx, models.IssueFilter{ReportedBy: reporter})
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, ids[2], mine[0].ID)
		assert.Equal(t, ids[0], mine[1].ID)

		found, err := repo.List(ctx, models.IssueFilter{Search: "POTHOLE"})
		require.NoError(t, err)
		assert.Len(t, found, 2)

		found, err = repo.List(ctx, models.IssueFilter{Search: "park"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, ids[1], found[0].ID)

		found, err = repo.List(ctx, models.IssueFilter{Search: "elm.*"})
		require.NoError(t, err)
		assert.Empty(t, found)

		oldest, err := repo.List(ctx, models.IssueFilter{Sort: models.SortOldest})
		require.NoError(t, err)
		require.Len(t, oldest, 3)
		assert.Equal(t, ids[0], oldest[0].ID)
		assert.Equal(t, ids[2], oldest[2].ID)

		_, err = repo.List(ctx, models.IssueFilter{Sort: "popular"})
		require.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("ConcurrentPatchesKeepResolution", func(t *testing.T) {
		repo := newRepo(t, nil)

		issue, err := repo.Create(ctx, potholeInput(), reporter)
		require.NoError(t, err)
		id := issue.ID.Hex()

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				title := "Pothole on Elm St (confirmed)"
				_, err := repo.Update(ctx, id, models.IssuePatch{Title: &title})
				if err != nil && !errors.Is(err, models.ErrConflict) {
					t.Errorf("title patch: %v", err)
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			resolved := models.StatusResolved
			for {
				_, err := repo.Update(ctx, id, models.IssuePatch{Status: &resolved})
				if !errors.Is(err, models.ErrConflict) {
					if err != nil {
						t.Errorf("status patch: %v", err)
					}
					return
				}
			}
		}()
		wg.Wait()

		stored, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusResolved, stored.Status)
		require.NotNil(t, stored.ResolvedAt)
	})

	t.Run("TitlePatchLeavesStatusUntouched", func(t *testing.T) {
		repo := newRepo(t, nil)

		issue, err := repo.Create(ctx, potholeInput(), reporter)
		require.NoError(t, err)
		resolved := models.StatusResolved
		first, err := repo.Update(ctx, issue.ID.Hex(), models.IssuePatch{Status: &resolved})
		require.NoError(t, err)
		require.NotNil(t, first.ResolvedAt)

		title := "Filled"
		updated, err := repo.Update(ctx, issue.ID.Hex(), models.IssuePatch{Title: &title})
		require.NoError(t, err)
		assert.False(t, updated.UpdatedAt.Before(first.UpdatedAt))

		stored, err := repo.Get(ctx, issue.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, "Filled", stored.Title)
		assert.Equal(t, models.StatusResolved, stored.Status)
		require.NotNil(t, stored.ResolvedAt)
		assert.True(t, first.ResolvedAt.Equal(*stored.ResolvedAt))
	})

	t.Run("AddComment", func(t *testing.T) {
		repo := newRepo(t, nil)

		issue, err := repo.Create(ctx, potholeInput(), reporter)
		require.NoError(t, err)

		author := primitive.NewObjectID()
		first, err := repo.AddComment(ctx, issue.ID.Hex(), author, "Ana", "Crew scheduled")
		require.NoError(t, err)
		assert.Equal(t, issue.ID, first.IssueID)
		second, err := repo.AddComment(ctx, issue.ID.Hex(), author, "Ana", "Fixed")
		require.NoError(t, err)

		stored, err := repo.Get(ctx, issue.ID.Hex())
		require.NoError(t, err)
		require.Len(t, stored.Comments, 2)
		assert.Equal(t, first.ID, stored.Comments[0].ID)
		assert.Equal(t, second.ID, stored.Comments[1].ID)
		assert.Equal(t, "Crew scheduled", stored.Comments[0].Content)
		assert.Equal(t, "Ana", stored.Comments[0].UserName)
		assert.Equal(t, issue.ID, stored.Comments[1].IssueID)
		assert.False(t, stored.UpdatedAt.Before(second.CreatedAt))

		_, err = repo.AddComment(ctx, issue.ID.Hex(), author, "Ana", "  ")
		require.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("AddCommentToMissingIssue", func(t *testing.T) {
		repo := newRepo(t, nil)

		issue, err := repo.Create(ctx, potholeInput(), reporter)
		require.NoError(t, err)

		_, err = repo.AddComment(ctx, primitive.NewObjectID().Hex(), reporter, "Ana", "hello")
		require.ErrorIs(t, err, models.ErrNotFound)

		// Content is validated before the issue is looked up.
		_, err = repo.AddComment(ctx, primitive.NewObjectID().Hex(), reporter, "Ana", " ")
		require.ErrorIs(t, err, models.ErrValidation)

		all, err := repo.List(ctx, models.IssueFilter{})
		require.NoError(t, err)
		for _, i := range all {
			assert.Empty(t, i.Comments)
		}
		assert.Equal(t, issue.ID, all[0].ID)
	})

	t.Run("Delete", func(t *testing.T) {
		repo := newRepo(t, nil)

		issue, err := repo.Create(ctx, potholeInput(), reporter)
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, issue.ID.Hex()))
		_, err = repo.Get(ctx, issue.ID.Hex())
		require.ErrorIs(t, err, models.ErrNotFound)
		require.ErrorIs(t, repo.Delete(ctx, issue.ID.Hex()), models.ErrNotFound)
	})

	t.Run("ToggleUpvote", func(t *testing.T) {
		repo := newRepo(t, nil)

		issue, err := repo.Create(ctx, potholeInput(), reporter)
		require.NoError(t, err)
		voter := primitive.NewObjectID()

		voted, count, err := repo.ToggleUpvote(ctx, issue.ID.Hex(), voter)
		require.NoError(t, err)
		assert.True(t, voted)
		assert.EqualValues(t, 1, count)

		_, count, err = repo.ToggleUpvote(ctx, issue.ID.Hex(), primitive.NewObjectID())
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)

		voted, count, err = repo.ToggleUpvote(ctx, issue.ID.Hex(), voter)
		require.NoError(t, err)
		assert.False(t, voted)
		assert.EqualValues(t, 1, count)

		_, _, err = repo.ToggleUpvote(ctx, primitive.NewObjectID().Hex(), voter)
		require.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("Stats", func(t *testing.T) {
		repo := newRepo(t, nil)

		for i := 0; i < 3; i++ {
			_, err := repo.Create(ctx, potholeInput(), reporter)
			require.NoError(t, err)
		}
		in := potholeInput()
		in.Category = models.CategoryDrainage
		drain, err := repo.Create(ctx, in, reporter)
		require.NoError(t, err)
		closed := models.StatusClosed
		_, err = repo.Update(ctx, drain.ID.Hex(), models.IssuePatch{Status: &closed})
		require.NoError(t, err)

		stats, err := repo.Stats(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 4, stats.Total)
		assert.EqualValues(t, 3, stats.Open)
		assert.EqualValues(t, 3, stats.ByCategory[models.CategoryPothole])
		assert.EqualValues(t, 1, stats.ByStatus[models.StatusClosed])
		require.Len(t, stats.Last7Days, 7)
		assert.EqualValues(t, 4, stats.Last7Days[6].Count)
	})
}

func potholeInput() models.CreateIssueInput {
	return models.CreateIssueInput{
		Title:       "Pothole on Elm St",
		Description: "Large pothole",
		Category:    models.CategoryPothole,
		Priority:    models.PriorityHigh,
		Location:    models.Location{Lat: 40.0, Lng: -74.0, Address: "Elm St"},
	}
}
