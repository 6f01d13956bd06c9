package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"civicreport-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const maxUpdateAttempts = 5

const (
	issuesCollection = "issues"
	votesCollection  = "votes"
	usersCollection  = "users"
)

// MongoIssueRepository stores issues in the "issues" collection and
// upvotes in the "votes" collection.
type MongoIssueRepository struct {
	issues *mongo.Collection
	votes  *mongo.Collection
	policy models.TransitionPolicy
}

// NewMongoIssueRepository binds the repository to db. A nil policy means
// PermissivePolicy.
func NewMongoIssueRepository(db *mongo.Database, policy models.TransitionPolicy) *MongoIssueRepository {
	if policy == nil {
		policy = models.PermissivePolicy{}
	}
	return &MongoIssueRepository{
		issues: db.Collection(issuesCollection),
		votes:  db.Collection(votesCollection),
		policy: policy,
	}
}

// EnsureIndexes creates the listing index on issues and the unique
// (issue, user) index on votes.
func (r *MongoIssueRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.issues.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return mapErr("issues: create indexes", err)
	}
	_, err = r.votes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "issue", Value: 1}, {Key: "user", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return mapErr("votes: create index", err)
}

// List returns the issues matching filter, newest first unless the filter
// asks for oldest first.
func (r *MongoIssueRepository) List(ctx context.Context, filter models.IssueFilter) ([]models.Issue, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	query := bson.M{}
	if filter.Status != "" && filter.Status != models.FilterAll {
		query["status"] = filter.Status
	}
	if filter.Category != "" && filter.Category != models.FilterAll {
		query["category"] = filter.Category
	}
	if !filter.ReportedBy.IsZero() {
		query["reporterId"] = filter.ReportedBy
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}

	order := -1
	if filter.Oldest() {
		order = 1
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: order}, {Key: "_id", Value: order}})

	cursor, err := r.issues.Find(ctx, query, findOptions)
	if err != nil {
		return nil, mapErr("issues: find", err)
	}
	defer cursor.Close(ctx)

	issues := make([]models.Issue, 0)
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, mapErr("issues: decode", err)
	}
	for k := range issues {
		issues[k].LinkComments()
	}
	return issues, nil
}

func (r *MongoIssueRepository) Get(ctx context.Context, id string) (*models.Issue, error) {
	oid, err := parseID("issue", id)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, oid)
}

func (r *MongoIssueRepository) get(ctx context.Context, oid primitive.ObjectID) (*models.Issue, error) {
	var issue models.Issue
	if err := r.issues.FindOne(ctx, bson.M{"_id": oid}).Decode(&issue); err != nil {
		return nil, mapErr(fmt.Sprintf("issue %s", oid.Hex()), err)
	}
	issue.LinkComments()
	return &issue, nil
}

func (r *MongoIssueRepository) Create(ctx context.Context, input models.CreateIssueInput, reporterID primitive.ObjectID) (*models.Issue, error) {
	issue, err := models.NewIssue(input, reporterID, now())
	if err != nil {
		return nil, err
	}
	issue.ID = primitive.NewObjectID()

	if _, err := r.issues.InsertOne(ctx, issue); err != nil {
		return nil, mapErr("issues: insert", err)
	}
	issue.LinkComments()
	return issue, nil
}

// Update applies patch with optimistic concurrency. The write is guarded by
// the updatedAt of the loaded document and retried against a fresh read
// when another writer got there first.
func (r *MongoIssueRepository) Update(ctx context.Context, id string, patch models.IssuePatch) (*models.Issue, error) {
	oid, err := parseID("issue", id)
	if err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		loaded, err := r.get(ctx, oid)
		if err != nil {
			return nil, err
		}
		issue := loaded.Clone()
		if err := issue.Apply(patch, r.policy, now()); err != nil {
			return nil, err
		}
		// The guard needs a strictly newer stamp at millisecond precision.
		if !issue.UpdatedAt.After(loaded.UpdatedAt) {
			issue.UpdatedAt = loaded.UpdatedAt.Add(time.Millisecond)
		}

		res, err := r.issues.UpdateOne(ctx,
			bson.M{"_id": oid, "updatedAt": loaded.UpdatedAt},
			patchUpdate(patch, loaded, &issue))
		if err != nil {
			return nil, mapErr(fmt.Sprintf("issue %s: update", id), err)
		}
		if res.MatchedCount == 1 {
			return &issue, nil
		}
	}
	return nil, fmt.Errorf("issue %s: %w", id, models.ErrConflict)
}

// patchUpdate writes only the fields present in patch, plus resolvedAt when
// this update stamped it.
func patchUpdate(patch models.IssuePatch, before, after *models.Issue) bson.M {
	set := bson.M{"updatedAt": after.UpdatedAt}
	if patch.Title != nil {
		set["title"] = after.Title
	}
	if patch.Description != nil {
		set["description"] = after.Description
	}
	if patch.Category != nil {
		set["category"] = after.Category
	}
	if patch.Priority != nil {
		set["priority"] = after.Priority
	}
	if patch.Status != nil {
		set["status"] = after.Status
		if before.ResolvedAt == nil && after.ResolvedAt != nil {
			set["resolvedAt"] = after.ResolvedAt
		}
	}
	update := bson.M{"$set": set}
	if patch.AssignedTo != nil {
		if after.AssignedTo != nil {
			set["assignedTo"] = *after.AssignedTo
		} else {
			update["$unset"] = bson.M{"assignedTo": ""}
		}
	}
	return update
}

func (r *MongoIssueRepository) AddComment(ctx context.Context, issueID string, authorID primitive.ObjectID, authorName, text string) (*models.Comment, error) {
	oid, err := parseID("issue", issueID)
	if err != nil {
		return nil, err
	}
	comment, err := models.NewComment(authorID, authorName, text, now())
	if err != nil {
		return nil, err
	}

	res, err := r.issues.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updatedAt": comment.CreatedAt},
	})
	if err != nil {
		return nil, mapErr(fmt.Sprintf("issue %s: add comment", issueID), err)
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("issue %s: %w", issueID, models.ErrNotFound)
	}
	comment.IssueID = oid
	return &comment, nil
}

func (r *MongoIssueRepository) Delete(ctx context.Context, id string) error {
	oid, err := parseID("issue", id)
	if err != nil {
		return err
	}

	res, err := r.issues.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return mapErr(fmt.Sprintf("issue %s: delete", id), err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("issue %s: %w", id, models.ErrNotFound)
	}

	// Orphaned votes are harmless; the issue is already gone.
	_, _ = r.votes.DeleteMany(ctx, bson.M{"issue": oid})
	return nil
}

// ToggleUpvote casts or withdraws userID's vote and returns the new count.
func (r *MongoIssueRepository) ToggleUpvote(ctx context.Context, issueID string, userID primitive.ObjectID) (bool, int64, error) {
	oid, err := parseID("issue", issueID)
	if err != nil {
		return false, 0, err
	}

	count, err := r.issues.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, 0, mapErr(fmt.Sprintf("issue %s", issueID), err)
	}
	if count == 0 {
		return false, 0, fmt.Errorf("issue %s: %w", issueID, models.ErrNotFound)
	}

	voteKey := bson.M{"issue": oid, "user": userID}
	removed, err := r.votes.DeleteOne(ctx, voteKey)
	if err != nil {
		return false, 0, mapErr("votes: delete", err)
	}

	voted, delta := false, int64(-1)
	if removed.DeletedCount == 0 {
		vote := models.Vote{
			ID:        primitive.NewObjectID(),
			Issue:     oid,
			User:      userID,
			CreatedAt: now(),
		}
		if _, err := r.votes.InsertOne(ctx, vote); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				// A concurrent request already cast this vote.
				upvotes, err := r.upvotes(ctx, oid)
				return true, upvotes, err
			}
			return false, 0, mapErr("votes: insert", err)
		}
		voted, delta = true, 1
	}

	var out struct {
		Upvotes int64 `bson:"upvotes"`
	}
	err = r.issues.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$inc": bson.M{"upvotes": delta}},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"upvotes": 1}),
	).Decode(&out)
	if err != nil {
		return false, 0, mapErr(fmt.Sprintf("issue %s: upvote", issueID), err)
	}
	return voted, out.Upvotes, nil
}

func (r *MongoIssueRepository) upvotes(ctx context.Context, oid primitive.ObjectID) (int64, error) {
	var out struct {
		Upvotes int64 `bson:"upvotes"`
	}
	err := r.issues.FindOne(ctx, bson.M{"_id": oid},
		options.FindOne().SetProjection(bson.M{"upvotes": 1})).Decode(&out)
	return out.Upvotes, mapErr(fmt.Sprintf("issue %s", oid.Hex()), err)
}

func (r *MongoIssueRepository) Stats(ctx context.Context) (*models.IssueStats, error) {
	stats := &models.IssueStats{
		ByStatus:   make(map[models.IssueStatus]int64),
		ByCategory: make(map[models.IssueCategory]int64),
	}

	groups := []struct {
		field string
		add   func(key string, n int64)
	}{
		{"status", func(key string, n int64) { stats.ByStatus[models.IssueStatus(key)] = n }},
		{"category", func(key string, n int64) { stats.ByCategory[models.IssueCategory(key)] = n }},
	}
	for _, g := range groups {
		rows, err := r.countBy(ctx, bson.M{}, "$"+g.field)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			g.add(row.Key, row.Count)
		}
	}

	for status, n := range stats.ByStatus {
		stats.Total += n
		if status.IsOpen() {
			stats.Open += n
		}
	}

	days := models.LastSevenDays(time.Now().UTC())
	rows, err := r.countBy(ctx,
		bson.M{"createdAt": bson.M{"$gte": days[0]}},
		bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$createdAt"}},
	)
	if err != nil {
		return nil, err
	}
	perDay := make(map[string]int64, len(rows))
	for _, row := range rows {
		perDay[row.Key] = row.Count
	}
	for _, day := range days {
		date := day.Format("2006-01-02")
		stats.Last7Days = append(stats.Last7Days, models.DayCount{Date: date, Count: perDay[date]})
	}
	return stats, nil
}

type groupCount struct {
	Key   string `bson:"_id"`
	Count int64  `bson:"count"`
}

func (r *MongoIssueRepository) countBy(ctx context.Context, match bson.M, key interface{}) ([]groupCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": key, "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.issues.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, mapErr("issues: aggregate", err)
	}
	defer cursor.Close(ctx)

	var rows []groupCount
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, mapErr("issues: decode aggregate", err)
	}
	return rows, nil
}

func (r *MongoIssueRepository) Ping(ctx context.Context) error {
	return mapErr("mongo: ping", r.issues.Database().Client().Ping(ctx, readpref.Primary()))
}
