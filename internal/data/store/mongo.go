package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flowpulse/flowpulse/internal/core/model"
	"github.com/flowpulse/flowpulse/internal/util"
)

const (
	collUsers       = "users"
	collIntervals   = "activity_intervals"
	collDailyStats  = "daily_stats"
	collNudges      = "nudges"
	collLeaderboard = "leaderboard_entries"
)

// MongoStore implements Store on a MongoDB database. Documents are keyed so
// every write path is idempotent: intervals by their deterministic id,
// daily stats by (user, date), leaderboard entries by (week, user).
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to the given URI and database.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	util.LogInfof("connecting to MongoDB at %s", uri)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &MongoStore{client: client, db: client.Database(dbName)}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	intervalIdx := mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "startTime", Value: 1}},
	}
	if _, err := s.db.Collection(collIntervals).Indexes().CreateOne(ctx, intervalIdx); err != nil {
		return fmt.Errorf("create interval index: %w", err)
	}

	statsIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := s.db.Collection(collDailyStats).Indexes().CreateOne(ctx, statsIdx); err != nil {
		return fmt.Errorf("create stats index: %w", err)
	}

	lbIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "weekId", Value: 1}, {Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := s.db.Collection(collLeaderboard).Indexes().CreateOne(ctx, lbIdx); err != nil {
		return fmt.Errorf("create leaderboard index: %w", err)
	}
	return nil
}

// ListUsers returns all known user ids.
func (s *MongoStore) ListUsers(ctx context.Context) ([]string, error) {
	cursor, err := s.db.Collection(collUsers).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode user doc: %w", err)
		}
		users = append(users, doc.ID)
	}
	return users, cursor.Err()
}

// Settings returns the user's stored preferences, or defaults when the user
// document carries none.
func (s *MongoStore) Settings(ctx context.Context, userID string) (model.UserSettings, error) {
	var doc struct {
		Settings *model.UserSettings `bson:"settings"`
	}
	err := s.db.Collection(collUsers).FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.DefaultSettings(), nil
		}
		return model.UserSettings{}, fmt.Errorf("load settings for %s: %w", userID, err)
	}
	if doc.Settings == nil {
		return model.DefaultSettings(), nil
	}
	return *doc.Settings, nil
}

type intervalDoc struct {
	ID                     string `bson:"_id"`
	UserID                 string `bson:"userId"`
	model.ActivityInterval `bson:",inline"`
}

// UpsertIntervals writes each interval keyed by (user, interval id) so
// redelivered batches collapse onto the same documents.
func (s *MongoStore) UpsertIntervals(ctx context.Context, userID string, intervals []model.ActivityInterval) (int, error) {
	if len(intervals) == 0 {
		return 0, nil
	}

	writes := make([]mongo.WriteModel, 0, len(intervals))
	for _, interval := range intervals {
		docID := userID + "/" + interval.ID
		doc := intervalDoc{ID: docID, UserID: userID, ActivityInterval: interval}
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": docID}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	result, err := s.db.Collection(collIntervals).BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("upsert intervals for %s: %w", userID, err)
	}
	// Every record either inserted a new document or matched an existing
	// one; ModifiedCount would double-count matched replaces.
	return int(result.UpsertedCount + result.MatchedCount), nil
}

// IntervalsBetween runs a startTime range query for one user. Stored
// timestamps are canonical UTC RFC3339, so the string range matches the
// instant range.
func (s *MongoStore) IntervalsBetween(ctx context.Context, userID string, from, to time.Time) ([]model.ActivityInterval, error) {
	filter := bson.M{
		"userId": userID,
		"startTime": bson.M{
			"$gte": from.UTC().Format(time.RFC3339),
			"$lte": to.UTC().Format(time.RFC3339),
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}})

	cursor, err := s.db.Collection(collIntervals).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query intervals for %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var intervals []model.ActivityInterval
	for cursor.Next(ctx) {
		var doc intervalDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode interval doc: %w", err)
		}
		intervals = append(intervals, doc.ActivityInterval)
	}
	return intervals, cursor.Err()
}

// UpsertDailyStats overwrites the (user, date) stats document.
func (s *MongoStore) UpsertDailyStats(ctx context.Context, userID string, stats model.DailyStats) error {
	doc := bson.M{
		"_id":    userID + "/" + stats.Date,
		"userId": userID,
	}
	raw, err := bson.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("flatten stats: %w", err)
	}
	for k, v := range fields {
		doc[k] = v
	}

	_, err = s.db.Collection(collDailyStats).ReplaceOne(ctx,
		bson.M{"_id": userID + "/" + stats.Date}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert daily stats for %s/%s: %w", userID, stats.Date, err)
	}
	return nil
}

// DailyStats returns the (user, date) stats document, if present.
func (s *MongoStore) DailyStats(ctx context.Context, userID, date string) (model.DailyStats, bool, error) {
	var stats model.DailyStats
	err := s.db.Collection(collDailyStats).FindOne(ctx, bson.M{"_id": userID + "/" + date}).Decode(&stats)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.DailyStats{}, false, nil
		}
		return model.DailyStats{}, false, fmt.Errorf("load daily stats %s/%s: %w", userID, date, err)
	}
	return stats, true, nil
}

// InsertNudges appends nudge documents for the user.
func (s *MongoStore) InsertNudges(ctx context.Context, userID string, nudges []model.Nudge) error {
	if len(nudges) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(nudges))
	for _, nudge := range nudges {
		docs = append(docs, bson.M{
			"_id":       nudge.ID,
			"userId":    userID,
			"type":      nudge.Type,
			"message":   nudge.Message,
			"priority":  nudge.Priority,
			"date":      nudge.Date,
			"dismissed": nudge.Dismissed,
			"createdAt": nudge.CreatedAt,
		})
	}
	if _, err := s.db.Collection(collNudges).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert nudges for %s: %w", userID, err)
	}
	return nil
}

// ReplaceLeaderboard deletes and rewrites a week's entries inside one
// transaction so readers never observe a partial set.
func (s *MongoStore) ReplaceLeaderboard(ctx context.Context, weekID string, entries []model.LeaderboardEntry) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		coll := s.db.Collection(collLeaderboard)
		if _, err := coll.DeleteMany(sessCtx, bson.M{"weekId": weekID}); err != nil {
			return nil, fmt.Errorf("clear week %s: %w", weekID, err)
		}
		if len(entries) == 0 {
			return nil, nil
		}
		docs := make([]interface{}, 0, len(entries))
		for _, entry := range entries {
			docs = append(docs, bson.M{
				"_id":               weekID + "/" + entry.UserID,
				"weekId":            weekID,
				"userId":            entry.UserID,
				"rank":              entry.Rank,
				"anonymousNickname": entry.Nickname,
				"avgFocusScore":     entry.AvgFocusScore,
				"deepWorkBlocks":    entry.DeepWorkBlocks,
				"percentile":        entry.Percentile,
			})
		}
		if _, err := coll.InsertMany(sessCtx, docs); err != nil {
			return nil, fmt.Errorf("write week %s: %w", weekID, err)
		}
		return nil, nil
	})
	return err
}

// LeaderboardEntries returns a week's entries ordered by rank.
func (s *MongoStore) LeaderboardEntries(ctx context.Context, weekID string) ([]model.LeaderboardEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "rank", Value: 1}})
	cursor, err := s.db.Collection(collLeaderboard).Find(ctx, bson.M{"weekId": weekID}, opts)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard %s: %w", weekID, err)
	}
	defer cursor.Close(ctx)

	var entries []model.LeaderboardEntry
	for cursor.Next(ctx) {
		var entry model.LeaderboardEntry
		if err := cursor.Decode(&entry); err != nil {
			return nil, fmt.Errorf("decode leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, cursor.Err()
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
