package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"court_spider/internal/config"
	"court_spider/internal/models"
)

// MongoStore owns the judgement, processed-unit and landmark collections.
type MongoStore struct {
	client     *mongo.Client
	database   *mongo.Database
	judgements *mongo.Collection
	processed  *mongo.Collection
	landmark   *mongo.Collection
	log        *zap.Logger
}

func NewMongoStore(cfg config.DBConfig, log *zap.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Connection))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}

	database := client.Database(cfg.Database)

	s := &MongoStore{
		client:     client,
		database:   database,
		judgements: database.Collection(cfg.Collections.Judgements),
		processed:  database.Collection(cfg.Collections.ProcessedUnits),
		landmark:   database.Collection(cfg.Collections.Landmark),
		log:        log,
	}

	if err := s.createIndexes(); err != nil {
		return nil, fmt.Errorf("can't create indices: %w", err)
	}
	return s, nil
}

func (s *MongoStore) createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Sparse integrity index over the natural key; the nonce variant's
	// records simply collide-free duplicate here, which is why it is not
	// unique on its own — _id carries the uniqueness.
	caseDateIdx := mongo.IndexModel{
		Keys: bson.D{
			{Key: "case_number", Value: 1},
			{Key: "judgement_date", Value: 1},
			{Key: "category_value", Value: 1},
		},
		Options: options.Index().SetName("case_date_category_idx").SetSparse(true),
	}
	if _, err := s.judgements.Indexes().CreateOne(ctx, caseDateIdx); err != nil && !indexExists(err) {
		s.log.Warn("judgement index creation failed", zap.Error(err))
	}

	statusIdx := mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}},
	}
	if _, err := s.processed.Indexes().CreateOne(ctx, statusIdx); err != nil && !indexExists(err) {
		s.log.Warn("processed-units index creation failed", zap.Error(err))
	}

	return nil
}

func indexExists(err error) bool {
	return strings.Contains(err.Error(), "index already exists")
}

// UpsertJudgement inserts or replaces a record by its derived id. Duplicate
// key conditions are logged, never propagated, so one bad row can't abort
// a batch.
func (s *MongoStore) UpsertJudgement(ctx context.Context, rec models.Judgement) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": rec.ID}
	update := bson.M{"$set": rec}

	_, err := s.judgements.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		s.log.Warn("duplicate judgement skipped", zap.String("id", rec.ID))
		return nil
	}
	return err
}

// InsertJudgement stores a record without replace-on-conflict semantics.
// Used by the eCourts variant, whose ids carry a per-run nonce and are
// intentionally never deduplicated.
func (s *MongoStore) InsertJudgement(ctx context.Context, rec models.Judgement) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.judgements.InsertOne(ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		s.log.Warn("duplicate judgement insert skipped", zap.String("id", rec.ID))
		return nil
	}
	return err
}

// IsProcessed checks marker presence only. Status is deliberately ignored:
// an ERROR marker is terminal across runs.
func (s *MongoStore) IsProcessed(ctx context.Context, unit models.QueryUnit) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	count, err := s.processed.CountDocuments(ctx, bson.M{"_id": unit.Key})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Status returns the stored marker for the unit, or nil when none exists.
func (s *MongoStore) Status(ctx context.Context, unit models.QueryUnit) (*models.ProcessedMarker, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var marker models.ProcessedMarker
	err := s.processed.FindOne(ctx, bson.M{"_id": unit.Key}).Decode(&marker)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &marker, nil
}

// keepExistingMarker reports whether a stored marker must survive an
// incoming status write. Only an ERROR arriving over a terminal marker is
// refused; everything else overwrites.
func keepExistingMarker(existing *models.ProcessedMarker, status string) bool {
	return existing != nil && existing.Terminal() && status == models.StatusError
}

// MarkProcessed upserts the marker for a unit. A terminal marker
// (SUCCESS, NO_RECORDS, FAILED_OVER_LIMIT) is never demoted to ERROR.
func (s *MongoStore) MarkProcessed(ctx context.Context, unit models.QueryUnit, status, detail string) error {
	existing, err := s.Status(ctx, unit)
	if err != nil {
		return err
	}
	if keepExistingMarker(existing, status) {
		s.log.Info("keeping existing terminal status",
			zap.String("unit", unit.Key),
			zap.String("status", existing.Status))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	marker := models.ProcessedMarker{
		Key:           unit.Key,
		CategoryValue: unit.CategoryValue,
		CategoryName:  unit.CategoryName,
		Status:        status,
		Detail:        detail,
		ProcessedAt:   time.Now().UTC(),
	}

	opts := options.Update().SetUpsert(true)
	_, err = s.processed.UpdateOne(ctx, bson.M{"_id": unit.Key}, bson.M{"$set": marker}, opts)
	return err
}

// UpsertLandmark inserts or replaces a landmark summary row by id.
func (s *MongoStore) UpsertLandmark(ctx context.Context, rec models.LandmarkSummary) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Update().SetUpsert(true)
	_, err := s.landmark.UpdateOne(ctx, bson.M{"_id": rec.ID}, bson.M{"$set": rec}, opts)
	if mongo.IsDuplicateKeyError(err) {
		s.log.Warn("duplicate landmark summary skipped", zap.String("id", rec.ID))
		return nil
	}
	return err
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
