package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/LeonardoBeccarini/cropwatch/internal/model"
	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
)

type Config struct {
	URI      string
	Database string
	// MaxElapsed bounds the connect/ping retries (default 30s).
	MaxElapsed time.Duration
	Logger     *log.Logger
}

// Store implements the farm, alert, analysis and run report repositories.
type Store struct {
	client   *mongo.Client
	farms    *mongo.Collection
	alerts   *mongo.Collection
	analyses *mongo.Collection
	errs     *mongo.Collection
	reports  *mongo.Collection
	logger   *log.Logger
}

// Connect dials Mongo, pings with exponential backoff and creates indexes.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Database == "" {
		cfg.Database = "cropwatch"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = cfg.MaxElapsed
	if bo.MaxElapsedTime <= 0 {
		bo.MaxElapsedTime = 30 * time.Second
	}
	err = backoff.Retry(func() error {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pctx, nil); err != nil {
			cfg.Logger.Printf("mongo: ping failed: %v", err)
			return err
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.Database)
	s := &Store{
		client:   client,
		farms:    db.Collection("farms"),
		alerts:   db.Collection("alerts"),
		analyses: db.Collection("analyses"),
		errs:     db.Collection("analysis_errors"),
		reports:  db.Collection("run_reports"),
		logger:   cfg.Logger,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	cfg.Logger.Printf("mongo: connected to database %s", cfg.Database)
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	idx := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.farms, mongo.IndexModel{Keys: bson.D{{Key: "active", Value: 1}, {Key: "lastAnalyzedAt", Value: 1}}}},
		{s.alerts, mongo.IndexModel{Keys: bson.D{{Key: "farmId", Value: 1}, {Key: "createdAt", Value: -1}}}},
		{s.analyses, mongo.IndexModel{Keys: bson.D{{Key: "farmId", Value: 1}, {Key: "analyzedAt", Value: -1}}}},
		{s.errs, mongo.IndexModel{Keys: bson.D{{Key: "runId", Value: 1}}}},
		{s.reports, mongo.IndexModel{Keys: bson.D{{Key: "date", Value: -1}}}},
	}
	for _, i := range idx {
		if _, err := i.coll.Indexes().CreateOne(ctx, i.model); err != nil {
			return fmt.Errorf("mongo index on %s: %w", i.coll.Name(), err)
		}
	}
	return nil
}

func (s *Store) Close(ctx context.Context) { _ = s.client.Disconnect(ctx) }

// Ping is used by readiness checks.
func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }

// ListActiveFarms returns active farms, never-analyzed first, then oldest
// lastAnalyzedAt first. Ties are broken by _id.
func (s *Store) ListActiveFarms(ctx context.Context) ([]entities.Farm, error) {
	opts := options.Find().SetSort(bson.D{{Key: "lastAnalyzedAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.farms.Find(ctx, bson.M{"active": true}, opts)
	if err != nil {
		return nil, &model.PersistenceError{Op: "list farms", Err: err}
	}
	defer cur.Close(ctx)

	var out []entities.Farm
	for cur.Next(ctx) {
		var d farmDoc
		if err := cur.Decode(&d); err != nil {
			return nil, &model.PersistenceError{Op: "decode farm", Err: err}
		}
		out = append(out, d.toEntity())
	}
	if err := cur.Err(); err != nil {
		return nil, &model.PersistenceError{Op: "list farms", Err: err}
	}
	return out, nil
}

func (s *Store) UpdateLastAnalyzedAt(ctx context.Context, farmID string, at time.Time) error {
	res, err := s.farms.UpdateOne(ctx, idFilter(farmID), bson.M{"$set": bson.M{"lastAnalyzedAt": at.UTC()}})
	if err != nil {
		return &model.PersistenceError{Op: "update lastAnalyzedAt", Err: err}
	}
	if res.MatchedCount == 0 {
		return &model.PersistenceError{Op: "update lastAnalyzedAt", Err: fmt.Errorf("farm %s not found", farmID)}
	}
	return nil
}

// SaveAlerts inserts alerts and returns them with their assigned ids.
func (s *Store) SaveAlerts(ctx context.Context, farmID string, alerts []entities.Alert) ([]entities.Alert, error) {
	if len(alerts) == 0 {
		return nil, nil
	}
	docs := make([]interface{}, 0, len(alerts))
	for _, a := range alerts {
		a.FarmID = farmID
		docs = append(docs, alertToDoc(a))
	}
	res, err := s.alerts.InsertMany(ctx, docs)
	if err != nil {
		return nil, &model.PersistenceError{Op: "insert alerts", Err: err}
	}
	out := make([]entities.Alert, len(alerts))
	copy(out, alerts)
	for i, id := range res.InsertedIDs {
		if i < len(out) {
			out[i].ID = hexID(id)
		}
	}
	return out, nil
}

func (s *Store) SaveAnalysis(ctx context.Context, rec entities.AnalysisRecord) error {
	if _, err := s.analyses.InsertOne(ctx, analysisToDoc(rec)); err != nil {
		return &model.PersistenceError{Op: "insert analysis", Err: err}
	}
	return nil
}

func (s *Store) SaveError(ctx context.Context, rec entities.ErrorRecord) error {
	d := errorDoc{
		FarmID:     rec.FarmID,
		RunID:      rec.RunID,
		Stage:      rec.Stage,
		Message:    rec.Message,
		Context:    rec.Context,
		OccurredAt: rec.OccurredAt,
	}
	if _, err := s.errs.InsertOne(ctx, d); err != nil {
		return &model.PersistenceError{Op: "insert analysis error", Err: err}
	}
	return nil
}

// LatestAnalysis returns nil, nil when the farm was never analyzed.
func (s *Store) LatestAnalysis(ctx context.Context, farmID string) (*entities.AnalysisSummary, error) {
	var d analysisDoc
	err := s.analyses.FindOne(ctx,
		bson.M{"farmId": farmID},
		options.FindOne().
			SetSort(bson.D{{Key: "analyzedAt", Value: -1}}).
			SetProjection(bson.M{"farmId": 1, "analyzedAt": 1, "riskLevel": 1}),
	).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, &model.PersistenceError{Op: "latest analysis", Err: err}
	}
	return &entities.AnalysisSummary{FarmID: d.FarmID, AnalyzedAt: d.AnalyzedAt.UTC(), RiskLevel: d.RiskLevel}, nil
}

func (s *Store) SaveRunReport(ctx context.Context, r entities.RunReport) error {
	if _, err := s.reports.InsertOne(ctx, reportToDoc(r)); err != nil {
		return &model.PersistenceError{Op: "insert run report", Err: err}
	}
	return nil
}

// LatestRunReport returns nil, nil before the first run.
func (s *Store) LatestRunReport(ctx context.Context) (*entities.RunReport, error) {
	var d reportDoc
	err := s.reports.FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}})).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, &model.PersistenceError{Op: "latest run report", Err: err}
	}
	r := d.toEntity()
	return &r, nil
}
