package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/leadnest/crm_backend/models"
)

const (
	settingsCacheKey = "commissionSettings:active"
	settingsCacheTTL = 30 * time.Second
)

// SettingsService manages the commission settings log. Settings are never
// mutated in place: an update inserts a new active record and deactivates
// the older ones, keeping the full history for audit. The authoritative
// record is always the newest active one.
type SettingsService struct {
	DB    *mongo.Database
	Cache *redis.Client
}

func NewSettingsService(db *mongo.Database, cache *redis.Client) *SettingsService {
	return &SettingsService{DB: db, Cache: cache}
}

// GetActive returns the active settings record, falling back to the
// documented defaults (own 30%, shared 10%) while no admin has set rates
// yet. Defaults are never written to the log: only admin updates appear in
// the history. Reads go through a short-TTL Redis cache; callers performing
// a credit/debit get a snapshot fixed at the start of their operation.
func (s *SettingsService) GetActive(ctx context.Context) (*models.CommissionSettings, error) {
	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	var settings models.CommissionSettings
	err := s.DB.Collection("commissionSettings").FindOne(ctx,
		bson.M{"isActive": true},
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}),
	).Decode(&settings)
	if err == mongo.ErrNoDocuments {
		defaults := DefaultSettings()
		s.toCache(ctx, defaults)
		return defaults, nil
	}
	if err != nil {
		return nil, err
	}

	s.toCache(ctx, &settings)
	return &settings, nil
}

// Update replaces the active settings record: a fresh active record is
// inserted first, then older actives are deactivated and retained. The
// new record is authoritative from the moment it lands because reads pick
// the newest active; there is never a window with no active record for a
// concurrent reader to fall into. A straggler left active by a failed
// deactivation is shadowed by the newer record and swept on the next
// update, so the failure is logged rather than surfaced.
func (s *SettingsService) Update(ctx context.Context, own, shared float64, adminID primitive.ObjectID) (*models.CommissionSettings, error) {
	coll := s.DB.Collection("commissionSettings")

	settings := models.CommissionSettings{
		ID:                         primitive.NewObjectID(),
		OwnConversionCommission:    own,
		SharedConversionCommission: shared,
		IsActive:                   true,
		UpdatedBy:                  adminID,
		CreatedAt:                  time.Now(),
	}
	if _, err := coll.InsertOne(ctx, settings); err != nil {
		return nil, err
	}

	if _, err := coll.UpdateMany(ctx,
		bson.M{"isActive": true, "_id": bson.M{"$ne": settings.ID}},
		bson.M{"$set": bson.M{"isActive": false}},
	); err != nil {
		log.Printf("Failed to deactivate prior commission settings: %v", err)
	}

	s.invalidate(ctx)
	return &settings, nil
}

// History returns the full settings log, newest first.
func (s *SettingsService) History(ctx context.Context) ([]models.CommissionSettings, error) {
	cursor, err := s.DB.Collection("commissionSettings").Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var history []models.CommissionSettings
	if err := cursor.All(ctx, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// DefaultSettings returns the built-in commission rates used until an
// admin sets real ones.
func DefaultSettings() *models.CommissionSettings {
	return &models.CommissionSettings{
		OwnConversionCommission:    models.DefaultOwnConversionCommission,
		SharedConversionCommission: models.DefaultSharedConversionCommission,
		IsActive:                   true,
	}
}

func (s *SettingsService) fromCache(ctx context.Context) *models.CommissionSettings {
	if s.Cache == nil {
		return nil
	}
	raw, err := s.Cache.Get(ctx, settingsCacheKey).Result()
	if err != nil {
		return nil
	}
	var settings models.CommissionSettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return nil
	}
	return &settings
}

func (s *SettingsService) toCache(ctx context.Context, settings *models.CommissionSettings) {
	if s.Cache == nil {
		return
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, settingsCacheKey, raw, settingsCacheTTL).Err(); err != nil {
		log.Printf("Failed to cache commission settings: %v", err)
	}
}

func (s *SettingsService) invalidate(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Del(ctx, settingsCacheKey).Err(); err != nil {
		log.Printf("Failed to invalidate settings cache: %v", err)
	}
}
