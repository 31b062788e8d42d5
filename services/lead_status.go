package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/leadnest/crm_backend/models"
)

// leadTransitions is the full table of allowed lead status moves.
// "converted" is terminal; "lost" is recoverable through "connected".
var leadTransitions = map[models.LeadStatus][]models.LeadStatus{
	models.LeadStatusNew:          {models.LeadStatusConnected, models.LeadStatusNotPicked, models.LeadStatusLost},
	models.LeadStatusConnected:    {models.LeadStatusNotConverted, models.LeadStatusFollowup, models.LeadStatusConverted, models.LeadStatusLost},
	models.LeadStatusNotPicked:    {models.LeadStatusConnected, models.LeadStatusFollowup, models.LeadStatusLost},
	models.LeadStatusFollowup:     {models.LeadStatusConnected, models.LeadStatusNotConverted, models.LeadStatusConverted, models.LeadStatusLost},
	models.LeadStatusNotConverted: {models.LeadStatusConnected, models.LeadStatusFollowup, models.LeadStatusConverted, models.LeadStatusLost},
	models.LeadStatusLost:         {models.LeadStatusConnected},
	models.LeadStatusConverted:    {},
}

// IsValidLeadStatus reports whether s is a known lead status.
func IsValidLeadStatus(s models.LeadStatus) bool {
	_, ok := leadTransitions[s]
	return ok
}

// CanTransitionLead reports whether a lead may move from one status to
// another according to the transition table.
func CanTransitionLead(from, to models.LeadStatus) bool {
	for _, next := range leadTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedLeadTransitions returns the statuses a lead may move to next.
func AllowedLeadTransitions(from models.LeadStatus) []models.LeadStatus {
	return leadTransitions[from]
}

// LeadStatusService applies status transitions to stored leads.
type LeadStatusService struct {
	DB *mongo.Database
}

func NewLeadStatusService(db *mongo.Database) *LeadStatusService {
	return &LeadStatusService{DB: db}
}

// Transition moves a lead to a new status. The update is conditional on
// the status the lead was read at, so a concurrent change makes this a
// no-op conflict instead of a lost update; the lead is left untouched on
// any failure. Conversions must go through MarkConverted.
func (s *LeadStatusService) Transition(ctx context.Context, leadID primitive.ObjectID, to models.LeadStatus) (*models.Lead, error) {
	lead, err := s.getLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	if to == models.LeadStatusConverted || !CanTransitionLead(lead.Status, to) {
		return nil, invalidTransition("lead", string(lead.Status), string(to))
	}

	update := bson.M{"$set": bson.M{
		"status":    to,
		"updatedAt": time.Now(),
	}}
	return s.applyConditional(ctx, leadID, lead.Status, update)
}

// MarkConverted moves a lead into the terminal "converted" state and
// stamps the conversion fields. The conditional filter makes the flip
// exactly-once: a second caller finds the status already changed and gets
// an InvalidTransition error, which is what keeps commission from firing
// twice off the same lead.
func (s *LeadStatusService) MarkConverted(ctx context.Context, leadID primitive.ObjectID, clientID *primitive.ObjectID) (*models.Lead, error) {
	lead, err := s.getLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	if !CanTransitionLead(lead.Status, models.LeadStatusConverted) {
		return nil, invalidTransition("lead", string(lead.Status), string(models.LeadStatusConverted))
	}

	now := time.Now()
	set := bson.M{
		"status":      models.LeadStatusConverted,
		"convertedAt": now,
		"updatedAt":   now,
	}
	if clientID != nil {
		set["convertedToClient"] = *clientID
	}
	return s.applyConditional(ctx, leadID, lead.Status, bson.M{"$set": set})
}

// ConvertFromShare flips a lead converted on behalf of an external-channel
// conversion. The partner never walked this lead through their own
// pipeline, so the only gate is that it is not already converted; the
// conditional filter keeps the flip exactly-once just the same.
func (s *LeadStatusService) ConvertFromShare(ctx context.Context, leadID primitive.ObjectID) (*models.Lead, error) {
	now := time.Now()
	var updated models.Lead
	err := s.DB.Collection("leads").FindOneAndUpdate(
		ctx,
		bson.M{"_id": leadID, "status": bson.M{"$ne": models.LeadStatusConverted}},
		bson.M{"$set": bson.M{
			"status":      models.LeadStatusConverted,
			"convertedAt": now,
			"updatedAt":   now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, ErrConcurrencyConflict
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *LeadStatusService) getLead(ctx context.Context, leadID primitive.ObjectID) (*models.Lead, error) {
	var lead models.Lead
	err := s.DB.Collection("leads").FindOne(ctx, bson.M{"_id": leadID}).Decode(&lead)
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// applyConditional performs the update only if the lead still carries the
// status it was read at.
func (s *LeadStatusService) applyConditional(ctx context.Context, leadID primitive.ObjectID, from models.LeadStatus, update bson.M) (*models.Lead, error) {
	var updated models.Lead
	err := s.DB.Collection("leads").FindOneAndUpdate(
		ctx,
		bson.M{"_id": leadID, "status": from},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		// Lead moved under us between read and write
		return nil, ErrConcurrencyConflict
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
