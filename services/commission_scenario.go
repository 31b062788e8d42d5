package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/leadnest/crm_backend/models"
)

// CommissionScenario classifies a conversion for commission purposes.
type CommissionScenario string

const (
	// ScenarioOwn: the owning partner converted their own lead.
	ScenarioOwn CommissionScenario = "own"
	// ScenarioShared: the lead reached the partner through an external
	// sales channel, or was converted by one.
	ScenarioShared CommissionScenario = "shared"
)

// ResolveScenario classifies a converting lead. Any inbound share record
// makes the conversion shared; outward sharing alone never downgrades an
// otherwise-own conversion.
func ResolveScenario(lead *models.Lead) CommissionScenario {
	if len(lead.SharedFrom) > 0 {
		return ScenarioShared
	}
	return ScenarioOwn
}

// ScenarioResolver locates the commission-eligible partner lead when a
// conversion happens on the external channel side.
type ScenarioResolver struct {
	DB *mongo.Database
}

func NewScenarioResolver(db *mongo.Database) *ScenarioResolver {
	return &ScenarioResolver{DB: db}
}

// FindSharedSourceLead looks up the partner-owned lead behind an external
// conversion: same phone number, actively shared to the converting actor,
// and not already converted (a converted partner lead means the deal was
// already commissioned through the partner path). Returns ErrNoMatch when
// no such lead exists; that is a no-op outcome, not a failure.
func (r *ScenarioResolver) FindSharedSourceLead(ctx context.Context, phone string, convertingActorID primitive.ObjectID) (*models.Lead, error) {
	filter := bson.M{
		"phone":  phone,
		"status": bson.M{"$ne": models.LeadStatusConverted},
		"sharedTo": bson.M{"$elemMatch": bson.M{
			"counterpartId": convertingActorID,
		}},
	}

	var lead models.Lead
	err := r.DB.Collection("leads").FindOne(ctx, filter).Decode(&lead)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNoMatch
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}
