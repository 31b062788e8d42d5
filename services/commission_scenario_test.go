package services

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/leadnest/crm_backend/models"
)

func share(counterpart, sharer primitive.ObjectID) models.LeadShare {
	return models.LeadShare{
		CounterpartID: counterpart,
		SharedBy:      sharer,
		SharedAt:      time.Now(),
	}
}

// TestResolveScenarioOwn: a lead with no sharing history converts as own.
func TestResolveScenarioOwn(t *testing.T) {
	lead := &models.Lead{
		AssignedTo: primitive.NewObjectID(),
		Phone:      "9990002222",
		Status:     models.LeadStatusConnected,
	}
	if got := ResolveScenario(lead); got != ScenarioOwn {
		t.Errorf("never-shared lead: got %s, want own", got)
	}
}

// TestResolveScenarioInboundShare: any inbound share makes it shared.
func TestResolveScenarioInboundShare(t *testing.T) {
	partner := primitive.NewObjectID()
	externalActor := primitive.NewObjectID()

	lead := &models.Lead{
		AssignedTo: partner,
		Phone:      "9990001111",
		Status:     models.LeadStatusFollowup,
		SharedFrom: []models.LeadShare{share(externalActor, externalActor)},
	}
	if got := ResolveScenario(lead); got != ScenarioShared {
		t.Errorf("inbound-shared lead: got %s, want shared", got)
	}
}

// TestResolveScenarioOutwardShareOnly: sharing a lead outward never by
// itself downgrades an own conversion.
func TestResolveScenarioOutwardShareOnly(t *testing.T) {
	partner := primitive.NewObjectID()
	externalActor := primitive.NewObjectID()

	lead := &models.Lead{
		AssignedTo: partner,
		Phone:      "9990003333",
		Status:     models.LeadStatusConnected,
		SharedTo:   []models.LeadShare{share(externalActor, partner)},
	}
	if got := ResolveScenario(lead); got != ScenarioOwn {
		t.Errorf("outward-only shared lead: got %s, want own", got)
	}
}

// TestResolveScenarioBothDirections: inbound wins even when the lead was
// also shared outward.
func TestResolveScenarioBothDirections(t *testing.T) {
	partner := primitive.NewObjectID()
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	lead := &models.Lead{
		AssignedTo: partner,
		Status:     models.LeadStatusFollowup,
		SharedTo:   []models.LeadShare{share(a, partner)},
		SharedFrom: []models.LeadShare{share(b, b)},
	}
	if got := ResolveScenario(lead); got != ScenarioShared {
		t.Errorf("both-direction lead: got %s, want shared", got)
	}
}

// TestSharedScenarioEndToEnd walks the documented scenario: lead under
// partner A, shared inbound, converts at 100,000 with settings
// {own:30, shared:10} -> shared commission of 10,000.00.
func TestSharedScenarioEndToEnd(t *testing.T) {
	partnerA := primitive.NewObjectID()
	actorS := primitive.NewObjectID()

	lead := &models.Lead{
		ID:         primitive.NewObjectID(),
		AssignedTo: partnerA,
		Phone:      "9990001111",
		Status:     models.LeadStatusFollowup,
		SharedFrom: []models.LeadShare{share(actorS, actorS)},
	}

	scenario := ResolveScenario(lead)
	if scenario != ScenarioShared {
		t.Fatalf("scenario: got %s, want shared", scenario)
	}

	result := CalculateCommission(scenario, 100000, testSettings())
	if result.Amount != 10000.00 {
		t.Errorf("commission: got %.2f, want 10000.00", result.Amount)
	}
}
