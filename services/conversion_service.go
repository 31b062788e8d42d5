package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/leadnest/crm_backend/models"
)

// ConversionResult reports what a "lead converted" trigger produced: a
// credited commission transaction, or a no-op with the reason.
type ConversionResult struct {
	Lead        *models.Lead              `json:"lead,omitempty"`
	Commission  CommissionResult          `json:"commission"`
	Transaction *models.WalletTransaction `json:"transaction,omitempty"`
	Credited    bool                      `json:"credited"`
	Reason      string                    `json:"reason,omitempty"`
}

// ConversionService runs the resolver -> calculator -> ledger pipeline
// off a lead conversion.
type ConversionService struct {
	Leads    *LeadStatusService
	Resolver *ScenarioResolver
	Settings *SettingsService
	Wallets  *WalletService
}

func NewConversionService(db *mongo.Database, settings *SettingsService, wallets *WalletService) *ConversionService {
	return &ConversionService{
		Leads:    NewLeadStatusService(db),
		Resolver: NewScenarioResolver(db),
		Settings: settings,
		Wallets:  wallets,
	}
}

// ConvertLead handles the partner-side conversion: flips the lead to
// converted (the exactly-once gate), classifies the scenario from its
// sharing history, and credits the owning partner's wallet. The settings
// snapshot is taken once at the start of the unit and used throughout.
func (s *ConversionService) ConvertLead(ctx context.Context, leadID primitive.ObjectID, dealValue *float64, clientID *primitive.ObjectID) (*ConversionResult, error) {
	lead, err := s.Leads.MarkConverted(ctx, leadID, clientID)
	if err != nil {
		return nil, err
	}

	return s.credit(ctx, lead, ResolveScenario(lead), effectiveDealValue(dealValue, lead))
}

// HandleExternalConversion handles a conversion performed by an external
// sales actor. When the converted phone number traces back to a partner
// lead that was actively shared to that actor and is not yet converted,
// the partner earns a shared commission; otherwise the trigger is a
// commission no-op.
func (s *ConversionService) HandleExternalConversion(ctx context.Context, phone string, convertingActorID primitive.ObjectID, dealValue *float64) (*ConversionResult, error) {
	source, err := s.Resolver.FindSharedSourceLead(ctx, phone, convertingActorID)
	if errors.Is(err, ErrNoMatch) {
		return &ConversionResult{Reason: "no commission-eligible partner lead for this conversion"}, nil
	}
	if err != nil {
		return nil, err
	}

	lead, err := s.Leads.ConvertFromShare(ctx, source.ID)
	if err != nil {
		// The partner path won a race and converted first; the deal was
		// commissioned there, so this side is a no-op.
		if errors.Is(err, ErrConcurrencyConflict) {
			return &ConversionResult{Reason: "partner lead already converted"}, nil
		}
		return nil, err
	}

	// The lead reached conversion through the external channel, so the
	// commission is the shared rate regardless of the lead's own inbound
	// sharing history.
	return s.credit(ctx, lead, ScenarioShared, effectiveDealValue(dealValue, lead))
}

// effectiveDealValue picks the amount commission is computed from. A
// reported deal value always wins, zero included: closing for nothing is a
// real outcome that must earn nothing. Only an absent deal value falls back
// to the value recorded on the lead.
func effectiveDealValue(dealValue *float64, lead *models.Lead) float64 {
	if dealValue != nil {
		return *dealValue
	}
	return lead.Value
}

func (s *ConversionService) credit(ctx context.Context, lead *models.Lead, scenario CommissionScenario, dealValue float64) (*ConversionResult, error) {
	settings, err := s.Settings.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	result := &ConversionResult{
		Lead:       lead,
		Commission: CalculateCommission(scenario, dealValue, settings),
	}

	if result.Commission.Amount <= 0 {
		// Zero/negative deal: a valid conversion that earns nothing. No
		// ledger write happens, so the credit path never sees a zero amount.
		result.Reason = "deal value yields no commission"
		return result, nil
	}

	txn, err := s.Wallets.Credit(ctx,
		lead.AssignedTo,
		result.Commission.Amount,
		models.TransactionTypeCommission,
		models.TransactionReference{Kind: models.ReferenceLeadConversion, ID: lead.ID},
		fmt.Sprintf("%s conversion commission (%.0f%%) for lead %s", scenario, result.Commission.Percent, lead.Name),
	)
	if err != nil {
		return nil, err
	}

	log.Printf("Commission credited: partner %s earned %.2f (%s, lead %s)",
		lead.AssignedTo.Hex(), result.Commission.Amount, scenario, lead.ID.Hex())

	result.Transaction = txn
	result.Credited = true
	return result, nil
}
