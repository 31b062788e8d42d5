package services

import (
	"github.com/shopspring/decimal"

	"github.com/leadnest/crm_backend/models"
)

// CommissionResult is the outcome of a commission calculation.
type CommissionResult struct {
	Scenario CommissionScenario `json:"scenario"`
	Percent  float64            `json:"percent"`
	Amount   float64            `json:"amount"`
}

// CalculateCommission turns a scenario, a deal value and a settings
// snapshot into a commission amount, rounded half-up to 2 decimal places.
// A zero or negative deal value yields a zero commission; that is a valid
// outcome, not an error. Pure: never touches the ledger.
func CalculateCommission(scenario CommissionScenario, dealValue float64, settings *models.CommissionSettings) CommissionResult {
	if dealValue <= 0 {
		return CommissionResult{Scenario: scenario}
	}

	percent := settings.OwnConversionCommission
	if scenario == ScenarioShared {
		percent = settings.SharedConversionCommission
	}

	amount := decimal.NewFromFloat(dealValue).
		Mul(decimal.NewFromFloat(percent)).
		Div(decimal.NewFromInt(100)).
		Round(2)

	return CommissionResult{
		Scenario: scenario,
		Percent:  percent,
		Amount:   amount.InexactFloat64(),
	}
}

// round2 rounds a currency amount half-up to 2 decimal places.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
