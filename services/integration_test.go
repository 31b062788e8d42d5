//go:build integration

package services

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/leadnest/crm_backend/models"
)

// testDB connects to the MongoDB named by MONGO_TEST_URI and hands back a
// throwaway database, dropped when the test finishes. The commission
// reference index is created up front because the idempotency guarantees
// under test live in it.
func testDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("ping: %v", err)
	}

	db := client.Database("crm_test_" + primitive.NewObjectID().Hex())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db.Drop(ctx)
		client.Disconnect(ctx)
	})

	commissionRefIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "reference.kind", Value: 1}, {Key: "reference.id", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"transactionType": "commission"}),
	}
	if _, err := db.Collection("walletTransactions").Indexes().CreateOne(ctx, commissionRefIndex); err != nil {
		t.Fatalf("create commission reference index: %v", err)
	}
	return db
}

func insertLead(t *testing.T, db *mongo.Database, partnerID primitive.ObjectID, phone string, value float64) *models.Lead {
	t.Helper()

	now := time.Now()
	lead := models.Lead{
		ID:         primitive.NewObjectID(),
		AssignedTo: partnerID,
		Name:       "Integration Lead",
		Phone:      phone,
		Status:     models.LeadStatusConnected,
		Value:      value,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := db.Collection("leads").InsertOne(context.Background(), lead); err != nil {
		t.Fatalf("insert lead: %v", err)
	}
	return &lead
}

func countTransactions(t *testing.T, db *mongo.Database, partnerID primitive.ObjectID) int64 {
	t.Helper()

	n, err := db.Collection("walletTransactions").CountDocuments(context.Background(), bson.M{"partnerId": partnerID})
	if err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	return n
}

// TestCommissionCreditedExactlyOnce: a second commission credit carrying
// the same lead reference strikes the partial unique index, errors with
// ErrDuplicateCommission, and leaves the wallet exactly where the first
// credit put it.
func TestCommissionCreditedExactlyOnce(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	wallets := NewWalletService(db)
	partnerID := primitive.NewObjectID()
	ref := models.TransactionReference{Kind: models.ReferenceLeadConversion, ID: primitive.NewObjectID()}

	if _, err := wallets.Credit(ctx, partnerID, 15000, models.TransactionTypeCommission, ref, "conversion commission"); err != nil {
		t.Fatalf("first credit: %v", err)
	}
	_, err := wallets.Credit(ctx, partnerID, 15000, models.TransactionTypeCommission, ref, "conversion commission")
	if !errors.Is(err, ErrDuplicateCommission) {
		t.Fatalf("second credit: got %v, want ErrDuplicateCommission", err)
	}

	summary, err := wallets.Summary(ctx, partnerID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Balance != 15000 || summary.TotalEarned != 15000 {
		t.Errorf("wallet after duplicate: balance %.2f earned %.2f, want 15000 both", summary.Balance, summary.TotalEarned)
	}
	if n := countTransactions(t, db, partnerID); n != 1 {
		t.Errorf("transaction count: got %d, want 1", n)
	}

	report, err := wallets.Replay(ctx, partnerID)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !report.Consistent {
		t.Errorf("ledger inconsistent after duplicate rejection: %s", report.Problem)
	}
}

// TestMarkConvertedExactlyOnce: the conditional status flip admits one
// winner; the second attempt sees the lead already converted.
func TestMarkConvertedExactlyOnce(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	leads := NewLeadStatusService(db)
	lead := insertLead(t, db, primitive.NewObjectID(), "70100200", 50000)

	converted, err := leads.MarkConverted(ctx, lead.ID, nil)
	if err != nil {
		t.Fatalf("first conversion: %v", err)
	}
	if converted.Status != models.LeadStatusConverted || converted.ConvertedAt == nil {
		t.Fatalf("lead not converted: status %s", converted.Status)
	}

	_, err = leads.MarkConverted(ctx, lead.ID, nil)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second conversion: got %v, want ErrInvalidTransition", err)
	}
}

// TestZeroDealConversionWritesNothing: a conversion reporting dealValue 0
// flips the lead but appends no ledger transaction, even when the lead
// carries a recorded value.
func TestZeroDealConversionWritesNothing(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	wallets := NewWalletService(db)
	conversions := NewConversionService(db, NewSettingsService(db, nil), wallets)
	partnerID := primitive.NewObjectID()
	lead := insertLead(t, db, partnerID, "70100201", 50000)

	zero := 0.0
	result, err := conversions.ConvertLead(ctx, lead.ID, &zero, nil)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if result.Credited {
		t.Fatal("zero deal credited a commission")
	}
	if result.Commission.Amount != 0 {
		t.Errorf("amount: got %.2f, want 0", result.Commission.Amount)
	}
	if result.Lead.Status != models.LeadStatusConverted {
		t.Errorf("lead status: got %s, want converted", result.Lead.Status)
	}
	if n := countTransactions(t, db, partnerID); n != 0 {
		t.Errorf("transaction count: got %d, want 0", n)
	}
}

// TestOmittedDealFallsBackToLeadValue: with no deal value in the request
// the lead's recorded value feeds the calculator (own scenario, default
// 30% of 50,000).
func TestOmittedDealFallsBackToLeadValue(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	conversions := NewConversionService(db, NewSettingsService(db, nil), NewWalletService(db))
	lead := insertLead(t, db, primitive.NewObjectID(), "70100202", 50000)

	result, err := conversions.ConvertLead(ctx, lead.ID, nil, nil)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !result.Credited {
		t.Fatalf("not credited: %s", result.Reason)
	}
	if result.Commission.Amount != 15000.00 {
		t.Errorf("amount: got %.2f, want 15000.00", result.Commission.Amount)
	}
	if result.Transaction == nil || result.Transaction.BalanceAfter != 15000.00 {
		t.Error("transaction missing or balanceAfter off")
	}
}

// TestWithdrawalSettlementDebitsWallet: the full request -> approve ->
// process path moves money once and links the debit transaction.
func TestWithdrawalSettlementDebitsWallet(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	wallets := NewWalletService(db)
	withdrawals := NewWithdrawalService(db, wallets)
	partnerID := primitive.NewObjectID()
	adminID := primitive.NewObjectID()
	bank := models.BankDetails{AccountName: "Partner", AccountNumber: "100200300", BankName: "Test Bank"}

	if _, err := wallets.Credit(ctx, partnerID, 20000,
		models.TransactionTypeIncentive,
		models.TransactionReference{Kind: models.ReferenceManual, ID: primitive.NewObjectID()},
		"opening credit",
	); err != nil {
		t.Fatalf("credit: %v", err)
	}

	request, err := withdrawals.Request(ctx, partnerID, 8000, bank)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := withdrawals.Approve(ctx, request.ID, adminID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	settled, err := withdrawals.MarkProcessed(ctx, request.ID, adminID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if settled.Status != models.WithdrawalProcessed {
		t.Errorf("status: got %s, want processed", settled.Status)
	}
	if settled.TransactionID == nil {
		t.Error("processed request has no linked transaction")
	}
	if settled.ProcessedAt == nil {
		t.Error("processed request has no processedAt")
	}

	summary, err := wallets.Summary(ctx, partnerID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Balance != 12000 || summary.TotalWithdrawn != 8000 {
		t.Errorf("wallet: balance %.2f withdrawn %.2f, want 12000 / 8000", summary.Balance, summary.TotalWithdrawn)
	}

	report, err := wallets.Replay(ctx, partnerID)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !report.Consistent {
		t.Errorf("ledger inconsistent after settlement: %s", report.Problem)
	}
}

// TestSettlementFailureRevertsRequest: when the balance drops below the
// requested amount between approval and settlement, the debit fails and
// the request falls back to pending with the reason noted, the wallet
// untouched.
func TestSettlementFailureRevertsRequest(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	wallets := NewWalletService(db)
	withdrawals := NewWithdrawalService(db, wallets)
	partnerID := primitive.NewObjectID()
	adminID := primitive.NewObjectID()
	bank := models.BankDetails{AccountName: "Partner", AccountNumber: "100200300", BankName: "Test Bank"}

	if _, err := wallets.Credit(ctx, partnerID, 5000,
		models.TransactionTypeIncentive,
		models.TransactionReference{Kind: models.ReferenceManual, ID: primitive.NewObjectID()},
		"opening credit",
	); err != nil {
		t.Fatalf("credit: %v", err)
	}

	request, err := withdrawals.Request(ctx, partnerID, 4000, bank)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := withdrawals.Approve(ctx, request.ID, adminID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Drain the wallet below the requested amount before settlement
	if _, err := wallets.Debit(ctx, partnerID, 3500,
		models.TransactionTypeAdjustment,
		models.TransactionReference{Kind: models.ReferenceManual, ID: primitive.NewObjectID()},
		"draining adjustment",
	); err != nil {
		t.Fatalf("drain debit: %v", err)
	}

	_, err = withdrawals.MarkProcessed(ctx, request.ID, adminID)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("process: got %v, want ErrInsufficientBalance", err)
	}

	reverted, err := withdrawals.Get(ctx, request.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reverted.Status != models.WithdrawalPending {
		t.Errorf("status after failed settlement: got %s, want pending", reverted.Status)
	}
	if reverted.AdminNote == "" {
		t.Error("failed settlement left no admin note")
	}
	if reverted.ProcessedAt != nil {
		t.Error("failed settlement left processedAt set")
	}

	summary, err := wallets.Summary(ctx, partnerID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Balance != 1500 {
		t.Errorf("balance: got %.2f, want 1500", summary.Balance)
	}
}

// TestDebitGuard: the service refuses to take a wallet below zero.
func TestDebitGuard(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	wallets := NewWalletService(db)
	partnerID := primitive.NewObjectID()
	ref := models.TransactionReference{Kind: models.ReferenceManual, ID: primitive.NewObjectID()}

	_, err := wallets.Debit(ctx, partnerID, 100, models.TransactionTypeAdjustment, ref, "empty wallet debit")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("empty wallet debit: got %v, want ErrInsufficientBalance", err)
	}

	if _, err := wallets.Credit(ctx, partnerID, 100,
		models.TransactionTypeIncentive,
		models.TransactionReference{Kind: models.ReferenceManual, ID: primitive.NewObjectID()},
		"opening credit",
	); err != nil {
		t.Fatalf("credit: %v", err)
	}
	_, err = wallets.Debit(ctx, partnerID, 150, models.TransactionTypeAdjustment, ref, "overdraft attempt")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overdraft debit: got %v, want ErrInsufficientBalance", err)
	}
	if n := countTransactions(t, db, partnerID); n != 1 {
		t.Errorf("transaction count: got %d, want 1", n)
	}
}

// TestSettingsUpdateAndHistory: reads fall back to the built-in defaults
// until an admin writes rates; an update takes effect immediately and the
// log keeps every record newest first, older ones deactivated.
func TestSettingsUpdateAndHistory(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	settings := NewSettingsService(db, nil)
	adminID := primitive.NewObjectID()

	active, err := settings.GetActive(ctx)
	if err != nil {
		t.Fatalf("initial read: %v", err)
	}
	if active.OwnConversionCommission != 30 || active.SharedConversionCommission != 10 {
		t.Errorf("defaults: got %.0f/%.0f, want 30/10", active.OwnConversionCommission, active.SharedConversionCommission)
	}

	history, err := settings.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("defaults polluted the log: %d records", len(history))
	}

	if _, err := settings.Update(ctx, 25, 8, adminID); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if _, err := settings.Update(ctx, 40, 12, adminID); err != nil {
		t.Fatalf("second update: %v", err)
	}

	active, err = settings.GetActive(ctx)
	if err != nil {
		t.Fatalf("read after updates: %v", err)
	}
	if active.OwnConversionCommission != 40 || active.SharedConversionCommission != 12 {
		t.Errorf("active: got %.0f/%.0f, want 40/12", active.OwnConversionCommission, active.SharedConversionCommission)
	}

	history, err = settings.History(ctx)
	if err != nil {
		t.Fatalf("history after updates: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length: got %d, want 2", len(history))
	}
	if history[0].OwnConversionCommission != 40 || !history[0].IsActive {
		t.Errorf("newest record: got %.0f active=%v, want 40 active", history[0].OwnConversionCommission, history[0].IsActive)
	}
	if history[1].OwnConversionCommission != 25 || history[1].IsActive {
		t.Errorf("older record: got %.0f active=%v, want 25 inactive", history[1].OwnConversionCommission, history[1].IsActive)
	}
}
