package services

import (
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/leadnest/crm_backend/models"
)

func txn(direction models.TransactionDirection, amount, balanceAfter float64) models.WalletTransaction {
	return models.WalletTransaction{
		ID:            primitive.NewObjectID(),
		TransactionNo: primitive.NewObjectID().Hex(),
		Direction:     direction,
		Amount:        amount,
		BalanceAfter:  balanceAfter,
		CreatedAt:     time.Now(),
	}
}

// TestFoldReproducesBalance replays a mixed log and checks the totals and
// the balance identity.
func TestFoldReproducesBalance(t *testing.T) {
	log := []models.WalletTransaction{
		txn(models.TransactionCredit, 10000.00, 10000.00),
		txn(models.TransactionCredit, 15000.00, 25000.00),
		txn(models.TransactionDebit, 20000.00, 5000.00),
		txn(models.TransactionCredit, 0.50, 5000.50),
	}

	totals, err := FoldTransactions(log)
	if err != nil {
		t.Fatalf("FoldTransactions: %v", err)
	}
	if totals.Balance != 5000.50 {
		t.Errorf("balance: got %.2f, want 5000.50", totals.Balance)
	}
	if totals.TotalEarned != 25000.50 {
		t.Errorf("totalEarned: got %.2f, want 25000.50", totals.TotalEarned)
	}
	if totals.TotalWithdrawn != 20000.00 {
		t.Errorf("totalWithdrawn: got %.2f, want 20000.00", totals.TotalWithdrawn)
	}
	if totals.Balance != round2(totals.TotalEarned-totals.TotalWithdrawn) {
		t.Errorf("balance identity broken: %.2f != %.2f - %.2f",
			totals.Balance, totals.TotalEarned, totals.TotalWithdrawn)
	}
	if totals.Entries != 4 {
		t.Errorf("entries: got %d, want 4", totals.Entries)
	}
}

// TestFoldDetectsBrokenChain: a balanceAfter that disagrees with the
// running sum must fail the replay.
func TestFoldDetectsBrokenChain(t *testing.T) {
	log := []models.WalletTransaction{
		txn(models.TransactionCredit, 100.00, 100.00),
		txn(models.TransactionCredit, 50.00, 175.00), // should be 150.00
	}

	_, err := FoldTransactions(log)
	if err == nil {
		t.Fatal("expected broken-chain error, got nil")
	}
	if !strings.Contains(err.Error(), "balanceAfter") {
		t.Errorf("error should mention balanceAfter: %v", err)
	}
}

// TestFoldDetectsNegativeBalance: a debit that overdraws fails the replay.
func TestFoldDetectsNegativeBalance(t *testing.T) {
	log := []models.WalletTransaction{
		txn(models.TransactionCredit, 100.00, 100.00),
		txn(models.TransactionDebit, 150.00, -50.00),
	}

	if _, err := FoldTransactions(log); err == nil {
		t.Fatal("expected negative-balance error, got nil")
	}
}

// TestFoldRejectsNonPositiveAmounts: a zero or negative amount is never a
// legal ledger row.
func TestFoldRejectsNonPositiveAmounts(t *testing.T) {
	for _, amount := range []float64{0, -10} {
		log := []models.WalletTransaction{txn(models.TransactionCredit, amount, amount)}
		if _, err := FoldTransactions(log); err == nil {
			t.Errorf("amount %.2f: expected error, got nil", amount)
		}
	}
}

// TestCheckWalletAgainstTotals verifies projection/replay comparison both ways.
func TestCheckWalletAgainstTotals(t *testing.T) {
	totals := LedgerTotals{Balance: 5000, TotalEarned: 25000, TotalWithdrawn: 20000, Entries: 3}

	good := &models.Wallet{
		ID:             primitive.NewObjectID(),
		Balance:        5000,
		TotalEarned:    25000,
		TotalWithdrawn: 20000,
	}
	if err := CheckWalletAgainstTotals(good, totals); err != nil {
		t.Errorf("consistent wallet flagged: %v", err)
	}

	driftedProjection := &models.Wallet{
		ID:             primitive.NewObjectID(),
		Balance:        6000,
		TotalEarned:    26000,
		TotalWithdrawn: 20000,
	}
	if err := CheckWalletAgainstTotals(driftedProjection, totals); err == nil {
		t.Error("drifted projection should fail the check")
	}

	brokenIdentity := &models.Wallet{
		ID:             primitive.NewObjectID(),
		Balance:        5001, // != 25000 - 20000
		TotalEarned:    25000,
		TotalWithdrawn: 20000,
	}
	if err := CheckWalletAgainstTotals(brokenIdentity, totals); err == nil {
		t.Error("broken balance identity should fail the check")
	}
}

// TestWithdrawalRoundTripLedger walks the documented round trip at the
// ledger level: earn 20,000, withdraw all of it, end at zero with the
// final balanceAfter = 0.
func TestWithdrawalRoundTripLedger(t *testing.T) {
	log := []models.WalletTransaction{
		txn(models.TransactionCredit, 20000.00, 20000.00),
		txn(models.TransactionDebit, 20000.00, 0.00),
	}

	totals, err := FoldTransactions(log)
	if err != nil {
		t.Fatalf("FoldTransactions: %v", err)
	}
	if totals.Balance != 0 {
		t.Errorf("balance after round trip: got %.2f, want 0", totals.Balance)
	}
	if log[len(log)-1].BalanceAfter != 0 {
		t.Errorf("final balanceAfter: got %.2f, want 0", log[len(log)-1].BalanceAfter)
	}

	// Any further debit would overdraw and must fail the replay
	overdrawn := append(log, txn(models.TransactionDebit, 0.01, -0.01))
	if _, err := FoldTransactions(overdrawn); err == nil {
		t.Error("debit from empty wallet should fail the replay")
	}
}
