package services

import (
	"fmt"

	"github.com/leadnest/crm_backend/models"
)

// LedgerTotals is the result of folding a wallet's transaction log in
// creation order. The transaction log is the source of truth; the wallet
// document's balance fields are a cached projection that must always be
// reproducible by this fold.
type LedgerTotals struct {
	Balance        float64 `json:"balance"`
	TotalEarned    float64 `json:"totalEarned"`
	TotalWithdrawn float64 `json:"totalWithdrawn"`
	Entries        int     `json:"entries"`
}

// FoldTransactions replays a wallet's transactions in the order given and
// returns the resulting totals. It fails if any entry carries a
// non-positive amount or a balanceAfter that does not match the running
// sum up to and including that entry.
func FoldTransactions(txns []models.WalletTransaction) (LedgerTotals, error) {
	var totals LedgerTotals
	for i, txn := range txns {
		if txn.Amount <= 0 {
			return totals, fmt.Errorf("transaction %d (%s): non-positive amount %.2f", i, txn.TransactionNo, txn.Amount)
		}

		switch txn.Direction {
		case models.TransactionCredit:
			totals.Balance = round2(totals.Balance + txn.Amount)
			totals.TotalEarned = round2(totals.TotalEarned + txn.Amount)
		case models.TransactionDebit:
			totals.Balance = round2(totals.Balance - txn.Amount)
			totals.TotalWithdrawn = round2(totals.TotalWithdrawn + txn.Amount)
		default:
			return totals, fmt.Errorf("transaction %d (%s): unknown direction %q", i, txn.TransactionNo, txn.Direction)
		}

		if totals.Balance < 0 {
			return totals, fmt.Errorf("transaction %d (%s): balance went negative (%.2f)", i, txn.TransactionNo, totals.Balance)
		}
		if txn.BalanceAfter != totals.Balance {
			return totals, fmt.Errorf("transaction %d (%s): stored balanceAfter %.2f, replay gives %.2f",
				i, txn.TransactionNo, txn.BalanceAfter, totals.Balance)
		}
		totals.Entries++
	}
	return totals, nil
}

// CheckWalletAgainstTotals verifies a wallet document against replayed
// totals and the balance identity balance == totalEarned - totalWithdrawn.
func CheckWalletAgainstTotals(wallet *models.Wallet, totals LedgerTotals) error {
	if round2(wallet.TotalEarned-wallet.TotalWithdrawn) != wallet.Balance {
		return fmt.Errorf("wallet %s: balance %.2f != totalEarned %.2f - totalWithdrawn %.2f",
			wallet.ID.Hex(), wallet.Balance, wallet.TotalEarned, wallet.TotalWithdrawn)
	}
	if wallet.Balance != totals.Balance ||
		wallet.TotalEarned != totals.TotalEarned ||
		wallet.TotalWithdrawn != totals.TotalWithdrawn {
		return fmt.Errorf("wallet %s: stored (%.2f/%.2f/%.2f) does not match replay (%.2f/%.2f/%.2f)",
			wallet.ID.Hex(),
			wallet.Balance, wallet.TotalEarned, wallet.TotalWithdrawn,
			totals.Balance, totals.TotalEarned, totals.TotalWithdrawn)
	}
	return nil
}

// ReplayReport is the outcome of auditing one wallet against its log.
type ReplayReport struct {
	Wallet     models.Wallet `json:"wallet"`
	Totals     LedgerTotals  `json:"replayed"`
	Consistent bool          `json:"consistent"`
	Problem    string        `json:"problem,omitempty"`
}
