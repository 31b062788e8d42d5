package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/leadnest/crm_backend/models"
)

// maxApplyRetries bounds how often a credit/debit unit is retried after a
// lost-update conflict before ErrConcurrencyConflict reaches the caller.
const maxApplyRetries = 3

// WalletService moves money. Every credit/debit is one logical unit:
// update the wallet projection and append the matching transaction row
// with a consistent balanceAfter. The unit is serialized two ways: a
// per-wallet in-process mutex keeps concurrent handlers on one node from
// interleaving, and an optimistic version check on the wallet document
// catches lost updates across nodes.
type WalletService struct {
	DB *mongo.Database

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewWalletService(db *mongo.Database) *WalletService {
	return &WalletService{
		DB:    db,
		locks: make(map[string]*sync.Mutex),
	}
}

// GetOrCreateWallet returns the partner's wallet, creating a zero-balance
// one on first use. Two concurrent first-use callers race on the unique
// partnerId index; the loser fetches the winner's wallet.
func (s *WalletService) GetOrCreateWallet(ctx context.Context, partnerID primitive.ObjectID) (*models.Wallet, error) {
	coll := s.DB.Collection("wallets")

	var wallet models.Wallet
	err := coll.FindOne(ctx, bson.M{"partnerId": partnerID}).Decode(&wallet)
	if err == nil {
		return &wallet, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	now := time.Now()
	fresh := models.Wallet{
		ID:        primitive.NewObjectID(),
		PartnerID: partnerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := coll.InsertOne(ctx, fresh); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Someone else created it first, use theirs
			if ferr := coll.FindOne(ctx, bson.M{"partnerId": partnerID}).Decode(&wallet); ferr == nil {
				return &wallet, nil
			}
		}
		return nil, err
	}
	return &fresh, nil
}

// Credit adds amount to the partner's wallet and appends a credit
// transaction. Fails with ErrInvalidAmount for amount <= 0 and with
// ErrDuplicateCommission when a commission credit for the same reference
// already exists.
func (s *WalletService) Credit(ctx context.Context, partnerID primitive.ObjectID, amount float64, txnType models.TransactionType, ref models.TransactionReference, description string) (*models.WalletTransaction, error) {
	return s.apply(ctx, partnerID, models.TransactionCredit, amount, txnType, ref, description)
}

// Debit removes amount from the partner's wallet and appends a debit
// transaction. Fails with ErrInvalidAmount for amount <= 0 and with
// ErrInsufficientBalance when amount exceeds the current balance.
func (s *WalletService) Debit(ctx context.Context, partnerID primitive.ObjectID, amount float64, txnType models.TransactionType, ref models.TransactionReference, description string) (*models.WalletTransaction, error) {
	return s.apply(ctx, partnerID, models.TransactionDebit, amount, txnType, ref, description)
}

func (s *WalletService) apply(ctx context.Context, partnerID primitive.ObjectID, direction models.TransactionDirection, amount float64, txnType models.TransactionType, ref models.TransactionReference, description string) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	amount = round2(amount)

	unlock := s.lockWallet(partnerID)
	defer unlock()

	for attempt := 0; attempt < maxApplyRetries; attempt++ {
		wallet, err := s.GetOrCreateWallet(ctx, partnerID)
		if err != nil {
			return nil, err
		}

		var newBalance, newEarned, newWithdrawn float64
		if direction == models.TransactionCredit {
			newBalance = round2(wallet.Balance + amount)
			newEarned = round2(wallet.TotalEarned + amount)
			newWithdrawn = wallet.TotalWithdrawn
		} else {
			if amount > wallet.Balance {
				return nil, ErrInsufficientBalance
			}
			newBalance = round2(wallet.Balance - amount)
			newEarned = wallet.TotalEarned
			newWithdrawn = round2(wallet.TotalWithdrawn + amount)
		}

		now := time.Now()
		res, err := s.DB.Collection("wallets").UpdateOne(ctx,
			bson.M{"_id": wallet.ID, "version": wallet.Version},
			bson.M{
				"$set": bson.M{
					"balance":        newBalance,
					"totalEarned":    newEarned,
					"totalWithdrawn": newWithdrawn,
					"updatedAt":      now,
				},
				"$inc": bson.M{"version": 1},
			},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			// Lost update: another node moved the wallet between our read
			// and write. Re-read and try again.
			continue
		}

		txn := models.WalletTransaction{
			ID:              primitive.NewObjectID(),
			WalletID:        wallet.ID,
			PartnerID:       partnerID,
			TransactionNo:   uuid.NewString(),
			Direction:       direction,
			Amount:          amount,
			TransactionType: txnType,
			Reference:       ref,
			Description:     description,
			BalanceAfter:    newBalance,
			CreatedAt:       now,
		}
		if _, err := s.DB.Collection("walletTransactions").InsertOne(ctx, txn); err != nil {
			s.revertWallet(ctx, wallet)
			if mongo.IsDuplicateKeyError(err) {
				return nil, ErrDuplicateCommission
			}
			return nil, err
		}
		return &txn, nil
	}

	return nil, ErrConcurrencyConflict
}

// revertWallet is the compensating update for a failed transaction
// append: it restores the balances captured before the unit started. The
// version filter makes sure only our own half-applied update is undone.
func (s *WalletService) revertWallet(ctx context.Context, wallet *models.Wallet) {
	_, err := s.DB.Collection("wallets").UpdateOne(ctx,
		bson.M{"_id": wallet.ID, "version": wallet.Version + 1},
		bson.M{
			"$set": bson.M{
				"balance":        wallet.Balance,
				"totalEarned":    wallet.TotalEarned,
				"totalWithdrawn": wallet.TotalWithdrawn,
				"updatedAt":      time.Now(),
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		log.Printf("CRITICAL: failed to revert wallet %s after transaction append failure: %v (run ledger audit)",
			wallet.ID.Hex(), err)
	}
}

// Summary returns the dashboard view of a partner's wallet.
func (s *WalletService) Summary(ctx context.Context, partnerID primitive.ObjectID) (*models.WalletSummary, error) {
	wallet, err := s.GetOrCreateWallet(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	return &models.WalletSummary{
		Balance:        wallet.Balance,
		TotalEarned:    wallet.TotalEarned,
		TotalWithdrawn: wallet.TotalWithdrawn,
	}, nil
}

// ListTransactions returns a page of the partner's transaction history,
// newest first, optionally narrowed by direction, transaction type and
// date range. Also returns the total count for pagination.
func (s *WalletService) ListTransactions(ctx context.Context, partnerID primitive.ObjectID, filter models.TransactionFilter, page, limit int) ([]models.WalletTransaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := bson.M{"partnerId": partnerID}
	if filter.Direction != "" {
		query["type"] = filter.Direction
	}
	if filter.TransactionType != "" {
		query["transactionType"] = filter.TransactionType
	}
	if filter.From != nil || filter.To != nil {
		dateRange := bson.M{}
		if filter.From != nil {
			dateRange["$gte"] = *filter.From
		}
		if filter.To != nil {
			dateRange["$lte"] = *filter.To
		}
		query["createdAt"] = dateRange
	}

	coll := s.DB.Collection("walletTransactions")
	total, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := coll.Find(ctx, query, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var txns []models.WalletTransaction
	if err := cursor.All(ctx, &txns); err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// Replay audits a partner's wallet by folding its transaction log in
// creation order and comparing the result with the stored projection.
func (s *WalletService) Replay(ctx context.Context, partnerID primitive.ObjectID) (*ReplayReport, error) {
	wallet, err := s.GetOrCreateWallet(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	cursor, err := s.DB.Collection("walletTransactions").Find(ctx,
		bson.M{"walletId": wallet.ID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var txns []models.WalletTransaction
	if err := cursor.All(ctx, &txns); err != nil {
		return nil, err
	}

	report := &ReplayReport{Wallet: *wallet}
	totals, err := FoldTransactions(txns)
	report.Totals = totals
	if err != nil {
		report.Problem = err.Error()
		return report, nil
	}
	if err := CheckWalletAgainstTotals(wallet, totals); err != nil {
		report.Problem = err.Error()
		return report, nil
	}
	report.Consistent = true
	return report, nil
}

// lockWallet acquires the in-process mutex for one partner's wallet and
// returns the matching unlock.
func (s *WalletService) lockWallet(partnerID primitive.ObjectID) func() {
	key := partnerID.Hex()

	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}
